package fleet

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeCloud scripts per-region behavior.
type fakeCloud struct {
	instances      map[string][]InstanceRecord
	scanErrs       map[string]error
	terminateErrs  map[string]error
	terminateCalls int
	states         map[string]map[string]string
}

func (f *fakeCloud) SpotInstances(_ context.Context, region string) ([]InstanceRecord, error) {
	if err := f.scanErrs[region]; err != nil {
		return nil, err
	}
	return f.instances[region], nil
}

func (f *fakeCloud) Terminate(_ context.Context, region string, ids []string) (map[string]string, error) {
	f.terminateCalls++
	if err := f.terminateErrs[region]; err != nil {
		return nil, err
	}
	if states, ok := f.states[region]; ok {
		return states, nil
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = "shutting-down"
	}
	return out, nil
}

func record(id, region string) InstanceRecord {
	return InstanceRecord{ID: id, Region: region, State: "running", Type: "t3.medium", PublicIP: "N/A", LaunchTime: "unknown"}
}

func TestScanAllAggregatesAcrossRegions(t *testing.T) {
	cloud := &fakeCloud{
		instances: map[string][]InstanceRecord{
			"us-east-1": {record("i-1", "us-east-1"), record("i-2", "us-east-1")},
			"eu-west-1": {record("i-3", "eu-west-1")},
		},
	}
	scanner := &Scanner{Cloud: cloud}

	all, errs := scanner.ScanAll(context.Background(), []string{"us-east-1", "eu-west-1"}, 2)
	if len(errs) != 0 {
		t.Fatalf("errors = %v", errs)
	}
	if len(all) != 3 {
		t.Fatalf("got %d instances", len(all))
	}
	// Sorted by region then id regardless of completion order.
	if all[0].Region != "eu-west-1" {
		t.Errorf("first record = %+v", all[0])
	}
}

func TestScanAllAuthorizationDeniedIsSilentSkip(t *testing.T) {
	// Region A returns 2 instances, region B denies authorization: the
	// aggregate is exactly A's 2 with zero reported region errors.
	cloud := &fakeCloud{
		instances: map[string][]InstanceRecord{
			"region-a": {record("i-1", "region-a"), record("i-2", "region-a")},
		},
		scanErrs: map[string]error{
			"region-b": fmt.Errorf("region region-b: describe-instances: %w", ErrAuthorizationDenied),
		},
	}
	scanner := &Scanner{Cloud: cloud}

	all, errs := scanner.ScanAll(context.Background(), []string{"region-a", "region-b"}, 2)
	if len(errs) != 0 {
		t.Fatalf("region errors = %v, want none", errs)
	}
	if len(all) != 2 {
		t.Fatalf("got %d instances, want 2", len(all))
	}
	for _, r := range all {
		if r.Region != "region-a" {
			t.Errorf("unexpected record %+v", r)
		}
	}
}

func TestScanAllReportsOtherFailures(t *testing.T) {
	cloud := &fakeCloud{
		instances: map[string][]InstanceRecord{"ok": {record("i-1", "ok")}},
		scanErrs:  map[string]error{"broken": errors.New("throttled")},
	}
	scanner := &Scanner{Cloud: cloud}

	all, errs := scanner.ScanAll(context.Background(), []string{"ok", "broken"}, 2)
	if len(all) != 1 {
		t.Errorf("instances = %d", len(all))
	}
	if len(errs) != 1 || errs[0].Region != "broken" {
		t.Fatalf("errors = %v, want one for broken", errs)
	}
}
