package fleet

import (
	"context"
	"errors"
	"testing"
)

// memStore is an in-memory StateStore.
type memStore struct {
	records map[string]InstanceRecord
	removed []string
}

func newMemStore(records ...InstanceRecord) *memStore {
	s := &memStore{records: map[string]InstanceRecord{}}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *memStore) Load() ([]InstanceRecord, error) {
	var out []InstanceRecord
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) Remove(ids []string) error {
	for _, id := range ids {
		delete(s.records, id)
		s.removed = append(s.removed, id)
	}
	return nil
}

func TestNukeNothingFound(t *testing.T) {
	ctrl := &Controller{Cloud: &fakeCloud{}, Store: newMemStore(), Parallelism: 2}

	report, err := ctrl.Nuke(context.Background(), NukeOptions{
		Regions: []string{"us-east-1", "eu-west-1"},
		ConfirmScan: func([]InstanceRecord) bool {
			t.Fatal("confirmation requested with nothing found")
			return false
		},
	})
	if err != nil {
		t.Fatalf("Nuke: %v", err)
	}
	if len(report.Found) != 0 || report.Aborted {
		t.Errorf("report = %+v", report)
	}
}

func TestNukeRequiresBothConfirmations(t *testing.T) {
	cloud := &fakeCloud{instances: map[string][]InstanceRecord{
		"us-east-1": {record("i-1", "us-east-1")},
	}}
	ctrl := &Controller{Cloud: cloud, Store: newMemStore(), Parallelism: 2}

	// First confirmation passes, second declines: nothing terminated.
	report, err := ctrl.Nuke(context.Background(), NukeOptions{
		Regions:          []string{"us-east-1"},
		ConfirmScan:      func([]InstanceRecord) bool { return true },
		ConfirmTerminate: func(int) bool { return false },
	})
	if err != nil {
		t.Fatalf("Nuke: %v", err)
	}
	if !report.Aborted {
		t.Error("report not marked aborted")
	}
	if cloud.terminateCalls != 0 {
		t.Errorf("terminate called %d times after declined confirmation", cloud.terminateCalls)
	}
}

func TestNukeForceBypassesConfirmation(t *testing.T) {
	cloud := &fakeCloud{instances: map[string][]InstanceRecord{
		"us-east-1": {record("i-1", "us-east-1"), record("i-2", "us-east-1")},
	}}
	store := newMemStore(record("i-1", "us-east-1"))
	ctrl := &Controller{Cloud: cloud, Store: store, Parallelism: 2}

	report, err := ctrl.Nuke(context.Background(), NukeOptions{
		Regions: []string{"us-east-1"},
		Force:   true,
	})
	if err != nil {
		t.Fatalf("Nuke: %v", err)
	}
	if report.Terminated != 2 || report.Failed != 0 {
		t.Errorf("terminated = %d, failed = %d", report.Terminated, report.Failed)
	}
}

func TestNukeReconcilesOnlyConfirmedIDs(t *testing.T) {
	// i-1 terminates, i-2's whole region batch fails: only i-1 leaves state.
	cloud := &fakeCloud{
		instances: map[string][]InstanceRecord{
			"us-east-1": {record("i-1", "us-east-1")},
			"eu-west-1": {record("i-2", "eu-west-1")},
		},
		terminateErrs: map[string]error{"eu-west-1": errors.New("api down")},
	}
	store := newMemStore(record("i-1", "us-east-1"), record("i-2", "eu-west-1"))
	ctrl := &Controller{Cloud: cloud, Store: store, Parallelism: 2}

	report, err := ctrl.Nuke(context.Background(), NukeOptions{
		Regions: []string{"us-east-1", "eu-west-1"},
		Force:   true,
	})
	if err != nil {
		t.Fatalf("Nuke: %v", err)
	}
	if report.Terminated != 1 || report.Failed != 1 {
		t.Errorf("terminated = %d, failed = %d", report.Terminated, report.Failed)
	}
	if _, stillThere := store.records["i-2"]; !stillThere {
		t.Error("failed id removed from state")
	}
	if _, present := store.records["i-1"]; present {
		t.Error("confirmed id not removed from state")
	}
}

func TestDestroyFromRecordedState(t *testing.T) {
	cloud := &fakeCloud{}
	store := newMemStore(record("i-1", "us-east-1"), record("i-2", "ap-south-1"))
	ctrl := &Controller{Cloud: cloud, Store: store, Parallelism: 2}

	report, err := ctrl.Destroy(context.Background(), DestroyOptions{
		Confirm: func(found []InstanceRecord) bool { return len(found) == 2 },
	})
	if err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if report.Terminated != 2 {
		t.Errorf("terminated = %d", report.Terminated)
	}
	if len(store.records) != 0 {
		t.Errorf("state still holds %d records", len(store.records))
	}
}

func TestDestroyEmptyState(t *testing.T) {
	ctrl := &Controller{Cloud: &fakeCloud{}, Store: newMemStore(), Parallelism: 2}
	report, err := ctrl.Destroy(context.Background(), DestroyOptions{Force: true})
	if err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if len(report.Found) != 0 || report.Terminated != 0 {
		t.Errorf("report = %+v", report)
	}
}
