package fleet

import (
	"context"
	"errors"
	"testing"
)

func TestTerminateRegionEmptyIsNoOp(t *testing.T) {
	cloud := &fakeCloud{}
	term := &Terminator{Cloud: cloud}

	out := term.TerminateRegion(context.Background(), "us-east-1", nil)
	if len(out) != 0 {
		t.Errorf("outcomes = %v, want empty", out)
	}
	if cloud.terminateCalls != 0 {
		t.Errorf("cloud called %d times for empty batch", cloud.terminateCalls)
	}
}

func TestTerminateRegionWholeBatchFailure(t *testing.T) {
	cloud := &fakeCloud{terminateErrs: map[string]error{
		"us-west-2": errors.New("RequestLimitExceeded"),
	}}
	term := &Terminator{Cloud: cloud}

	ids := []string{"i-1", "i-2", "i-3"}
	out := term.TerminateRegion(context.Background(), "us-west-2", ids)

	if len(out) != len(ids) {
		t.Fatalf("got %d outcomes, want %d", len(out), len(ids))
	}
	for _, id := range ids {
		outcome, ok := out[id]
		if !ok {
			t.Fatalf("no outcome for %s", id)
		}
		if !outcome.Failed() {
			t.Errorf("%s: status = %q, want error", id, outcome.Status)
		}
	}
}

func TestTerminateRegionPartialReporting(t *testing.T) {
	// Cloud reports one id, forgets the other: the missing one still gets an
	// outcome, distinct from the success.
	cloud := &fakeCloud{states: map[string]map[string]string{
		"eu-west-1": {"i-1": "shutting-down"},
	}}
	term := &Terminator{Cloud: cloud}

	out := term.TerminateRegion(context.Background(), "eu-west-1", []string{"i-1", "i-2"})
	if out["i-1"].Failed() {
		t.Errorf("i-1 = %+v, want success", out["i-1"])
	}
	if !out["i-2"].Failed() {
		t.Errorf("i-2 = %+v, want error for unreported id", out["i-2"])
	}
}
