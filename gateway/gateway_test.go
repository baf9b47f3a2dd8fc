package gateway

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunSuccess(t *testing.T) {
	r := NewExecRunner(nil)
	res := r.Run(context.Background(), Spec{Name: "sh", Args: []string{"-c", "printf hello"}})

	if !res.OK {
		t.Fatalf("OK = false, stderr = %q", res.Stderr)
	}
	if res.Stdout != "hello" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if res.Elapsed <= 0 {
		t.Error("elapsed not recorded")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	r := NewExecRunner(nil)
	res := r.Run(context.Background(), Spec{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})

	if res.OK {
		t.Fatal("OK = true for failing command")
	}
	if !strings.Contains(res.Stderr, "boom") {
		t.Errorf("stderr = %q, want captured output", res.Stderr)
	}
	if res.TimedOut() {
		t.Error("non-zero exit misclassified as timeout")
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := NewExecRunner(nil)
	res := r.Run(context.Background(), Spec{Name: "definitely-not-a-binary-xyz"})

	if res.OK {
		t.Fatal("OK = true for missing binary")
	}
	if res.Stderr == "" {
		t.Error("stderr empty for missing binary")
	}
}

func TestRunTimeout(t *testing.T) {
	r := NewExecRunner(nil)
	start := time.Now()
	res := r.Run(context.Background(), Spec{
		Name:    "sh",
		Args:    []string{"-c", "sleep 10"},
		Timeout: 100 * time.Millisecond,
	})
	took := time.Since(start)

	if res.OK {
		t.Fatal("OK = true for timed-out command")
	}
	if !res.TimedOut() {
		t.Fatalf("TimedOut() = false, err = %v", res.Err)
	}
	if !strings.Contains(res.Stderr, "timed out") {
		t.Errorf("stderr = %q, want distinguishable timeout detail", res.Stderr)
	}
	// Must return within timeout + epsilon, not run to completion.
	if took > 3*time.Second {
		t.Errorf("run took %s, deadline not enforced", took)
	}
}

func TestRunTimeoutWithChildHoldingPipes(t *testing.T) {
	// The killed shell leaves a background child sharing stdout/stderr.
	// Waiting on the pipes must not extend the call to the child's
	// lifetime; the wait delay cuts it off.
	r := NewExecRunner(nil)
	start := time.Now()
	res := r.Run(context.Background(), Spec{
		Name:    "sh",
		Args:    []string{"-c", "sleep 10 & wait"},
		Timeout: 100 * time.Millisecond,
	})
	took := time.Since(start)

	if res.OK {
		t.Fatal("OK = true for timed-out command")
	}
	if !res.TimedOut() {
		t.Fatalf("TimedOut() = false, err = %v", res.Err)
	}
	if took > 5*time.Second {
		t.Errorf("run took %s, child held the call open", took)
	}
}
