// Package gateway executes external operations (cloud CLI calls,
// orchestrator subprocesses) with a bounded timeout. Nothing escapes the
// Run boundary: every failure mode lands in the Result.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout applies when a Spec carries none.
	DefaultTimeout = time.Minute

	maxOutputBytes = 64 * 1024
)

// ErrTimedOut marks a command cancelled by its own deadline. Callers match
// it with errors.Is to apply targeted remediation (credential refresh,
// container restart) instead of generic failure handling.
var ErrTimedOut = errors.New("command timed out")

// Spec describes one external invocation.
type Spec struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

func (s Spec) String() string {
	return s.Name + " " + strings.Join(s.Args, " ")
}

// Result is the structured outcome of one invocation. Err is populated for
// classification only; OK plus Stderr carry the caller-facing detail.
type Result struct {
	OK      bool
	Stdout  string
	Stderr  string
	Elapsed time.Duration
	Err     error
}

// TimedOut reports whether the command was cut off by its deadline.
func (r Result) TimedOut() bool { return errors.Is(r.Err, ErrTimedOut) }

// Runner executes a Spec. The interface exists so fleet and monitor code can
// run against a scripted fake.
type Runner interface {
	Run(ctx context.Context, spec Spec) Result
}

// ExecRunner runs commands via os/exec. It owns no state between calls.
type ExecRunner struct {
	Log *zap.Logger
}

func NewExecRunner(log *zap.Logger) *ExecRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecRunner{Log: log}
}

func (e *ExecRunner) Run(ctx context.Context, spec Spec) Result {
	timeout := spec.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	// Without a wait delay, Run blocks past the deadline whenever the killed
	// process leaves a child holding the output pipes (aws and docker exec
	// both spawn children). The delay bounds how long we wait after the kill.
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	res := Result{
		Stdout:  truncate(stdout.String()),
		Stderr:  truncate(stderr.String()),
		Elapsed: elapsed,
	}

	switch {
	case err == nil:
		res.OK = true
	case ctx.Err() == context.DeadlineExceeded:
		res.Err = fmt.Errorf("%w: '%s' after %s", ErrTimedOut, spec, timeout)
		res.Stderr = res.Err.Error()
	default:
		// Non-zero exit, missing binary, and everything else: the command
		// failed, the result says why.
		res.Err = err
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	}

	e.Log.Debug("command finished",
		zap.String("cmd", spec.String()),
		zap.Bool("ok", res.OK),
		zap.Duration("elapsed", elapsed),
	)
	return res
}

func truncate(s string) string {
	if len(s) > maxOutputBytes {
		return s[:maxOutputBytes] + "\n... (output truncated at 64KB)"
	}
	return s
}
