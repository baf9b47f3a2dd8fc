// Package monitor watches a deployment to completion. It has no direct
// cloud access: everything it knows comes from polled status, queue, and
// log text, interpreted by the parsers in this package and in deploylog.
package monitor

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"strato/deploylog"
	"strato/gateway"
)

// Phase is the monitor's position in the deployment lifecycle. Phases only
// advance; a flapping status line never moves the monitor backwards.
type Phase int

const (
	Scanning Phase = iota
	ClusterInit
	ClusterUpJobPending
	JobRunning
	JobSucceeded
	JobFailed
	TimedOut
)

func (p Phase) String() string {
	switch p {
	case Scanning:
		return "scanning"
	case ClusterInit:
		return "cluster-init"
	case ClusterUpJobPending:
		return "job-pending"
	case JobRunning:
		return "job-running"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	case TimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends the watch.
func (p Phase) Terminal() bool {
	return p == JobSucceeded || p == JobFailed || p == TimedOut
}

// Snapshot is one rendered observation. Sinks receive a fresh snapshot per
// tick and must not retain the slices.
type Snapshot struct {
	Phase        Phase
	Cluster      string
	ClusterState string
	Job          string
	JobStatus    string
	JobDuration  int // seconds, from the queue's duration column
	Elapsed      time.Duration
	Warning      string
	RecentLogs   []string
	Nodes        []*deploylog.Node
	Message      string
}

// Sink receives snapshots. The CLI plugs a terminal UI in here; tests plug
// a recorder.
type Sink interface {
	Render(Snapshot)
}

// NopSink discards snapshots.
type NopSink struct{}

func (NopSink) Render(Snapshot) {}

// StatusClient is the slice of the orchestrator client the monitor needs.
type StatusClient interface {
	Status(ctx context.Context) gateway.Result
	Queue(ctx context.Context, cluster string) gateway.Result
	Logs(ctx context.Context, cluster string, tail int) gateway.Result
}

// Config tunes one watch session.
type Config struct {
	Job           string
	ClusterPrefix string
	Tick          time.Duration
	Ceiling       time.Duration
	RunningGrace  time.Duration
	TailLines     int
}

func (c *Config) fill() {
	if c.Tick <= 0 {
		c.Tick = 3 * time.Second
	}
	if c.Ceiling <= 0 {
		c.Ceiling = 20 * time.Minute
	}
	if c.RunningGrace <= 0 {
		c.RunningGrace = 5 * time.Minute
	}
	if c.TailLines <= 0 {
		c.TailLines = 30
	}
}

// Outcome summarizes a finished watch.
type Outcome struct {
	Phase   Phase
	Cluster string
	Elapsed time.Duration
}

// Monitor drives the poll loop.
type Monitor struct {
	Client StatusClient
	Sink   Sink
	Log    *zap.Logger
	Config Config

	now func() time.Time
}

func New(client StatusClient, sink Sink, log *zap.Logger, cfg Config) *Monitor {
	if sink == nil {
		sink = NopSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	cfg.fill()
	return &Monitor{Client: client, Sink: sink, Log: log, Config: cfg, now: time.Now}
}

// Run polls until the deployment reaches a terminal phase, the ceiling
// expires, or ctx is canceled. Poll errors degrade to warnings on the
// snapshot; only cancellation returns an error.
func (m *Monitor) Run(ctx context.Context) (Outcome, error) {
	start := m.now()
	ticker := time.NewTicker(m.Config.Tick)
	defer ticker.Stop()

	phase := Scanning
	table := deploylog.NewTable()
	var cluster string

	for {
		elapsed := m.now().Sub(start)
		snap := Snapshot{Phase: phase, Cluster: cluster, Job: m.Config.Job, Elapsed: elapsed}

		if elapsed >= m.Config.Ceiling {
			snap.Phase = TimedOut
			snap.Message = "deployment did not finish within the time ceiling"
			m.Sink.Render(snap)
			m.Log.Warn("watch timed out", zap.Duration("elapsed", elapsed))
			return Outcome{Phase: TimedOut, Cluster: cluster, Elapsed: elapsed}, nil
		}

		phase, cluster, snap = m.observe(ctx, phase, cluster, table, snap)
		snap.Nodes = table.Nodes()
		m.Sink.Render(snap)

		if phase.Terminal() {
			return Outcome{Phase: phase, Cluster: cluster, Elapsed: elapsed}, nil
		}

		select {
		case <-ctx.Done():
			return Outcome{Phase: phase, Cluster: cluster, Elapsed: m.now().Sub(start)}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// observe performs one poll round. It never returns a phase earlier than
// the one passed in.
func (m *Monitor) observe(ctx context.Context, phase Phase, cluster string, table *deploylog.Table, snap Snapshot) (Phase, string, Snapshot) {
	status := m.Client.Status(ctx)
	if !status.OK {
		snap.Warning = "status poll failed: " + firstLine(status.Stderr)
		snap.Phase = phase
		return phase, cluster, snap
	}

	name, state, found := FindCluster(status.Stdout, m.Config.ClusterPrefix)
	if !found {
		snap.Phase = phase
		if phase == Scanning {
			snap.Message = "waiting for cluster to appear"
		} else {
			snap.Warning = "cluster missing from status output"
		}
		return phase, cluster, snap
	}
	cluster = name
	snap.Cluster = name
	snap.ClusterState = state

	switch state {
	case "INIT":
		phase = advance(phase, ClusterInit)
	case "UP":
		phase = advance(phase, ClusterUpJobPending)
	}

	if phase >= ClusterUpJobPending {
		queue := m.Client.Queue(ctx, cluster)
		if !queue.OK {
			snap.Warning = "queue poll failed: " + firstLine(queue.Stderr)
		} else if row, ok := FindJobRow(queue.Stdout, m.Config.Job); ok {
			snap.JobStatus = row.Status
			snap.JobDuration = ParseDuration(row.Duration)
			switch row.Status {
			case "RUNNING":
				phase = advance(phase, JobRunning)
			case "SUCCEEDED":
				phase = advance(phase, JobSucceeded)
			case "FAILED", "FAILED_SETUP", "FAILED_DRIVER", "CANCELLED":
				phase = advance(phase, JobFailed)
			}
		}
	}

	if phase >= JobRunning && cluster != "" {
		logs := m.Client.Logs(ctx, cluster, m.Config.TailLines)
		if logs.OK {
			tail := TailLines(logs.Stdout, m.Config.TailLines)
			snap.RecentLogs = tail
			for _, line := range tail {
				table.ApplyLine(line)
			}
			// A job that has been RUNNING strictly longer than the grace
			// window and is printing completion phrases is done even if
			// the queue has not flipped yet.
			if phase == JobRunning && snap.JobDuration > int(m.Config.RunningGrace.Seconds()) {
				if ContainsCompletionKeyword(lastN(tail, 10)) {
					m.Log.Info("completion phrase seen past grace window",
						zap.Int("job_duration_s", snap.JobDuration))
					phase = advance(phase, JobSucceeded)
				}
			}
		} else {
			snap.Warning = "log poll failed: " + firstLine(logs.Stderr)
		}
	}

	snap.Phase = phase
	return phase, cluster, snap
}

// advance moves to next only if it is strictly later than cur.
func advance(cur, next Phase) Phase {
	if next > cur {
		return next
	}
	return cur
}

func lastN(lines []string, n int) []string {
	if len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return "unknown error"
}
