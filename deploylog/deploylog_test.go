package deploylog

import (
	"fmt"
	"testing"
)

func TestParseLine(t *testing.T) {
	ev, ok := ParseLine("(worker8, rank=8, pid=2816, ip=172.31.41.250) deployment complete")
	if !ok {
		t.Fatal("line did not parse")
	}
	if ev.Node != "worker8" {
		t.Errorf("node = %q", ev.Node)
	}
	if ev.Rank != 8 {
		t.Errorf("rank = %d", ev.Rank)
	}
	if ev.IP != "172.31.41.250" {
		t.Errorf("ip = %q", ev.IP)
	}
	if ev.Message != "deployment complete" {
		t.Errorf("message = %q", ev.Message)
	}
}

func TestParseLineNoEvent(t *testing.T) {
	lines := []string{
		"",
		"plain log output with no node prefix",
		"(worker8, pid=2816, ip=172.31.41.250) missing rank field",
		"(worker8, rank=8, ip=1.2.3.4) missing pid field",
		"[2026-08-25 10:00:00] INFO starting up",
	}
	for _, line := range lines {
		if _, ok := ParseLine(line); ok {
			t.Errorf("line %q parsed, want no event", line)
		}
	}
}

func TestRingBufferBounded(t *testing.T) {
	table := NewTable()
	for i := 1; i <= 7; i++ {
		table.ApplyLine(fmt.Sprintf("(worker1, rank=1, pid=100, ip=10.0.0.1) message %d", i))
	}

	nodes := table.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes", len(nodes))
	}
	recent := nodes[0].Recent
	if len(recent) != RecentLimit {
		t.Fatalf("recent holds %d messages, want %d", len(recent), RecentLimit)
	}
	// After 7 inserts the buffer holds exactly messages 3..7 in order.
	for i, want := range []string{"message 3", "message 4", "message 5", "message 6", "message 7"} {
		if recent[i] != want {
			t.Errorf("recent[%d] = %q, want %q", i, recent[i], want)
		}
	}
}

func TestTableUpsertsNeverRemoves(t *testing.T) {
	table := NewTable()
	table.ApplyLine("(worker2, rank=2, pid=1, ip=10.0.0.2) starting services")
	table.ApplyLine("(worker1, rank=1, pid=1, ip=10.0.0.1) starting services")
	table.ApplyLine("(worker2, rank=2, pid=1, ip=10.9.9.9) docker daemon is running")

	if table.Len() != 2 {
		t.Fatalf("len = %d", table.Len())
	}
	nodes := table.Nodes()
	if nodes[0].Rank != 1 || nodes[1].Rank != 2 {
		t.Errorf("order = %d, %d, want by rank", nodes[0].Rank, nodes[1].Rank)
	}
	// Same key updated in place, ip refreshed.
	if nodes[1].IP != "10.9.9.9" {
		t.Errorf("worker2 ip = %q", nodes[1].IP)
	}
	if len(nodes[1].Recent) != 2 {
		t.Errorf("worker2 recent = %v", nodes[1].Recent)
	}
}

func TestNodeStatusLadder(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"deployment complete", "deployed"},
		{"Health Check Summary: all green", "health-check"},
		{"bacalhau node running", "service-started"},
		{"Docker daemon is running", "docker-ready"},
		{"Pulling image ubuntu:22.04", "pulling-images"},
		{"starting compute service", "starting-services"},
		{"ERROR: disk full", "error"},
		{"warning: clock skew", "warning"},
		{"synchronizing configuration", "working"},
	}
	for _, tc := range cases {
		table := NewTable()
		n := table.ApplyLine(fmt.Sprintf("(w, rank=0, pid=1, ip=10.0.0.1) %s", tc.message))
		if n == nil {
			t.Fatalf("%q did not parse", tc.message)
		}
		if got := n.Status(); got != tc.want {
			t.Errorf("status(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}

	empty := &Node{Name: "w", Rank: 0}
	if empty.Status() != "initializing" {
		t.Errorf("empty node status = %q", empty.Status())
	}
}
