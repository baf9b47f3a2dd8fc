// Package deploylog interprets the deployment's append-only log stream.
// Most lines are unstructured noise; the ones that match the node prefix
// shape feed a per-node table. Format drift in the orchestrator's output is
// an external-interface change and lands here, nowhere else.
package deploylog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Line shape: (worker8, rank=8, pid=2816, ip=172.31.41.250) message
var lineRE = regexp.MustCompile(`^\(([^,]+),\s*rank=(\d+),\s*pid=\d+,\s*ip=([^)]+)\)\s*(.*)`)

// Event is one structured observation extracted from a log line.
type Event struct {
	Node    string
	Rank    int
	IP      string
	Message string
	At      time.Time
}

// ParseLine extracts a node event from one log line. Lines that don't match
// the shape yield ok=false: no information, never an error.
func ParseLine(line string) (Event, bool) {
	m := lineRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Event{}, false
	}
	rank, err := strconv.Atoi(m[2])
	if err != nil {
		return Event{}, false
	}
	return Event{
		Node:    strings.TrimSpace(m[1]),
		Rank:    rank,
		IP:      strings.TrimSpace(m[3]),
		Message: strings.TrimSpace(m[4]),
		At:      time.Now(),
	}, true
}

// RecentLimit bounds each node's message ring buffer.
const RecentLimit = 5

// Node is the accumulated view of one deployment node, keyed by
// (name, rank). Nodes are created on first sighting and never removed
// within a monitoring session.
type Node struct {
	Name       string
	Rank       int
	IP         string
	Recent     []string // FIFO, oldest first, at most RecentLimit
	LastUpdate time.Time
}

// Status derives a transient state from the latest message. It is
// recomputed on each render, never stored.
func (n *Node) Status() string {
	if len(n.Recent) == 0 {
		return "initializing"
	}
	latest := strings.ToLower(n.Recent[len(n.Recent)-1])
	switch {
	case strings.Contains(latest, "deployment complete"):
		return "deployed"
	case strings.Contains(latest, "health check summary"):
		return "health-check"
	case strings.Contains(latest, "bacalhau node running"):
		return "service-started"
	case strings.Contains(latest, "docker daemon is running"):
		return "docker-ready"
	case strings.Contains(latest, "pull"):
		return "pulling-images"
	case strings.Contains(latest, "start"):
		return "starting-services"
	case strings.Contains(latest, "error"), strings.Contains(latest, "failed"):
		return "error"
	case strings.Contains(latest, "warning"):
		return "warning"
	default:
		return "working"
	}
}

// Table owns the node state for one monitoring session. The key set only
// grows; Apply upserts, nothing deletes.
type Table struct {
	nodes map[string]*Node
}

func NewTable() *Table {
	return &Table{nodes: make(map[string]*Node)}
}

func key(name string, rank int) string {
	return name + "-" + strconv.Itoa(rank)
}

// Apply folds one event into the table and returns the affected node.
func (t *Table) Apply(ev Event) *Node {
	k := key(ev.Node, ev.Rank)
	n, ok := t.nodes[k]
	if !ok {
		n = &Node{Name: ev.Node, Rank: ev.Rank}
		t.nodes[k] = n
	}
	n.IP = ev.IP
	n.LastUpdate = ev.At
	n.Recent = append(n.Recent, ev.Message)
	if len(n.Recent) > RecentLimit {
		n.Recent = n.Recent[len(n.Recent)-RecentLimit:]
	}
	return n
}

// ApplyLine parses and applies one raw line; unmatched lines are ignored.
func (t *Table) ApplyLine(line string) *Node {
	ev, ok := ParseLine(line)
	if !ok {
		return nil
	}
	return t.Apply(ev)
}

// Nodes returns the current nodes sorted by rank.
func (t *Table) Nodes() []*Node {
	out := make([]*Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

func (t *Table) Len() int { return len(t.nodes) }
