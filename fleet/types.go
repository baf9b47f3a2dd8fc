// Package fleet discovers and tears down ephemeral spot capacity across
// regions. Scans produce immutable snapshots; termination is best-effort
// and idempotent by retry, never transactional.
package fleet

import (
	"errors"
	"sort"
	"strings"
)

// InstanceRecord is a snapshot of one instance at scan time. Re-scans
// produce new records; nothing mutates these in place.
type InstanceRecord struct {
	ID         string            `json:"id"`
	Region     string            `json:"region"`
	State      string            `json:"state"`
	Type       string            `json:"type"`
	PublicIP   string            `json:"public_ip"`
	LaunchTime string            `json:"launch_time"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// Name returns the Name tag, or "" when untagged.
func (r InstanceRecord) Name() string { return r.Tags["Name"] }

// TerminationOutcome records what happened to one instance in a termination
// batch. Status is either the cloud-reported state ("shutting-down",
// "terminated") or "error:<detail>".
type TerminationOutcome struct {
	InstanceID string `json:"instance_id"`
	Status     string `json:"status"`
}

// Failed reports whether the outcome is an error rather than a confirmed
// termination state.
func (o TerminationOutcome) Failed() bool {
	return strings.HasPrefix(o.Status, "error:")
}

// ErrAuthorizationDenied marks a region the credentials cannot see. It is a
// silent skip, never a failure: "no permission to look" is not "broken".
var ErrAuthorizationDenied = errors.New("authorization denied")

func IsAuthorizationDenied(err error) bool {
	return errors.Is(err, ErrAuthorizationDenied)
}

// GroupByRegion buckets instance ids by their region, for per-region
// termination batches.
func GroupByRegion(records []InstanceRecord) map[string][]string {
	groups := make(map[string][]string)
	for _, r := range records {
		groups[r.Region] = append(groups[r.Region], r.ID)
	}
	return groups
}

// SortRecords orders records by region then id for stable display.
func SortRecords(records []InstanceRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Region != records[j].Region {
			return records[i].Region < records[j].Region
		}
		return records[i].ID < records[j].ID
	})
}
