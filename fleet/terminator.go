package fleet

import (
	"context"
	"fmt"
)

// Terminator issues destructive per-region termination batches.
// Confirmation is a precondition of the callers in controller.go, never a
// side input read here.
type Terminator struct {
	Cloud CloudAPI
}

// TerminateRegion terminates one region's batch and returns an outcome for
// every requested id: callers can always assume the key set equals the
// input id set. An empty id list is a no-op that never reaches the cloud.
func (t *Terminator) TerminateRegion(ctx context.Context, region string, ids []string) map[string]TerminationOutcome {
	outcomes := make(map[string]TerminationOutcome, len(ids))
	if len(ids) == 0 {
		return outcomes
	}

	states, err := t.Cloud.Terminate(ctx, region, ids)
	if err != nil {
		// Whole-batch failure: every requested id gets the error, none are
		// left unreported.
		for _, id := range ids {
			outcomes[id] = TerminationOutcome{
				InstanceID: id,
				Status:     fmt.Sprintf("error:%v", err),
			}
		}
		return outcomes
	}

	for _, id := range ids {
		state, ok := states[id]
		if !ok {
			outcomes[id] = TerminationOutcome{
				InstanceID: id,
				Status:     "error:no outcome reported by cloud",
			}
			continue
		}
		outcomes[id] = TerminationOutcome{InstanceID: id, Status: state}
	}
	return outcomes
}
