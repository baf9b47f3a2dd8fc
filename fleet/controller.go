package fleet

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"strato/fanout"
)

// StateStore is the persisted instance list: loaded wholesale at the start
// of an operation, reconciled once at the end.
type StateStore interface {
	Load() ([]InstanceRecord, error)
	Remove(ids []string) error
}

// Events receives per-region progress during scan and terminate phases.
// Implementations render to the terminal; the controller never prints.
type Events interface {
	RegionScanned(region string, found int, err error)
	RegionTerminated(region string, outcomes map[string]TerminationOutcome)
}

// NopEvents discards all progress events.
type NopEvents struct{}

func (NopEvents) RegionScanned(string, int, error)                  {}
func (NopEvents) RegionTerminated(string, map[string]TerminationOutcome) {}

// Controller drives the aggregate scan-and-terminate workflows. Container
// and region configuration is scoped to one controller instance.
type Controller struct {
	Cloud       CloudAPI
	Store       StateStore
	Log         *zap.Logger
	Parallelism int
}

func (c *Controller) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

// NukeOptions parameterizes one nuke run. Both confirmations are explicit
// preconditions: the first gates past the scan display, the second gates
// the destructive call itself. Force bypasses both.
type NukeOptions struct {
	Regions          []string
	Force            bool
	ConfirmScan      func(found []InstanceRecord) bool
	ConfirmTerminate func(count int) bool
	Events           Events
}

// Report summarizes one nuke or destroy run.
type Report struct {
	Found        []InstanceRecord
	RegionErrors []RegionError
	Outcomes     map[string]TerminationOutcome
	Terminated   int
	Failed       int
	Aborted      bool
}

// Nuke scans every configured region for spot instances and, after two
// distinct confirmations, terminates everything found — including instances
// this tool never launched.
func (c *Controller) Nuke(ctx context.Context, opts NukeOptions) (*Report, error) {
	events := opts.Events
	if events == nil {
		events = NopEvents{}
	}
	log := c.logger()

	scanner := &Scanner{Cloud: c.Cloud}
	results := fanout.Run(ctx, opts.Regions, scanner.ScanRegion, fanout.Options{
		Parallelism: c.Parallelism,
		Skip:        IsAuthorizationDenied,
	})

	report := &Report{Outcomes: map[string]TerminationOutcome{}}
	for _, r := range results {
		events.RegionScanned(r.Region, len(r.Value), r.Err)
		if r.Err != nil {
			report.RegionErrors = append(report.RegionErrors, RegionError{Region: r.Region, Err: r.Err})
			continue
		}
		report.Found = append(report.Found, r.Value...)
	}
	SortRecords(report.Found)
	log.Info("nuke scan finished",
		zap.Int("found", len(report.Found)),
		zap.Int("region_errors", len(report.RegionErrors)),
	)

	if len(report.Found) == 0 {
		return report, nil
	}

	if !opts.Force {
		if opts.ConfirmScan == nil || !opts.ConfirmScan(report.Found) {
			report.Aborted = true
			return report, nil
		}
		if opts.ConfirmTerminate == nil || !opts.ConfirmTerminate(len(report.Found)) {
			report.Aborted = true
			return report, nil
		}
	}

	c.terminateAll(ctx, GroupByRegion(report.Found), report, events)
	if err := c.reconcile(report); err != nil {
		return report, fmt.Errorf("reconcile state: %w", err)
	}
	return report, nil
}

// DestroyOptions parameterizes termination of the locally recorded fleet.
type DestroyOptions struct {
	Force   bool
	Confirm func(found []InstanceRecord) bool
	Events  Events
}

// Destroy terminates only the instances in the local state store.
func (c *Controller) Destroy(ctx context.Context, opts DestroyOptions) (*Report, error) {
	events := opts.Events
	if events == nil {
		events = NopEvents{}
	}

	recorded, err := c.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	SortRecords(recorded)

	report := &Report{Found: recorded, Outcomes: map[string]TerminationOutcome{}}
	if len(recorded) == 0 {
		return report, nil
	}

	if !opts.Force {
		if opts.Confirm == nil || !opts.Confirm(recorded) {
			report.Aborted = true
			return report, nil
		}
	}

	c.terminateAll(ctx, GroupByRegion(recorded), report, events)
	if err := c.reconcile(report); err != nil {
		return report, fmt.Errorf("reconcile state: %w", err)
	}
	return report, nil
}

func (c *Controller) terminateAll(ctx context.Context, groups map[string][]string, report *Report, events Events) {
	log := c.logger()
	terminator := &Terminator{Cloud: c.Cloud}

	regions := make([]string, 0, len(groups))
	for region := range groups {
		regions = append(regions, region)
	}

	results := fanout.Run(ctx, regions, func(ctx context.Context, region string) (map[string]TerminationOutcome, error) {
		return terminator.TerminateRegion(ctx, region, groups[region]), nil
	}, fanout.Options{Parallelism: c.Parallelism})

	for _, r := range results {
		events.RegionTerminated(r.Region, r.Value)
		for id, outcome := range r.Value {
			report.Outcomes[id] = outcome
			if outcome.Failed() {
				report.Failed++
			} else {
				report.Terminated++
			}
		}
	}
	log.Info("termination finished",
		zap.Int("terminated", report.Terminated),
		zap.Int("failed", report.Failed),
	)
}

// reconcile removes ids from the local state only when their termination was
// individually confirmed by the cloud. Ids with error outcomes stay recorded
// so the next destroy can retry them.
func (c *Controller) reconcile(report *Report) error {
	if c.Store == nil {
		return nil
	}
	var confirmed []string
	for id, outcome := range report.Outcomes {
		if !outcome.Failed() {
			confirmed = append(confirmed, id)
		}
	}
	if len(confirmed) == 0 {
		return nil
	}
	return c.Store.Remove(confirmed)
}
