package fleet

import (
	"context"

	"strato/fanout"
)

// Scanner discovers spot capacity per region.
type Scanner struct {
	Cloud CloudAPI
}

// ScanRegion returns the spot instances visible in one region. Errors other
// than authorization-denied propagate to the caller; the region executor
// captures them per region.
func (s *Scanner) ScanRegion(ctx context.Context, region string) ([]InstanceRecord, error) {
	return s.Cloud.SpotInstances(ctx, region)
}

// RegionError is one region's captured scan failure.
type RegionError struct {
	Region string
	Err    error
}

// ScanAll fans a scan out over regions with bounded parallelism and
// aggregates the instances found. Regions that deny authorization are
// silently skipped; any other per-region failure is reported without
// aborting siblings.
func (s *Scanner) ScanAll(ctx context.Context, regions []string, parallelism int) ([]InstanceRecord, []RegionError) {
	results := fanout.Run(ctx, regions, s.ScanRegion, fanout.Options{
		Parallelism: parallelism,
		Skip:        IsAuthorizationDenied,
	})

	var all []InstanceRecord
	var errs []RegionError
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, RegionError{Region: r.Region, Err: r.Err})
			continue
		}
		all = append(all, r.Value...)
	}
	SortRecords(all)
	return all, errs
}
