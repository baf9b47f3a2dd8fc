// Package fanout runs one unit of work per region with bounded parallelism
// and collects results in completion order. One slow or broken region never
// blocks or fails the batch.
package fanout

import (
	"context"
	"fmt"
	"sync"
)

// DefaultParallelism bounds in-flight region tasks when Options carries none.
const DefaultParallelism = 10

// Result pairs a region with either a value or a captured error.
type Result[T any] struct {
	Region string
	Value  T
	Err    error
}

// Options tunes one Run call.
type Options struct {
	// Parallelism caps concurrent in-flight tasks. Zero means
	// DefaultParallelism.
	Parallelism int
	// Skip classifies errors that mean "this region is inaccessible, not
	// broken". Matching errors become empty successes.
	Skip func(error) bool
}

// Run executes fn once per region and returns exactly one Result per region,
// ordered by completion. Panics inside fn are captured as that region's
// error. Run performs no retries; retry policy belongs to the caller.
func Run[T any](ctx context.Context, regions []string, fn func(ctx context.Context, region string) (T, error), opts Options) []Result[T] {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	sem := make(chan struct{}, parallelism)
	out := make(chan Result[T], len(regions))
	var wg sync.WaitGroup

	for _, region := range regions {
		wg.Add(1)
		go func(region string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out <- runOne(ctx, region, fn, opts.Skip)
		}(region)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]Result[T], 0, len(regions))
	for r := range out {
		results = append(results, r)
	}
	return results
}

func runOne[T any](ctx context.Context, region string, fn func(ctx context.Context, region string) (T, error), skip func(error) bool) (res Result[T]) {
	res.Region = region
	defer func() {
		if p := recover(); p != nil {
			var zero T
			res.Value = zero
			res.Err = fmt.Errorf("panic in region task: %v", p)
		}
	}()

	value, err := fn(ctx, region)
	if err != nil {
		if skip != nil && skip(err) {
			// Inaccessible, not broken: empty success.
			return res
		}
		res.Err = err
		return res
	}
	res.Value = value
	return res
}

// Partition splits results into successes and failures.
func Partition[T any](results []Result[T]) (ok, failed []Result[T]) {
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		} else {
			ok = append(ok, r)
		}
	}
	return ok, failed
}
