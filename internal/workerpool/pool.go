// Package workerpool provides the bounded-concurrency primitive every
// stage handler uses to fan a per-unit operation (one archive, one file,
// one scan job) out across a configurable number of workers (§5). It is
// a thin wrapper over golang.org/x/sync/errgroup, the same library the
// rest of this corpus reaches for bounded fan-out rather than hand-rolled
// channel-and-waitgroup plumbing.
package workerpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Size resolves a configured worker count to a concrete value: 0 or
// negative means "auto-detect," matching the Extraction.WorkerCount and
// general §6.F "worker pool size — default = CPU count" convention.
func Size(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.NumCPU()
}

// Run executes fn once per item in items, with at most `size` running
// concurrently. It returns the first non-nil error from any fn call,
// after every launched unit has finished — a handler that wants to
// collect per-unit failures instead of aborting should have fn record
// the failure itself and always return nil (§7 propagation policy: a
// handler fails outright only when zero units succeed).
//
// Run never leaves goroutines running past its own return (§5 "MUST NOT
// leak worker threads beyond their own execute() return").
func Run[T any](ctx context.Context, size int, items []T, fn func(ctx context.Context, item T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Size(size))

	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(gctx, item)
		})
	}

	return g.Wait()
}

// RunCollecting is like Run but never aborts early: every item runs (even
// after an earlier one fails) and every error is collected in the
// returned slice in item order, with a nil entry for units that
// succeeded. No stage handler calls it at present: the orchestrator's
// handlers use Run with an fn that records its own per-unit failures and
// always returns nil.
func RunCollecting[T any](ctx context.Context, size int, items []T, fn func(ctx context.Context, item T) error) []error {
	errs := make([]error, len(items))
	sem := make(chan struct{}, Size(size))
	done := make(chan struct{}, len(items))

	for i, item := range items {
		i, item := i, item
		sem <- struct{}{}
		go func() {
			defer func() {
				<-sem
				done <- struct{}{}
			}()
			errs[i] = fn(ctx, item)
		}()
	}

	for range items {
		<-done
	}

	return errs
}
