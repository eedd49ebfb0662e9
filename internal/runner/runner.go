// Package runner executes batches of independent commands on a bounded pool
// of workers.
//
// A batch either succeeds as a whole, returning one result per command in
// input order, or fails as a whole. After the first failure no further
// commands are dispatched. Commands already running are left to finish so
// the files they write are complete; only cancellation of the caller's
// context interrupts them.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/radarize/internal/command"
	"github.com/vk/radarize/internal/ctxlog"
	"github.com/vk/radarize/internal/executor"
	"golang.org/x/sync/errgroup"
)

// ErrIncomplete is returned when a batch stopped before every command ran.
var ErrIncomplete = errors.New("batch did not complete")

// Runner dispatches batches to an Executor with a fixed degree of parallelism.
type Runner struct {
	exec    executor.Executor
	workers int
}

// New creates a Runner. A worker count below one is treated as one.
func New(exec executor.Executor, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{exec: exec, workers: workers}
}

// Workers returns the effective degree of parallelism.
func (r *Runner) Workers() int {
	return r.workers
}

// Run executes every spec and returns their results in input order. An empty
// batch returns immediately without starting any worker.
func (r *Runner) Run(ctx context.Context, specs []command.Spec) ([]*executor.Result, error) {
	logger := ctxlog.FromContext(ctx)
	if len(specs) == 0 {
		logger.Debug("Empty batch, nothing to run.")
		return nil, nil
	}
	logger.Info("Running commands in parallel.", "count", len(specs), "workers", r.workers)

	results := make([]*executor.Result, len(specs))
	g, failed := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, spec := range specs {
		// g.Go blocks while all workers are busy, so this check runs right
		// before each dispatch.
		if failed.Err() != nil {
			logger.Debug("Batch aborted, not dispatching remaining commands.", "remaining", len(specs)-i)
			break
		}
		g.Go(func() error {
			if failed.Err() != nil {
				return nil
			}
			workerLogger := logger.With("index", i, "program", spec.Program)
			workerLogger.Debug("Worker picked up command.")

			// The parent context is used on purpose: a sibling failure must
			// not kill commands that are already writing their outputs.
			res, err := r.exec.Execute(ctx, spec)
			if err != nil {
				workerLogger.Error("Command failed.", "argv", spec.Argv(), "error", err)
				return fmt.Errorf("command %d of %d (%s): %w", i+1, len(specs), spec.Program, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncomplete, err)
	}
	for i, res := range results {
		if res == nil {
			return nil, fmt.Errorf("%w: command %d of %d has no result", ErrIncomplete, i+1, len(specs))
		}
	}

	logger.Debug("Batch finished successfully.", "count", len(results))
	return results, nil
}
