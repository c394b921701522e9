// Package job runs the recurring comment job: a single-flight guard, a paced batch
// runner, a cron trigger and the service that ties them to run history.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Status is the terminal state of a guarded run.
type Status string

const (
	StatusSkipped   Status = "skipped"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusRunning is only ever persisted, never returned by TryRun.
	StatusRunning Status = "running"
)

// Outcome describes how a TryRun call ended.
type Outcome struct {
	Status   Status
	Err      error
	Duration time.Duration
}

// Guard admits at most one execution of a job at a time. Overlapping attempts are
// skipped, never queued.
type Guard struct {
	name    string
	running atomic.Bool
	logger  *slog.Logger
}

// NewGuard creates a guard for the named job.
func NewGuard(name string, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{name: name, logger: logger.With("job", name)}
}

// Running reports whether an admitted run is in progress.
func (g *Guard) Running() bool {
	return g.running.Load()
}

// TryRun executes fn unless another run holds the guard. Errors and panics from fn
// are reported as StatusFailed and never propagated. The guard is always released.
func (g *Guard) TryRun(ctx context.Context, fn func(ctx context.Context) error) Outcome {
	if !g.acquire() {
		return Outcome{Status: StatusSkipped}
	}
	return g.execute(ctx, fn)
}

// Go is TryRun in the background. It reports synchronously whether the run was
// admitted; done, if non-nil, receives the outcome of an admitted run.
func (g *Guard) Go(ctx context.Context, fn func(ctx context.Context) error, done func(Outcome)) bool {
	if !g.acquire() {
		return false
	}
	go func() {
		out := g.execute(ctx, fn)
		if done != nil {
			done(out)
		}
	}()
	return true
}

func (g *Guard) acquire() bool {
	if !g.running.CompareAndSwap(false, true) {
		g.logger.Warn("previous run still in progress, skipping")
		return false
	}
	return true
}

func (g *Guard) execute(ctx context.Context, fn func(ctx context.Context) error) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Status: StatusFailed, Err: fmt.Errorf("panic: %v", r)}
		}
		out.Duration = time.Since(start)
		g.running.Store(false)

		if out.Status == StatusFailed {
			g.logger.ErrorContext(ctx, "run failed", "error", out.Err, "duration", out.Duration)
		}
	}()

	if err := fn(ctx); err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}
	return Outcome{Status: StatusCompleted}
}
