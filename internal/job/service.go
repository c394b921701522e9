package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/instacomment/internal/logging"
	"github.com/jmylchreest/instacomment/internal/store"
)

// CommentJobName identifies the comment job in run history.
const CommentJobName = "comment"

// RunStore persists run history.
type RunStore interface {
	RecordRun(ctx context.Context, run *store.RunRecord) error
	ListRuns(ctx context.Context, job string, limit int) ([]*store.RunRecord, error)
	CleanupRunsOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}

// LastRun summarizes the most recent guarded attempt, including skips.
type LastRun struct {
	ID          string    `json:"id,omitempty"`
	Status      Status    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	ItemsTotal  int       `json:"items_total"`
	ItemsFailed int       `json:"items_failed"`
	Error       string    `json:"error,omitempty"`
}

// State is a point-in-time view of the job.
type State struct {
	Running bool     `json:"running"`
	Last    *LastRun `json:"last,omitempty"`
}

// CommentJob runs the comment batch under a single-flight guard and records each
// admitted run.
type CommentJob struct {
	guard     *Guard
	runner    *Runner
	runs      RunStore
	retention time.Duration
	logger    *slog.Logger

	mu   sync.RWMutex
	last *LastRun
}

// NewCommentJob creates the job. runs may be nil to skip history; a retention of
// zero keeps history forever.
func NewCommentJob(runner *Runner, runs RunStore, retention time.Duration, logger *slog.Logger) *CommentJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentJob{
		guard:     NewGuard(CommentJobName, logger),
		runner:    runner,
		runs:      runs,
		retention: retention,
		logger:    logger.With("job", CommentJobName),
	}
}

// Run executes one guarded batch and blocks until it ends.
func (j *CommentJob) Run(ctx context.Context) Outcome {
	out := j.guard.TryRun(ctx, j.execute)
	if out.Status == StatusSkipped {
		j.noteSkipped()
	}
	return out
}

// Tick is the scheduler callback.
func (j *CommentJob) Tick(ctx context.Context) {
	j.Run(ctx)
}

// TriggerAsync starts a guarded batch in the background and reports whether it was
// admitted. ctx must outlive the caller's request.
func (j *CommentJob) TriggerAsync(ctx context.Context) bool {
	if !j.guard.Go(ctx, j.execute, nil) {
		j.noteSkipped()
		return false
	}
	return true
}

// State returns the running flag and the last outcome.
func (j *CommentJob) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()

	st := State{Running: j.guard.Running()}
	if j.last != nil {
		last := *j.last
		st.Last = &last
	}
	return st
}

// History returns recent persisted runs, newest first.
func (j *CommentJob) History(ctx context.Context, limit int) ([]*store.RunRecord, error) {
	if j.runs == nil {
		return nil, nil
	}
	return j.runs.ListRuns(ctx, CommentJobName, limit)
}

func (j *CommentJob) execute(ctx context.Context) (err error) {
	rec := &store.RunRecord{
		ID:        ulid.Make().String(),
		Job:       CommentJobName,
		Status:    string(StatusRunning),
		StartedAt: time.Now().UTC(),
	}
	ctx = logging.WithRunID(ctx, rec.ID)
	log := logging.FromContext(ctx, j.logger)
	log.Info("starting comment run")

	j.record(ctx, rec)
	j.setLast(rec)

	defer func() {
		if r := recover(); r != nil {
			j.finish(ctx, rec, fmt.Errorf("panic: %v", r))
			panic(r)
		}
		j.finish(ctx, rec, err)
	}()

	report, err := j.runner.Run(ctx)
	if report != nil {
		rec.ItemsTotal = len(report.Items)
		rec.ItemsFailed = report.Failed()
	}
	if err != nil {
		return err
	}

	log.Info("comment run completed", "items", rec.ItemsTotal, "failed", rec.ItemsFailed)
	return nil
}

func (j *CommentJob) finish(ctx context.Context, rec *store.RunRecord, err error) {
	now := time.Now().UTC()
	rec.FinishedAt = &now
	rec.Status = string(StatusCompleted)
	if err != nil {
		rec.Status = string(StatusFailed)
		rec.Error = err.Error()
	}

	j.record(ctx, rec)
	j.setLast(rec)
	j.prune(ctx)
}

func (j *CommentJob) record(ctx context.Context, rec *store.RunRecord) {
	if j.runs == nil {
		return
	}
	// History must land even when the run was cancelled.
	if err := j.runs.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		logging.FromContext(ctx, j.logger).Warn("failed to record run", "error", err)
	}
}

func (j *CommentJob) prune(ctx context.Context) {
	if j.runs == nil || j.retention <= 0 {
		return
	}
	if _, err := j.runs.CleanupRunsOlderThan(context.WithoutCancel(ctx), time.Now().Add(-j.retention)); err != nil {
		j.logger.Warn("failed to prune run history", "error", err)
	}
}

func (j *CommentJob) setLast(rec *store.RunRecord) {
	last := &LastRun{
		ID:          rec.ID,
		Status:      Status(rec.Status),
		StartedAt:   rec.StartedAt,
		ItemsTotal:  rec.ItemsTotal,
		ItemsFailed: rec.ItemsFailed,
		Error:       rec.Error,
	}
	if rec.FinishedAt != nil {
		last.FinishedAt = *rec.FinishedAt
	}

	j.mu.Lock()
	j.last = last
	j.mu.Unlock()
}

func (j *CommentJob) noteSkipped() {
	now := time.Now().UTC()
	j.mu.Lock()
	defer j.mu.Unlock()
	// A skip never hides the in-flight run it collided with.
	if j.last != nil && j.last.Status == StatusRunning {
		return
	}
	j.last = &LastRun{Status: StatusSkipped, StartedAt: now, FinishedAt: now}
}
