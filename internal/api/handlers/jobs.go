package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/instacomment/internal/job"
	"github.com/jmylchreest/instacomment/internal/logging"
	"github.com/jmylchreest/instacomment/internal/store"
)

// JobsHandler exposes the comment job.
type JobsHandler struct {
	job      CommentJob
	schedule Schedule
	// runCtx outlives requests so triggered runs are not cancelled with them.
	runCtx context.Context
	logger *slog.Logger
}

// NewJobsHandler creates a new jobs handler. schedule may be nil.
func NewJobsHandler(runCtx context.Context, commentJob CommentJob, schedule Schedule, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{job: commentJob, schedule: schedule, runCtx: runCtx, logger: logger}
}

// JobStatusResponse is the state of the comment job.
type JobStatusResponse struct {
	Running  bool         `json:"running"`
	Enabled  bool         `json:"enabled"`
	Schedule string       `json:"schedule,omitempty"`
	NextRun  *time.Time   `json:"next_run,omitempty"`
	Last     *job.LastRun `json:"last,omitempty"`
}

// JobStatusOutput wraps the job status.
type JobStatusOutput struct {
	Body JobStatusResponse
}

// Status handles GET /jobs/comment.
func (h *JobsHandler) Status(ctx context.Context, _ *struct{}) (*JobStatusOutput, error) {
	st := h.job.State()
	resp := JobStatusResponse{
		Running: st.Running,
		Last:    st.Last,
	}
	if h.schedule != nil {
		resp.Enabled = true
		resp.Schedule = h.schedule.Expr()
		if next := h.schedule.NextRun(); !next.IsZero() {
			resp.NextRun = &next
		}
	}
	return &JobStatusOutput{Body: resp}, nil
}

// TriggerRunOutput reports whether a run was started.
type TriggerRunOutput struct {
	Body struct {
		Status string `json:"status" enum:"started,skipped" doc:"started when a run was admitted, skipped when one is already in progress"`
	}
}

// TriggerRun handles POST /jobs/comment/run.
func (h *JobsHandler) TriggerRun(ctx context.Context, _ *struct{}) (*TriggerRunOutput, error) {
	out := &TriggerRunOutput{}
	if h.job.TriggerAsync(h.runCtx) {
		out.Body.Status = "started"
		logging.FromContext(ctx, h.logger).Info("comment run triggered via API")
	} else {
		out.Body.Status = string(job.StatusSkipped)
	}
	return out, nil
}

// ListRunsInput represents a run history request.
type ListRunsInput struct {
	Limit int `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Number of runs to return"`
}

// ListRunsOutput represents run history.
type ListRunsOutput struct {
	Body struct {
		Runs []*store.RunRecord `json:"runs"`
	}
}

// ListRuns handles GET /jobs/comment/runs.
func (h *JobsHandler) ListRuns(ctx context.Context, input *ListRunsInput) (*ListRunsOutput, error) {
	runs, err := h.job.History(ctx, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list runs: " + err.Error())
	}
	out := &ListRunsOutput{}
	out.Body.Runs = runs
	if out.Body.Runs == nil {
		out.Body.Runs = []*store.RunRecord{}
	}
	return out, nil
}
