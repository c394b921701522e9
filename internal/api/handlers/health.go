package handlers

import (
	"context"
	"time"

	"github.com/jmylchreest/instacomment/internal/job"
	"github.com/jmylchreest/instacomment/internal/version"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version"`
	Session SessionHealth `json:"session"`
	Job     *job.State    `json:"job,omitempty"`
}

// SessionHealth summarizes the cookie session without exposing values.
type SessionHealth struct {
	Valid     bool      `json:"valid"`
	Missing   []string  `json:"missing,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	session SessionState
	job     CommentJob
}

// NewHealthHandler creates a new health handler. commentJob may be nil.
func NewHealthHandler(session SessionState, commentJob CommentJob) *HealthHandler {
	return &HealthHandler{session: session, job: commentJob}
}

// HealthOutput is the output wrapper for Huma.
type HealthOutput struct {
	Body HealthResponse
}

// Handle returns the health status. The process is healthy even when the session is
// not; "degraded" tells an operator to refresh cookies.
func (h *HealthHandler) Handle(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: version.Get().Version,
		Session: SessionHealth{
			Valid:     h.session.Valid(),
			UpdatedAt: h.session.UpdatedAt(),
		},
	}
	if !resp.Session.Valid {
		resp.Status = "degraded"
		resp.Session.Missing = h.session.Missing()
	}
	if h.job != nil {
		st := h.job.State()
		resp.Job = &st
	}
	return &HealthOutput{Body: resp}, nil
}
