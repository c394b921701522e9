package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/instacomment/internal/cookies"
	"github.com/jmylchreest/instacomment/internal/logging"
)

// SessionHandler reports on and replaces the cookie session.
type SessionHandler struct {
	session SessionState
	logger  *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(session SessionState, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{session: session, logger: logger}
}

// SessionOutput is the session summary.
type SessionOutput struct {
	Body SessionHealth
}

// Get handles GET /session.
func (h *SessionHandler) Get(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	return &SessionOutput{Body: SessionHealth{
		Valid:     h.session.Valid(),
		Missing:   h.session.Missing(),
		UpdatedAt: h.session.UpdatedAt(),
	}}, nil
}

// ReplaceCookiesInput carries a new raw cookie header.
type ReplaceCookiesInput struct {
	Body struct {
		Cookies string `json:"cookies" minLength:"1" doc:"Raw Cookie header copied from a logged-in browser"`
	}
}

// ReplaceCookies handles PUT /session/cookies.
func (h *SessionHandler) ReplaceCookies(ctx context.Context, input *ReplaceCookiesInput) (*SessionOutput, error) {
	if err := h.session.Replace(ctx, input.Body.Cookies); err != nil {
		var missing *cookies.MissingCredentialsError
		if errors.As(err, &missing) {
			return nil, huma.Error422UnprocessableEntity(missing.Error())
		}
		return nil, huma.Error500InternalServerError("failed to replace cookies")
	}
	logging.FromContext(ctx, h.logger).Info("session cookies replaced via API")
	return h.Get(ctx, nil)
}
