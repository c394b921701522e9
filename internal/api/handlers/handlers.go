// Package handlers provides the HTTP API of the comment agent.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/instacomment/internal/cookies"
	"github.com/jmylchreest/instacomment/internal/instagram"
	"github.com/jmylchreest/instacomment/internal/job"
	"github.com/jmylchreest/instacomment/internal/store"
)

// InstagramClient is the remote surface the API proxies.
type InstagramClient interface {
	UserPosts(ctx context.Context, userID string, pageSize int, cursor string) (*instagram.PostsPage, error)
	AddComment(ctx context.Context, mediaID, text string) (*instagram.Comment, error)
}

// SessionState exposes and replaces the live cookie session.
type SessionState interface {
	Valid() bool
	Missing() []string
	UpdatedAt() time.Time
	Replace(ctx context.Context, raw string) error
}

// CommentJob is the recurring job as seen by the API.
type CommentJob interface {
	State() job.State
	TriggerAsync(ctx context.Context) bool
	History(ctx context.Context, limit int) ([]*store.RunRecord, error)
}

// Schedule describes the cron trigger. It is nil when the job is disabled.
type Schedule interface {
	Expr() string
	NextRun() time.Time
}

// remoteError converts client errors into huma status errors.
func remoteError(err error, fallback string) error {
	switch {
	case errors.Is(err, instagram.ErrInvalidSession):
		return huma.Error401Unauthorized("Invalid Instagram cookies")
	case errors.Is(err, instagram.ErrInvalidCommentText):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(fallback)
	}

	var re *instagram.RemoteError
	if errors.As(err, &re) {
		return huma.NewError(re.HTTPStatus(), re.Message)
	}

	var missing *cookies.MissingCredentialsError
	if errors.As(err, &missing) {
		return huma.Error422UnprocessableEntity(missing.Error())
	}

	return huma.Error500InternalServerError(fallback)
}
