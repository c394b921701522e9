package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/instacomment/internal/http/mw"
)

// RegisterPublic registers endpoints that never require auth.
func RegisterPublic(api huma.API, health *HealthHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns version, session validity and comment job state",
		Tags:        []string{"Health"},
	}, health.Handle)
}

// RegisterProtected registers the authenticated endpoints. Each operation checks the
// scope it needs against the claims mw.Auth stored on the request.
func RegisterProtected(api huma.API, ig *InstagramHandler, jobs *JobsHandler, session *SessionHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "listPosts",
		Method:      http.MethodGet,
		Path:        "/instagram/posts",
		Summary:     "Get Instagram user posts with pagination",
		Tags:        []string{"Instagram"},
		Middlewares: huma.Middlewares{mw.RequireScope(api, mw.ScopePostsRead)},
	}, ig.ListPosts)

	huma.Register(api, huma.Operation{
		OperationID: "addComment",
		Method:      http.MethodPost,
		Path:        "/instagram/comments",
		Summary:     "Add a comment to an Instagram post",
		Tags:        []string{"Instagram"},
		Middlewares: huma.Middlewares{mw.RequireScope(api, mw.ScopeCommentsWrite)},
	}, ig.AddComment)

	huma.Register(api, huma.Operation{
		OperationID: "commentJobStatus",
		Method:      http.MethodGet,
		Path:        "/jobs/comment",
		Summary:     "Comment job status",
		Tags:        []string{"Jobs"},
		Middlewares: huma.Middlewares{mw.RequireScope(api, mw.ScopeJobsRead)},
	}, jobs.Status)

	huma.Register(api, huma.Operation{
		OperationID:   "triggerCommentJob",
		Method:        http.MethodPost,
		Path:          "/jobs/comment/run",
		Summary:       "Start a comment run now",
		Description:   "Starts a guarded run in the background. Reports skipped when a run is already in progress.",
		Tags:          []string{"Jobs"},
		Middlewares:   huma.Middlewares{mw.RequireScope(api, mw.ScopeJobsRun)},
		DefaultStatus: http.StatusAccepted,
	}, jobs.TriggerRun)

	huma.Register(api, huma.Operation{
		OperationID: "listCommentRuns",
		Method:      http.MethodGet,
		Path:        "/jobs/comment/runs",
		Summary:     "Recent comment runs",
		Tags:        []string{"Jobs"},
		Middlewares: huma.Middlewares{mw.RequireScope(api, mw.ScopeJobsRead)},
	}, jobs.ListRuns)

	huma.Register(api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/session",
		Summary:     "Session status",
		Tags:        []string{"Session"},
		Middlewares: huma.Middlewares{mw.RequireScope(api, mw.ScopeSessionRead)},
	}, session.Get)

	huma.Register(api, huma.Operation{
		OperationID: "replaceSessionCookies",
		Method:      http.MethodPut,
		Path:        "/session/cookies",
		Summary:     "Replace the Instagram cookie header",
		Tags:        []string{"Session"},
		Middlewares: huma.Middlewares{mw.RequireScope(api, mw.ScopeSessionWrite)},
	}, session.ReplaceCookies)
}
