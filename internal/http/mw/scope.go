package mw

import (
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Scopes checked by the protected operations.
const (
	ScopePostsRead     = "posts:read"
	ScopeCommentsWrite = "comments:write"
	ScopeJobsRead      = "jobs:read"
	ScopeJobsRun       = "jobs:run"
	ScopeSessionRead   = "session:read"
	ScopeSessionWrite  = "session:write"
)

// RequireScope returns a huma operation middleware that admits only callers whose
// claims, set by Auth, carry scope.
func RequireScope(api huma.API, scope string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		claims := GetClaims(ctx.Context())
		if claims == nil {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !claims.HasScope(scope) {
			huma.WriteErr(api, ctx, http.StatusForbidden, fmt.Sprintf("missing scope %q", scope))
			return
		}
		next(ctx)
	}
}
