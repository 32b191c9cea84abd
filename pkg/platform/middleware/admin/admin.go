// Package admin restricts routes to actors holding privileged roles.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/platform/httputil"
	"quantumtrust/pkg/requestcontext"
)

// RoleResolver looks up the role of an acting user.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID id.UserID) (string, error)
}

// RequireRole lets the request through only when the acting user holds one of
// roles. It must run after the actor middleware.
func RequireRole(resolver RoleResolver, logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.UserID(ctx)
			if actor.IsNil() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			role, err := resolver.RoleOf(ctx, actor)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeNotFound) {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "unknown actor"))
					return
				}
				httputil.WriteError(w, err)
				return
			}
			if !slices.Contains(roles, role) {
				logger.WarnContext(ctx, "forbidden - role not allowed",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", actor,
					"role", role,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
