// Package auth reads the acting user placed on the request by the upstream
// authentication gateway. Token validation happens before requests reach
// this service; the gateway forwards the verified user id in HeaderUserID.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/platform/httputil"
	"quantumtrust/pkg/requestcontext"
)

// HeaderUserID carries the authenticated user id.
const HeaderUserID = "X-User-ID"

// Actor stores the acting user id in the request context when the header is
// present. A malformed header is rejected; a missing one is passed through so
// public routes (registration, resolution) keep working.
func Actor(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			userID, err := id.ParseUserID(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed actor header",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid actor"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(ctx, userID)))
		})
	}
}

// RequireActor rejects requests that carry no acting user.
func RequireActor(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.UserID(ctx).IsNil() {
				logger.WarnContext(ctx, "unauthorized access - missing actor",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
