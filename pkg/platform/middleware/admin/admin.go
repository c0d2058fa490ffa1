// Package admin guards maintenance routes (retention sweeps, stale-run recovery)
// behind a shared token in addition to operator authentication.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	request "stagehand/pkg/platform/middleware/request"
	"stagehand/pkg/requestcontext"
)

// HeaderAdminToken carries the shared maintenance token.
const HeaderAdminToken = "X-Admin-Token"

func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderAdminToken)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"actor", requestcontext.Actor(ctx),
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
