package middleware

import (
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"

	"evalhub/internal/transport/http/api"
)

// Recoverer turns panics into 500 responses and forwards them to Sentry when
// a DSN is configured.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered",
					"panic", rec,
					"path", r.URL.Path,
					"requestId", GetRequestID(r.Context()),
				)
				if hub := sentry.CurrentHub(); hub.Client() != nil {
					hub.RecoverWithContext(r.Context(), rec)
				}
				api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", GetRequestID(r.Context()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
