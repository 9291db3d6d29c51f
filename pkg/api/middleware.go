package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/illustrious/cloud/pkg/contextkeys"
	"github.com/illustrious/cloud/pkg/httputil"
	"github.com/illustrious/cloud/pkg/observability"
)

// RequestMiddleware assigns each request an id, attaches a request-scoped
// logger, recovers from handler panics, and logs request completion.
func RequestMiddleware(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			reqLogger := logger.WithField("request_id", requestID)
			ctx := contextkeys.WithRequestID(r.Context(), requestID)
			ctx = contextkeys.WithLogger(ctx, reqLogger)

			start := time.Now()
			defer func() {
				if rec := recover(); rec != nil {
					reqLogger.WithField("panic", rec).Error("handler panicked")
					httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "internal error")
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))

			reqLogger.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("request completed")
		})
	}
}
