package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/example/meetgrid/internal/logging"
	"github.com/felixge/httpsnoop"
)

// RequestLogger attaches a request scoped logger to the context and logs
// every completed request with its status and duration.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			m := httpsnoop.CaptureMetrics(next, w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed",
				"status", m.Code,
				"duration", m.Duration,
				"bytes", m.Written,
			)
		})
	}
}

// CORS allows credentialed requests from origin.
func CORS(origin string) func(http.Handler) http.Handler {
	allowed := normalizeOrigin(origin)
	const methods = "GET, POST, DELETE"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" || normalizeOrigin(requestOrigin) != allowed {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", requestOrigin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", strings.TrimSpace(reqHeaders))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
