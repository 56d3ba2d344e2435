package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lovelist/internal/logging"
	"lovelist/internal/metrics"
)

// requestLogger logs each request and records it in the HTTP metrics.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(logger *slog.Logger, httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			logger.Debug("API request started",
				logging.Args(
					logging.String(logging.FieldRequestID, requestID),
					logging.String("method", r.Method),
					logging.String("path", r.URL.Path),
					logging.String("remote_addr", r.RemoteAddr),
				)...)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			if httpMetrics != nil {
				httpMetrics.ObserveRequest(r.Method, route, status, elapsed)
			}

			logger.Info("API request completed",
				logging.Args(
					logging.String(logging.FieldRequestID, requestID),
					logging.String("method", r.Method),
					logging.String("path", r.URL.Path),
					logging.Int("status", status),
					logging.Int("bytes", ww.BytesWritten()),
					logging.Duration("duration", elapsed),
				)...)
		})
	}
}
