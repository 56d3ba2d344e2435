package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lovelist/internal/logging"
	"lovelist/internal/metrics"
	"lovelist/internal/store"
)

const defaultRequestTimeout = 30 * time.Second

type Deps struct {
	Store          *store.Store
	Logger         *slog.Logger
	Metrics        *metrics.Registry
	RequestTimeout time.Duration
}

// NewServer wires the item handlers into a router with health and metrics endpoints.
func NewServer(deps Deps) http.Handler {
	logger := logging.NewComponentLogger(deps.Logger, "http")
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	var httpMetrics *metrics.HTTPMetrics
	if deps.Metrics != nil {
		httpMetrics = deps.Metrics.HTTP
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger, httpMetrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339)})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return HandlerWithOptions(NewItemHandler(deps.Store, deps.Logger), ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, http.StatusBadRequest, err.Error())
		},
	})
}
