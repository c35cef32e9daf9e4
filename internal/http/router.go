// Package httpapi assembles the public router: base middleware, liveness and
// metrics endpoints, and the feature handlers mounted on top.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"renoflow/internal/platform/middleware"
	"renoflow/pkg/platform/httputil"
)

// Registrar mounts one feature's routes on the router. Every feature handler
// implements it.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports the readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config collects everything the router needs.
type Config struct {
	Logger   *slog.Logger
	Handlers []Registrar

	// Checks gates readiness, keyed by dependency name.
	Checks map[string]HealthChecker
}

// NewRouter builds the service router. Transport concerns only: business
// logic stays behind the mounted handlers.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		for name, check := range cfg.Checks {
			if err := check.Health(req.Context()); err != nil {
				logger.WarnContext(req.Context(), "readiness check failed",
					"dependency", name,
					"error", err,
				)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":     "unavailable",
					"dependency": name,
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, handler := range cfg.Handlers {
		handler.Register(r)
	}
	return r
}
