package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency check of /api/v1/health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID)
	r.Use(s.accessLog)
	r.Use(s.recoverPanics)
	r.Use(s.limitBody)
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.handleListEntities)
			r.Get("/*", s.handleGetEntity)
		})

		r.Post("/discovery/run", s.handleRunDiscovery)
	})

	return r
}

// handleHealth checks MQTT and the database. Any failure answers 503 so
// container health checks restart a bridge that lost its broker.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	healthy := true

	runCheck := func(name string, check func(context.Context) error) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			return
		}
		checks[name] = "ok"
	}

	if s.MQTT != nil {
		runCheck("mqtt", s.MQTT.HealthCheck)
	}
	if s.Database != nil {
		runCheck("database", s.Database.HealthCheck)
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.Version,
		"checks":  checks,
	})
}
