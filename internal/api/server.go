// Package api exposes the matching engine, advisor and report service over
// HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-regtech/kestrel/internal/advisor"
	"github.com/opensource-regtech/kestrel/internal/domain"
	"github.com/opensource-regtech/kestrel/internal/metrics"
	"github.com/opensource-regtech/kestrel/internal/ratelimit"
	"github.com/opensource-regtech/kestrel/internal/report"
	"github.com/opensource-regtech/kestrel/internal/rules"
	"github.com/opensource-regtech/kestrel/internal/worker"
)

// Dependencies are the collaborators the server is assembled from. Only
// Engine is required.
type Dependencies struct {
	Engine  *rules.Engine
	Advisor *advisor.Advisor
	Reports *report.Service
	Limiter *ratelimit.Limiter
	Bus     domain.EventBus

	// Stats serves GET /api/v1/stats when set.
	Stats *worker.Worker

	// HealthChecks are probed by GET /health, keyed by component name.
	HealthChecks map[string]Pinger

	Metrics domain.MetricsConfig
	Version string
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Dependencies) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		slog.Warn("ignoring trusted proxies", "error", err)
		trusted = nil
	}

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(TrustedRealIPMiddleware(trusted))
	router.Use(middleware.Compress(5))

	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	if deps.Metrics.Enabled {
		path := deps.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimitMiddleware(deps.Limiter))
		r.Use(MaxBodyMiddleware(cfg.MaxBodyBytes))

		r.Get("/business-types", handler.BusinessTypes)

		r.Post("/requirements/match", handler.MatchRequirements)
		r.Get("/requirements", handler.ListRequirements)
		r.Get("/requirements/{id}", handler.GetRequirement)

		r.Post("/recommendations", handler.Recommendations)
		r.Post("/reports", handler.GenerateReport)

		r.Get("/stats", handler.Stats)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
