// Package server assembles the learnpath HTTP application.
package server

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/ashureev/learnpath/internal/api"
	"github.com/ashureev/learnpath/internal/config"
	"github.com/ashureev/learnpath/internal/content"
	"github.com/ashureev/learnpath/internal/identity"
	"github.com/ashureev/learnpath/internal/metrics"
	"github.com/ashureev/learnpath/internal/middleware"
	"github.com/ashureev/learnpath/internal/progress"
	"github.com/ashureev/learnpath/internal/realtime"
	"github.com/ashureev/learnpath/internal/site"
	"github.com/ashureev/learnpath/internal/store"
	"github.com/ashureev/learnpath/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// App is the wired application.
type App struct {
	Router  http.Handler
	Tracker *progress.Tracker
	Hub     *realtime.Hub
	Metrics *metrics.Metrics
}

// New wires handlers, middleware and services around repo and catalog.
func New(cfg *config.Config, repo store.Repository, catalog *content.Catalog) (*App, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	m := metrics.New()
	hub := realtime.NewHub()
	tracker := progress.NewTracker(catalog, repo, m, hub)

	apiHandler := api.NewHandler(repo, tracker)
	healthHandler := api.NewHealthHandler(repo, cfg.Timeout.HealthCheck)
	siteHandler := site.NewHandler(tracker, renderer)
	streamHandler := realtime.NewStreamHandler(hub, m, originPatterns(cfg))

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.Metrics(m))

	// Public routes.
	healthHandler.RegisterHealth(r)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", m.Handler())
	}
	r.Handle("/static/*", web.StaticHandler())

	// Everything below is scoped to the anonymous learner. CORS comes
	// first so preflights never create learners.
	withIdentity := identity.Middleware(repo, cfg.IsDevelopment())
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
		r.Use(withIdentity)
		apiHandler.RegisterRoutes(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(withIdentity)
		r.Get("/ws/progress", streamHandler.ServeHTTP)
		siteHandler.RegisterRoutes(r)
	})

	return &App{Router: r, Tracker: tracker, Hub: hub, Metrics: m}, nil
}

// originPatterns converts allowed origins to the host patterns
// websocket.Accept matches against.
func originPatterns(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
