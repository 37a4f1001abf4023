// Package server provides the HTTP server for CopyPasta.
// It configures routing and middleware and serves the clipboard relay
// API together with the health and metrics endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liskl/copypasta/internal/auth"
	"github.com/liskl/copypasta/internal/config"
	"github.com/liskl/copypasta/internal/handler"
	"github.com/liskl/copypasta/internal/metrics"
	cpMiddleware "github.com/liskl/copypasta/internal/middleware"
	"github.com/liskl/copypasta/internal/notify"
	"github.com/liskl/copypasta/internal/storage"
)

// Server wraps the HTTP server with CopyPasta configuration.
type Server struct {
	httpServer *http.Server
	config     *config.Config
	store      storage.Store
}

// New creates a new CopyPasta HTTP server wired to the given store.
func New(cfg *config.Config, store storage.Store) (*Server, error) {
	// Create the main router
	r := chi.NewRouter()

	// Apply middleware stack. No request-timeout middleware: long
	// polls legitimately hold a request open up to the poll limit.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Security headers
	r.Use(cpMiddleware.SecurityHeaders())

	sessions, err := auth.NewSessions(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating session table: %w", err)
	}

	// Each server carries its own registry so tests can build servers
	// independently without collector name collisions.
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	notifier := notify.New()

	// Create the main handler and mount routes
	h := handler.New(cfg, store, notifier, sessions, m)
	r.Mount("/", h.Routes())

	// Prometheus scrape endpoint, unauthenticated like /health
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Create HTTP server. The write timeout must exceed the longest
	// poll the server will hold open.
	addr := fmt.Sprintf("%s:%d", cfg.Main.Host, cfg.Main.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.Clipboard.PollMaxTimeout+30) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		config:     cfg,
		store:      store,
	}, nil
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server's address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
