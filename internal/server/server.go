// Package server exposes the answer pipeline and the event log over HTTP.
// The answer endpoint streams server-sent events; everything else is plain
// JSON.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"clarion/internal/config"
	"clarion/internal/events"
	"clarion/internal/logger"
	"clarion/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Info is static metadata reported by the status endpoint.
type Info struct {
	SearchProvider string
	Model          string
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	pipeline   *pipeline.Pipeline
	store      *events.Store
	config     config.Server
	info       Info
	log        *slog.Logger
	startedAt  time.Time
}

// New creates a new HTTP server instance
func New(p *pipeline.Pipeline, store *events.Store, cfg config.Server, info Info) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		pipeline:  p,
		store:     store,
		config:    cfg,
		info:      info,
		log:       logger.Get(),
		startedAt: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout must outlast a full streamed answer
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.WebOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/status", s.handleStatus)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Post("/answer", s.handleAnswer)

		r.Route("/events", func(r chi.Router) {
			r.Post("/", s.handleIngestEvent)
			r.Get("/", s.handleListEvents)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", s.handleGetPreferences)
			r.Delete("/", s.handleResetPreferences)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"web_origin", s.config.WebOrigin,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
