// Package gateway serves agent runs, custom agent chat and definition CRUD
// over HTTP with SSE streaming.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"agentsmith/internal/agent"
	"agentsmith/internal/definitions"
	"agentsmith/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	Factory  *agent.RunnerFactory
	Registry *agent.Registry
	// Store enables custom agents by id and the definitions API. Optional.
	Store   *definitions.Store
	Metrics *metrics.Metrics
	// CustomMaxSteps is the step budget of custom agents.
	CustomMaxSteps int
	RequestTimeout time.Duration
}

type Server struct {
	factory        *agent.RunnerFactory
	registry       *agent.Registry
	store          *definitions.Store
	metrics        *metrics.Metrics
	customMaxSteps int
	timeout        time.Duration
	router         chi.Router
}

func NewServer(opts Options) *Server {
	if opts.CustomMaxSteps <= 0 {
		opts.CustomMaxSteps = 5
	}
	s := &Server{
		factory:        opts.Factory,
		registry:       opts.Registry,
		store:          opts.Store,
		metrics:        opts.Metrics,
		customMaxSteps: opts.CustomMaxSteps,
		timeout:        opts.RequestTimeout,
		router:         chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withTimeout)

		r.Get("/agents", s.handleListAgents)
		r.Post("/agents/{agentType}", s.handleRunAgent)
		r.Post("/agents/{agentType}/stream", s.handleStreamAgent)
		r.Get("/tools", s.handleListTools)

		r.Post("/chat", s.handleChat)
		r.Post("/chat/stream", s.handleChatStream)

		if s.store != nil {
			r.Route("/definitions", func(r chi.Router) {
				r.Get("/", s.handleListDefinitions)
				r.Post("/", s.handleCreateDefinition)
				r.Get("/{id}", s.handleGetDefinition)
				r.Put("/{id}", s.handleUpdateDefinition)
				r.Delete("/{id}", s.handleDeleteDefinition)
			})
		}
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway: %w", err)
	case <-ctx.Done():
		slog.Info("gateway: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
