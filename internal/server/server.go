// Package server exposes the pipeline engine over a JSON HTTP API:
// script generation, interpreter runs with previews, and cross-backend
// equivalence checks.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapflow/internal/equiv"
	"github.com/leapstack-labs/leapflow/internal/interp"
	"github.com/leapstack-labs/leapflow/internal/state"
)

// Server is the HTTP API server.
type Server struct {
	port    int
	logger  *slog.Logger
	runner  *interp.Runner
	checker *equiv.Checker
	store   *state.Store
}

// Config holds the server dependencies. Runner and Checker default to
// zero-value instances; Store may be nil to disable run recording.
type Config struct {
	Port    int
	Logger  *slog.Logger
	Runner  *interp.Runner
	Checker *equiv.Checker
	Store   *state.Store
}

// New creates a server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	runner := cfg.Runner
	if runner == nil {
		runner = &interp.Runner{Logger: logger}
	}
	checker := cfg.Checker
	if checker == nil {
		checker = &equiv.Checker{Logger: logger, Runner: runner}
	}
	return &Server{
		port:    cfg.Port,
		logger:  logger,
		runner:  runner,
		checker: checker,
		store:   cfg.Store,
	}
}

// Routes builds the router. Exposed separately so tests can drive the
// handlers through httptest without a listener.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)
	r.Post("/api/generate", s.handleGenerate)
	r.Post("/api/run", s.handleRun)
	r.Post("/api/validate", s.handleValidate)
	r.Get("/api/health", s.handleHealth)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
