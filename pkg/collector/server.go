// Package collector is a development backend for the logging pipeline. It
// accepts batches on POST /api/logs, validates every record against the wire
// contract and keeps the accepted ones in a bounded in-memory window.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 30 * time.Second

// Server is the collector HTTP server.
type Server struct {
	router            chi.Router
	httpServer        *http.Server
	config            Config
	logger            *slog.Logger
	registry          *prometheus.Registry
	metrics           *Metrics
	store             *Store
	validator         *logentry.Validator
	healthChecks      map[string]HealthCheckFunc
	customMiddlewares []func(http.Handler) http.Handler
	shutdownOnce      sync.Once
}

// New creates a collector with the given options.
func New(opts ...Option) (*Server, error) {
	srv := &Server{
		config:       DefaultConfig(),
		logger:       slog.New(slog.NewTextHandler(os.Stdout, nil)),
		registry:     prometheus.NewRegistry(),
		healthChecks: make(map[string]HealthCheckFunc),
	}

	for _, opt := range opts {
		opt(srv)
	}

	if err := srv.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid collector configuration: %w", err)
	}

	srv.store = NewStore(srv.config.MaxStored)
	srv.validator = logentry.NewValidator(srv.config.Source, logentry.NewLayerSet(srv.config.Layers...))

	metrics, err := newMetrics(srv.registry, srv.store)
	if err != nil {
		return nil, fmt.Errorf("failed to register collector metrics: %w", err)
	}
	srv.metrics = metrics

	srv.router = chi.NewRouter()
	srv.registerMiddlewares()
	srv.registerRoutes()

	srv.httpServer = &http.Server{
		Addr:         srv.config.Address,
		Handler:      srv.router,
		ReadTimeout:  srv.config.ReadTimeout,
		WriteTimeout: srv.config.WriteTimeout,
		IdleTimeout:  srv.config.IdleTimeout,
	}

	return srv, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the record window.
func (s *Server) Store() *Store {
	return s.store
}

// Registry returns the registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Server) registerMiddlewares() {
	s.router.Use(recoverMiddleware(s.logger, s.metrics.Panics))
	s.router.Use(requestIDMiddleware())
	s.router.Use(bodyLimitMiddleware(int64(s.config.BodyLimit)))

	// Validate already rejected malformed origins.
	if origins, _ := parseOrigins(s.config.CORSOrigins); len(origins) > 0 {
		s.router.Use(corsMiddleware(origins))
		s.logger.Info("CORS enabled", "origins", s.config.CORSOrigins)
	}

	for _, middleware := range s.customMiddlewares {
		s.router.Use(middleware)
	}
}

func (s *Server) registerRoutes() {
	s.router.Route("/api/logs", func(r chi.Router) {
		r.Post("/", s.ingestHandler)
		r.Get("/", s.listHandler)
		r.Delete("/", s.resetHandler)
	})

	s.router.Get("/health", s.healthHandler)
	s.router.Get("/live", liveHandler)

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
}

// Start serves until ctx is done or a shutdown signal arrives.
func (s *Server) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting log collector",
		"address", s.config.Address,
		"service", s.config.ServiceName,
		"version", s.config.ServiceVersion,
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-serverErr:
		s.logger.ErrorContext(ctx, "collector failed to start", "error", err)
		return err
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "context cancelled, initiating shutdown")
	case sig := <-sigChan:
		s.logger.InfoContext(ctx, "signal received, initiating shutdown", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.ErrorContext(ctx, "error shutting down collector", "error", err)
			shutdownErr = err
			return
		}
		s.logger.InfoContext(ctx, "graceful shutdown completed", "stored", s.store.Len())
	})

	return shutdownErr
}
