// Package server exposes the rule engine over HTTP: access decisions,
// invariant checks, transition evaluation, audit queries, and metrics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/manwithacat/dazzle-sub014/pkg/audit"
	"github.com/manwithacat/dazzle-sub014/pkg/config"
	"github.com/manwithacat/dazzle-sub014/pkg/invariant"
	"github.com/manwithacat/dazzle-sub014/pkg/metrics"
	"github.com/manwithacat/dazzle-sub014/pkg/policy"
	"github.com/manwithacat/dazzle-sub014/pkg/ruleset"
	"github.com/manwithacat/dazzle-sub014/pkg/statemachine"
)

// Deps holds the wired components the server serves. Registry is
// required; the audit and metrics components may be nil when disabled.
type Deps struct {
	Registry *ruleset.Registry

	// AuditStorage serves /v1/audit queries. Nil disables the endpoint.
	AuditStorage audit.Storage

	// Recorder receives decision, violation, and rejection records.
	Recorder *audit.Recorder

	// Metrics receives decision counters. PromRegistry backs /metrics.
	Metrics      *metrics.Metrics
	PromRegistry *prometheus.Registry

	Logger *slog.Logger
}

// Server is the HTTP API server for the rule engine.
type Server struct {
	config      *config.ServerConfig
	registry    *ruleset.Registry
	engine      *policy.Engine
	checker     *invariant.Checker
	transitions *statemachine.Evaluator

	auditStorage audit.Storage
	recorder     *audit.Recorder
	metrics      *metrics.Metrics
	promRegistry *prometheus.Registry

	logger     *slog.Logger
	httpServer *http.Server

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// NewServer creates the API server.
func NewServer(cfg *config.ServerConfig, deps *Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if deps == nil || deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	return &Server{
		config:       cfg,
		registry:     deps.Registry,
		engine:       policy.NewEngine(logger),
		checker:      invariant.NewChecker(logger),
		transitions:  statemachine.NewEvaluator(logger),
		auditStorage: deps.AuditStorage,
		recorder:     deps.Recorder,
		metrics:      deps.Metrics,
		promRegistry: deps.PromRegistry,
		logger:       logger,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Handler returns the configured HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/authorize", s.handleAuthorize)
	mux.HandleFunc("POST /v1/check", s.handleCheck)
	mux.HandleFunc("POST /v1/transition", s.handleTransition)
	mux.HandleFunc("GET /v1/entities", s.handleEntities)
	mux.HandleFunc("GET /v1/audit", s.handleAudit)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.promRegistry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
		return s.Shutdown()
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown()
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return nil
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.isRunning = false
		s.mu.Unlock()
		if !running {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if e := s.httpServer.Shutdown(ctx); e != nil {
			err = fmt.Errorf("shutdown failed: %w", e)
		}
		close(s.shutdownChan)
		s.logger.Info("api server stopped")
	})
	return err
}
