package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"cpathways/cprules/pkg/audit"
	"cpathways/cprules/pkg/config"
	"cpathways/cprules/pkg/engine"
	"cpathways/cprules/pkg/security/auth"
	"cpathways/cprules/pkg/telemetry/health"
	"cpathways/cprules/pkg/telemetry/metrics"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Options carries the server's collaborators. Engine is required; the rest
// are optional and their routes degrade when absent.
type Options struct {
	Engine  *engine.Engine
	Storage audit.Storage
	Health  *health.Checker
	Metrics *metrics.Collector
	Tracer  trace.Tracer
	Logger  *slog.Logger

	// MetricsPath is where Metrics is mounted. Default "/metrics".
	MetricsPath string

	// Auth, when set, guards every /v1 route. AuthSources defaults to a
	// bearer token in the Authorization header.
	Auth        auth.KeyStore
	AuthSources []auth.KeySource

	// TLS, when set, wraps the listener; the server then speaks HTTPS only.
	TLS *tls.Config

	// Query bounds audit queries.
	Query config.QueryConfig

	Version   string
	Commit    string
	BuildTime string
}

// Server is the cprules HTTP service.
type Server struct {
	config     *config.ServerConfig
	opts       Options
	logger     *slog.Logger
	tracer     trace.Tracer
	handler    http.Handler
	httpServer *http.Server

	openAPIJSON []byte

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server. It does not start listening.
func New(cfg *config.ServerConfig, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}
	if opts.Engine == nil {
		return nil, errors.New("engine cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("cprules/server")
	}
	if opts.Health == nil {
		opts.Health = health.New(0)
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = config.DefaultMetricsPath
	}
	if opts.Query.DefaultLimit == 0 {
		opts.Query.DefaultLimit = config.DefaultAuditQueryDefaultLimit
	}
	if opts.Query.MaxLimit == 0 {
		opts.Query.MaxLimit = config.DefaultAuditQueryMaxLimit
	}

	doc, err := OpenAPI(context.Background())
	if err != nil {
		return nil, err
	}
	docJSON, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode openapi document: %w", err)
	}

	s := &Server{
		config:      cfg,
		opts:        opts,
		logger:      logger.With("component", "server"),
		tracer:      tracer,
		openAPIJSON: docJSON,
	}
	s.handler = s.setupRoutes()
	return s, nil
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server is already running")
	}
	s.isRunning = true
	scheme := "http"
	if s.opts.TLS != nil {
		ln = tls.NewListener(ln, s.opts.TLS)
		scheme = "https"
	}
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String(), "scheme", scheme)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		httpServer := s.httpServer
		s.mu.RUnlock()
		if httpServer == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}
