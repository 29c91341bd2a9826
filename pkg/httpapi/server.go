package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
)

// ServerConfig configures the HTTP listener (pkg/config.ServerConfig).
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server wraps an http.Server around the chi router, following the
// teacher's pkg/api.Server: constructed in a stopped state, started with
// Start (which blocks until ctx is cancelled), stopped idempotently via
// Stop or automatically when Start's context ends.
type Server struct {
	server          *http.Server
	shutdownTimeout time.Duration
	shutdownOnce    sync.Once
}

// NewServer constructs a Server around deps' router.
func NewServer(cfg ServerConfig, deps Deps) *Server {
	router := NewRouter(deps)

	return &Server{
		server: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Start listens and serves until ctx is cancelled, then gracefully shuts
// down within the configured ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("http server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. Safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("http server shutdown initiated")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("http server shutdown: %w", err)
			logger.Error("http server shutdown error", "error", err)
			return
		}
		logger.Info("http server stopped gracefully")
	})
	return shutdownErr
}

// Addr returns the address the server is configured to bind.
func (s *Server) Addr() string {
	return s.server.Addr
}
