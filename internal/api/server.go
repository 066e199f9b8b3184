package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wonny/finsight/pkg/config"
	"github.com/wonny/finsight/pkg/logger"
)

// Server serves the forecasting API
// ⭐ SSOT: API server settings live in this file only
type Server struct {
	httpServer      *http.Server
	logger          *logger.Logger
	env             string
	shutdownTimeout time.Duration
}

// New creates a server from cfg.Port and cfg.Server
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	shutdown := cfg.Server.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 30 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		logger:          log,
		env:             cfg.Env,
		shutdownTimeout: shutdown,
	}
}

// Serve accepts connections on l until ctx is cancelled, then drains in-flight
// requests (evaluations included) for at most the shutdown timeout.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.logger.WithFields(map[string]interface{}{
		"addr":          l.Addr().String(),
		"env":           s.env,
		"write_timeout": s.httpServer.WriteTimeout.String(),
	}).Info("Starting API server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	s.logger.WithField("timeout", s.shutdownTimeout.String()).Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured port and calls Serve
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, l)
}
