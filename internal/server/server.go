// Package server собирает HTTP-поверхность push-синхронизации:
// маршруты, цепочку middleware и graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mkarpoff/entsync/internal/server/handlers"
	"github.com/mkarpoff/entsync/internal/server/middleware"
)

// Options конфигурирует HTTP сервер
type Options struct {
	Addr            string
	Version         string
	JWTConfig       handlers.JWTConfig
	RateLimit       int
	RateWindow      time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server represents the push synchronization HTTP server
type Server struct {
	logger          *slog.Logger
	http            *http.Server
	shutdownTimeout time.Duration
}

// New создает новый HTTP сервер поверх движка синхронизации.
// Цепочка middleware (снаружи внутрь): recovery → logging → ratelimit;
// auth оборачивает только /sync/push — health остается открытым.
func New(logger *slog.Logger, coordinator handlers.BatchPusher, opts Options) *Server {
	pushHandler := handlers.NewPushHandler(logger, coordinator)
	healthHandler := handlers.NewHealthHandler(logger, opts.Version)

	auth := middleware.AuthMiddleware(logger, opts.JWTConfig)

	mux := http.NewServeMux()
	mux.Handle("POST /sync/push", auth(http.HandlerFunc(pushHandler.HandlePush)))
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	var handler http.Handler = mux
	handler = middleware.RateLimitMiddleware(opts.RateLimit, opts.RateWindow, logger)(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	return &Server{
		logger: logger,
		http: &http.Server{
			Addr:         opts.Addr,
			Handler:      handler,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		shutdownTimeout: opts.ShutdownTimeout,
	}
}

// Run запускает сервер и блокируется до отмены контекста,
// затем выполняет graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	errC := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}
