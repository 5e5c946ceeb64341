// Package server собирает HTTP сервер приема журнала аудита.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/milkledger/internal/auth"
	"github.com/iudanet/milkledger/internal/config"
	"github.com/iudanet/milkledger/internal/server/handlers"
	"github.com/iudanet/milkledger/internal/server/middleware"
)

// Storage объединяет интерфейсы хранилища, нужные обработчикам
type Storage interface {
	handlers.AuditStorage
	handlers.RecordStorage
	handlers.Pinger
}

// Server is the HTTP server that wires all routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	cfg        config.ServerConfig
}

// New creates a Server with all routes wired.
// ctx ограничивает фоновые задачи (очистка rate limiter).
func New(ctx context.Context, cfg config.ServerConfig, store Storage, logger *slog.Logger) (*Server, error) {
	if cfg.PushSecret == "" {
		return nil, auth.ErrEmptySecret
	}

	authCfg := auth.Config{Secret: []byte(cfg.PushSecret)}
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)

	auditHandler := handlers.NewAuditHandler(logger, store, cfg.MaxBatchSize, cfg.VerifyHashes)
	recordHandler := handlers.NewRecordHandler(logger, store, cfg.MaxBatchSize)
	healthHandler := handlers.NewHealthHandler(logger, store)

	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.MetricsMiddleware)
	router.Use(middleware.LoggingWithSkip(logger, []string{"/metrics", "/api/v1/health"}))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		// Запросы устройств: токен обязателен, лимит по устройству
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(logger, authCfg))
			r.Use(limiter.Middleware)

			r.Post("/audit-logs", auditHandler.PushAuditLogs)
			r.Get("/audit-logs", auditHandler.ListAuditLogs)
			r.Post("/records", recordHandler.PushRecords)
		})
	})

	return &Server{
		router: router,
		logger: logger,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}, nil
}

// Handler возвращает корневой обработчик
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает cfg.Addr до отмены ctx, затем корректно завершает соединения
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", slog.String("addr", s.cfg.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}
