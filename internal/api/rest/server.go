package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clearbid/auction-engine/internal/infrastructure/config"
	"github.com/clearbid/auction-engine/internal/service/bidding"
)

// HealthChecker reports readiness of a downstream dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the HTTP surface of the auction engine.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	bidding    bidding.Service
	validate   *validator.Validate
	logger     *zap.Logger
	checkers   map[string]HealthChecker
}

// NewServer wires the HTTP server around an already-constructed bidding
// service. Dependency construction lives in cmd/api.
func NewServer(cfg *config.Config, svc bidding.Service, checkers map[string]HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		bidding:  svc,
		validate: validator.New(),
		logger:   logger,
		checkers: checkers,
	}

	limiter := newUserRateLimiter(cfg.Server.RateLimit)
	handler := chain(s.routes(),
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
		limiter.Middleware(),
	)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleLiveness)
	mux.HandleFunc("GET /health", s.handleReadiness)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/auctions", s.handleCreateAuction)
	mux.HandleFunc("GET /api/v1/auctions/{id}", s.handleGetAuction)
	mux.HandleFunc("POST /api/v1/auctions/{id}/publish", s.handlePublishAuction)
	mux.HandleFunc("POST /api/v1/auctions/{id}/cancel", s.handleCancelAuction)
	mux.HandleFunc("POST /api/v1/auctions/{id}/bids", s.handlePlaceBid)
	mux.HandleFunc("GET /api/v1/auctions/{id}/bids", s.handleListBids)
	mux.HandleFunc("POST /api/v1/auctions/{id}/buy-now", s.handleBuyNow)
	mux.HandleFunc("PUT /api/v1/auctions/{id}/watch", s.handleWatch)
	mux.HandleFunc("DELETE /api/v1/auctions/{id}/watch", s.handleUnwatch)

	return mux
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checkers))
	for name, checker := range s.checkers {
		if err := checker.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": http.StatusText(status),
		"checks": checks,
	})
}

// Start serves until the context is canceled, then drains in-flight
// requests within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server",
			zap.String("addr", s.httpServer.Addr),
			zap.String("environment", s.cfg.Environment))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
