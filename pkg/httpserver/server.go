// Package httpserver exposes the simulator over HTTP: market data, trading,
// portfolio queries, the live price stream, and operational endpoints.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/forecastd/forecastd/internal/engine"
	"github.com/forecastd/forecastd/internal/ledger"
	"github.com/forecastd/forecastd/internal/market"
	"github.com/forecastd/forecastd/internal/synthetic"
	"github.com/forecastd/forecastd/pkg/cache"
	"github.com/forecastd/forecastd/pkg/healthprobe"
	"github.com/forecastd/forecastd/pkg/stream"
	"github.com/forecastd/forecastd/pkg/wallet"
)

// Server provides the HTTP API plus metrics and health checks.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Registry      *market.Registry
	Executor      *engine.Executor
	Ledger        *ledger.Ledger
	Wallet        *wallet.Wallet
	Generator     *synthetic.Generator
	Cache         cache.Cache
	CacheTTL      time.Duration
	Hub           *stream.Hub

	// Trade endpoint rate limiting.
	TradeRateLimit float64
	TradeRateBurst int
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Operational routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	h := newHandler(cfg)

	r.Route("/api", func(r chi.Router) {
		r.Get("/markets", h.handleMarkets)
		r.Get("/markets/{marketID}", h.handleMarket)
		r.Get("/orderbook", h.handleOrderBook)
		r.Get("/history", h.handleHistory)
		r.Get("/quote", h.handleQuote)
		r.Get("/positions", h.handlePositions)
		r.Get("/transactions", h.handleTransactions)
		r.Get("/pnl", h.handlePnL)

		r.With(h.tradeRateLimit).Post("/trades", h.handleTrade)
		r.Post("/markets/{marketID}/resolve", h.handleResolve)
	})

	if cfg.Hub != nil {
		r.Get("/ws/prices", cfg.Hub.ServeHTTP)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server: server,
		logger: cfg.Logger,
	}
}

// Handler returns the configured router. Used in tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}

// tradeRateLimit throttles trade submissions with a token bucket.
func (h *handler) tradeRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			h.writeError(w, "trade rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newLimiter(limit float64, burst int) *rate.Limiter {
	if limit <= 0 {
		limit = 2
	}
	if burst <= 0 {
		burst = 5
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}
