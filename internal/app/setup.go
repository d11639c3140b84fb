package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/forecastd/forecastd/internal/engine"
	"github.com/forecastd/forecastd/internal/ledger"
	"github.com/forecastd/forecastd/internal/market"
	"github.com/forecastd/forecastd/internal/pricing"
	"github.com/forecastd/forecastd/internal/storage"
	"github.com/forecastd/forecastd/internal/synthetic"
	"github.com/forecastd/forecastd/pkg/cache"
	"github.com/forecastd/forecastd/pkg/config"
	"github.com/forecastd/forecastd/pkg/healthprobe"
	"github.com/forecastd/forecastd/pkg/httpserver"
	"github.com/forecastd/forecastd/pkg/stream"
	"github.com/forecastd/forecastd/pkg/wallet"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	registry, err := setupRegistry(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup registry: %w", err)
	}

	w, err := wallet.New(&wallet.Config{
		InitialBalance: cfg.WalletInitialBalance,
		ConnectDelay:   cfg.WalletConnectDelay,
		Logger:         logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup wallet: %w", err)
	}

	book := ledger.New(logger)

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	executor, err := engine.New(&engine.Config{
		Policy:      pricing.Policy{LiquidityB: cfg.TradeLiquidityB, FeeRate: cfg.TradeFeeRate},
		Registry:    registry,
		Ledger:      book,
		Wallet:      w,
		Store:       store,
		Logger:      logger,
		SettleDelay: cfg.TradeSettleDelay,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup executor: %w", err)
	}

	dataCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	generator := setupGenerator(cfg)

	hub := stream.NewHub(&stream.Config{
		TickInterval: cfg.StreamTickInterval,
		WriteTimeout: cfg.StreamWriteTimeout,
		SendBuffer:   cfg.StreamSendBuffer,
		Logger:       logger,
	}, registry.List)

	httpServer := httpserver.New(&httpserver.Config{
		Port:           cfg.HTTPPort,
		Logger:         logger,
		HealthChecker:  healthChecker,
		Registry:       registry,
		Executor:       executor,
		Ledger:         book,
		Wallet:         w,
		Generator:      generator,
		Cache:          dataCache,
		CacheTTL:       cfg.SyntheticCacheTTL,
		Hub:            hub,
		TradeRateLimit: cfg.TradeRateLimit,
		TradeRateBurst: cfg.TradeRateBurst,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		registry:      registry,
		executor:      executor,
		ledger:        book,
		wallet:        w,
		store:         store,
		dataCache:     dataCache,
		generator:     generator,
		hub:           hub,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupRegistry(cfg *config.Config, logger *zap.Logger) (*market.Registry, error) {
	eng, err := pricing.New(cfg.TradeLiquidityB)
	if err != nil {
		return nil, fmt.Errorf("create pricing engine: %w", err)
	}

	registry, err := market.NewRegistry(&market.Config{Engine: eng, Logger: logger})
	if err != nil {
		return nil, err
	}

	if err := market.Seed(registry, time.Now()); err != nil {
		return nil, fmt.Errorf("seed markets: %w", err)
	}

	return registry, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	switch cfg.StorageMode {
	case "sqlite":
		return storage.NewSQLiteStore(cfg.SQLitePath, logger)
	case "postgres":
		return storage.NewPostgresStore(cfg.PostgresDSN(), logger)
	default:
		return storage.NewConsoleStore(logger), nil
	}
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupGenerator(cfg *config.Config) *synthetic.Generator {
	seed := cfg.SyntheticSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return synthetic.NewGenerator(seed)
}

// restoreLedger loads persisted state so the portfolio survives restarts.
func (a *App) restoreLedger(ctx context.Context) error {
	positions, err := a.store.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}

	transactions, err := a.store.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	if len(positions) > 0 || len(transactions) > 0 {
		a.ledger.Restore(positions, transactions)
	}

	return nil
}
