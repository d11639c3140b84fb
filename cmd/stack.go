package cmd

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
	"github.com/forecastd/forecastd/pkg/config"
	"github.com/forecastd/forecastd/pkg/wallet"
)

// simulator bundles the components the one-shot commands need.
type simulator struct {
	registry *market.Registry
	executor *engine.Executor
	ledger   *ledger.Ledger
	wallet   *wallet.Wallet
	store    storage.Store
}

// newSimulator builds a seeded trading stack from the environment config.
// One-shot commands restore the persisted portfolio so repeated invocations
// act on the same positions.
func newSimulator(cfg *config.Config, logger *zap.Logger) (*simulator, error) {
	eng, err := pricing.New(cfg.TradeLiquidityB)
	if err != nil {
		return nil, fmt.Errorf("create pricing engine: %w", err)
	}

	registry, err := market.NewRegistry(&market.Config{Engine: eng, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}
	if err := market.Seed(registry, time.Now()); err != nil {
		return nil, fmt.Errorf("seed markets: %w", err)
	}

	w, err := wallet.New(&wallet.Config{
		InitialBalance: cfg.WalletInitialBalance,
		ConnectDelay:   cfg.WalletConnectDelay,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}

	book := ledger.New(logger)

	var store storage.Store
	switch cfg.StorageMode {
	case "sqlite":
		store, err = storage.NewSQLiteStore(cfg.SQLitePath, logger)
	case "postgres":
		store, err = storage.NewPostgresStore(cfg.PostgresDSN(), logger)
	default:
		store = storage.NewConsoleStore(logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
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
		store.Close()
		return nil, fmt.Errorf("create executor: %w", err)
	}

	return &simulator{
		registry: registry,
		executor: executor,
		ledger:   book,
		wallet:   w,
		store:    store,
	}, nil
}

func (s *simulator) restore(ctx context.Context) error {
	positions, err := s.store.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}

	transactions, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	if len(positions) > 0 || len(transactions) > 0 {
		s.ledger.Restore(positions, transactions)
	}

	return nil
}

func (s *simulator) close() {
	_ = s.store.Close()
}
