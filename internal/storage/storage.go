// Package storage persists positions and transactions across restarts.
// Persistence is opportunistic: the in-memory ledger stays authoritative
// and storage errors never fail a trade.
package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/forecastd/forecastd/pkg/types"
)

// Store is the persistence contract shared by all backends.
type Store interface {
	SaveTransaction(ctx context.Context, tx *types.Transaction) error
	SavePosition(ctx context.Context, pos *types.Position) error
	LoadTransactions(ctx context.Context) ([]*types.Transaction, error)
	LoadPositions(ctx context.Context) ([]*types.Position, error)
	Close() error
}

// ConsoleStore logs writes and persists nothing. The default backend when
// no database is configured.
type ConsoleStore struct {
	logger *zap.Logger
}

// NewConsoleStore creates a log-only store.
func NewConsoleStore(logger *zap.Logger) *ConsoleStore {
	return &ConsoleStore{logger: logger}
}

func (s *ConsoleStore) SaveTransaction(_ context.Context, tx *types.Transaction) error {
	s.logger.Info("transaction",
		zap.String("id", tx.ID),
		zap.String("market-id", tx.MarketID),
		zap.String("option-id", tx.OptionID),
		zap.String("side", string(tx.Side)),
		zap.Float64("amount", tx.Amount),
		zap.Float64("shares", tx.Shares),
		zap.String("status", string(tx.Status)))

	return nil
}

func (s *ConsoleStore) SavePosition(_ context.Context, pos *types.Position) error {
	s.logger.Info("position",
		zap.String("id", pos.ID),
		zap.String("market-id", pos.MarketID),
		zap.String("option-id", pos.OptionID),
		zap.Float64("shares", pos.Shares),
		zap.Float64("avg-price", pos.AvgPrice),
		zap.String("status", string(pos.Status)))

	return nil
}

func (s *ConsoleStore) LoadTransactions(_ context.Context) ([]*types.Transaction, error) {
	return nil, nil
}

func (s *ConsoleStore) LoadPositions(_ context.Context) ([]*types.Position, error) {
	return nil, nil
}

func (s *ConsoleStore) Close() error { return nil }
