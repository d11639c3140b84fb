// Package ledger maintains the wallet's positions and transaction history.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forecastd/forecastd/pkg/types"
)

// Ledger is the in-memory position/transaction book for a single wallet.
// Positions are keyed by (market, option), so opposing positions in the
// same market can coexist.
type Ledger struct {
	mu           sync.RWMutex
	positions    map[string]*types.Position // key: marketID + "/" + optionID
	transactions []*types.Transaction       // newest first
	txIndex      map[string]*types.Transaction
	logger       *zap.Logger
}

// New creates an empty ledger.
func New(logger *zap.Logger) *Ledger {
	return &Ledger{
		positions: make(map[string]*types.Position),
		txIndex:   make(map[string]*types.Transaction),
		logger:    logger,
	}
}

func positionKey(marketID, optionID string) string {
	return marketID + "/" + optionID
}

// RecordTransaction inserts a transaction at the head of the history.
// Pending transactions become observable here before settlement.
func (l *Ledger) RecordTransaction(tx *types.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := *tx
	l.transactions = append([]*types.Transaction{&stored}, l.transactions...)
	l.txIndex[stored.ID] = &stored

	l.logger.Debug("transaction-recorded",
		zap.String("transaction-id", stored.ID),
		zap.String("market-id", stored.MarketID),
		zap.String("status", string(stored.Status)))
}

// SetTransactionStatus transitions a transaction to the given status.
func (l *Ledger) SetTransactionStatus(id string, status types.TransactionStatus, reason string) (*types.Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.txIndex[id]
	if !ok {
		return nil, false
	}

	tx.Status = status
	tx.FailReason = reason

	txCopy := *tx
	return &txCopy, true
}

// Transaction returns a copy of the transaction with the given ID.
func (l *Ledger) Transaction(id string) (*types.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tx, ok := l.txIndex[id]
	if !ok {
		return nil, false
	}

	txCopy := *tx
	return &txCopy, true
}

// Transactions returns copies of all transactions, newest first.
func (l *Ledger) Transactions() []*types.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*types.Transaction, 0, len(l.transactions))
	for _, tx := range l.transactions {
		txCopy := *tx
		out = append(out, &txCopy)
	}

	return out
}

// ApplyBuy upserts the position for (market, option). A first trade creates
// the position; subsequent buys merge with the amount-weighted average price
// new_price = (old_amount+amount) / (old_shares+shares).
func (l *Ledger) ApplyBuy(marketID, marketTitle, optionID string, amount, shares, price float64, now time.Time) (*types.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := positionKey(marketID, optionID)
	pos, exists := l.positions[key]
	if exists && pos.Status == types.PositionStatusActive {
		pos.Amount += amount
		pos.Shares += shares
		pos.AvgPrice = pos.Amount / pos.Shares
		pos.UpdatedAt = now

		l.logger.Debug("position-merged",
			zap.String("position-id", pos.ID),
			zap.Float64("amount", pos.Amount),
			zap.Float64("shares", pos.Shares),
			zap.Float64("avg-price", pos.AvgPrice))

		posCopy := *pos
		return &posCopy, false
	}

	pos = &types.Position{
		ID:          uuid.New().String(),
		MarketID:    marketID,
		MarketTitle: marketTitle,
		OptionID:    optionID,
		Amount:      amount,
		Shares:      shares,
		AvgPrice:    price,
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      types.PositionStatusActive,
	}
	l.positions[key] = pos

	l.logger.Debug("position-created",
		zap.String("position-id", pos.ID),
		zap.String("market-id", marketID),
		zap.String("option-id", optionID))

	posCopy := *pos
	return &posCopy, true
}

// ApplySell reduces the position by the given shares at the given price.
// The cost basis leaves the position at the average entry price; the spread
// between sale price and entry price accrues as realized P&L.
func (l *Ledger) ApplySell(marketID, optionID string, shares, price float64, now time.Time) (*types.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := positionKey(marketID, optionID)
	pos, exists := l.positions[key]
	if !exists || pos.Status != types.PositionStatusActive {
		return nil, fmt.Errorf("no active position for market %s option %s", marketID, optionID)
	}

	if pos.Shares < shares {
		return nil, fmt.Errorf("position holds %.4f shares, cannot sell %.4f", pos.Shares, shares)
	}

	costBasis := shares * pos.AvgPrice
	pos.Shares -= shares
	pos.Amount -= costBasis
	pos.RealizedPnL += shares*price - costBasis
	pos.UpdatedAt = now

	posCopy := *pos
	return &posCopy, nil
}

// HasShares reports whether the active position for (market, option) holds
// at least the given number of shares.
func (l *Ledger) HasShares(marketID, optionID string, shares float64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, exists := l.positions[positionKey(marketID, optionID)]
	return exists && pos.Status == types.PositionStatusActive && pos.Shares >= shares
}

// Position returns a copy of the position for (market, option).
func (l *Ledger) Position(marketID, optionID string) (*types.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, ok := l.positions[positionKey(marketID, optionID)]
	if !ok {
		return nil, false
	}

	posCopy := *pos
	return &posCopy, true
}

// ActivePosition returns the active position for a market, if any.
// With multiple active options in one market, the earliest-created wins;
// callers that care about a specific option should use Position.
func (l *Ledger) ActivePosition(marketID string) (*types.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var oldest *types.Position
	for _, pos := range l.positions {
		if pos.MarketID != marketID || pos.Status != types.PositionStatusActive {
			continue
		}
		if oldest == nil || pos.CreatedAt.Before(oldest.CreatedAt) {
			oldest = pos
		}
	}

	if oldest == nil {
		return nil, false
	}

	posCopy := *oldest
	return &posCopy, true
}

// Positions returns copies of all positions, newest first.
func (l *Ledger) Positions() []*types.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*types.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		posCopy := *pos
		out = append(out, &posCopy)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

// TotalPnL sums realized P&L over settled positions and mark-to-market P&L
// over active ones. priceOf resolves the live price for (market, option);
// positions whose price cannot be resolved contribute nothing.
func (l *Ledger) TotalPnL(priceOf func(marketID, optionID string) (float64, bool)) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := 0.0
	for _, pos := range l.positions {
		if pos.Status == types.PositionStatusSettled {
			total += pos.RealizedPnL
			continue
		}

		price, ok := priceOf(pos.MarketID, pos.OptionID)
		if !ok {
			continue
		}

		total += pos.Shares*price - pos.Amount
	}

	return total
}

// SettleMarket settles every active position in the market, winner-takes-all:
// winning shares pay out $1 each, losing positions realize their full amount
// as a loss. Returns the total payout owed to the wallet and the settled
// positions.
func (l *Ledger) SettleMarket(marketID, winnerOptionID string, now time.Time) (float64, []*types.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()

	payout := 0.0
	var settled []*types.Position

	for _, pos := range l.positions {
		if pos.MarketID != marketID || pos.Status != types.PositionStatusActive {
			continue
		}

		if pos.OptionID == winnerOptionID {
			pos.RealizedPnL += pos.Shares - pos.Amount
			payout += pos.Shares
		} else {
			pos.RealizedPnL -= pos.Amount
		}

		pos.Status = types.PositionStatusSettled
		pos.UpdatedAt = now

		posCopy := *pos
		settled = append(settled, &posCopy)

		l.logger.Info("position-settled",
			zap.String("position-id", pos.ID),
			zap.String("market-id", marketID),
			zap.Bool("won", pos.OptionID == winnerOptionID),
			zap.Float64("realized-pnl", pos.RealizedPnL))
	}

	return payout, settled
}

// Restore loads previously persisted positions and transactions, replacing
// the current in-memory state. Used at startup to survive restarts.
func (l *Ledger) Restore(positions []*types.Position, transactions []*types.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.positions = make(map[string]*types.Position, len(positions))
	for _, pos := range positions {
		posCopy := *pos
		l.positions[positionKey(pos.MarketID, pos.OptionID)] = &posCopy
	}

	l.transactions = make([]*types.Transaction, 0, len(transactions))
	l.txIndex = make(map[string]*types.Transaction, len(transactions))
	for _, tx := range transactions {
		txCopy := *tx
		l.transactions = append(l.transactions, &txCopy)
		l.txIndex[txCopy.ID] = &txCopy
	}

	l.logger.Info("ledger-restored",
		zap.Int("positions", len(positions)),
		zap.Int("transactions", len(transactions)))
}
