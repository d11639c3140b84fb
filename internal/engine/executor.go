// Package engine executes simulated trades: validation, fee, balance debit,
// settlement latency, and the pending->completed/failed transaction
// lifecycle, with positions and market prices updated on completion.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forecastd/forecastd/internal/ledger"
	"github.com/forecastd/forecastd/internal/market"
	"github.com/forecastd/forecastd/internal/pricing"
	"github.com/forecastd/forecastd/pkg/types"
	"github.com/forecastd/forecastd/pkg/wallet"
)

// Store persists trade records. Implemented by internal/storage backends;
// persistence is opportunistic, failures are logged and never fail a trade.
type Store interface {
	SaveTransaction(ctx context.Context, tx *types.Transaction) error
	SavePosition(ctx context.Context, pos *types.Position) error
}

// TradeRequest describes one trade attempt. Amount is the USD stake for a
// buy; Shares is the quantity to liquidate for a sell.
type TradeRequest struct {
	MarketID string     `json:"marketId"`
	OptionID string     `json:"optionId"`
	Side     types.Side `json:"side"`
	Amount   float64    `json:"amount"`
	Shares   float64    `json:"shares"`
}

// TradeUpdate is published on the updates channel after every settlement.
type TradeUpdate struct {
	Transaction *types.Transaction
	Market      *types.Market
}

// Config holds executor configuration.
type Config struct {
	Policy      pricing.Policy
	Registry    *market.Registry
	Ledger      *ledger.Ledger
	Wallet      *wallet.Wallet
	Store       Store // optional
	Logger      *zap.Logger
	SettleDelay time.Duration // simulated settlement latency
}

// Executor settles one trade at a time for the process wallet.
type Executor struct {
	policy      pricing.Policy
	engine      *pricing.Engine
	registry    *market.Registry
	ledger      *ledger.Ledger
	wallet      *wallet.Wallet
	store       Store
	logger      *zap.Logger
	settleDelay time.Duration

	inFlight atomic.Bool
	updates  chan TradeUpdate

	mu     sync.Mutex
	traded map[string]bool // market IDs this wallet has traded
}

// New creates a trade executor.
func New(cfg *Config) (*Executor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("market registry cannot be nil")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}
	if cfg.Wallet == nil {
		return nil, fmt.Errorf("wallet cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	eng, err := pricing.New(cfg.Policy.LiquidityB)
	if err != nil {
		return nil, fmt.Errorf("create pricing engine: %w", err)
	}

	return &Executor{
		policy:      cfg.Policy,
		engine:      eng,
		registry:    cfg.Registry,
		ledger:      cfg.Ledger,
		wallet:      cfg.Wallet,
		store:       cfg.Store,
		logger:      cfg.Logger,
		settleDelay: cfg.SettleDelay,
		updates:     make(chan TradeUpdate, 16),
		traded:      make(map[string]bool),
	}, nil
}

// Updates returns the channel of settled-trade notifications. Sends are
// non-blocking; slow consumers miss updates rather than stalling trades.
func (e *Executor) Updates() <-chan TradeUpdate {
	return e.updates
}

// ExecuteTrade runs the full trade lifecycle and blocks until the trade
// settles. Validation failures surface before any state changes. Once the
// balance has been debited the trade always settles, even if ctx is
// cancelled during the latency window; a settlement failure refunds the
// debit and leaves a failed transaction in the history.
func (e *Executor) ExecuteTrade(ctx context.Context, req *TradeRequest) (*types.Transaction, error) {
	if !e.wallet.IsConnected() {
		return nil, types.NewTradeError(types.ErrWalletNotConnected, "wallet is not connected")
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, types.NewTradeError(types.ErrTradeInFlight, "another trade is still settling")
	}
	defer e.inFlight.Store(false)

	m, price, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	var amount, shares, fee float64
	switch req.Side {
	case types.SideBuy:
		amount = req.Amount
		fee = amount * e.policy.FeeRate
		shares = amount / price
	case types.SideSell:
		shares = req.Shares
		if !e.ledger.HasShares(req.MarketID, req.OptionID, shares) {
			return nil, e.tradeError(types.ErrInsufficientShares,
				fmt.Sprintf("position holds fewer than %.4f shares", shares), req)
		}
		amount = shares * price
		fee = amount * e.policy.FeeRate
	default:
		return nil, e.tradeError(types.ErrInvalidAmount, fmt.Sprintf("unknown side %q", req.Side), req)
	}

	tx := &types.Transaction{
		ID:          uuid.New().String(),
		MarketID:    req.MarketID,
		MarketTitle: m.Title,
		OptionID:    req.OptionID,
		Side:        req.Side,
		Amount:      amount,
		Shares:      shares,
		Price:       price,
		Fee:         fee,
		Timestamp:   time.Now(),
		Status:      types.TransactionStatusPending,
	}

	// A buy debits the full cost up front. Shortfall and debit races record
	// a failed transaction but never touch the balance.
	if req.Side == types.SideBuy {
		total := tx.Total()
		if e.wallet.Balance() < total {
			e.recordFailed(ctx, tx, "balance below trade total")
			return nil, e.tradeError(types.ErrInsufficientBalance,
				fmt.Sprintf("trade total %.2f exceeds balance %.2f", total, e.wallet.Balance()), req)
		}
		if !e.wallet.Deduct(total) {
			e.recordFailed(ctx, tx, "balance deduction failed")
			return nil, e.tradeError(types.ErrBalanceDeductionFailed, "balance deduction failed", req)
		}
	}

	e.ledger.RecordTransaction(tx)
	e.persistTransaction(ctx, tx)
	TradesStarted.WithLabelValues(string(req.Side)).Inc()

	e.logger.Info("trade-pending",
		zap.String("transaction-id", tx.ID),
		zap.String("market-id", tx.MarketID),
		zap.String("option-id", tx.OptionID),
		zap.String("side", string(tx.Side)),
		zap.Float64("amount", amount),
		zap.Float64("shares", shares),
		zap.Float64("price", price))

	e.waitSettlement(ctx)

	return e.settle(ctx, tx)
}

// validate runs every pre-mutation check and returns the market snapshot
// and the live execution price.
func (e *Executor) validate(req *TradeRequest) (*types.Market, float64, error) {
	if req.Side == types.SideBuy && req.Amount <= 0 {
		return nil, 0, e.tradeError(types.ErrInvalidAmount,
			fmt.Sprintf("amount must be positive, got %.2f", req.Amount), req)
	}
	if req.Side == types.SideSell && req.Shares <= 0 {
		return nil, 0, e.tradeError(types.ErrInvalidAmount,
			fmt.Sprintf("shares must be positive, got %.4f", req.Shares), req)
	}

	m, ok := e.registry.Get(req.MarketID)
	if !ok {
		return nil, 0, e.tradeError(types.ErrMarketNotFound,
			fmt.Sprintf("market %s not found", req.MarketID), req)
	}
	if m.Status != types.MarketStatusTrading {
		return nil, 0, e.tradeError(types.ErrMarketClosed,
			fmt.Sprintf("market is %s", m.Status), req)
	}

	opt := m.Option(req.OptionID)
	if opt == nil {
		return nil, 0, e.tradeError(types.ErrOptionNotFound,
			fmt.Sprintf("option %s not found", req.OptionID), req)
	}
	if opt.Price <= 0 || opt.Price >= 1 {
		return nil, 0, e.tradeError(types.ErrInvalidPrice,
			fmt.Sprintf("price %.4f outside (0,1)", opt.Price), req)
	}

	return m, opt.Price, nil
}

// waitSettlement sleeps out the simulated latency. Context cancellation
// short-circuits the wait but never aborts the trade: in-flight trades
// cannot be cancelled, so settlement proceeds immediately instead.
func (e *Executor) waitSettlement(ctx context.Context) {
	if e.settleDelay <= 0 {
		return
	}

	timer := time.NewTimer(e.settleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// settle applies the trade to the registry and ledger. If the market state
// changed during the latency window the trade fails and any debit is
// refunded in full.
func (e *Executor) settle(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	start := time.Now()

	e.mu.Lock()
	newParticipant := !e.traded[tx.MarketID]
	e.mu.Unlock()

	updated, err := e.registry.ApplyTrade(tx.MarketID, tx.OptionID, tx.Side, tx.Amount, tx.Shares, newParticipant)
	if err != nil {
		if tx.Side == types.SideBuy {
			e.wallet.Add(tx.Total())
		}

		failed, _ := e.ledger.SetTransactionStatus(tx.ID, types.TransactionStatusFailed, err.Error())
		e.persistTransaction(ctx, failed)
		TradesSettled.WithLabelValues(string(tx.Side), string(types.TransactionStatusFailed)).Inc()

		e.logger.Warn("trade-failed",
			zap.String("transaction-id", tx.ID),
			zap.String("market-id", tx.MarketID),
			zap.Error(err))

		return failed, e.tradeError(types.ErrMarketClosed, err.Error(),
			&TradeRequest{MarketID: tx.MarketID, OptionID: tx.OptionID})
	}

	e.mu.Lock()
	e.traded[tx.MarketID] = true
	e.mu.Unlock()

	var pos *types.Position
	now := time.Now()
	if tx.Side == types.SideBuy {
		pos, _ = e.ledger.ApplyBuy(tx.MarketID, tx.MarketTitle, tx.OptionID, tx.Amount, tx.Shares, tx.Price, now)
	} else {
		// Sale proceeds net of fee reach the wallet only at settlement.
		pos, err = e.ledger.ApplySell(tx.MarketID, tx.OptionID, tx.Shares, tx.Price, now)
		if err != nil {
			failed, _ := e.ledger.SetTransactionStatus(tx.ID, types.TransactionStatusFailed, err.Error())
			e.persistTransaction(ctx, failed)
			TradesSettled.WithLabelValues(string(tx.Side), string(types.TransactionStatusFailed)).Inc()
			return failed, e.tradeError(types.ErrInsufficientShares, err.Error(),
				&TradeRequest{MarketID: tx.MarketID, OptionID: tx.OptionID})
		}
		e.wallet.Add(tx.Amount - tx.Fee)
	}

	completed, _ := e.ledger.SetTransactionStatus(tx.ID, types.TransactionStatusCompleted, "")
	e.persistTransaction(ctx, completed)
	e.persistPosition(ctx, pos)

	TradesSettled.WithLabelValues(string(tx.Side), string(types.TransactionStatusCompleted)).Inc()
	FeesCollected.Add(tx.Fee)
	SettlementDuration.Observe(time.Since(start).Seconds() + e.settleDelay.Seconds())

	e.publish(TradeUpdate{Transaction: completed, Market: updated})

	e.logger.Info("trade-completed",
		zap.String("transaction-id", tx.ID),
		zap.String("market-id", tx.MarketID),
		zap.Float64("shares", tx.Shares),
		zap.Float64("fee", tx.Fee),
		zap.Float64("balance", e.wallet.Balance()))

	return completed, nil
}

// Settle resolves a market and pays out winning positions, $1 per share.
func (e *Executor) Settle(marketID, winnerOptionID string) (*types.Market, error) {
	m, err := e.registry.Resolve(marketID, winnerOptionID)
	if err != nil {
		return nil, fmt.Errorf("resolve market: %w", err)
	}

	payout, settled := e.ledger.SettleMarket(marketID, winnerOptionID, time.Now())
	if payout > 0 {
		e.wallet.Add(payout)
	}

	for _, pos := range settled {
		e.persistPosition(context.Background(), pos)
	}

	e.logger.Info("market-settled",
		zap.String("market-id", marketID),
		zap.String("winner-option-id", winnerOptionID),
		zap.Int("positions", len(settled)),
		zap.Float64("payout", payout))

	e.publish(TradeUpdate{Market: m})

	return m, nil
}

func (e *Executor) recordFailed(ctx context.Context, tx *types.Transaction, reason string) {
	tx.Status = types.TransactionStatusFailed
	tx.FailReason = reason
	e.ledger.RecordTransaction(tx)
	e.persistTransaction(ctx, tx)
	TradesSettled.WithLabelValues(string(tx.Side), string(types.TransactionStatusFailed)).Inc()
}

func (e *Executor) persistTransaction(ctx context.Context, tx *types.Transaction) {
	if e.store == nil || tx == nil {
		return
	}
	if err := e.store.SaveTransaction(ctx, tx); err != nil {
		e.logger.Warn("persist-transaction-failed", zap.String("transaction-id", tx.ID), zap.Error(err))
	}
}

func (e *Executor) persistPosition(ctx context.Context, pos *types.Position) {
	if e.store == nil || pos == nil {
		return
	}
	if err := e.store.SavePosition(ctx, pos); err != nil {
		e.logger.Warn("persist-position-failed", zap.String("position-id", pos.ID), zap.Error(err))
	}
}

func (e *Executor) publish(update TradeUpdate) {
	select {
	case e.updates <- update:
	default:
		e.logger.Debug("update-channel-full")
	}
}

func (e *Executor) tradeError(code, message string, req *TradeRequest) *types.TradeError {
	return &types.TradeError{
		Code:     code,
		Message:  message,
		MarketID: req.MarketID,
		OptionID: req.OptionID,
	}
}
