// Package wallet simulates a connected wallet: a single balance mutated
// atomically by trade execution, behind a mock connection flow.
package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by Connect-dependent operations before Connect.
var ErrNotConnected = errors.New("wallet not connected")

// Wallet holds the simulated account. The balance is the single piece of
// shared mutable state touched by trade execution; Deduct and Add are the
// only mutation paths and each takes effect atomically.
type Wallet struct {
	mu           sync.Mutex
	connected    bool
	address      common.Address
	balance      float64
	connectDelay time.Duration
	logger       *zap.Logger
}

// Config holds wallet configuration.
type Config struct {
	InitialBalance float64
	ConnectDelay   time.Duration // simulated connection latency
	Logger         *zap.Logger
}

// New creates a disconnected wallet.
func New(cfg *Config) (*Wallet, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.InitialBalance < 0 {
		return nil, errors.New("initial balance cannot be negative")
	}

	return &Wallet{
		balance:      cfg.InitialBalance,
		connectDelay: cfg.ConnectDelay,
		logger:       cfg.Logger,
	}, nil
}

// Connect simulates the wallet connection flow: after the configured
// latency a fresh account address is generated and the wallet becomes
// usable for trading.
func (w *Wallet) Connect(ctx context.Context) (common.Address, error) {
	if w.connectDelay > 0 {
		timer := time.NewTimer(w.connectDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return common.Address{}, ctx.Err()
		case <-timer.C:
		}
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, err
	}
	address := crypto.PubkeyToAddress(key.PublicKey)

	w.mu.Lock()
	w.connected = true
	w.address = address
	balance := w.balance
	w.mu.Unlock()

	BalanceGauge.Set(balance)
	ConnectedGauge.Set(1)

	w.logger.Info("wallet-connected",
		zap.String("address", address.Hex()),
		zap.Float64("balance", balance))

	return address, nil
}

// Disconnect drops the connection. The balance is retained.
func (w *Wallet) Disconnect() {
	w.mu.Lock()
	w.connected = false
	w.address = common.Address{}
	w.mu.Unlock()

	ConnectedGauge.Set(0)
	w.logger.Info("wallet-disconnected")
}

// IsConnected reports whether the wallet is usable for trading.
func (w *Wallet) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// Address returns the connected account address.
func (w *Wallet) Address() common.Address {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address
}

// Balance returns the current balance.
func (w *Wallet) Balance() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}

// Deduct atomically removes amount from the balance. It returns false,
// leaving the balance untouched, if the wallet is disconnected, the amount
// is not positive, or the balance would go negative.
func (w *Wallet) Deduct(amount float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.connected || amount <= 0 || w.balance < amount {
		return false
	}

	w.balance -= amount
	BalanceGauge.Set(w.balance)
	DebitsTotal.Inc()

	w.logger.Debug("balance-deducted",
		zap.Float64("amount", amount),
		zap.Float64("balance", w.balance))

	return true
}

// Add atomically credits amount to the balance. Used for sale proceeds,
// settlement payouts, and compensating refunds of failed trades.
func (w *Wallet) Add(amount float64) {
	if amount <= 0 {
		return
	}

	w.mu.Lock()
	w.balance += amount
	balance := w.balance
	w.mu.Unlock()

	BalanceGauge.Set(balance)
	CreditsTotal.Inc()

	w.logger.Debug("balance-credited",
		zap.Float64("amount", amount),
		zap.Float64("balance", balance))
}

// Restore sets the balance from persisted state, keeping connection state.
func (w *Wallet) Restore(balance float64) {
	w.mu.Lock()
	w.balance = balance
	w.mu.Unlock()

	BalanceGauge.Set(balance)
}
