package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forecastd/forecastd/internal/engine"
	"github.com/forecastd/forecastd/pkg/config"
	"github.com/forecastd/forecastd/pkg/types"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	t.Setenv("WALLET_CONNECT_DELAY", "0s")
	t.Setenv("TRADE_SETTLE_DELAY", "0s")
	t.Setenv("SYNTHETIC_SEED", "42")

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		a.cancel()
		a.dataCache.Close()
	})

	return a
}

func TestNew_WiresComponents(t *testing.T) {
	a := newTestApp(t)

	markets := a.registry.List()
	require.Len(t, markets, 3, "demo catalog seeded")

	for _, m := range markets {
		assert.InDelta(t, 1.0, m.PriceSum(), 1e-6)
	}

	assert.InDelta(t, 1000.0, a.wallet.Balance(), 1e-9)
	assert.False(t, a.wallet.IsConnected(), "wallet connects on Run")
}

func TestTradeEndToEnd(t *testing.T) {
	a := newTestApp(t)

	_, err := a.wallet.Connect(context.Background())
	require.NoError(t, err)

	tx, err := a.executor.ExecuteTrade(context.Background(), &engine.TradeRequest{
		MarketID: "btc-120k-2026",
		OptionID: "yes",
		Side:     types.SideBuy,
		Amount:   100,
	})
	require.NoError(t, err)

	assert.Equal(t, types.TransactionStatusCompleted, tx.Status)
	assert.InDelta(t, 899.0, a.wallet.Balance(), 1e-6)

	pos, ok := a.ledger.Position("btc-120k-2026", "yes")
	require.True(t, ok)
	assert.Greater(t, pos.Shares, 0.0)

	// Mark-to-market P&L is positive: our own buy moved the price up.
	pnl := a.ledger.TotalPnL(a.registry.OptionPrice)
	assert.Greater(t, pnl, 0.0)
}
