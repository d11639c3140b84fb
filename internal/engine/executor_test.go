package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forecastd/forecastd/internal/ledger"
	"github.com/forecastd/forecastd/internal/market"
	"github.com/forecastd/forecastd/internal/pricing"
	"github.com/forecastd/forecastd/pkg/types"
	"github.com/forecastd/forecastd/pkg/wallet"
)

type testHarness struct {
	executor *Executor
	registry *market.Registry
	ledger   *ledger.Ledger
	wallet   *wallet.Wallet
}

func newHarness(t *testing.T, balance float64, settleDelay time.Duration) *testHarness {
	t.Helper()

	logger := zap.NewNop()

	eng, err := pricing.New(pricing.DefaultLiquidity)
	require.NoError(t, err)

	registry, err := market.NewRegistry(&market.Config{Engine: eng, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, registry.Add(&types.Market{
		ID:     "m1",
		Title:  "Test market",
		Status: types.MarketStatusTrading,
		Options: []types.Option{
			{ID: "yes", Label: "Yes", Price: 0.40},
			{ID: "no", Label: "No", Price: 0.60},
		},
	}))

	w, err := wallet.New(&wallet.Config{InitialBalance: balance, Logger: logger})
	require.NoError(t, err)
	_, err = w.Connect(context.Background())
	require.NoError(t, err)

	book := ledger.New(logger)

	executor, err := New(&Config{
		Policy:      pricing.DefaultPolicy(),
		Registry:    registry,
		Ledger:      book,
		Wallet:      w,
		Logger:      logger,
		SettleDelay: settleDelay,
	})
	require.NoError(t, err)

	return &testHarness{executor: executor, registry: registry, ledger: book, wallet: w}
}

func buyReq(amount float64) *TradeRequest {
	return &TradeRequest{MarketID: "m1", OptionID: "yes", Side: types.SideBuy, Amount: amount}
}

func TestExecuteTrade_BuyCompletes(t *testing.T) {
	h := newHarness(t, 1000, 0)

	tx, err := h.executor.ExecuteTrade(context.Background(), buyReq(100))
	require.NoError(t, err)

	assert.Equal(t, types.TransactionStatusCompleted, tx.Status)
	assert.InDelta(t, 100.0, tx.Amount, 1e-9)
	assert.InDelta(t, 1.0, tx.Fee, 1e-9, "1% fee")
	assert.InDelta(t, 250.0, tx.Shares, 1e-6, "100 / 0.40")
	assert.InDelta(t, 0.40, tx.Price, 1e-9)

	// Balance down by amount + fee.
	assert.InDelta(t, 899.0, h.wallet.Balance(), 1e-9)

	// Position created at the fill price.
	pos, ok := h.ledger.Position("m1", "yes")
	require.True(t, ok)
	assert.InDelta(t, 250.0, pos.Shares, 1e-6)
	assert.InDelta(t, 0.40, pos.AvgPrice, 1e-9)
	assert.Equal(t, types.PositionStatusActive, pos.Status)

	// Market aggregates and prices updated; sum-to-one holds.
	m, _ := h.registry.Get("m1")
	assert.InDelta(t, 100.0, m.TotalVolume, 1e-9)
	assert.Equal(t, 1, m.Participants)
	assert.Greater(t, m.Option("yes").Price, 0.40)
	assert.InDelta(t, 1.0, m.PriceSum(), 1e-6)
}

func TestExecuteTrade_InsufficientBalance(t *testing.T) {
	h := newHarness(t, 1000, 0)

	// $2000 + fee against a $1000 balance.
	_, err := h.executor.ExecuteTrade(context.Background(), buyReq(2000))
	require.Error(t, err)
	assert.Equal(t, types.ErrInsufficientBalance, types.ErrorCode(err))

	// Balance untouched, failed transaction recorded, no position.
	assert.InDelta(t, 1000.0, h.wallet.Balance(), 1e-9)

	txs := h.ledger.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, types.TransactionStatusFailed, txs[0].Status)

	_, ok := h.ledger.Position("m1", "yes")
	assert.False(t, ok)
}

func TestExecuteTrade_ValidationErrors(t *testing.T) {
	h := newHarness(t, 1000, 0)

	tests := []struct {
		name string
		req  *TradeRequest
		code string
	}{
		{"zero-amount", buyReq(0), types.ErrInvalidAmount},
		{"negative-amount", buyReq(-50), types.ErrInvalidAmount},
		{"missing-market", &TradeRequest{MarketID: "nope", OptionID: "yes", Side: types.SideBuy, Amount: 10}, types.ErrMarketNotFound},
		{"missing-option", &TradeRequest{MarketID: "m1", OptionID: "maybe", Side: types.SideBuy, Amount: 10}, types.ErrOptionNotFound},
		{"sell-without-position", &TradeRequest{MarketID: "m1", OptionID: "yes", Side: types.SideSell, Shares: 10}, types.ErrInsufficientShares},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.executor.ExecuteTrade(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, types.ErrorCode(err))
		})
	}

	// Validation failures leave no trace.
	assert.InDelta(t, 1000.0, h.wallet.Balance(), 1e-9)
	assert.Empty(t, h.ledger.Transactions())
}

func TestExecuteTrade_ClosedMarket(t *testing.T) {
	h := newHarness(t, 1000, 0)
	require.NoError(t, h.registry.Close("m1"))

	_, err := h.executor.ExecuteTrade(context.Background(), buyReq(100))
	require.Error(t, err)
	assert.Equal(t, types.ErrMarketClosed, types.ErrorCode(err))
}

func TestExecuteTrade_WalletNotConnected(t *testing.T) {
	h := newHarness(t, 1000, 0)
	h.wallet.Disconnect()

	_, err := h.executor.ExecuteTrade(context.Background(), buyReq(100))
	require.Error(t, err)
	assert.Equal(t, types.ErrWalletNotConnected, types.ErrorCode(err))
}

func TestExecuteTrade_SingleFlight(t *testing.T) {
	h := newHarness(t, 1000, 100*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := h.executor.ExecuteTrade(context.Background(), buyReq(100))
		done <- err
	}()

	// Let the first trade reach its settlement wait.
	time.Sleep(20 * time.Millisecond)

	_, err := h.executor.ExecuteTrade(context.Background(), buyReq(50))
	require.Error(t, err)
	assert.Equal(t, types.ErrTradeInFlight, types.ErrorCode(err))

	require.NoError(t, <-done)
}

func TestExecuteTrade_PendingObservableBeforeSettlement(t *testing.T) {
	h := newHarness(t, 1000, 100*time.Millisecond)

	done := make(chan *types.Transaction, 1)
	go func() {
		tx, err := h.executor.ExecuteTrade(context.Background(), buyReq(100))
		require.NoError(t, err)
		done <- tx
	}()

	time.Sleep(20 * time.Millisecond)

	txs := h.ledger.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, types.TransactionStatusPending, txs[0].Status)

	tx := <-done
	assert.Equal(t, types.TransactionStatusCompleted, tx.Status)
}

func TestExecuteTrade_SettlementFailureRefunds(t *testing.T) {
	h := newHarness(t, 1000, 100*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := h.executor.ExecuteTrade(context.Background(), buyReq(100))
		done <- err
	}()

	// Close the market while the trade is in its latency window.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, h.registry.Close("m1"))

	require.Error(t, <-done)

	// Full debit refunded; transaction failed; no position.
	assert.InDelta(t, 1000.0, h.wallet.Balance(), 1e-9)

	txs := h.ledger.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, types.TransactionStatusFailed, txs[0].Status)
	assert.NotEmpty(t, txs[0].FailReason)

	_, ok := h.ledger.Position("m1", "yes")
	assert.False(t, ok)
}

func TestExecuteTrade_SellCreditsProceeds(t *testing.T) {
	h := newHarness(t, 1000, 0)

	_, err := h.executor.ExecuteTrade(context.Background(), buyReq(100))
	require.NoError(t, err)

	balanceAfterBuy := h.wallet.Balance()
	sellPrice, _ := h.registry.OptionPrice("m1", "yes")

	tx, err := h.executor.ExecuteTrade(context.Background(), &TradeRequest{
		MarketID: "m1", OptionID: "yes", Side: types.SideSell, Shares: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, types.TransactionStatusCompleted, tx.Status)
	assert.InDelta(t, 100*sellPrice, tx.Amount, 1e-9)

	// Proceeds net of fee credited at settlement.
	assert.InDelta(t, balanceAfterBuy+tx.Amount-tx.Fee, h.wallet.Balance(), 1e-9)

	pos, ok := h.ledger.Position("m1", "yes")
	require.True(t, ok)
	assert.InDelta(t, 150.0, pos.Shares, 1e-6)
}

func TestExecuteTrade_OpposingPositionsCoexist(t *testing.T) {
	h := newHarness(t, 1000, 0)

	_, err := h.executor.ExecuteTrade(context.Background(), buyReq(100))
	require.NoError(t, err)

	_, err = h.executor.ExecuteTrade(context.Background(), &TradeRequest{
		MarketID: "m1", OptionID: "no", Side: types.SideBuy, Amount: 50,
	})
	require.NoError(t, err)

	_, yesOK := h.ledger.Position("m1", "yes")
	_, noOK := h.ledger.Position("m1", "no")
	assert.True(t, yesOK)
	assert.True(t, noOK)

	// Same wallet, same market: still one participant.
	m, _ := h.registry.Get("m1")
	assert.Equal(t, 1, m.Participants)
}

func TestSettle_WinnerTakesAll(t *testing.T) {
	h := newHarness(t, 1000, 0)

	tx, err := h.executor.ExecuteTrade(context.Background(), buyReq(100))
	require.NoError(t, err)

	balanceBefore := h.wallet.Balance()

	m, err := h.executor.Settle("m1", "yes")
	require.NoError(t, err)
	assert.Equal(t, types.MarketStatusResolved, m.Status)

	// $1 per winning share.
	assert.InDelta(t, balanceBefore+tx.Shares, h.wallet.Balance(), 1e-6)

	pos, ok := h.ledger.Position("m1", "yes")
	require.True(t, ok)
	assert.Equal(t, types.PositionStatusSettled, pos.Status)
	assert.InDelta(t, tx.Shares-100, pos.RealizedPnL, 1e-6)

	// Resolved markets reject further trades.
	_, err = h.executor.ExecuteTrade(context.Background(), buyReq(10))
	require.Error(t, err)
	assert.Equal(t, types.ErrMarketClosed, types.ErrorCode(err))
}

func TestExecuteTrade_PublishesUpdate(t *testing.T) {
	h := newHarness(t, 1000, 0)

	_, err := h.executor.ExecuteTrade(context.Background(), buyReq(100))
	require.NoError(t, err)

	select {
	case update := <-h.executor.Updates():
		require.NotNil(t, update.Transaction)
		require.NotNil(t, update.Market)
		assert.Equal(t, types.TransactionStatusCompleted, update.Transaction.Status)
	default:
		t.Fatal("expected a trade update")
	}
}
