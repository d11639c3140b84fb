package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forecastd/forecastd/internal/engine"
	"github.com/forecastd/forecastd/internal/ledger"
	"github.com/forecastd/forecastd/internal/market"
	"github.com/forecastd/forecastd/internal/pricing"
	"github.com/forecastd/forecastd/internal/synthetic"
	"github.com/forecastd/forecastd/pkg/healthprobe"
	"github.com/forecastd/forecastd/pkg/types"
	"github.com/forecastd/forecastd/pkg/wallet"
)

func newTestServer(t *testing.T, rateLimit float64, burst int) *Server {
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

	w, err := wallet.New(&wallet.Config{InitialBalance: 1000, Logger: logger})
	require.NoError(t, err)
	_, err = w.Connect(context.Background())
	require.NoError(t, err)

	book := ledger.New(logger)

	executor, err := engine.New(&engine.Config{
		Policy:   pricing.DefaultPolicy(),
		Registry: registry,
		Ledger:   book,
		Wallet:   w,
		Logger:   logger,
	})
	require.NoError(t, err)

	checker := healthprobe.New()
	checker.SetReady(true)

	return New(&Config{
		Port:           "0",
		Logger:         logger,
		HealthChecker:  checker,
		Registry:       registry,
		Executor:       executor,
		Ledger:         book,
		Wallet:         w,
		Generator:      synthetic.NewGenerator(42),
		TradeRateLimit: rateLimit,
		TradeRateBurst: burst,
	})
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	return rec
}

func TestGetMarkets(t *testing.T) {
	server := newTestServer(t, 10, 10)

	rec := doRequest(t, server, http.MethodGet, "/api/markets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var markets []*types.Market
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &markets))
	require.Len(t, markets, 1)
	assert.Equal(t, "m1", markets[0].ID)
}

func TestGetMarket(t *testing.T) {
	server := newTestServer(t, 10, 10)

	rec := doRequest(t, server, http.MethodGet, "/api/markets/m1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/markets/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderBook(t *testing.T) {
	server := newTestServer(t, 10, 10)

	rec := doRequest(t, server, http.MethodGet, "/api/orderbook?market=m1&option=yes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var book types.OrderBook
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.NotEmpty(t, book.Bids)
	assert.NotEmpty(t, book.Asks)
	assert.Less(t, book.BestBid(), book.BestAsk())

	rec = doRequest(t, server, http.MethodGet, "/api/orderbook?market=m1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/orderbook?market=m1&option=maybe", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHistory(t *testing.T) {
	server := newTestServer(t, 10, 10)

	rec := doRequest(t, server, http.MethodGet, "/api/history?market=m1&option=yes&timeframe=1H", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var points []types.PricePoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 60)
	assert.InDelta(t, 0.40, points[len(points)-1].Price, 1e-9)
}

func TestPostTrade(t *testing.T) {
	server := newTestServer(t, 10, 10)

	rec := doRequest(t, server, http.MethodPost, "/api/trades", &engine.TradeRequest{
		MarketID: "m1", OptionID: "yes", Side: types.SideBuy, Amount: 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var tx types.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, types.TransactionStatusCompleted, tx.Status)
	assert.InDelta(t, 250.0, tx.Shares, 1e-6)
}

func TestPostTrade_Errors(t *testing.T) {
	server := newTestServer(t, 10, 10)

	tests := []struct {
		name   string
		req    *engine.TradeRequest
		status int
		code   string
	}{
		{"insufficient-balance", &engine.TradeRequest{MarketID: "m1", OptionID: "yes", Side: types.SideBuy, Amount: 5000},
			http.StatusUnprocessableEntity, types.ErrInsufficientBalance},
		{"invalid-amount", &engine.TradeRequest{MarketID: "m1", OptionID: "yes", Side: types.SideBuy, Amount: -1},
			http.StatusBadRequest, types.ErrInvalidAmount},
		{"unknown-market", &engine.TradeRequest{MarketID: "nope", OptionID: "yes", Side: types.SideBuy, Amount: 10},
			http.StatusNotFound, types.ErrMarketNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, server, http.MethodPost, "/api/trades", tt.req)
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestPostTrade_RateLimited(t *testing.T) {
	server := newTestServer(t, 0.001, 1)

	req := &engine.TradeRequest{MarketID: "m1", OptionID: "yes", Side: types.SideBuy, Amount: 10}

	rec := doRequest(t, server, http.MethodPost, "/api/trades", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/trades", req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGetQuote(t *testing.T) {
	server := newTestServer(t, 10, 10)

	rec := doRequest(t, server, http.MethodGet, "/api/quote?market=m1&option=yes&side=buy&amount=100", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var quote engine.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Greater(t, quote.Shares, 0.0)
	assert.Greater(t, quote.PriceAfter, quote.PriceBefore)
}

func TestGetPnL(t *testing.T) {
	server := newTestServer(t, 10, 10)

	rec := doRequest(t, server, http.MethodPost, "/api/trades", &engine.TradeRequest{
		MarketID: "m1", OptionID: "yes", Side: types.SideBuy, Amount: 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/pnl", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var pnl PnLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pnl))
	assert.InDelta(t, 899.0, pnl.Balance, 1e-9)
	assert.Equal(t, 1, pnl.Positions)
}

func TestResolveMarket(t *testing.T) {
	server := newTestServer(t, 10, 10)

	rec := doRequest(t, server, http.MethodPost, "/api/markets/m1/resolve?winner=yes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var m types.Market
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, types.MarketStatusResolved, m.Status)

	rec = doRequest(t, server, http.MethodPost, "/api/markets/m1/resolve?winner=yes", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t, 10, 10)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := doRequest(t, server, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, fmt.Sprintf("path %s", path))
	}
}
