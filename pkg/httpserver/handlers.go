package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/forecastd/forecastd/internal/engine"
	"github.com/forecastd/forecastd/internal/ledger"
	"github.com/forecastd/forecastd/internal/market"
	"github.com/forecastd/forecastd/internal/synthetic"
	"github.com/forecastd/forecastd/pkg/cache"
	"github.com/forecastd/forecastd/pkg/types"
	"github.com/forecastd/forecastd/pkg/wallet"
)

type handler struct {
	registry  *market.Registry
	executor  *engine.Executor
	ledger    *ledger.Ledger
	wallet    *wallet.Wallet
	generator *synthetic.Generator
	cache     cache.Cache
	cacheTTL  time.Duration
	limiter   *rate.Limiter
	logger    *zap.Logger

	// genMu serializes the synthetic generator's rand source.
	genMu sync.Mutex
}

func newHandler(cfg *Config) *handler {
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &handler{
		registry:  cfg.Registry,
		executor:  cfg.Executor,
		ledger:    cfg.Ledger,
		wallet:    cfg.Wallet,
		generator: cfg.Generator,
		cache:     cfg.Cache,
		cacheTTL:  cacheTTL,
		limiter:   newLimiter(cfg.TradeRateLimit, cfg.TradeRateBurst),
		logger:    cfg.Logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// PnLResponse summarizes the portfolio.
type PnLResponse struct {
	Balance   float64 `json:"balance"`
	TotalPnL  float64 `json:"totalPnl"`
	Positions int     `json:"positions"`
}

// handleMarkets handles GET /api/markets.
func (h *handler) handleMarkets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.registry.List())
}

// handleMarket handles GET /api/markets/{marketID}.
func (h *handler) handleMarket(w http.ResponseWriter, r *http.Request) {
	m, ok := h.registry.Get(chi.URLParam(r, "marketID"))
	if !ok {
		h.writeError(w, "market not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, m)
}

// handleOrderBook handles GET /api/orderbook?market=<id>&option=<id>.
func (h *handler) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	marketID := r.URL.Query().Get("market")
	optionID := r.URL.Query().Get("option")
	if marketID == "" || optionID == "" {
		h.writeError(w, "missing required query parameters: market, option", http.StatusBadRequest)
		return
	}

	key := cache.OrderBookKey(marketID, optionID)
	if cached, found := h.cacheGet(key); found {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	price, ok := h.registry.OptionPrice(marketID, optionID)
	if !ok {
		h.writeError(w, "market or option not found", http.StatusNotFound)
		return
	}

	h.genMu.Lock()
	book := h.generator.OrderBook(marketID, optionID, price, time.Now())
	h.genMu.Unlock()

	h.cacheSet(key, book)
	h.writeJSON(w, http.StatusOK, book)
}

// handleHistory handles GET /api/history?market=<id>&option=<id>&timeframe=<tf>.
func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	marketID := r.URL.Query().Get("market")
	optionID := r.URL.Query().Get("option")
	if marketID == "" || optionID == "" {
		h.writeError(w, "missing required query parameters: market, option", http.StatusBadRequest)
		return
	}

	timeframe := types.Timeframe(r.URL.Query().Get("timeframe"))
	if timeframe == "" {
		timeframe = types.Timeframe1D
	}

	key := cache.HistoryKey(marketID, optionID, timeframe)
	if cached, found := h.cacheGet(key); found {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	price, ok := h.registry.OptionPrice(marketID, optionID)
	if !ok {
		h.writeError(w, "market or option not found", http.StatusNotFound)
		return
	}

	h.genMu.Lock()
	points := h.generator.History(price, timeframe, time.Now())
	h.genMu.Unlock()

	h.cacheSet(key, points)
	h.writeJSON(w, http.StatusOK, points)
}

// handleQuote handles GET /api/quote?market=<id>&option=<id>&side=<buy|sell>&amount=<n>.
// For a sell quote, amount is the number of shares to liquidate.
func (h *handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	marketID := r.URL.Query().Get("market")
	optionID := r.URL.Query().Get("option")

	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil {
		h.writeError(w, "invalid amount", http.StatusBadRequest)
		return
	}

	var quote *engine.Quote
	switch types.Side(r.URL.Query().Get("side")) {
	case types.SideSell:
		quote, err = h.executor.QuoteSell(marketID, optionID, amount)
	default:
		quote, err = h.executor.QuoteBuy(marketID, optionID, amount)
	}
	if err != nil {
		h.writeTradeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, quote)
}

// handlePositions handles GET /api/positions.
func (h *handler) handlePositions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ledger.Positions())
}

// handleTransactions handles GET /api/transactions.
func (h *handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ledger.Transactions())
}

// handlePnL handles GET /api/pnl.
func (h *handler) handlePnL(w http.ResponseWriter, r *http.Request) {
	positions := h.ledger.Positions()

	h.writeJSON(w, http.StatusOK, &PnLResponse{
		Balance:   h.wallet.Balance(),
		TotalPnL:  h.ledger.TotalPnL(h.registry.OptionPrice),
		Positions: len(positions),
	})
}

// handleTrade handles POST /api/trades.
func (h *handler) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req engine.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Side == "" {
		req.Side = types.SideBuy
	}

	tx, err := h.executor.ExecuteTrade(r.Context(), &req)
	if err != nil {
		h.writeTradeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, tx)
}

// handleResolve handles POST /api/markets/{marketID}/resolve?winner=<optionID>.
func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")
	winner := r.URL.Query().Get("winner")
	if winner == "" {
		h.writeError(w, "missing required query parameter: winner", http.StatusBadRequest)
		return
	}

	m, err := h.executor.Settle(marketID, winner)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, m)
}

func (h *handler) cacheGet(key string) (interface{}, bool) {
	if h.cache == nil {
		return nil, false
	}
	return h.cache.Get(key)
}

func (h *handler) cacheSet(key string, value interface{}) {
	if h.cache == nil {
		return
	}
	h.cache.Set(key, value, h.cacheTTL)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *handler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// writeTradeError maps trade error codes onto HTTP statuses.
func (h *handler) writeTradeError(w http.ResponseWriter, err error) {
	code := types.ErrorCode(err)

	status := http.StatusBadRequest
	switch code {
	case types.ErrMarketNotFound, types.ErrOptionNotFound:
		status = http.StatusNotFound
	case types.ErrTradeInFlight:
		status = http.StatusConflict
	case types.ErrInsufficientBalance, types.ErrInsufficientShares:
		status = http.StatusUnprocessableEntity
	case "":
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error(), Code: code})
}
