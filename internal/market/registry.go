// Package market holds the in-memory market catalog and keeps option
// prices consistent with the LMSR quantity state after every trade.
package market

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/forecastd/forecastd/internal/pricing"
	"github.com/forecastd/forecastd/pkg/types"
)

// Registry is the authoritative store of market state. Prices are never
// written directly: they are re-derived from the per-option quantity vector
// on every mutation, so the sum-to-one invariant holds by construction.
type Registry struct {
	mu      sync.RWMutex
	markets map[string]*marketState
	engine  *pricing.Engine
	logger  *zap.Logger
}

type marketState struct {
	market     *types.Market
	quantities []float64 // LMSR outstanding shares per option index
}

// Config holds registry configuration.
type Config struct {
	Engine *pricing.Engine
	Logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("pricing engine cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Registry{
		markets: make(map[string]*marketState),
		engine:  cfg.Engine,
		logger:  cfg.Logger,
	}, nil
}

// Add registers a market. The option prices on the input are treated as
// seeds: the registry derives the quantity vector that reproduces them and
// normalizes the published prices from it.
func (r *Registry) Add(m *types.Market) error {
	if len(m.Options) < 2 {
		return fmt.Errorf("market %s needs at least 2 options, got %d", m.ID, len(m.Options))
	}

	seeds := make([]float64, len(m.Options))
	for i := range m.Options {
		if m.Options[i].Price <= 0 || m.Options[i].Price >= 1 {
			return fmt.Errorf("market %s option %s seed price %.4f outside (0,1)",
				m.ID, m.Options[i].ID, m.Options[i].Price)
		}
		seeds[i] = m.Options[i].Price
	}

	stored := *m
	stored.Options = append([]types.Option(nil), m.Options...)

	quantities := r.engine.SeedQuantities(seeds)
	prices := r.engine.Prices(quantities)
	for i := range stored.Options {
		stored.Options[i].Price = prices[i]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.markets[stored.ID]; exists {
		return fmt.Errorf("market %s already registered", stored.ID)
	}

	r.markets[stored.ID] = &marketState{market: &stored, quantities: quantities}
	MarketsTracked.Set(float64(len(r.markets)))
	r.publishPriceMetrics(&stored)

	r.logger.Info("market-registered",
		zap.String("market-id", stored.ID),
		zap.String("title", stored.Title),
		zap.Int("options", len(stored.Options)))

	return nil
}

// Get returns a deep copy of a market.
func (r *Registry) Get(marketID string) (*types.Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.markets[marketID]
	if !ok {
		return nil, false
	}

	return copyMarket(state.market), true
}

// List returns deep copies of all markets, ordered by ID.
func (r *Registry) List() []*types.Market {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.Market, 0, len(r.markets))
	for _, state := range r.markets {
		out = append(out, copyMarket(state.market))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Quantities returns a copy of the LMSR quantity vector for a market.
func (r *Registry) Quantities(marketID string) ([]float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.markets[marketID]
	if !ok {
		return nil, false
	}

	return append([]float64(nil), state.quantities...), true
}

// OptionPrice returns the live price for (market, option).
func (r *Registry) OptionPrice(marketID, optionID string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.markets[marketID]
	if !ok {
		return 0, false
	}

	opt := state.market.Option(optionID)
	if opt == nil {
		return 0, false
	}

	return opt.Price, true
}

// ApplyTrade moves the traded option's quantity by shares (negative for a
// sale), re-derives all option prices, and updates volume and participant
// aggregates. Returns the updated market.
func (r *Registry) ApplyTrade(marketID, optionID string, side types.Side, amount, shares float64, newParticipant bool) (*types.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.markets[marketID]
	if !ok {
		return nil, fmt.Errorf("market %s not found", marketID)
	}

	m := state.market
	if m.Status != types.MarketStatusTrading {
		return nil, fmt.Errorf("market %s is %s, not trading", marketID, m.Status)
	}

	idx := m.OptionIndex(optionID)
	if idx < 0 {
		return nil, fmt.Errorf("option %s not found in market %s", optionID, marketID)
	}

	delta := shares
	if side == types.SideSell {
		delta = -shares
	}
	state.quantities[idx] += delta

	oldPrices := make([]float64, len(m.Options))
	for i := range m.Options {
		oldPrices[i] = m.Options[i].Price
	}

	prices := r.engine.Prices(state.quantities)
	for i := range m.Options {
		m.Options[i].Price = prices[i]
		if oldPrices[i] > 0 {
			m.Options[i].PriceChange = (prices[i] - oldPrices[i]) / oldPrices[i] * 100
		}
	}

	m.Options[idx].Volume += amount
	if side == types.SideBuy {
		m.Options[idx].Shares += shares
	} else {
		m.Options[idx].Shares -= shares
	}
	m.TotalVolume += amount
	m.TotalValue += amount
	if newParticipant {
		m.Participants++
	}

	r.publishPriceMetrics(m)
	TradesApplied.WithLabelValues(string(side)).Inc()

	r.logger.Debug("trade-applied",
		zap.String("market-id", marketID),
		zap.String("option-id", optionID),
		zap.String("side", string(side)),
		zap.Float64("shares", shares),
		zap.Float64("new-price", prices[idx]))

	return copyMarket(m), nil
}

// Close moves a market from trading to closed. Closed markets reject trades
// but have not been resolved yet.
func (r *Registry) Close(marketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.markets[marketID]
	if !ok {
		return fmt.Errorf("market %s not found", marketID)
	}

	if state.market.Status != types.MarketStatusTrading {
		return fmt.Errorf("market %s is %s, cannot close", marketID, state.market.Status)
	}

	state.market.Status = types.MarketStatusClosed
	r.logger.Info("market-closed", zap.String("market-id", marketID))

	return nil
}

// Resolve marks a market resolved with the given winning option. Trading
// and closed markets can both be resolved.
func (r *Registry) Resolve(marketID, winnerOptionID string) (*types.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.markets[marketID]
	if !ok {
		return nil, fmt.Errorf("market %s not found", marketID)
	}

	m := state.market
	if m.Status == types.MarketStatusResolved {
		return nil, fmt.Errorf("market %s already resolved", marketID)
	}

	if m.Option(winnerOptionID) == nil {
		return nil, fmt.Errorf("option %s not found in market %s", winnerOptionID, marketID)
	}

	m.Status = types.MarketStatusResolved
	m.WinnerOptionID = winnerOptionID

	r.logger.Info("market-resolved",
		zap.String("market-id", marketID),
		zap.String("winner-option-id", winnerOptionID))

	return copyMarket(m), nil
}

func (r *Registry) publishPriceMetrics(m *types.Market) {
	for i := range m.Options {
		OptionPrice.WithLabelValues(m.ID, m.Options[i].ID).Set(m.Options[i].Price)
	}
	MarketVolume.WithLabelValues(m.ID).Set(m.TotalVolume)
}

func copyMarket(m *types.Market) *types.Market {
	out := *m
	out.Options = append([]types.Option(nil), m.Options...)
	return &out
}
