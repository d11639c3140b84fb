package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastd/forecastd/pkg/types"
)

func TestQuoteBuy(t *testing.T) {
	h := newHarness(t, 1000, 0)

	quote, err := h.executor.QuoteBuy("m1", "yes", 100)
	require.NoError(t, err)

	assert.Greater(t, quote.Shares, 0.0)
	assert.InDelta(t, 1.0, quote.Fee, 1e-9)
	assert.InDelta(t, 101.0, quote.Total, 1e-9)
	assert.InDelta(t, 0.40, quote.PriceBefore, 1e-9)
	assert.Greater(t, quote.PriceAfter, quote.PriceBefore, "buying pushes the price up")

	// Fewer shares than the naive amount/price fill: the LMSR price rises
	// along the curve as shares are bought.
	assert.Less(t, quote.Shares, 100/0.40)
}

func TestQuoteBuy_Validation(t *testing.T) {
	h := newHarness(t, 1000, 0)

	_, err := h.executor.QuoteBuy("m1", "yes", 0)
	assert.Equal(t, types.ErrInvalidAmount, types.ErrorCode(err))

	_, err = h.executor.QuoteBuy("missing", "yes", 100)
	assert.Equal(t, types.ErrMarketNotFound, types.ErrorCode(err))

	_, err = h.executor.QuoteBuy("m1", "maybe", 100)
	assert.Equal(t, types.ErrOptionNotFound, types.ErrorCode(err))
}

func TestQuoteSell(t *testing.T) {
	h := newHarness(t, 1000, 0)

	quote, err := h.executor.QuoteSell("m1", "yes", 100)
	require.NoError(t, err)

	assert.Greater(t, quote.Amount, 0.0)
	assert.Less(t, quote.PriceAfter, quote.PriceBefore, "selling pushes the price down")
	assert.InDelta(t, quote.Amount-quote.Fee, quote.Total, 1e-9)

	// Proceeds are below the spot value: the price falls as shares sell.
	assert.Less(t, quote.Amount, 100*quote.PriceBefore)
}

func TestQuoteBuy_RoundTripsThroughCost(t *testing.T) {
	h := newHarness(t, 1000, 0)

	quote, err := h.executor.QuoteBuy("m1", "yes", 250)
	require.NoError(t, err)

	// The quoted shares cost the quoted amount along the LMSR curve.
	quantities, ok := h.registry.Quantities("m1")
	require.True(t, ok)

	m, _ := h.registry.Get("m1")
	idx := m.OptionIndex("yes")

	eng := h.executor.engine
	assert.InDelta(t, 250.0, eng.Cost(quantities, idx, quote.Shares), 1e-3)
}
