// Package pricing implements the logarithmic market scoring rule (LMSR)
// automated market maker. It is stateless: prices and costs are pure
// functions of the per-option outstanding share quantities.
package pricing

import (
	"fmt"
	"math"
)

// DefaultLiquidity is the default liquidity parameter b. Larger b means
// deeper liquidity and smaller price impact per share.
const DefaultLiquidity = 100.0

// Policy carries the single canonical pricing and fee configuration used by
// every trade path.
type Policy struct {
	LiquidityB float64 // LMSR liquidity parameter, must be > 0
	FeeRate    float64 // fraction of trade amount charged as fee
}

// DefaultPolicy returns the canonical policy: b=100, 1% fee.
func DefaultPolicy() Policy {
	return Policy{LiquidityB: DefaultLiquidity, FeeRate: 0.01}
}

// Validate checks policy bounds.
func (p Policy) Validate() error {
	if p.LiquidityB <= 0 {
		return fmt.Errorf("liquidity parameter must be positive, got %f", p.LiquidityB)
	}

	if p.FeeRate < 0 || p.FeeRate >= 1 {
		return fmt.Errorf("fee rate must be in [0, 1), got %f", p.FeeRate)
	}

	return nil
}

// priceFloor bounds normalized prices away from exactly 0 and 1. Beyond a
// quantity spread of roughly 700*b the exponentials underflow float64 and a
// raw softmax would return degenerate {0, 1} prices.
const priceFloor = 1e-9

// Engine computes LMSR prices and costs for a fixed liquidity parameter.
type Engine struct {
	b float64
}

// New creates a pricing engine with the given liquidity parameter.
func New(liquidityB float64) (*Engine, error) {
	if liquidityB <= 0 {
		return nil, fmt.Errorf("liquidity parameter must be positive, got %f", liquidityB)
	}

	return &Engine{b: liquidityB}, nil
}

// Liquidity returns the engine's liquidity parameter.
func (e *Engine) Liquidity() float64 {
	return e.b
}

// Prices maps per-option quantities to normalized probabilities:
// p_i = exp(q_i/b) / sum_j exp(q_j/b).
// Every output lies in (0,1) and the outputs sum to 1 up to floating error.
// The max quantity is subtracted before exponentiation so large quantity
// vectors do not overflow, and outputs are clamped to
// [priceFloor, 1-priceFloor] so extreme spreads cannot underflow to a
// degenerate 0 or 1.
func (e *Engine) Prices(quantities []float64) []float64 {
	if len(quantities) == 0 {
		return nil
	}

	maxQ := quantities[0]
	for _, q := range quantities[1:] {
		if q > maxQ {
			maxQ = q
		}
	}

	prices := make([]float64, len(quantities))
	sum := 0.0
	for i, q := range quantities {
		prices[i] = math.Exp((q - maxQ) / e.b)
		sum += prices[i]
	}

	for i := range prices {
		prices[i] /= sum
		if prices[i] < priceFloor {
			prices[i] = priceFloor
		} else if prices[i] > 1-priceFloor {
			prices[i] = 1 - priceFloor
		}
	}

	return prices
}

// Cost returns the exact currency cost of moving the quantity at option by
// deltaShares: C(q') - C(q) with C(q) = b*ln(sum exp(q_j/b)).
// Negative deltaShares (a sale) yields a negative cost, i.e. proceeds.
// Cost(q, i, 0) is exactly 0.
func (e *Engine) Cost(quantities []float64, option int, deltaShares float64) float64 {
	next := make([]float64, len(quantities))
	copy(next, quantities)
	next[option] += deltaShares

	return e.b * (e.logSumExp(next) - e.logSumExp(quantities))
}

// SharesForCost returns how many shares of option a given budget buys,
// found by binary search over the cost function.
func (e *Engine) SharesForCost(quantities []float64, option int, budget float64) float64 {
	if budget <= 0 {
		return 0
	}

	low := 0.0
	high := budget * 10 // upper bound estimate

	for i := 0; i < 100; i++ {
		mid := (low + high) / 2
		cost := e.Cost(quantities, option, mid)

		if math.Abs(cost-budget) < 1e-6 {
			return mid
		}

		if cost < budget {
			low = mid
		} else {
			high = mid
		}
	}

	return (low + high) / 2
}

// SeedQuantities derives a quantity vector that reproduces the given price
// vector: q_i = b*ln(p_i). Prices are normalized first so the result is
// well-defined even if the seeds do not sum exactly to 1.
func (e *Engine) SeedQuantities(prices []float64) []float64 {
	sum := 0.0
	for _, p := range prices {
		sum += p
	}

	quantities := make([]float64, len(prices))
	for i, p := range prices {
		quantities[i] = e.b * math.Log(p/sum)
	}

	return quantities
}

// logSumExp computes ln(sum exp(q_j/b)) with max-subtraction for stability.
func (e *Engine) logSumExp(quantities []float64) float64 {
	maxQ := quantities[0]
	for _, q := range quantities[1:] {
		if q > maxQ {
			maxQ = q
		}
	}

	sum := 0.0
	for _, q := range quantities {
		sum += math.Exp((q - maxQ) / e.b)
	}

	return maxQ/e.b + math.Log(sum)
}
