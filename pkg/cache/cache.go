// Package cache memoizes synthetic market data. Order books and price
// histories are cheap to regenerate but requested far more often than they
// change, so they sit behind a short-TTL cache.
package cache

import (
	"fmt"
	"time"

	"github.com/forecastd/forecastd/pkg/types"
)

// Cache is the interface for caching generated market data.
type Cache interface {
	// Get retrieves a value. Returns (value, true) if found.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value.
	Delete(key string)

	// Clear removes all values.
	Clear()

	// Close releases cache resources.
	Close()
}

// OrderBookKey is the cache key for a synthetic order book.
func OrderBookKey(marketID, optionID string) string {
	return fmt.Sprintf("book:%s:%s", marketID, optionID)
}

// HistoryKey is the cache key for a synthetic price history.
func HistoryKey(marketID, optionID string, timeframe types.Timeframe) string {
	return fmt.Sprintf("history:%s:%s:%s", marketID, optionID, timeframe)
}
