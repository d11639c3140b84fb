package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forecastd/forecastd/pkg/types"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "forecastd.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestSQLiteTransactionRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	tx := &types.Transaction{
		ID:          "tx-1",
		MarketID:    "m1",
		MarketTitle: "Test market",
		OptionID:    "yes",
		Side:        types.SideBuy,
		Amount:      100,
		Shares:      250,
		Price:       0.40,
		Fee:         1,
		Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
		Status:      types.TransactionStatusPending,
	}

	require.NoError(t, store.SaveTransaction(ctx, tx))

	// Status update is an upsert on the same ID.
	tx.Status = types.TransactionStatusCompleted
	require.NoError(t, store.SaveTransaction(ctx, tx))

	txs, err := store.LoadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, "tx-1", txs[0].ID)
	assert.Equal(t, types.TransactionStatusCompleted, txs[0].Status)
	assert.Equal(t, types.SideBuy, txs[0].Side)
	assert.InDelta(t, 250.0, txs[0].Shares, 1e-9)
	assert.True(t, txs[0].Timestamp.Equal(tx.Timestamp))
}

func TestSQLitePositionRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	pos := &types.Position{
		ID:        "pos-1",
		MarketID:  "m1",
		OptionID:  "yes",
		Amount:    100,
		Shares:    250,
		AvgPrice:  0.40,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    types.PositionStatusActive,
	}

	require.NoError(t, store.SavePosition(ctx, pos))

	// A merge updates the same row.
	pos.Amount = 200
	pos.Shares = 416.67
	pos.AvgPrice = 0.48
	require.NoError(t, store.SavePosition(ctx, pos))

	positions, err := store.LoadPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	assert.InDelta(t, 416.67, positions[0].Shares, 1e-9)
	assert.InDelta(t, 0.48, positions[0].AvgPrice, 1e-9)
}

func TestSQLiteLoadEmpty(t *testing.T) {
	store := newSQLiteStore(t)

	txs, err := store.LoadTransactions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)

	positions, err := store.LoadPositions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)
}
