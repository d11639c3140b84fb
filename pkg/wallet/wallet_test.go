package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWallet(t *testing.T, balance float64) *Wallet {
	t.Helper()

	w, err := New(&Config{InitialBalance: balance, Logger: zap.NewNop()})
	require.NoError(t, err)

	return w
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{InitialBalance: 100})
	assert.Error(t, err, "logger required")

	_, err = New(&Config{InitialBalance: -1, Logger: zap.NewNop()})
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	w := newTestWallet(t, 1000)

	assert.False(t, w.IsConnected())

	address, err := w.Connect(context.Background())
	require.NoError(t, err)

	assert.True(t, w.IsConnected())
	assert.NotEqual(t, common.Address{}, address)
	assert.Equal(t, address, w.Address())
	assert.Equal(t, 1000.0, w.Balance())
}

func TestConnect_ContextCancelled(t *testing.T) {
	w, err := New(&Config{
		InitialBalance: 1000,
		ConnectDelay:   time.Minute,
		Logger:         zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = w.Connect(ctx)
	assert.Error(t, err)
	assert.False(t, w.IsConnected())
}

func TestDeduct(t *testing.T) {
	w := newTestWallet(t, 1000)

	assert.False(t, w.Deduct(100), "disconnected wallet rejects deduction")

	_, err := w.Connect(context.Background())
	require.NoError(t, err)

	assert.True(t, w.Deduct(300))
	assert.Equal(t, 700.0, w.Balance())

	assert.False(t, w.Deduct(701), "overdraft rejected")
	assert.Equal(t, 700.0, w.Balance())

	assert.False(t, w.Deduct(0))
	assert.False(t, w.Deduct(-5))
}

func TestAdd(t *testing.T) {
	w := newTestWallet(t, 100)

	w.Add(50)
	assert.Equal(t, 150.0, w.Balance())

	w.Add(-10) // ignored
	assert.Equal(t, 150.0, w.Balance())
}

func TestDeduct_ConcurrentNoOverdraft(t *testing.T) {
	w := newTestWallet(t, 100)
	_, err := w.Connect(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	successes := make(chan bool, 50)

	// 50 goroutines each try to deduct 10 from a balance of 100.
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			successes <- w.Deduct(10)
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for ok := range successes {
		if ok {
			count++
		}
	}

	assert.Equal(t, 10, count, "exactly 10 deductions of 10 fit in 100")
	assert.Equal(t, 0.0, w.Balance())
}

func TestDisconnect(t *testing.T) {
	w := newTestWallet(t, 1000)
	_, err := w.Connect(context.Background())
	require.NoError(t, err)

	w.Disconnect()

	assert.False(t, w.IsConnected())
	assert.Equal(t, common.Address{}, w.Address())
	assert.Equal(t, 1000.0, w.Balance(), "balance retained across disconnect")
}
