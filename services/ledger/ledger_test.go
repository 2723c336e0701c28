package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore records Add calls and serves canned Load results
type fakeStore struct {
	mu     sync.Mutex
	totals map[string]float64
	adds   []float64
	addErr error
	ndErr  error
}

func (f *fakeStore) Load(ctx context.Context) (map[string]float64, error) {
	return f.totals, f.ndErr
}

func (f *fakeStore) Add(ctx context.Context, providerID string, cost float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, cost)
	return f.addErr
}

func TestLedger_ReserveAndCommit(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("uncapped provider always reserves", func(t *testing.T) {
		l := New(logger)
		assert.True(t, l.Reserve("alpha", 1e9))
	})

	t.Run("reserve respects the cap", func(t *testing.T) {
		l := New(logger)
		l.SetCap("alpha", 1.00)
		l.Commit(context.Background(), "alpha", 0.99)

		assert.False(t, l.Reserve("alpha", 0.05))
		assert.True(t, l.Reserve("alpha", 0.01))
	})

	t.Run("reserve never mutates spend", func(t *testing.T) {
		l := New(logger)
		l.SetCap("alpha", 1.00)
		for i := 0; i < 100; i++ {
			l.Reserve("alpha", 0.5)
		}
		assert.Zero(t, l.Spent("alpha"))
	})

	t.Run("commit accumulates", func(t *testing.T) {
		l := New(logger)
		l.Commit(context.Background(), "alpha", 0.25)
		l.Commit(context.Background(), "alpha", 0.25)
		assert.InDelta(t, 0.5, l.Spent("alpha"), 1e-9)
	})

	t.Run("zero cap means uncapped", func(t *testing.T) {
		l := New(logger)
		l.SetCap("alpha", 0)
		assert.True(t, l.Reserve("alpha", 1e9))
	})
}

func TestLedger_Remaining(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	l := New(logger)

	t.Run("uncapped", func(t *testing.T) {
		_, capped := l.Remaining("alpha")
		assert.False(t, capped)
	})

	t.Run("capped", func(t *testing.T) {
		l.SetCap("beta", 2.0)
		l.Commit(context.Background(), "beta", 0.5)
		remaining, capped := l.Remaining("beta")
		assert.True(t, capped)
		assert.InDelta(t, 1.5, remaining, 1e-9)
	})

	t.Run("overspend floors at zero", func(t *testing.T) {
		l.SetCap("gamma", 1.0)
		l.Commit(context.Background(), "gamma", 1.5)
		remaining, capped := l.Remaining("gamma")
		assert.True(t, capped)
		assert.Zero(t, remaining)
	})
}

func TestLedger_Summary(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	l := New(logger)
	l.Commit(context.Background(), "alpha", 0.30)
	l.Commit(context.Background(), "beta", 0.20)

	// Reserve alone must not show up in the summary
	l.Reserve("gamma", 5.0)

	summary := l.Summary()
	assert.InDelta(t, 0.50, summary.TotalSpend, 1e-9)
	assert.InDelta(t, 0.30, summary.ByProvider["alpha"], 1e-9)
	assert.InDelta(t, 0.20, summary.ByProvider["beta"], 1e-9)
	assert.NotContains(t, summary.ByProvider, "gamma")
}

func TestLedger_Store(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("restore seeds counters", func(t *testing.T) {
		store := &fakeStore{totals: map[string]float64{"alpha": 0.75}}
		l := New(logger, WithStore(store))
		require.NoError(t, l.Restore(context.Background()))
		assert.InDelta(t, 0.75, l.Spent("alpha"), 1e-9)
	})

	t.Run("restore propagates load errors", func(t *testing.T) {
		store := &fakeStore{ndErr: errors.New("connection refused")}
		l := New(logger, WithStore(store))
		assert.Error(t, l.Restore(context.Background()))
	})

	t.Run("commit mirrors to store", func(t *testing.T) {
		store := &fakeStore{}
		l := New(logger, WithStore(store))
		l.Commit(context.Background(), "alpha", 0.10)
		require.Len(t, store.adds, 1)
		assert.InDelta(t, 0.10, store.adds[0], 1e-9)
	})

	t.Run("store failure never loses the in-memory commit", func(t *testing.T) {
		store := &fakeStore{addErr: errors.New("disk full")}
		l := New(logger, WithStore(store))
		l.Commit(context.Background(), "alpha", 0.10)
		assert.InDelta(t, 0.10, l.Spent("alpha"), 1e-9)
	})

	t.Run("no store is a no-op", func(t *testing.T) {
		l := New(logger)
		require.NoError(t, l.Restore(context.Background()))
	})
}

func TestLedger_ConcurrentCommits(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	l := New(logger)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Commit(context.Background(), "alpha", 0.01)
			l.Commit(context.Background(), "beta", 0.01)
		}()
	}
	wg.Wait()

	assert.InDelta(t, 0.5, l.Spent("alpha"), 1e-6)
	assert.InDelta(t, 0.5, l.Spent("beta"), 1e-6)
}
