package ledger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Store is an optional durable mirror for committed spend. The natural
// persistence unit is one running counter per provider.
type Store interface {
	// Load returns the persisted cumulative spend per provider id
	Load(ctx context.Context) (map[string]float64, error)

	// Add increments a provider's persisted running total
	Add(ctx context.Context, providerID string, cost float64) error
}

// Summary is the read-only spend report exposed to callers.
type Summary struct {
	TotalSpend float64            `json:"total_spend"`
	ByProvider map[string]float64 `json:"by_provider"`
}

// entry tracks one provider's cumulative spend and optional hard cap.
// Each entry carries its own lock so commits against different providers
// never serialize each other.
type entry struct {
	mu     sync.Mutex
	spent  float64
	cap    float64
	capped bool
}

// Ledger tracks cumulative spend per provider and enforces budget caps.
// Reserve is a pure pre-check used by the Router; Commit is the only
// mutating operation and is called by the Execution Engine with actual
// token costs.
type Ledger struct {
	mu      sync.RWMutex // guards the entries map, not the entries
	entries map[string]*entry
	store   Store
	logger  *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithStore attaches a durable mirror. Commits are forwarded best-effort;
// a store failure never fails the request.
func WithStore(store Store) Option {
	return func(l *Ledger) { l.store = store }
}

// New creates a Ledger.
func New(logger *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		entries: make(map[string]*entry),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore loads persisted running totals from the attached store.
func (l *Ledger) Restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	totals, err := l.store.Load(ctx)
	if err != nil {
		return err
	}
	for providerID, spent := range totals {
		e := l.entryFor(providerID)
		e.mu.Lock()
		e.spent = spent
		e.mu.Unlock()
	}
	l.logger.Info("ledger restored", zap.Int("providers", len(totals)))
	return nil
}

// SetCap configures the hard spend ceiling for a provider. A zero cap
// means uncapped.
func (l *Ledger) SetCap(providerID string, cap float64) {
	e := l.entryFor(providerID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cap = cap
	e.capped = cap > 0
}

// Reserve reports whether the provider's remaining budget covers the
// estimated cost. It never mutates state.
func (l *Ledger) Reserve(providerID string, estimatedCost float64) bool {
	e := l.entryFor(providerID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.capped {
		return true
	}
	return e.spent+estimatedCost <= e.cap
}

// Commit records the actual cost of a completed attempt.
func (l *Ledger) Commit(ctx context.Context, providerID string, actualCost float64) {
	e := l.entryFor(providerID)
	e.mu.Lock()
	e.spent += actualCost
	spent := e.spent
	e.mu.Unlock()

	l.logger.Debug("cost committed",
		zap.String("provider", providerID),
		zap.Float64("cost", actualCost),
		zap.Float64("cumulative", spent))

	if l.store != nil {
		if err := l.store.Add(ctx, providerID, actualCost); err != nil {
			l.logger.Error("failed to persist cost",
				zap.String("provider", providerID), zap.Error(err))
		}
	}
}

// Spent returns the cumulative spend for a provider.
func (l *Ledger) Spent(providerID string) float64 {
	e := l.entryFor(providerID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spent
}

// Remaining returns the remaining budget and whether a cap is configured.
func (l *Ledger) Remaining(providerID string) (float64, bool) {
	e := l.entryFor(providerID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.capped {
		return 0, false
	}
	remaining := e.cap - e.spent
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Summary returns total and per-provider spend.
func (l *Ledger) Summary() Summary {
	l.mu.RLock()
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	summary := Summary{ByProvider: make(map[string]float64, len(ids))}
	for _, id := range ids {
		spent := l.Spent(id)
		if spent == 0 {
			continue
		}
		summary.ByProvider[id] = spent
		summary.TotalSpend += spent
	}
	return summary
}

func (l *Ledger) entryFor(providerID string) *entry {
	l.mu.RLock()
	e, ok := l.entries[providerID]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[providerID]; ok {
		return e
	}
	e = &entry{}
	l.entries[providerID] = e
	return e
}
