package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// event is one recorded provider call inside the sliding window.
type event struct {
	at     time.Time
	tokens int
}

// window holds the recent events for one provider behind its own lock.
type window struct {
	mu     sync.Mutex
	events []event
}

// Limiter enforces per-provider requests-per-minute and tokens-per-minute
// limits over a one-minute sliding window, entirely in memory.
type Limiter struct {
	mu      sync.RWMutex // guards the windows map, not the windows
	windows map[string]*window
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a Limiter.
func New(logger *zap.Logger) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
		logger:  logger,
	}
}

// Allow reports whether another request against the provider would stay
// within its declared limits. Zero limits mean unlimited. The check does
// not consume quota; Record does.
func (l *Limiter) Allow(providerID string, requestsPerMinute, tokensPerMinute int) bool {
	if requestsPerMinute <= 0 && tokensPerMinute <= 0 {
		return true
	}

	w := l.windowFor(providerID)
	w.mu.Lock()
	defer w.mu.Unlock()

	l.prune(w)

	if requestsPerMinute > 0 && len(w.events) >= requestsPerMinute {
		l.logger.Debug("request window exceeded",
			zap.String("provider", providerID),
			zap.Int("limit", requestsPerMinute))
		return false
	}

	if tokensPerMinute > 0 {
		total := 0
		for _, e := range w.events {
			total += e.tokens
		}
		if total >= tokensPerMinute {
			l.logger.Debug("token window exceeded",
				zap.String("provider", providerID),
				zap.Int("limit", tokensPerMinute))
			return false
		}
	}

	return true
}

// Record adds one completed call and its token usage to the window.
func (l *Limiter) Record(providerID string, tokens int) {
	w := l.windowFor(providerID)
	w.mu.Lock()
	defer w.mu.Unlock()

	l.prune(w)
	w.events = append(w.events, event{at: l.now(), tokens: tokens})
}

// prune drops events older than the window. Caller holds w.mu.
func (l *Limiter) prune(w *window) {
	cutoff := l.now().Add(-time.Minute)
	kept := w.events[:0]
	for _, e := range w.events {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	w.events = kept
}

func (l *Limiter) windowFor(providerID string) *window {
	l.mu.RLock()
	w, ok := l.windows[providerID]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok = l.windows[providerID]; ok {
		return w
	}
	w = &window{}
	l.windows[providerID] = w
	return w
}
