package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/upb/llm-router/services/providers"
)

// DefaultTTL is how long a cached response stays servable.
const DefaultTTL = 5 * time.Minute

// Key identifies a cached response. It is a stable hash over the request
// fields that determine the response content.
type Key string

// KeyFor derives the cache key from (prompt, task category, provider
// pin, model override, token ceiling, temperature). The provider pin is
// part of the key so a pinned request is never served a response another
// provider generated.
func KeyFor(req *providers.GenerationRequest) Key {
	keyData := fmt.Sprintf("%s|%s|%s|%s|%d|%g",
		req.Prompt,
		req.TaskCategory,
		req.Provider,
		req.Model,
		req.MaxTokens,
		req.Temperature,
	)
	hash := sha256.Sum256([]byte(keyData))
	return Key(hex.EncodeToString(hash[:]))
}

// Store is a content-addressed response cache with time-based expiry.
// Lookup and insert are the only operations; entries disappear via TTL.
type Store interface {
	Get(ctx context.Context, key Key) (*providers.Response, bool)
	Put(ctx context.Context, key Key, resp *providers.Response)
}

// memoryEntry is a single cached response with its creation time.
type memoryEntry struct {
	key       Key
	response  *providers.Response
	createdAt time.Time
	element   *list.Element
}

func (e *memoryEntry) expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.createdAt) > ttl
}

// MemoryStore is an in-memory LRU cache with TTL. Expired entries are
// treated as a miss and removed on access; the optional sweep worker
// evicts them proactively.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[Key]*memoryEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore with the given max size and TTL.
func NewMemoryStore(maxSize int, ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[Key]*memoryEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a cached response. Returns false if absent or expired.
func (s *MemoryStore) Get(_ context.Context, key Key) (*providers.Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists || entry.expired(s.ttl, s.now()) {
		s.misses++
		if exists {
			s.removeEntry(key)
		}
		return nil, false
	}

	s.lruList.MoveToFront(entry.element)
	s.hits++
	return entry.response, true
}

// Put stores a response under the key, evicting the least recently used
// entry when the cache is full.
func (s *MemoryStore) Put(_ context.Context, key Key, resp *providers.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, exists := s.entries[key]; exists {
		entry.response = resp
		entry.createdAt = s.now()
		s.lruList.MoveToFront(entry.element)
		return
	}

	if s.maxSize > 0 && s.lruList.Len() >= s.maxSize {
		s.evictLRU()
	}

	entry := &memoryEntry{
		key:       key,
		response:  resp,
		createdAt: s.now(),
	}
	entry.element = s.lruList.PushFront(key)
	s.entries[key] = entry
}

// Stats returns cache statistics.
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hits + s.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(s.hits) / float64(total)
	}
	return Stats{
		Size:    s.lruList.Len(),
		MaxSize: s.maxSize,
		Hits:    s.hits,
		Misses:  s.misses,
		HitRate: hitRate,
	}
}

// Stats represents cache statistics.
type Stats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// CleanupExpired removes all expired entries and returns how many.
func (s *MemoryStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expiredKeys []Key
	for key, entry := range s.entries {
		if entry.expired(s.ttl, now) {
			expiredKeys = append(expiredKeys, key)
		}
	}
	for _, key := range expiredKeys {
		s.removeEntry(key)
	}
	return len(expiredKeys)
}

// StartCleanupWorker sweeps expired entries until stopCh closes.
func (s *MemoryStore) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}

// removeEntry removes an entry (caller holds the lock).
func (s *MemoryStore) removeEntry(key Key) {
	if entry, exists := s.entries[key]; exists {
		s.lruList.Remove(entry.element)
		delete(s.entries, key)
	}
}

// evictLRU drops the least recently used entry (caller holds the lock).
func (s *MemoryStore) evictLRU() {
	backElement := s.lruList.Back()
	if backElement == nil {
		return
	}
	key := backElement.Value.(Key)
	s.lruList.Remove(backElement)
	delete(s.entries, key)
}
