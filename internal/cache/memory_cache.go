package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.RWMutex
	clock   clock.PassiveClock
	entries map[string]memoryEntry
}

// NewMemoryCache keeps values in process. Values are JSON-encoded like the
// Redis implementation so both behave identically for callers.
func NewMemoryCache(c clock.PassiveClock) CacheService {
	if c == nil {
		c = clock.RealClock{}
	}
	return &memoryCache{clock: c, entries: map[string]memoryEntry{}}
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %q: %w", key, err)
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = m.clock.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !m.clock.Now().Before(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return ErrCacheMiss
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("decode cache value %q: %w", key, err)
	}
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}
