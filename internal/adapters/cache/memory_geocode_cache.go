package cache

import (
	"context"
	"sync"
	"time"

	"last-mile-planner/internal/domain"
)

type memoryEntry struct {
	coords domain.Coordinates
	at     time.Time
}

// MemoryGeocodeCache keeps geocoding results in process. Used when no
// database or Redis is configured, and in tests.
type MemoryGeocodeCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryGeocodeCache(ttl time.Duration) *MemoryGeocodeCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryGeocodeCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryGeocodeCache) GetMany(_ context.Context, keys []string) (map[string]domain.Coordinates, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	out := make(map[string]domain.Coordinates, len(keys))
	for _, k := range uniqueKeys(keys) {
		e, ok := m.entries[k]
		if !ok || now.Sub(e.at) >= m.ttl {
			continue
		}
		out[k] = e.coords
	}
	return out, nil
}

func (m *MemoryGeocodeCache) PutMany(_ context.Context, results map[string]domain.Coordinates) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, c := range results {
		m.entries[k] = memoryEntry{coords: c, at: now}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryGeocodeCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
