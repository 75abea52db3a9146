package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a concurrency-safe in-process Cache. It is the default backend
// when no Redis URL is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

// Get returns the value stored under key if it has not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// SetWithExpiry stores value under key for ttl. Expired entries are pruned
// opportunistically on write so the map does not grow without bound.
func (m *Memory) SetWithExpiry(_ context.Context, key string, ttl time.Duration, value []byte) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
}
