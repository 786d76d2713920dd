package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache keeps entries in a map guarded by a mutex. Expired entries are
// dropped lazily on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memEntry), now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), e.data...), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	e := memEntry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error { return nil }

var _ Cache = (*MemoryCache)(nil)
