package walletcache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	wallets   []string
	expiresAt time.Time
}

// MemoryCache is an in-process Cache for tests and single-instance
// deployments.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, query string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[query]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, query)
		return nil, false, nil
	}

	out := make([]string, len(e.wallets))
	copy(out, e.wallets)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, query string, wallets []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]string, len(wallets))
	copy(stored, wallets)
	c.entries[query] = memoryEntry{wallets: stored, expiresAt: c.now().Add(ttl)}
	return nil
}

var _ Cache = (*MemoryCache)(nil)
