package solver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ResultCache stores serialized solve results by request key.
// Get returns nil, nil on a miss.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CacheKey hashes a request into a stable cache key
func CacheKey(kind string, req any) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := sha256.Sum256(append([]byte(kind+":"), data...))
	return kind + ":" + hex.EncodeToString(sum[:]), nil
}

// DefaultMemoryCacheEntries caps a MemoryCache created by NewMemoryCache
const DefaultMemoryCacheEntries = 512

type memoryEntry struct {
	value     []byte
	storedAt  time.Time
	expiresAt time.Time
}

// MemoryCache is a process-local ResultCache with a fixed TTL and a bounded
// number of entries. Expired entries are swept when the cache is full, then
// the oldest entry is evicted.
type MemoryCache struct {
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	mu         sync.RWMutex
}

// NewMemoryCache creates a MemoryCache. A zero ttl never expires entries.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return NewBoundedMemoryCache(ttl, DefaultMemoryCacheEntries)
}

// NewBoundedMemoryCache creates a MemoryCache holding at most maxEntries.
// A non-positive maxEntries removes the cap.
func NewBoundedMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	return entry.value, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte) error {
	now := c.now()
	entry := memoryEntry{value: append([]byte(nil), value...), storedAt: now}
	if c.ttl > 0 {
		entry.expiresAt = now.Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.sweepLocked(now)
		if len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
		}
	}
	c.entries[key] = entry
	return nil
}

// Sweep drops expired entries and returns how many were removed
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

func (c *MemoryCache) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) evictOldestLocked() {
	var (
		oldest string
		at     time.Time
	)
	for key, entry := range c.entries {
		if oldest == "" || entry.storedAt.Before(at) {
			oldest, at = key, entry.storedAt
		}
	}
	delete(c.entries, oldest)
}

// Len returns the number of cached entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
