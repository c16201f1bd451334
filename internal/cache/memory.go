package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const DefaultMemorySize = 256

// MemoryCache is an in-process LRU used when Redis is not configured.
// Entries expire lazily on read.
type MemoryCache struct {
	typed
	entries *lru.Cache
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	c := &MemoryCache{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
	}
	c.typed = typed{store: c}
	return c, nil
}

func (c *MemoryCache) get(_ context.Context, key string) ([]byte, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	entry := v.(memoryEntry)
	if c.ttl > 0 && !c.now().Before(entry.expires) {
		c.entries.Remove(key)
		return nil, false
	}
	return entry.data, true
}

func (c *MemoryCache) set(_ context.Context, key string, data []byte) error {
	c.entries.Add(key, memoryEntry{data: data, expires: c.now().Add(c.ttl)})
	return nil
}

func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

func (c *MemoryCache) Close() error {
	c.entries.Purge()
	return nil
}
