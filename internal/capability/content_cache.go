package capability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultContentCacheSize mirrors the teacher's default embedding
// cache size.
const DefaultContentCacheSize = 1000

type cacheEntry struct {
	content   DistilledContent
	expiresAt time.Time
}

// LRUContentCache is the reference ContentCache, adapted from the
// teacher's hashicorp/golang-lru-backed embedding cache. Entries carry
// a TTL, which the teacher's cache did not need since it never expired
// entries; ContentCache's contract requires one, so expiry is checked
// on Get/Has.
type LRUContentCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, cacheEntry]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRUContentCache creates a cache holding up to size entries.
func NewLRUContentCache(size int) *LRUContentCache {
	if size <= 0 {
		size = DefaultContentCacheSize
	}
	cache, _ := lru.New[string, cacheEntry](size)
	return &LRUContentCache{cache: cache}
}

// Get returns the cached content for contentHash if present and not
// expired.
func (c *LRUContentCache) Get(ctx context.Context, contentHash string) (DistilledContent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache.Get(contentHash)
	if !ok || (!entry.expiresAt.IsZero() && entry.expiresAt.Before(time.Now())) {
		c.misses.Add(1)
		if ok {
			c.cache.Remove(contentHash)
		}
		return DistilledContent{}, false
	}
	c.hits.Add(1)
	return entry.content, true
}

// Set stores content under contentHash with the given TTL in seconds;
// ttl <= 0 means no expiry.
func (c *LRUContentCache) Set(ctx context.Context, contentHash string, content DistilledContent, ttl int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(time.Duration(ttl) * time.Second)
	}
	c.cache.Add(contentHash, cacheEntry{content: content, expiresAt: expiresAt})
	return nil
}

// Has reports whether contentHash is cached and unexpired, without
// affecting hit/miss counters.
func (c *LRUContentCache) Has(ctx context.Context, contentHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache.Peek(contentHash)
	if !ok {
		return false
	}
	return entry.expiresAt.IsZero() || entry.expiresAt.After(time.Now())
}

// Delete evicts contentHash.
func (c *LRUContentCache) Delete(ctx context.Context, contentHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(contentHash)
	return nil
}

// Clear empties the cache.
func (c *LRUContentCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
	return nil
}

// Stats reports cumulative hit/miss counters and current size.
func (c *LRUContentCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.cache.Len(),
	}
}

var _ ContentCache = (*LRUContentCache)(nil)

// NoopCache is a ContentCache that never caches anything. The core
// must remain correct with caching disabled entirely; wiring this in
// place of LRUContentCache exercises that guarantee.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, contentHash string) (DistilledContent, bool) { return DistilledContent{}, false }
func (NoopCache) Set(ctx context.Context, contentHash string, content DistilledContent, ttl int64) error {
	return nil
}
func (NoopCache) Has(ctx context.Context, contentHash string) bool   { return false }
func (NoopCache) Delete(ctx context.Context, contentHash string) error { return nil }
func (NoopCache) Clear(ctx context.Context) error                    { return nil }
func (NoopCache) Stats() CacheStats                                  { return CacheStats{} }

var _ ContentCache = NoopCache{}
