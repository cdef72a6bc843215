package engine

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = 5 * time.Minute
)

type cacheEntry struct {
	value    string
	storedAt time.Time
}

// PromptCache caches assembled memory digests per scope. Entries expire
// after a TTL and are invalidated eagerly whenever a write lands in the
// scope, so a stale digest can only ever shorten the window between a write
// and its visibility in prompt assembly, never serve removed content beyond
// the TTL.
type PromptCache struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, cacheEntry]
	ttl time.Duration
	now func() time.Time
}

// NewPromptCache builds a cache with the given capacity and TTL. A nil now
// defaults to time.Now; tests inject a fake clock.
func NewPromptCache(size int, ttl time.Duration, now func() time.Time) *PromptCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	lru, _ := simplelru.NewLRU[string, cacheEntry](size, nil)
	return &PromptCache{lru: lru, ttl: ttl, now: now}
}

// Get returns the cached value for key if present and unexpired.
func (c *PromptCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.lru.Get(key)
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.lru.Remove(key)
		return "", false
	}
	return entry.value, true
}

// Set stores value under key.
func (c *PromptCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, cacheEntry{value: value, storedAt: c.now()})
}

// Invalidate removes every entry whose key contains scopeKey. Digest keys
// embed every scope they were derived from ("personal:<userID>" and
// "shared:<partnershipID>"), so a write to either scope drops the combined
// digest too.
func (c *PromptCache) Invalidate(scopeKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		if strings.Contains(key, scopeKey) {
			c.lru.Remove(key)
		}
	}
}

// Len reports the number of live entries, expired or not.
func (c *PromptCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func cacheKeyPersonal(userID string) string {
	return "personal:" + userID
}

func cacheKeyShared(partnershipID string) string {
	return "shared:" + partnershipID
}
