package remote

import (
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a GET response is reused.
const DefaultCacheTTL = 5 * time.Minute

const sweepEvery = 128

type cacheEntry struct {
	resp      *Response
	expiresAt time.Time
}

// Cache is a TTL cache of successful GET responses keyed by full request URL.
// It is safe for concurrent use and may be shared by several clients.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
	writes  int
}

// NewCache creates a cache whose entries live for ttl.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{entries: make(map[string]cacheEntry), ttl: ttl, now: time.Now}
}

// Get returns an unexpired response for key.
func (c *Cache) Get(key string) (*Response, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}

	resp := *e.resp
	resp.Cached = true
	return &resp, true
}

// Set stores resp under key. Non-2xx responses are ignored.
func (c *Cache) Set(key string, resp *Response) {
	if resp == nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = cacheEntry{resp: resp, expiresAt: now.Add(c.ttl)}
	c.writes++
	if c.writes%sweepEvery == 0 {
		for k, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
}

// Invalidate drops every entry whose key contains substr and returns how many were removed.
func (c *Cache) Invalidate(substr string) int {
	if substr == "" {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if strings.Contains(k, substr) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len is the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
