package directory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// defaultCacheTTL bounds how long a positive lookup is served from cache.
const defaultCacheTTL = 5 * time.Minute

// CacheMetrics observes lookup-cache behavior.
// Implementations must be safe for concurrent use; a nil value disables
// collection.
type CacheMetrics interface {
	RecordHit(op string)
	RecordMiss(op string)
	RecordEntryCount(n int)
}

// cacheEntry is a cached positive lookup result.
type cacheEntry struct {
	value    any
	storedAt time.Time
}

// CachedClient is a cache-aside decorator over a directory Client.
//
// GetUser, GetUnit and GetSystem are cached; GetUserRights and
// Authenticate always pass through (rights are volatile, credentials are
// never cached). Only positive results are stored: absence may be a
// propagation delay on the directory side, so a miss always re-asks the
// delegate.
//
// Safe for concurrent use from multiple simultaneous logins. There is no
// in-flight de-duplication: two concurrent misses for the same key both
// hit the delegate, which is wasteful but correct.
type CachedClient struct {
	delegate Client
	ttl      time.Duration
	metrics  CacheMetrics

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

var _ Client = (*CachedClient)(nil)

// NewCachedClient wraps delegate with a TTL lookup cache.
// A non-positive ttl falls back to the default of 5 minutes.
// Metrics may be nil.
func NewCachedClient(delegate Client, ttl time.Duration, metrics CacheMetrics) *CachedClient {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedClient{
		delegate: delegate,
		ttl:      ttl,
		metrics:  metrics,
		entries:  make(map[string]cacheEntry),
	}
}

// lookup returns the cached value for key if present and fresh.
// Expired entries are removed on access.
func (c *CachedClient) lookup(op, key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Since(entry.storedAt) < c.ttl {
		if c.metrics != nil {
			c.metrics.RecordHit(op)
		}
		return entry.value, true
	}

	if ok {
		c.mu.Lock()
		// Re-check: another goroutine may have refreshed the entry.
		if cur, still := c.entries[key]; still && time.Since(cur.storedAt) >= c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	if c.metrics != nil {
		c.metrics.RecordMiss(op)
	}
	return nil, false
}

// store records a positive result. Callers never pass nil values.
func (c *CachedClient) store(key string, value any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, storedAt: time.Now()}
	n := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordEntryCount(n)
	}
}

// Purge drops all cached entries.
func (c *CachedClient) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordEntryCount(0)
	}
}

// Len returns the current number of cached entries.
func (c *CachedClient) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cacheKey(op, arg string) string {
	return fmt.Sprintf("%s\x00%s", op, arg)
}

// GetUser returns the cached identity when fresh, delegating on a miss.
func (c *CachedClient) GetUser(ctx context.Context, login string) (*User, error) {
	key := cacheKey("get_user", login)
	if v, ok := c.lookup("get_user", key); ok {
		return v.(*User), nil
	}

	user, err := c.delegate.GetUser(ctx, login)
	if err != nil {
		return nil, err
	}
	if user != nil {
		c.store(key, user)
	}
	return user, nil
}

// GetUnit returns the cached unit when fresh, delegating on a miss.
func (c *CachedClient) GetUnit(ctx context.Context, unitKey string) (*Unit, error) {
	key := cacheKey("get_unit", unitKey)
	if v, ok := c.lookup("get_unit", key); ok {
		return v.(*Unit), nil
	}

	unit, err := c.delegate.GetUnit(ctx, unitKey)
	if err != nil {
		return nil, err
	}
	if unit != nil {
		c.store(key, unit)
	}
	return unit, nil
}

// GetSystem returns the cached system when fresh, delegating on a miss.
func (c *CachedClient) GetSystem(ctx context.Context, id int) (*System, error) {
	key := cacheKey("get_system", strconv.Itoa(id))
	if v, ok := c.lookup("get_system", key); ok {
		return v.(*System), nil
	}

	system, err := c.delegate.GetSystem(ctx, id)
	if err != nil {
		return nil, err
	}
	if system != nil {
		c.store(key, system)
	}
	return system, nil
}

// GetUserRights always delegates; rights change too often to cache.
func (c *CachedClient) GetUserRights(ctx context.Context, login string) ([]Right, error) {
	return c.delegate.GetUserRights(ctx, login)
}

// Authenticate always delegates; credential checks are never cached.
func (c *CachedClient) Authenticate(ctx context.Context, login, password string) (bool, error) {
	return c.delegate.Authenticate(ctx, login, password)
}
