package store

import (
	"sync"
	"time"

	"github.com/i474232898/clinic-finder/internal/clinic"
)

// entry is one cached clinic list.
type entry struct {
	clinics  []clinic.Clinic
	storedAt time.Time
}

// ResultCache is a concurrency-safe in-memory cache of clinic lists with a
// fixed time-to-live.
type ResultCache struct {
	mu sync.RWMutex

	// key: clinic.CacheKey, value: cached list
	data map[string]entry

	ttl        time.Duration
	maxEntries int // 0 = unlimited
	now        func() time.Time
}

// NewResultCache creates a ResultCache. A non-positive ttl disables expiry.
// If maxEntries is <= 0, it is treated as unlimited.
func NewResultCache(ttl time.Duration, maxEntries int) *ResultCache {
	return &ResultCache{
		data:       make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock replaces the cache's time source. It returns c for chaining.
func (c *ResultCache) WithClock(now func() time.Time) *ResultCache {
	c.now = now
	return c
}

// Get returns a copy of the list stored under key unless it has expired.
func (c *ResultCache) Get(key string) ([]clinic.Clinic, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.expired(e) {
		c.mu.Lock()
		// Re-check under the write lock; a Put may have refreshed it.
		if cur, ok := c.data[key]; ok && c.expired(cur) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return clinic.CloneList(e.clinics), true
}

// Put stores a copy of clinics under key and enforces the entry limit by
// evicting the oldest entries.
func (c *ResultCache) Put(key string, clinics []clinic.Clinic) {
	stored := clinic.CloneList(clinics)
	if stored == nil {
		stored = []clinic.Clinic{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry{clinics: stored, storedAt: c.now()}

	for c.maxEntries > 0 && len(c.data) > c.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.data {
			if oldestKey == "" || e.storedAt.Before(oldest) {
				oldestKey, oldest = k, e.storedAt
			}
		}
		delete(c.data, oldestKey)
	}
}

// Sweep drops every expired entry and returns how many were removed.
func (c *ResultCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.data {
		if c.expired(e) {
			delete(c.data, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *ResultCache) expired(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl
}
