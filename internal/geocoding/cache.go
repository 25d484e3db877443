// Package geocoding resolves clinic addresses to coordinates through a
// rate-limited client with a bounded, expiring cache in front of it.
package geocoding

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/i474232898/clinic-finder/internal/common"
	"github.com/i474232898/clinic-finder/internal/geo"
)

// DefaultCacheTTL is how long a geocoded address stays valid.
const DefaultCacheTTL = 24 * time.Hour

// Cache maps normalized addresses to coordinates. Entries older than the
// TTL are treated as absent. Safe for concurrent use.
type Cache struct {
	lru *expirable.LRU[string, geo.Point]
}

// NewCache creates a cache holding at most size addresses for ttl.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 1024
	}
	return &Cache{lru: expirable.NewLRU[string, geo.Point](size, nil, ttl)}
}

// Get returns the cached point for address.
func (c *Cache) Get(address string) (geo.Point, bool) {
	return c.lru.Get(Key(address))
}

// Set stores p for address.
func (c *Cache) Set(address string, p geo.Point) {
	c.lru.Add(Key(address), p)
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Key is the cache identity of an address.
func Key(address string) string {
	return common.NormalizeKey(address)
}
