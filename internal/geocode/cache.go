package geocode

import (
	"context"
	"sync"

	"github.com/telefeed/backend/internal/metrics"
)

// Resolver turns a place name into coordinates. found is false for names
// the backend cannot resolve.
type Resolver interface {
	Resolve(ctx context.Context, name string) (lat, lon float64, found bool, err error)
}

type cacheEntry struct {
	lat   float64
	lon   float64
	found bool
}

// CachedResolver memoizes resolutions for its own lifetime, which is one
// enrichment run. Misses are cached too: a name Nominatim does not know
// will not be re-queried. Entries are never invalidated.
type CachedResolver struct {
	inner Resolver

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func NewCachedResolver(inner Resolver) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, name string) (float64, float64, bool, error) {
	c.mu.Lock()
	if entry, ok := c.entries[name]; ok {
		c.mu.Unlock()
		metrics.GeocodeCacheHits.Inc()
		return entry.lat, entry.lon, entry.found, nil
	}
	c.mu.Unlock()

	metrics.GeocodeCacheMisses.Inc()
	lat, lon, found, err := c.inner.Resolve(ctx, name)
	if err != nil {
		// Transient failures are not cached so a later retry can
		// reattempt resolution.
		return 0, 0, false, err
	}

	c.mu.Lock()
	c.entries[name] = cacheEntry{lat: lat, lon: lon, found: found}
	c.mu.Unlock()

	return lat, lon, found, nil
}

// Len reports the number of cached names.
func (c *CachedResolver) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
