package schema

import (
	"time"

	"github.com/aish-attendance/attendance-api/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
)

// DescribeCache is an optional time-bounded cache for describe and
// describeGlobal results, keyed by org and object. The reference behavior is
// to re-describe on every request; enabling the cache trades staleness of at
// most the TTL for a large cut in metadata round-trips. A TTL of zero
// disables caching entirely.
type DescribeCache struct {
	cache *gocache.Cache
}

// NewDescribeCache creates a cache with the given TTL. Returns a disabled
// cache when ttl <= 0.
func NewDescribeCache(ttl time.Duration) *DescribeCache {
	if ttl <= 0 {
		return &DescribeCache{}
	}
	return &DescribeCache{cache: gocache.New(ttl, ttl)}
}

// Enabled reports whether caching is active.
func (c *DescribeCache) Enabled() bool {
	return c.cache != nil
}

func (c *DescribeCache) get(name, key string) (any, bool) {
	if c.cache == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if ok {
		metrics.SchemaCacheHits.WithLabelValues(name).Inc()
	} else {
		metrics.SchemaCacheMisses.WithLabelValues(name).Inc()
	}
	return v, ok
}

func (c *DescribeCache) set(key string, value any) {
	if c.cache == nil {
		return
	}
	c.cache.Set(key, value, gocache.DefaultExpiration)
}
