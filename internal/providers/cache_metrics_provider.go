package providers

import (
	"amuletbot/internal/structures"
	"strings"
)

// MetricsCacheProvider counts hits and misses per key namespace.
type MetricsCacheProvider struct {
	inner   CacheProviderInterface
	metrics MetricsProviderInterface
}

func (c *MetricsCacheProvider) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		c.metrics.IncCacheHits(keyNamespace(key))
	} else {
		c.metrics.IncCacheMisses(keyNamespace(key))
	}
	return val, ok
}

func (c *MetricsCacheProvider) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

// keyNamespace returns the part of a CacheKey before the first separator.
func keyNamespace(key string) string {
	ns, _, found := strings.Cut(key, cacheKeySep)
	if !found || ns == "" {
		return CacheNamespaceOther
	}
	return ns
}

// NewInstrumentedCacheProvider returns the plain noop cache when caching is disabled,
// so a disabled cache reports no misses.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) CacheProviderInterface {
	inner := NewCacheProvider(conf, logger)
	if !conf.Cache.Enabled {
		return inner
	}
	return &MetricsCacheProvider{
		inner:   inner,
		metrics: metrics,
	}
}
