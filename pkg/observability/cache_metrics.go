package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCacheHits    = "checkstat.cache.hits"
	metricCacheMisses  = "checkstat.cache.misses"
	metricCacheEntries = "checkstat.cache.entries"

	attrCache = "cache"
)

// CacheStatsProvider exposes the counters of a cache.
type CacheStatsProvider interface {
	CacheHits() int64
	CacheMisses() int64
	CacheEntries() int64
}

// RegisterCacheMetrics exposes the counters of named caches as observable gauges,
// one data point per cache with attribute cache=<name>. Nil providers are skipped.
func RegisterCacheMetrics(mt metric.Meter, caches map[string]CacheStatsProvider) error {
	hits, err := mt.Int64ObservableGauge(metricCacheHits,
		metric.WithDescription("Cache hits since start"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", metricCacheHits, err)
	}

	misses, err := mt.Int64ObservableGauge(metricCacheMisses,
		metric.WithDescription("Cache misses since start"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", metricCacheMisses, err)
	}

	entries, err := mt.Int64ObservableGauge(metricCacheEntries,
		metric.WithDescription("Entries currently held"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", metricCacheEntries, err)
	}

	_, err = mt.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		for name, cache := range caches {
			if cache == nil {
				continue
			}

			attrs := metric.WithAttributes(attribute.String(attrCache, name))
			obs.ObserveInt64(hits, cache.CacheHits(), attrs)
			obs.ObserveInt64(misses, cache.CacheMisses(), attrs)
			obs.ObserveInt64(entries, cache.CacheEntries(), attrs)
		}

		return nil
	}, hits, misses, entries)
	if err != nil {
		return fmt.Errorf("register cache metrics callback: %w", err)
	}

	return nil
}
