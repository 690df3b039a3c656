package metricsource

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/observability"
	"github.com/linkplanhq/linkplan/internal/target"
)

// RDStore is the cache backend contract, satisfied by db.RedisStore.
type RDStore interface {
	GetCachedRD(ctx context.Context, key string) (float64, bool, error)
	SetCachedRD(ctx context.Context, key string, rd float64, ttl time.Duration) error
}

// Cache is a read-through cache in front of a Source. Cache trouble only
// ever degrades to a direct fetch; it never fails a lookup.
type Cache struct {
	src     Source
	store   RDStore
	ttl     time.Duration
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewCache wraps src with a read-through RD cache. A nil store disables
// caching and Lookup delegates straight to the source.
func NewCache(src Source, store RDStore, ttl time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *Cache {
	return &Cache{src: src, store: store, ttl: ttl, logger: logger, metrics: metrics}
}

// SourceName reports which upstream source backs this cache.
func (c *Cache) SourceName() string { return c.src.Name() }

// cacheKey keys entries by canonical target and scope mode; the same host
// queried as a homepage and as an exact page are different metrics.
func cacheKey(scope target.Scope) string {
	return scope.CanonicalTarget + "|" + string(scope.Mode)
}

// Lookup returns the referring-domains count for a scope and whether it was
// served from cache.
func (c *Cache) Lookup(ctx context.Context, scope target.Scope) (float64, bool, error) {
	if c.store == nil {
		rd, err := c.src.FetchReferringDomains(ctx, scope)
		return rd, false, err
	}

	key := cacheKey(scope)
	rd, found, err := c.store.GetCachedRD(ctx, key)
	if err != nil {
		c.logger.Warn("rd cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		c.metrics.IncrementCacheLookups("hit")
		return rd, true, nil
	}
	c.metrics.IncrementCacheLookups("miss")

	rd, err = c.src.FetchReferringDomains(ctx, scope)
	if err != nil {
		return 0, false, err
	}

	if err := c.store.SetCachedRD(ctx, key, rd, c.ttl); err != nil {
		c.logger.Warn("rd cache write failed", zap.String("key", key), zap.Error(err))
	}
	return rd, false, nil
}
