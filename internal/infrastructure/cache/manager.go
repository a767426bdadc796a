package cache

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"tutorhub-backend/internal/domain"
	appErrors "tutorhub-backend/pkg/errors"
)

// ComputeFunc recomputes a payload from the source of truth.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// ListCache is the cache-aside manager for one feature's listing payloads.
//
// Read protocol on a miss: try the recompute lock; the winner recomputes,
// fills the cache and unlocks; losers recompute directly without caching,
// so an expensive recompute runs at most once per key concurrently while
// no reader ever blocks on another. Reads are eventually consistent with
// writes: invalidation is asynchronous and best-effort, with the store TTL
// as the backstop.
type ListCache struct {
	store   Store
	local   *LocalCache
	index   *DimensionIndex
	locks   *LockManager
	feature string
	ttl     time.Duration
	lockTTL time.Duration
	metrics *Metrics
	logger  *zap.Logger
	tracer  trace.Tracer
}

// ListCacheConfig configures a ListCache.
type ListCacheConfig struct {
	Feature string
	TTL     time.Duration
	LockTTL time.Duration
}

// NewListCache assembles the cache-aside manager for a feature namespace.
func NewListCache(store Store, local *LocalCache, cfg ListCacheConfig, metrics *Metrics, logger *zap.Logger) *ListCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	return &ListCache{
		store:   store,
		local:   local,
		index:   NewDimensionIndex(store, cfg.Feature, logger),
		locks:   NewLockManager(store, cfg.Feature, logger),
		feature: cfg.Feature,
		ttl:     cfg.TTL,
		lockTTL: cfg.LockTTL,
		metrics: metrics,
		logger:  logger,
		tracer:  otel.Tracer("tutorhub-backend/cache"),
	}
}

// Feature returns the cache's namespace.
func (c *ListCache) Feature() string { return c.feature }

// SetTTL adjusts the nominal payload TTL; config hot-reload calls this.
func (c *ListCache) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		c.ttl = ttl
	}
}

// GetList serves one listing page cache-aside. dims are the query's
// dimensions (wildcards included for unfiltered families) and are indexed
// before the payload is written so invalidation can never miss the key.
func (c *ListCache) GetList(ctx context.Context, page, size int, dims []domain.Dimension, compute ComputeFunc) ([]byte, error) {
	key := ListKey(c.feature, page, size, dims)
	return c.getOrCompute(ctx, key, dims, false, compute)
}

// GetHot serves a hot-key payload, consulting the per-process cache first.
func (c *ListCache) GetHot(ctx context.Context, name string, dims []domain.Dimension, compute ComputeFunc) ([]byte, error) {
	key := HotKey(c.feature, name)
	return c.getOrCompute(ctx, key, dims, true, compute)
}

func (c *ListCache) getOrCompute(ctx context.Context, key string, dims []domain.Dimension, hot bool, compute ComputeFunc) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "cache.lookup",
		trace.WithAttributes(
			attribute.String("cache.feature", c.feature),
			attribute.String("cache.key", key),
		))
	defer span.End()

	if hot && c.local != nil {
		if payload, ok := c.local.Get(key); ok {
			c.metrics.lookup(c.feature, "local", "hit")
			span.SetAttributes(attribute.String("cache.tier", "local"))
			return payload, nil
		}
		c.metrics.lookup(c.feature, "local", "miss")
	}

	storeUp := true
	payload, ok, err := c.store.Get(ctx, key)
	if err != nil {
		// A broken cache tier never fails a read; serve from the source.
		c.metrics.lookup(c.feature, "store", "error")
		c.logger.Warn("cache store get failed, serving uncached",
			zap.String("key", key), zap.Error(err))
		storeUp = false
	} else if ok {
		c.metrics.lookup(c.feature, "store", "hit")
		span.SetAttributes(attribute.String("cache.tier", "store"))
		if hot && c.local != nil {
			c.local.Put(key, payload)
		}
		return payload, nil
	} else {
		c.metrics.lookup(c.feature, "store", "miss")
	}

	if !storeUp {
		c.metrics.recompute(c.feature, "fallback")
		payload, err := compute(ctx)
		if err != nil {
			var appErr *appErrors.AppError
			if errors.As(err, &appErr) {
				return nil, err
			}
			// Cache tier and source both down: the read has nowhere to go.
			return nil, appErrors.NewUnavailable("cache store down and recompute failed", err)
		}
		return payload, nil
	}

	acquired, err := c.locks.TryLock(ctx, key, c.lockTTL)
	if err != nil {
		c.logger.Warn("recompute lock unavailable, serving uncached",
			zap.String("key", key), zap.Error(err))
		acquired = false
	}
	if !acquired {
		// Another reader is already refilling this key; compute directly
		// rather than wait on it.
		c.metrics.recompute(c.feature, "fallback")
		return compute(ctx)
	}
	defer c.locks.Unlock(ctx, key)

	c.metrics.recompute(c.feature, "singleflight")
	payload, err = compute(ctx)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, key, payload, dims, hot)
	return payload, nil
}

// fill registers the key in the dimension index, writes the payload, and
// memoizes hot keys locally. Index registration comes first: a key the
// index does not know about cannot be invalidated.
func (c *ListCache) fill(ctx context.Context, key string, payload []byte, dims []domain.Dimension, hot bool) {
	if len(dims) > 0 {
		if err := c.index.Register(ctx, key, dims); err != nil {
			c.logger.Warn("dimension index registration failed, not caching",
				zap.String("key", key), zap.Error(err))
			return
		}
	}
	if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("cache store set failed",
			zap.String("key", key), zap.Error(err))
		return
	}
	if hot && c.local != nil {
		c.local.Put(key, payload)
	}
}

// InvalidateDimensions deletes every cached payload registered under the
// given dimensions (wildcards folded in), prunes the index, and clears the
// per-process hot-key cache. Idempotent and commutative: repeated or
// reordered invalidations converge on the same absent-keys state.
func (c *ListCache) InvalidateDimensions(ctx context.Context, dims []domain.Dimension) error {
	ctx, span := c.tracer.Start(ctx, "cache.invalidate",
		trace.WithAttributes(attribute.String("cache.feature", c.feature)))
	defer span.End()

	keys, err := c.index.Invalidate(ctx, dims)
	if err != nil {
		return err
	}
	if c.local != nil {
		c.local.Clear()
	}
	c.metrics.invalidated(c.feature, len(keys))
	c.logger.Info("dimensional invalidation applied",
		zap.String("feature", c.feature),
		zap.Int("keys", len(keys)),
	)
	return nil
}

// InvalidateHot deletes a single hot-key payload from both tiers, used by
// the warming path before eager recomputation.
func (c *ListCache) InvalidateHot(ctx context.Context, name string) error {
	if c.local != nil {
		c.local.Clear()
	}
	return c.store.Delete(ctx, HotKey(c.feature, name))
}
