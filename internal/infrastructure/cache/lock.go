package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LockManager is the short-TTL mutual exclusion used to serialize
// recomputation of a cache key. It is stampede protection only, not a
// general distributed mutex: a lock must never be held across a call that
// can outlive its TTL, and a crashed holder is healed by expiry alone.
type LockManager struct {
	store   Store
	feature string
	logger  *zap.Logger
}

// NewLockManager creates the lock manager for one feature namespace.
func NewLockManager(store Store, feature string, logger *zap.Logger) *LockManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockManager{store: store, feature: feature, logger: logger}
}

// TryLock attempts to acquire the recompute lock for cacheKey. Exactly one
// concurrent caller wins; the rest get false immediately and should fall
// back to direct computation rather than wait.
func (lm *LockManager) TryLock(ctx context.Context, cacheKey string, ttl time.Duration) (bool, error) {
	acquired, err := lm.store.SetNX(ctx, LockKey(lm.feature, cacheKey), "1", ttl)
	if err != nil {
		return false, err
	}
	if acquired {
		lm.logger.Debug("recompute lock acquired",
			zap.String("feature", lm.feature),
			zap.String("key", cacheKey),
			zap.Duration("ttl", ttl),
		)
	}
	return acquired, nil
}

// Unlock releases the recompute lock for cacheKey. Unlocking an expired or
// absent lock is a no-op.
func (lm *LockManager) Unlock(ctx context.Context, cacheKey string) {
	if err := lm.store.Delete(ctx, LockKey(lm.feature, cacheKey)); err != nil {
		// The lock self-expires, so a failed delete only delays the next
		// recompute by at most the TTL.
		lm.logger.Warn("unlock failed",
			zap.String("feature", lm.feature),
			zap.String("key", cacheKey),
			zap.Error(err),
		)
	}
}
