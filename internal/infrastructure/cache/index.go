package cache

import (
	"context"

	"go.uber.org/zap"

	"tutorhub-backend/internal/domain"
)

// DimensionIndex maps a business dimension (grade, subject, country, or the
// ALL wildcard) to the set of cache keys whose content depends on it. The
// index lives in the shared store so every instance invalidates the same
// membership.
//
// The index may contain stale members for keys that already expired; that
// only costs a redundant delete later, never incorrect serving.
type DimensionIndex struct {
	store   Store
	feature string
	logger  *zap.Logger
}

// NewDimensionIndex creates the index for one feature namespace.
func NewDimensionIndex(store Store, feature string, logger *zap.Logger) *DimensionIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DimensionIndex{store: store, feature: feature, logger: logger}
}

// Register records that cacheKey depends on each of dims. Must happen at or
// before the corresponding Put so a concurrent invalidation cannot miss the
// key. Set semantics make re-registration idempotent.
func (ix *DimensionIndex) Register(ctx context.Context, cacheKey string, dims []domain.Dimension) error {
	for _, d := range dims {
		if err := ix.store.SAdd(ctx, IndexKey(ix.feature, d), cacheKey); err != nil {
			return err
		}
	}
	return nil
}

// Members returns the cache keys registered under one dimension.
func (ix *DimensionIndex) Members(ctx context.Context, dim domain.Dimension) ([]string, error) {
	return ix.store.SMembers(ctx, IndexKey(ix.feature, dim))
}

// Invalidate deletes from the store every cache key registered under any of
// dims or under the ALL wildcard of their families, then prunes the touched
// index sets. It returns the keys it deleted.
//
// Pruning is best-effort: a failed SRem leaves a stale member behind, which
// is safe, so errors there are logged and skipped rather than propagated.
func (ix *DimensionIndex) Invalidate(ctx context.Context, dims []domain.Dimension) ([]string, error) {
	touched := withWildcards(dims)

	keySet := make(map[string]struct{})
	for _, d := range touched {
		members, err := ix.store.SMembers(ctx, IndexKey(ix.feature, d))
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			keySet[m] = struct{}{}
		}
	}
	if len(keySet) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}

	if err := ix.store.Delete(ctx, keys...); err != nil {
		return nil, err
	}

	for _, d := range touched {
		if err := ix.store.SRem(ctx, IndexKey(ix.feature, d), keys...); err != nil {
			ix.logger.Warn("index prune failed, leaving stale members",
				zap.String("feature", ix.feature),
				zap.String("dimension", d.Name+":"+d.Value),
				zap.Error(err),
			)
		}
	}
	return keys, nil
}

// withWildcards folds the ALL dimension of every touched family into the
// dimension list: unfiltered listings are indexed under ALL and must be
// invalidated by any write in the family.
func withWildcards(dims []domain.Dimension) []domain.Dimension {
	out := make([]domain.Dimension, 0, len(dims)*2)
	seen := make(map[domain.Dimension]struct{})
	add := func(d domain.Dimension) {
		if _, dup := seen[d]; !dup {
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	for _, d := range dims {
		add(d)
		add(domain.All(d.Name))
	}
	return out
}
