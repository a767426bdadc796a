// Package cache implements the multi-tier read-cache: a shared key-value
// store with jittered TTLs, a per-process hot-key cache, a dimension index
// mapping business attributes to dependent cache keys, and the short-TTL
// lock used for single-flight recomputation.
package cache

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrStoreUnavailable is returned by stores when the backing tier cannot be
// reached. Callers on the read path treat it as a miss and fall back to
// direct computation; it must never fail a user-facing read.
var ErrStoreUnavailable = errors.New("cache store unavailable")

// Store is the shared cache tier: cross-instance key-value state with
// per-key TTL, plus the set and set-if-absent primitives the dimension
// index and lock manager are built on.
type Store interface {
	// Get returns the payload for key, or ok=false on a miss.
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)

	// Set writes payload under key. The effective TTL is the nominal one
	// plus a random jitter of up to 10%, so entries filled together do not
	// expire together.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Delete removes keys. Deleting an absent key is a no-op.
	Delete(ctx context.Context, keys ...string) error

	// SetNX writes value under key only if the key is absent, with a TTL.
	// It reports whether this call created the key.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// SAdd adds members to the set at key.
	SAdd(ctx context.Context, key string, members ...string) error

	// SMembers returns the members of the set at key; absent sets are empty.
	SMembers(ctx context.Context, key string) ([]string, error)

	// SRem removes members from the set at key. Removing a non-member is a
	// no-op.
	SRem(ctx context.Context, key string, members ...string) error
}

// jitterTTL stretches a nominal TTL by up to 10% so synchronized fills do
// not produce synchronized mass expiry.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	max := int64(ttl) / 10
	if max <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(max+1))
}
