package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhub-backend/internal/domain"
)

func TestIndexRegisterAndInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(64, nil)
	ix := NewDimensionIndex(store, "course", nil)

	gradeFive := []domain.Dimension{{Name: "grade", Value: "5"}}
	gradeSix := []domain.Dimension{{Name: "grade", Value: "6"}}

	require.NoError(t, store.Set(ctx, "key5", []byte("p5"), time.Minute))
	require.NoError(t, store.Set(ctx, "key6", []byte("p6"), time.Minute))
	require.NoError(t, ix.Register(ctx, "key5", gradeFive))
	require.NoError(t, ix.Register(ctx, "key6", gradeSix))

	deleted, err := ix.Invalidate(ctx, gradeFive)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"key5"}, deleted)

	_, ok, _ := store.Get(ctx, "key5")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "key6")
	assert.True(t, ok, "other dimension values stay cached")

	members, err := ix.Members(ctx, gradeFive[0])
	require.NoError(t, err)
	assert.Empty(t, members, "invalidation prunes the index set")
}

func TestIndexInvalidateFoldsWildcard(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(64, nil)
	ix := NewDimensionIndex(store, "course", nil)

	// An unfiltered listing is indexed only under the wildcard.
	require.NoError(t, store.Set(ctx, "keyAll", []byte("p"), time.Minute))
	require.NoError(t, ix.Register(ctx, "keyAll", []domain.Dimension{domain.All("grade")}))

	// Invalidating a specific value must still reach the wildcard key.
	deleted, err := ix.Invalidate(ctx, []domain.Dimension{{Name: "grade", Value: "5"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keyAll"}, deleted)

	_, ok, _ := store.Get(ctx, "keyAll")
	assert.False(t, ok)
}

func TestIndexInvalidateIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(64, nil)
	ix := NewDimensionIndex(store, "course", nil)

	dims := []domain.Dimension{{Name: "subject", Value: "7"}}
	require.NoError(t, store.Set(ctx, "key", []byte("p"), time.Minute))
	require.NoError(t, ix.Register(ctx, "key", dims))

	first, err := ix.Invalidate(ctx, dims)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := ix.Invalidate(ctx, dims)
	require.NoError(t, err)
	assert.Empty(t, second, "repeat invalidation is a no-op")
}

func TestIndexReRegistrationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(64, nil)
	ix := NewDimensionIndex(store, "course", nil)

	dims := []domain.Dimension{{Name: "subject", Value: "7"}}
	require.NoError(t, ix.Register(ctx, "key", dims))
	require.NoError(t, ix.Register(ctx, "key", dims))

	members, err := ix.Members(ctx, dims[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"key"}, members)
}
