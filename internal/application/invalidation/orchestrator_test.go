package invalidation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhub-backend/internal/domain"
	"tutorhub-backend/internal/infrastructure/cache"
)

func fillListing(t *testing.T, c *cache.ListCache, dims []domain.Dimension) string {
	t.Helper()
	_, err := c.GetList(context.Background(), 1, 20, dims, func(ctx context.Context) ([]byte, error) {
		return []byte("payload"), nil
	})
	require.NoError(t, err)
	return cache.ListKey(c.Feature(), 1, 20, dims)
}

func newListingCache(store cache.Store, feature string) *cache.ListCache {
	return cache.NewListCache(store, nil, cache.ListCacheConfig{
		Feature: feature,
		TTL:     time.Minute,
		LockTTL: 5 * time.Second,
	}, nil, nil)
}

func TestHandleInvalidatesRoutedCaches(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(64, nil)
	courses := newListingCache(store, "course")

	gradeFive := []domain.Dimension{{Name: "grade", Value: "5"}, domain.All("subject")}
	key := fillListing(t, courses, gradeFive)

	o := NewOrchestrator(nil)
	o.Route(courses, []string{"subject", "grade"}, domain.EntityCourse, domain.EntityGrade)

	event := domain.NewChangeEvent(domain.EntityCourse, domain.ChangeUpdate,
		domain.Dimension{Name: "grade", Value: "5"})
	require.NoError(t, o.Handle(ctx, event))

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "routed cache must lose the key")
}

func TestHandleIgnoresUnroutedEntities(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(64, nil)
	courses := newListingCache(store, "course")

	dims := []domain.Dimension{{Name: "grade", Value: "5"}, domain.All("subject")}
	key := fillListing(t, courses, dims)

	o := NewOrchestrator(nil)
	o.Route(courses, []string{"subject", "grade"}, domain.EntityCourse)

	event := domain.NewChangeEvent(domain.EntityTeacher, domain.ChangeFlag)
	require.NoError(t, o.Handle(ctx, event))

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "unrelated entities leave the cache alone")
}

func TestHandleUnannotatedEventClearsWildcards(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(64, nil)
	courses := newListingCache(store, "course")

	// A listing filtered in both families never joins a wildcard index set;
	// the unfiltered listing joins both.
	filtered := fillListing(t, courses, []domain.Dimension{
		{Name: "grade", Value: "5"}, {Name: "subject", Value: "7"}})
	unfiltered := fillListing(t, courses, []domain.Dimension{domain.All("grade"), domain.All("subject")})

	o := NewOrchestrator(nil)
	o.Route(courses, []string{"subject", "grade"}, domain.EntityCourse)

	// No dimensions on the event: every family falls back to its wildcard.
	event := domain.NewChangeEvent(domain.EntityCourse, domain.ChangeCreate)
	require.NoError(t, o.Handle(ctx, event))

	_, ok, _ := store.Get(ctx, unfiltered)
	assert.False(t, ok, "wildcard-indexed keys must be cleared")
	_, ok, _ = store.Get(ctx, filtered)
	assert.True(t, ok, "value-specific keys are out of an unannotated event's reach")
}

func TestHandleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(64, nil)
	courses := newListingCache(store, "course")

	dims := []domain.Dimension{{Name: "grade", Value: "5"}, domain.All("subject")}
	fillListing(t, courses, dims)

	o := NewOrchestrator(nil)
	o.Route(courses, []string{"subject", "grade"}, domain.EntityCourse)

	event := domain.NewChangeEvent(domain.EntityCourse, domain.ChangeUpdate,
		domain.Dimension{Name: "grade", Value: "5"})
	require.NoError(t, o.Handle(ctx, event))
	require.NoError(t, o.Handle(ctx, event), "redelivery must be a clean no-op")
}

func TestWarmAfterRunsOnInvalidation(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(64, nil)
	teachers := newListingCache(store, "teacher")

	dims := []domain.Dimension{domain.All("teacher")}
	_, err := teachers.GetHot(ctx, "featured", dims, func(ctx context.Context) ([]byte, error) {
		return []byte("v1"), nil
	})
	require.NoError(t, err)

	o := NewOrchestrator(nil)
	o.Route(teachers, []string{"teacher"}, domain.EntityTeacher)

	warmed := 0
	o.WarmAfter("teacher", func(ctx context.Context) error {
		warmed++
		_, err := teachers.GetHot(ctx, "featured", dims, func(ctx context.Context) ([]byte, error) {
			return []byte("v2"), nil
		})
		return err
	})

	event := domain.NewChangeEvent(domain.EntityTeacher, domain.ChangeFlag)
	require.NoError(t, o.Handle(ctx, event))

	assert.Equal(t, 1, warmed)
	payload, ok, err := store.Get(ctx, cache.HotKey("teacher", "featured"))
	require.NoError(t, err)
	require.True(t, ok, "warm hook refills the hot key eagerly")
	assert.Equal(t, []byte("v2"), payload)
}
