package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryStore implements Store in process memory with LRU eviction.
// It backs tests and the degraded single-instance mode; it is not shared
// across instances, so dimensional invalidation only reaches the local
// process when this store is in use.
type MemoryStore struct {
	mu          sync.Mutex
	items       map[string]*memoryItem
	sets        map[string]map[string]struct{}
	lruList     *list.List
	maxItems    int
	currentSize int64

	hits      int64
	misses    int64
	evictions int64

	logger *zap.Logger
}

type memoryItem struct {
	key        string
	value      []byte
	size       int64
	expiry     time.Time
	lruElement *list.Element
}

// NewMemoryStore creates an in-memory store holding at most maxItems values.
func NewMemoryStore(maxItems int, logger *zap.Logger) *MemoryStore {
	if maxItems <= 0 {
		maxItems = 4096
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		items:    make(map[string]*memoryItem),
		sets:     make(map[string]map[string]struct{}),
		lruList:  list.New(),
		maxItems: maxItems,
		logger:   logger,
	}
}

// Get retrieves a value, expiring it lazily if past its TTL.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[key]
	if !exists {
		s.misses++
		return nil, false, nil
	}
	if time.Now().After(item.expiry) {
		s.removeItem(item)
		s.misses++
		return nil, false, nil
	}

	if item.lruElement != nil {
		s.lruList.MoveToFront(item.lruElement)
	}
	s.hits++

	value := make([]byte, len(item.value))
	copy(value, item.value)
	return value, true, nil
}

// Set stores a value with the jittered TTL, evicting the LRU tail as needed.
func (s *MemoryStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, string(payload), ttl)
	return nil
}

func (s *MemoryStore) setLocked(key, value string, ttl time.Duration) {
	if existing, exists := s.items[key]; exists {
		s.removeItem(existing)
	}

	for len(s.items) >= s.maxItems && s.lruList.Len() > 0 {
		oldest := s.lruList.Back()
		if oldest != nil {
			s.removeItem(oldest.Value.(*memoryItem))
			s.evictions++
		}
	}

	item := &memoryItem{
		key:    key,
		value:  []byte(value),
		size:   int64(len(key) + len(value)),
		expiry: time.Now().Add(jitterTTL(ttl)),
	}
	item.lruElement = s.lruList.PushFront(item)
	s.items[key] = item
	s.currentSize += item.size
}

// Delete removes keys; absent keys are a no-op.
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if item, exists := s.items[key]; exists {
			s.removeItem(item)
		}
	}
	return nil
}

// SetNX creates key only if absent or expired, without jitter: lock TTLs
// must be exact. SetNX entries stay off the LRU list so payload fill
// pressure can never evict a held lock before its TTL.
func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, exists := s.items[key]; exists {
		if time.Now().Before(item.expiry) {
			return false, nil
		}
		s.removeItem(item)
	}

	item := &memoryItem{
		key:    key,
		value:  []byte(value),
		size:   int64(len(key) + len(value)),
		expiry: time.Now().Add(ttl),
	}
	s.items[key] = item
	s.currentSize += item.size
	return true, nil
}

// SAdd adds members to a set.
func (s *MemoryStore) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, exists := s.sets[key]
	if !exists {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

// SMembers lists a set's members; absent sets are empty.
func (s *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	return members, nil
}

// SRem removes members from a set; non-members are a no-op.
func (s *MemoryStore) SRem(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, exists := s.sets[key]
	if !exists {
		return nil
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return nil
}

func (s *MemoryStore) removeItem(item *memoryItem) {
	if item.lruElement != nil {
		s.lruList.Remove(item.lruElement)
	}
	delete(s.items, item.key)
	s.currentSize -= item.size
}

// Stats reports hit/miss/eviction counters.
func (s *MemoryStore) Stats() (hits, misses, evictions int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses, s.evictions
}
