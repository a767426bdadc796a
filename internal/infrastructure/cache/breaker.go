package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerStore decorates a Store with a circuit breaker so a dead cache
// tier fails fast instead of adding its timeout to every read. Callers see
// ErrStoreUnavailable while the circuit is open and degrade to direct
// computation.
type BreakerStore struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewBreakerStore wraps inner with a circuit breaker named for logs.
func NewBreakerStore(inner Store, name string, logger *zap.Logger) *BreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerStore{inner: inner, breaker: cb, logger: logger}
}

func (s *BreakerStore) execute(op func() (interface{}, error)) (interface{}, error) {
	out, err := s.breaker.Execute(op)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrStoreUnavailable
	}
	return out, err
}

type getResult struct {
	payload []byte
	ok      bool
}

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.execute(func() (interface{}, error) {
		payload, ok, err := s.inner.Get(ctx, key)
		return getResult{payload: payload, ok: ok}, err
	})
	if err != nil {
		return nil, false, err
	}
	res := out.(getResult)
	return res.payload, res.ok, nil
}

func (s *BreakerStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.Set(ctx, key, payload, ttl)
	})
	return err
}

func (s *BreakerStore) Delete(ctx context.Context, keys ...string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.Delete(ctx, keys...)
	})
	return err
}

func (s *BreakerStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	out, err := s.execute(func() (interface{}, error) {
		return s.inner.SetNX(ctx, key, value, ttl)
	})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

func (s *BreakerStore) SAdd(ctx context.Context, key string, members ...string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.SAdd(ctx, key, members...)
	})
	return err
}

func (s *BreakerStore) SMembers(ctx context.Context, key string) ([]string, error) {
	out, err := s.execute(func() (interface{}, error) {
		return s.inner.SMembers(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

func (s *BreakerStore) SRem(ctx context.Context, key string, members ...string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.SRem(ctx, key, members...)
	})
	return err
}
