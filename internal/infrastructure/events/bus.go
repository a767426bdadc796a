// Package events provides the in-process change-event bus that decouples
// write transactions from cache invalidation.
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tutorhub-backend/internal/domain"
)

// Handler consumes a change event. Handlers must be idempotent and
// commutative: delivery is at-least-once and independent events may arrive
// out of order. A handler error is logged and dropped; there is no retry
// queue.
type Handler func(ctx context.Context, event domain.ChangeEvent) error

// Bus is a bounded in-process publish/subscribe channel feeding a worker
// pool. Publish is fire-and-forget from the write path's perspective: the
// caller's transaction has already committed and never waits on listeners.
type Bus struct {
	queue   chan domain.ChangeEvent
	workers int

	mu       sync.RWMutex
	handlers []Handler

	wg     sync.WaitGroup
	done   chan struct{}
	closed sync.Once

	dropped int64
	logger  *zap.Logger
}

// BusConfig sizes the bus.
type BusConfig struct {
	QueueSize int
	Workers   int
}

// NewBus creates the bus and starts its worker pool.
func NewBus(cfg BusConfig, logger *zap.Logger) *Bus {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		queue:   make(chan domain.ChangeEvent, cfg.QueueSize),
		workers: cfg.Workers,
		done:    make(chan struct{}),
		logger:  logger,
	}
	for i := 0; i < cfg.Workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

// Subscribe registers a handler for every subsequent event. Registration
// happens at startup, before traffic; it is not safe to assume a handler
// sees events published before it subscribed.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues an event and returns immediately. When the queue is
// full the event is dropped and logged; the distributed tier's TTL is the
// backstop for the invalidation that never ran.
func (b *Bus) Publish(event domain.ChangeEvent) {
	select {
	case b.queue <- event:
	default:
		b.mu.Lock()
		b.dropped++
		dropped := b.dropped
		b.mu.Unlock()
		b.logger.Error("event queue full, dropping change event",
			zap.String("event_id", event.ID),
			zap.String("entity", string(event.Entity)),
			zap.Int64("dropped_total", dropped),
		)
	}
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case event := <-b.queue:
			b.dispatch(event)
		case <-b.done:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case event := <-b.queue:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(event domain.ChangeEvent) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, h := range handlers {
		b.invoke(ctx, h, event)
	}
}

func (b *Bus) invoke(ctx context.Context, h Handler, event domain.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event_id", event.ID),
				zap.Any("panic", r),
			)
		}
	}()
	if err := h(ctx, event); err != nil {
		// Invalidation is best-effort; the write that triggered this event
		// has already committed and must not observe the failure.
		b.logger.Warn("event handler failed, dropping",
			zap.String("event_id", event.ID),
			zap.String("entity", string(event.Entity)),
			zap.String("change", string(event.Change)),
			zap.Error(err),
		)
	}
}

// Close stops the workers after draining the queue.
func (b *Bus) Close() {
	b.closed.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
}
