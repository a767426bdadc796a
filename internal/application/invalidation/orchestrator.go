// Package invalidation routes change events to the caches whose content
// they affect.
package invalidation

import (
	"context"

	"go.uber.org/zap"

	"tutorhub-backend/internal/domain"
	"tutorhub-backend/internal/infrastructure/cache"
)

// WarmFunc eagerly recomputes a hot-key payload after its invalidation.
type WarmFunc func(ctx context.Context) error

// route ties one feature cache to the entity kinds that can stale it and
// the dimension families its keys are indexed under.
type route struct {
	cache    *cache.ListCache
	entities map[domain.EntityKind]struct{}
	families []string
}

// Orchestrator subscribes to the change-event bus and translates each event
// into dimensional invalidations. Handling is idempotent and commutative:
// deleting absent keys and re-pruning empty index sets are no-ops, so
// duplicate or reordered deliveries converge on the same end state.
type Orchestrator struct {
	routes []route
	warm   map[string]WarmFunc
	logger *zap.Logger
}

// NewOrchestrator creates an orchestrator with no routes.
func NewOrchestrator(logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		warm:   make(map[string]WarmFunc),
		logger: logger,
	}
}

// Route registers a feature cache as dependent on the given entity kinds.
// families names the dimension families the cache indexes under; they are
// the fallback targets when an event carries no specific dimensions.
func (o *Orchestrator) Route(c *cache.ListCache, families []string, entities ...domain.EntityKind) {
	kinds := make(map[domain.EntityKind]struct{}, len(entities))
	for _, e := range entities {
		kinds[e] = struct{}{}
	}
	o.routes = append(o.routes, route{cache: c, entities: kinds, families: families})
}

// WarmAfter registers an eager recompute to run whenever the named feature
// is invalidated, keeping its hot key filled instead of waiting for the
// next reader to miss.
func (o *Orchestrator) WarmAfter(feature string, warm WarmFunc) {
	o.warm[feature] = warm
}

// Handle is the bus handler. Errors from one cache do not stop the others;
// the bus logs and drops whatever this returns.
func (o *Orchestrator) Handle(ctx context.Context, event domain.ChangeEvent) error {
	var firstErr error
	for _, r := range o.routes {
		if _, affected := r.entities[event.Entity]; !affected {
			continue
		}
		dims := o.dimensionsFor(r, event)
		if err := r.cache.InvalidateDimensions(ctx, dims); err != nil {
			o.logger.Warn("cache invalidation failed",
				zap.String("feature", r.cache.Feature()),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if warm, ok := o.warm[r.cache.Feature()]; ok {
			if err := warm(ctx); err != nil {
				o.logger.Warn("post-invalidation warmup failed",
					zap.String("feature", r.cache.Feature()),
					zap.Error(err),
				)
			}
		}
	}
	return firstErr
}

// dimensionsFor picks the event's dimensions when present, otherwise the
// wildcard of every family the cache indexes under, so an unannotated
// event still clears everything it could have touched.
func (o *Orchestrator) dimensionsFor(r route, event domain.ChangeEvent) []domain.Dimension {
	if len(event.AffectedDimensions) > 0 {
		return event.AffectedDimensions
	}
	dims := make([]domain.Dimension, 0, len(r.families))
	for _, f := range r.families {
		dims = append(dims, domain.All(f))
	}
	return dims
}
