package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks cache effectiveness per feature and tier.
type Metrics struct {
	lookups       *prometheus.CounterVec
	recomputes    *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	evictedKeys   prometheus.Counter
}

// NewMetrics registers the cache metric family on reg. A nil registry
// yields inert metrics, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorhub",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by feature, tier (local, store) and outcome (hit, miss, error).",
		}, []string{"feature", "tier", "outcome"}),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorhub",
			Subsystem: "cache",
			Name:      "recomputes_total",
			Help:      "Recompute executions by feature and mode (singleflight, fallback).",
		}, []string{"feature", "mode"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorhub",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Dimensional invalidations processed, by feature.",
		}, []string{"feature"}),
		evictedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tutorhub",
			Subsystem: "cache",
			Name:      "invalidated_keys_total",
			Help:      "Cache keys deleted by dimensional invalidation.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.lookups, m.recomputes, m.invalidations, m.evictedKeys)
	}
	return m
}

func (m *Metrics) lookup(feature, tier, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(feature, tier, outcome).Inc()
}

func (m *Metrics) recompute(feature, mode string) {
	if m == nil {
		return
	}
	m.recomputes.WithLabelValues(feature, mode).Inc()
}

func (m *Metrics) invalidated(feature string, keys int) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(feature).Inc()
	m.evictedKeys.Add(float64(keys))
}
