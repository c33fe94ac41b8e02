// Package metrics holds the prometheus collectors for the query executor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheDisabled = "disabled"
	CacheError    = "error"
)

// Metrics groups the executor collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// CacheLookups counts cache lookups by result
	CacheLookups *prometheus.CounterVec

	// Attempts counts operation invocations, first attempts included
	Attempts prometheus.Counter

	// Retries counts scheduled retries
	Retries prometheus.Counter

	// Failures counts final classified failures by kind
	Failures *prometheus.CounterVec

	// Invalidations counts cache invalidation calls by mode
	Invalidations *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer to
// expose them globally or a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cache_lookups_total",
				Help: "Total number of cache lookups by result",
			},
			[]string{"result"},
		),
		Attempts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "storefront_query_attempts_total",
				Help: "Total number of query operation invocations",
			},
		),
		Retries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "storefront_query_retries_total",
				Help: "Total number of scheduled query retries",
			},
		),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_query_failures_total",
				Help: "Total number of failed queries by error kind",
			},
			[]string{"kind"},
		),
		Invalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cache_invalidations_total",
				Help: "Total number of cache invalidation calls by mode",
			},
			[]string{"mode"},
		),
	}
}

func (m *Metrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAttempt() {
	if m == nil {
		return
	}
	m.Attempts.Inc()
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) ObserveFailure(kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveInvalidation(mode string) {
	if m == nil {
		return
	}
	m.Invalidations.WithLabelValues(mode).Inc()
}
