// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	mutations    *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	rankWrites   *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// mutations counts task mutations by operation and result
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickplan_task_mutations_total",
			Help: "Task mutations by operation and result",
		}, []string{"operation", "result"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickplan_stats_cache_lookups_total",
			Help: "Aggregate cache lookups by outcome (hit, miss)",
		}, []string{"outcome"}),

		// rankWrites counts individual sort_order writes issued by reorders
		rankWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickplan_rank_writes_total",
			Help: "Sort order writes issued by reorders, by result",
		}, []string{"result"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quickplan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"method", "route", "status"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Mutation records one mutating operation.
func (m *Metrics) Mutation(operation string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation, result(err)).Inc()
}

// CacheLookup records a stats cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

// RankWrites records the committed and failed writes of a reorder.
func (m *Metrics) RankWrites(committed, failed int) {
	if m == nil {
		return
	}
	m.rankWrites.WithLabelValues("ok").Add(float64(committed))
	m.rankWrites.WithLabelValues("error").Add(float64(failed))
}

// ObserveHTTP records the duration of one request.
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}
