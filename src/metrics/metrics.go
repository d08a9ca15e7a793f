// Package metrics provides Prometheus metrics for the resource directory.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters shared by the query and persistence engines.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	QueriesTotal       *prometheus.CounterVec
	CacheRequestsTotal *prometheus.CounterVec
	StoreWritesTotal   *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resourcedirectory_queries_total",
				Help: "Total number of resource queries by retrieval path",
			},
			[]string{"path"},
		),
		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resourcedirectory_cache_requests_total",
				Help: "Resource cache lookups by result",
			},
			[]string{"result"},
		),
		StoreWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resourcedirectory_store_writes_total",
				Help: "Document store writes by operation and status",
			},
			[]string{"operation", "status"},
		),
	}
}

func (m *Metrics) RecordQuery(path string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(path).Inc()
}

func (m *Metrics) RecordCache(result string) {
	if m == nil {
		return
	}
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordWrite(operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StoreWritesTotal.WithLabelValues(operation, status).Inc()
}
