package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSourceMetrics() {
	r.SourceLoadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_source_loads_total",
			Help: "Total number of relation source loads",
		},
		[]string{"source", "status"},
	)

	r.SourceLoadDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphview_source_load_duration_seconds",
			Help:    "Relation source load latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	r.SourceRecordsLoaded = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphview_source_records",
			Help: "Relation records returned by the last successful load",
		},
		[]string{"source"},
	)

	r.SourceRecordsSkipped = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_source_records_skipped_total",
			Help: "Relation records rejected by validation",
		},
		[]string{"source"},
	)
}
