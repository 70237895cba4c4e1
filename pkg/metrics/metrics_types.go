package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Engine Metrics, labelled by host (server, session, tui, cli)
	SimulationTicksTotal *prometheus.CounterVec
	TickDuration         *prometheus.HistogramVec
	FramesRenderedTotal  *prometheus.CounterVec
	RenderDuration       *prometheus.HistogramVec
	KineticEnergy        *prometheus.GaugeVec
	ModelNodes           *prometheus.GaugeVec
	ModelEdges           *prometheus.GaugeVec
	ModelRebuildsTotal   *prometheus.CounterVec
	DroppedEdgesTotal    *prometheus.CounterVec
	SchedulerState       *prometheus.GaugeVec

	// Source Metrics
	SourceLoadsTotal     *prometheus.CounterVec
	SourceLoadDuration   *prometheus.HistogramVec
	SourceRecordsLoaded  *prometheus.GaugeVec
	SourceRecordsSkipped *prometheus.CounterVec

	// Session Metrics
	SessionsActive            prometheus.Gauge
	SessionsTotal             prometheus.Counter
	SessionMessagesTotal      *prometheus.CounterVec
	NotificationsPublished    *prometheus.CounterVec
	NotificationsDroppedTotal prometheus.Counter

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry  *prometheus.Registry
	startTime time.Time
	mu        sync.Mutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	r.initHTTPMetrics()
	r.initEngineMetrics()
	r.initSourceMetrics()
	r.initSessionMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
