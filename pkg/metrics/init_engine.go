package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.SimulationTicksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_simulation_ticks_total",
			Help: "Total number of force simulation steps",
		},
		[]string{"host"},
	)

	r.TickDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphview_simulation_tick_duration_seconds",
			Help:    "Duration of one force simulation step",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
		[]string{"host"},
	)

	r.FramesRenderedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_frames_rendered_total",
			Help: "Total number of frames drawn",
		},
		[]string{"host", "surface"},
	)

	r.RenderDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphview_render_duration_seconds",
			Help:    "Duration of one frame render",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"surface"},
	)

	r.KineticEnergy = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphview_kinetic_energy",
			Help: "Sum of squared node velocities after the last tick",
		},
		[]string{"host"},
	)

	r.ModelNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphview_model_nodes",
			Help: "Number of nodes in the current graph model",
		},
		[]string{"host"},
	)

	r.ModelEdges = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphview_model_edges",
			Help: "Number of edges in the current graph model",
		},
		[]string{"host"},
	)

	r.ModelRebuildsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_model_rebuilds_total",
			Help: "Total number of graph model rebuilds",
		},
		[]string{"host"},
	)

	r.DroppedEdgesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_dropped_edges_total",
			Help: "Relations dropped for a missing endpoint",
		},
		[]string{"host"},
	)

	r.SchedulerState = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphview_scheduler_state",
			Help: "1 for the scheduler state the host is in, 0 otherwise",
		},
		[]string{"host", "state"},
	)
}
