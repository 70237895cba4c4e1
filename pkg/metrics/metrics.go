package metrics

import (
	"runtime"
	"time"
)

// Scheduler states as exported on graphview_scheduler_state
var schedulerStates = []string{"idle", "running", "paused"}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordTick records one simulation step and the energy left afterwards
func (r *Registry) RecordTick(host string, duration time.Duration, energy float64) {
	r.SimulationTicksTotal.WithLabelValues(host).Inc()
	r.TickDuration.WithLabelValues(host).Observe(duration.Seconds())
	r.KineticEnergy.WithLabelValues(host).Set(energy)
}

// RecordRender records one drawn frame
func (r *Registry) RecordRender(host, surface string, duration time.Duration) {
	r.FramesRenderedTotal.WithLabelValues(host, surface).Inc()
	r.RenderDuration.WithLabelValues(surface).Observe(duration.Seconds())
}

// RecordModel records a model rebuild
func (r *Registry) RecordModel(host string, nodes, edges, dropped int) {
	r.ModelRebuildsTotal.WithLabelValues(host).Inc()
	r.ModelNodes.WithLabelValues(host).Set(float64(nodes))
	r.ModelEdges.WithLabelValues(host).Set(float64(edges))
	if dropped > 0 {
		r.DroppedEdgesTotal.WithLabelValues(host).Add(float64(dropped))
	}
}

// SetSchedulerState marks state as the current scheduler state of host
func (r *Registry) SetSchedulerState(host, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range schedulerStates {
		r.SchedulerState.WithLabelValues(host, s).Set(0)
	}
	r.SchedulerState.WithLabelValues(host, state).Set(1)
}

// RecordSourceLoad records a relation source load
func (r *Registry) RecordSourceLoad(source, status string, duration time.Duration, records, skipped int) {
	r.SourceLoadsTotal.WithLabelValues(source, status).Inc()
	r.SourceLoadDuration.WithLabelValues(source).Observe(duration.Seconds())
	if status == "success" {
		r.SourceRecordsLoaded.WithLabelValues(source).Set(float64(records))
	}
	if skipped > 0 {
		r.SourceRecordsSkipped.WithLabelValues(source).Add(float64(skipped))
	}
}

// SessionOpened records a new interactive session
func (r *Registry) SessionOpened() {
	r.SessionsActive.Inc()
	r.SessionsTotal.Inc()
}

// SessionClosed records the end of an interactive session
func (r *Registry) SessionClosed() {
	r.SessionsActive.Dec()
}

// RecordSessionMessage counts a websocket message; direction is "in" or "out"
func (r *Registry) RecordSessionMessage(direction, msgType string) {
	r.SessionMessagesTotal.WithLabelValues(direction, msgType).Inc()
}

// RecordNotification counts a published notification
func (r *Registry) RecordNotification(topic string, dropped int) {
	r.NotificationsPublished.WithLabelValues(topic).Inc()
	if dropped > 0 {
		r.NotificationsDroppedTotal.Add(float64(dropped))
	}
}

// UpdateSystemMetrics refreshes the process gauges
func (r *Registry) UpdateSystemMetrics() {
	r.UptimeSeconds.Set(time.Since(r.startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}

// RecordResponseSize records the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight marks the start of a request
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks the end of a request
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}
