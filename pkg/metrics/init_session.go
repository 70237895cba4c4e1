package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSessionMetrics() {
	r.SessionsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphview_sessions_active",
			Help: "Current number of interactive websocket sessions",
		},
	)

	r.SessionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphview_sessions_total",
			Help: "Total number of interactive sessions opened",
		},
	)

	r.SessionMessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_session_messages_total",
			Help: "Websocket messages by direction and type",
		},
		[]string{"direction", "type"},
	)

	r.NotificationsPublished = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_notifications_published_total",
			Help: "Notifications fanned out to subscribers",
		},
		[]string{"topic"},
	)

	r.NotificationsDroppedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphview_notifications_dropped_total",
			Help: "Notifications dropped because a subscriber was full",
		},
	)
}
