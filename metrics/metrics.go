package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the push worker.
var (
	PushEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_events_total",
			Help: "Push events handled, by outcome (displayed, fallback, dropped, failed)",
		},
		[]string{"outcome"},
	)

	NotificationEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_events_total",
			Help: "Notification lifecycle events recorded, by kind",
		},
		[]string{"event"},
	)

	TrackingFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_tracking_failures_total",
			Help: "Lifecycle events that could not be written to the event cache",
		},
	)

	ClientRoutesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_client_routes_total",
			Help: "Notification click routing results (focused, opened, none, failed)",
		},
		[]string{"result"},
	)

	EventCacheEntriesRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_event_cache_removed_total",
			Help: "Event cache entries removed, by reason (synced, expired)",
		},
		[]string{"reason"},
	)

	HandlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "service_worker_handler_duration_seconds",
			Help:    "Duration of service worker handlers",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(PushEventsTotal)
	prometheus.MustRegister(NotificationEventsTotal)
	prometheus.MustRegister(TrackingFailuresTotal)
	prometheus.MustRegister(ClientRoutesTotal)
	prometheus.MustRegister(EventCacheEntriesRemoved)
	prometheus.MustRegister(HandlerDuration)
}
