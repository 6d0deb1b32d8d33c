package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	MessagesStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_stored_total",
			Help: "Total number of persisted chat messages.",
		},
	)

	MessageHistoryFetchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_history_fetched_total",
			Help: "Total number of history fetch operations.",
		},
	)

	ChannelConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "channel_connections_active",
			Help: "Currently open realtime channel connections.",
		},
	)

	ChannelEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_events_total",
			Help: "Channel events processed, by event type.",
		},
		[]string{"event"},
	)

	PushDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_dispatch_total",
			Help: "Push dispatch outcomes, by result.",
		},
		[]string{"result"},
	)

	PushTokenFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "push_token_failures_total",
			Help: "Per-token push delivery failures.",
		},
	)

	RegistryListFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_list_failures_total",
			Help: "Storage faults swallowed by token listing.",
		},
	)
)

func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		MessagesStoredTotal,
		MessageHistoryFetchedTotal,
		ChannelConnectionsActive,
		ChannelEventsTotal,
		PushDispatchTotal,
		PushTokenFailuresTotal,
		RegistryListFailuresTotal,
	)
}
