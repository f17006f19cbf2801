package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce                   sync.Once
	httpRequestsTotal              *prometheus.CounterVec
	httpLatencySeconds             *prometheus.HistogramVec
	httpErrorsTotal                *prometheus.CounterVec
	readStateAdvancementsTotal     prometheus.Counter
	readStateNoopsTotal            prometheus.Counter
	notificationsReconciledTotal   prometheus.Counter
	threadReconciliationRunsTotal  prometheus.Counter
	threadReplyCountUpdatesTotal   prometheus.Counter
	trackingBroadcastsTotal        prometheus.Counter
	trackingConnectionsTotal       prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chat_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		readStateAdvancementsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_read_state_advancements_total",
			Help: "Total number of successful last-read pointer advancements.",
		})

		readStateNoopsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_read_state_noops_total",
			Help: "Advancements that resolved to a no-op because a larger pointer already committed.",
		})

		notificationsReconciledTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_notifications_reconciled_total",
			Help: "Mention notifications marked read by pointer advancements.",
		})

		threadReconciliationRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_thread_reconciliation_runs_total",
			Help: "Total number of thread reply-count reconciliation passes.",
		})

		threadReplyCountUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_thread_reply_count_updates_total",
			Help: "Cached reply counts rewritten because they drifted from the message log.",
		})

		trackingBroadcastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_tracking_broadcasts_total",
			Help: "Read-state updates broadcast to per-user tracking channels.",
		})

		trackingConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_tracking_connections_total",
			Help: "Total number of tracking websocket sessions accepted.",
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			readStateAdvancementsTotal, readStateNoopsTotal, notificationsReconciledTotal,
			threadReconciliationRunsTotal, threadReplyCountUpdatesTotal,
			trackingBroadcastsTotal, trackingConnectionsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ReadStateAdvancements exposes the counter for successful advancements.
func ReadStateAdvancements() prometheus.Counter {
	RegisterMetrics()
	return readStateAdvancementsTotal
}

// ReadStateNoops exposes the counter for no-op advancements.
func ReadStateNoops() prometheus.Counter {
	RegisterMetrics()
	return readStateNoopsTotal
}

// NotificationsReconciled exposes the counter for notifications marked read.
func NotificationsReconciled() prometheus.Counter {
	RegisterMetrics()
	return notificationsReconciledTotal
}

// ThreadReconciliationRuns exposes the counter for reconciliation passes.
func ThreadReconciliationRuns() prometheus.Counter {
	RegisterMetrics()
	return threadReconciliationRunsTotal
}

// ThreadReplyCountUpdates exposes the counter for rewritten reply counts.
func ThreadReplyCountUpdates() prometheus.Counter {
	RegisterMetrics()
	return threadReplyCountUpdatesTotal
}

// TrackingBroadcasts exposes the counter for tracking broadcasts.
func TrackingBroadcasts() prometheus.Counter {
	RegisterMetrics()
	return trackingBroadcastsTotal
}

// TrackingConnections exposes the counter for accepted tracking sessions.
func TrackingConnections() prometheus.Counter {
	RegisterMetrics()
	return trackingConnectionsTotal
}
