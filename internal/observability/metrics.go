package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convindex_http_requests_total",
			Help: "Total number of HTTP requests processed by the conversation index service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convindex_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	indexActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "convindex_active_sessions",
			Help: "Number of live conversation index sessions.",
		},
	)
	indexRecomputesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convindex_recomputes_total",
			Help: "Total number of conversation list recomputations.",
		},
		[]string{"outcome"},
	)
	indexRecomputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "convindex_recompute_duration_seconds",
			Help:    "Conversation list recompute latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	roomSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "convindex_room_subscriptions",
			Help: "Number of active per-room latest-message subscriptions.",
		},
	)
	notifyEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convindex_notify_events_total",
			Help: "Total number of Postgres notifications dispatched.",
		},
		[]string{"channel"},
	)
	notifyErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "convindex_notify_errors_total",
			Help: "Total number of Postgres listener errors.",
		},
	)
	invariantViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convindex_invariant_violations_total",
			Help: "Total number of malformed records excluded from merges.",
		},
		[]string{"kind"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "convindex_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convindex_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "convindex_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		indexActiveSessions,
		indexRecomputesTotal,
		indexRecomputeDuration,
		roomSubscriptions,
		notifyEventsTotal,
		notifyErrorsTotal,
		invariantViolationsTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncActiveSessions() {
	indexActiveSessions.Inc()
}

func DecActiveSessions() {
	indexActiveSessions.Dec()
}

func ObserveRecompute(outcome string, duration time.Duration) {
	indexRecomputesTotal.WithLabelValues(outcome).Inc()
	indexRecomputeDuration.Observe(duration.Seconds())
}

func IncRoomSubscriptions() {
	roomSubscriptions.Inc()
}

func DecRoomSubscriptions() {
	roomSubscriptions.Dec()
}

func IncNotifyEvent(channel string) {
	notifyEventsTotal.WithLabelValues(channel).Inc()
}

func IncNotifyError() {
	notifyErrorsTotal.Inc()
}

func IncInvariantViolation(kind string) {
	invariantViolationsTotal.WithLabelValues(kind).Inc()
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
