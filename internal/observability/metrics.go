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
			Name: "channelbox_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "channelbox_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "channelbox_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelbox_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"kind", "event"},
	)
	wsSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelbox_ws_sends_total",
			Help: "Per-member send attempts by result.",
		},
		[]string{"result"},
	)
	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelbox_group_sends_total",
			Help: "Group broadcasts by status.",
		},
		[]string{"status"},
	)
	groupsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "channelbox_groups",
			Help: "Number of groups with at least one member.",
		},
	)
	expiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "channelbox_expired_members_total",
			Help: "Members removed by the expiry sweep.",
		},
	)
	historyResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "channelbox_history_resets_total",
			Help: "Group histories reset after exceeding the size budget.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "channelbox_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		wsSendsTotal,
		broadcastsTotal,
		groupsActive,
		expiredTotal,
		historyResetsTotal,
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

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncWSSend(result string) {
	wsSendsTotal.WithLabelValues(result).Inc()
}

func IncBroadcast(status string) {
	broadcastsTotal.WithLabelValues(status).Inc()
}

func SetGroups(n int) {
	groupsActive.Set(float64(n))
}

func AddExpired(n int) {
	expiredTotal.Add(float64(n))
}

func IncHistoryReset() {
	historyResetsTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
