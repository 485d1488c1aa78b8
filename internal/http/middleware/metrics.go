package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Labels use the route template, never the raw path, so message ids do not
// explode cardinality.
var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slack_scheduler",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slack_scheduler",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"method", "route"},
	)
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "slack_scheduler",
			Subsystem: "http",
			Name:      "requests_inflight",
			Help:      "HTTP requests currently being served.",
		},
	)
	httpReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slack_scheduler",
			Subsystem: "http",
			Name:      "idempotent_replays_total",
			Help:      "Requests answered from an earlier Idempotency-Key, by route.",
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, httpInflight, httpReplays)
}

// Metrics records request count, latency, concurrency and idempotent replays.
// The replay flag is read after the chain returns, so its position relative to
// IdempotencyValidator does not matter.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInflight.Inc()
		start := time.Now()
		defer httpInflight.Dec()

		c.Next()

		route := routeOf(c)
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if IsReplay(c) {
			httpReplays.WithLabelValues(route).Inc()
		}
	}
}
