package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics holds HTTP server metrics. A nil *HTTPMetrics records nothing.
type HTTPMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	activeRequests  *prometheus.GaugeVec
}

// NewHTTPMetrics creates HTTP server metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)

	return &HTTPMetrics{
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "http",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "http",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		activeRequests: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "http",
			Subsystem: "server",
			Name:      "active_requests",
			Help:      "Number of HTTP requests in flight.",
		}, []string{"method", "route"}),
	}
}

// RequestMetrics returns middleware recording m for every request. Routes
// are labelled by their pattern; unmatched requests share an empty route.
func RequestMetrics(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		method, route := c.Request.Method, c.FullPath()

		active := m.activeRequests.WithLabelValues(method, route)
		active.Inc()
		defer active.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.requestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
		m.requestTotal.WithLabelValues(method, route, status).Inc()
	}
}
