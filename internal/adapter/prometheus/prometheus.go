package prometheus

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safaride", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "safaride",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	RideOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safaride", Name: "ride_operations_total", Help: "Ride lifecycle operations by outcome"},
		[]string{"op", "outcome"},
	)
	SideEffectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safaride", Name: "side_effect_failures_total", Help: "Post-commit cache or event failures"},
		[]string{"kind"},
	)
	SOSAlertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "safaride", Name: "sos_alerts_total", Help: "SOS alerts raised"},
	)
)

type PrometheusAdapter struct{}

func NewPrometheusAdapter() *PrometheusAdapter {
	return &PrometheusAdapter{}
}

// RecordMetrics is called by handlers once the response status is known.
func (p *PrometheusAdapter) RecordMetrics(c *gin.Context, start time.Time) {
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	status := strconv.Itoa(c.Writer.Status())
	HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
}

func (p *PrometheusAdapter) RecordRideOperation(op string, outcome string) {
	RideOperationsTotal.WithLabelValues(op, outcome).Inc()
}

func (p *PrometheusAdapter) RecordSideEffectFailure(kind string) {
	SideEffectFailuresTotal.WithLabelValues(kind).Inc()
}

func (p *PrometheusAdapter) RecordSOS() {
	SOSAlertsTotal.Inc()
}
