package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	logsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "anchorlog_logs_total",
		Help: "Log records by anchor status, as of the last stats request.",
	}, []string{"status"})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorlog_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "anchorlog_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	anchorAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorlog_anchor_attempts_total",
		Help: "Ledger anchoring attempts by outcome.",
	}, []string{"result"})

	healthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorlog_health_checks_total",
		Help: "Dependency health probes by component and result.",
	}, []string{"component", "result"})

	retentionDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anchorlog_retention_deleted_total",
		Help: "Log records removed by retention sweeps.",
	})

	webhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorlog_webhook_deliveries_total",
		Help: "Webhook delivery attempts by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		requestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAnchorAttempt records one anchoring outcome. It matches
// anchor.Observer.
func RecordAnchorAttempt(result string) {
	anchorAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordHealthCheck records a dependency probe result. It matches
// health.MetricsRecordFunc.
func RecordHealthCheck(component string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	healthChecksTotal.WithLabelValues(component, result).Inc()
}

// RecordRetentionDeleted adds n to the retention deletion counter.
func RecordRetentionDeleted(n int64) {
	if n > 0 {
		retentionDeletedTotal.Add(float64(n))
	}
}

// RecordWebhookDelivery records one webhook delivery attempt. It matches
// webhooks.MetricsRecorder.
func RecordWebhookDelivery(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	webhookDeliveriesTotal.WithLabelValues(result).Inc()
}

// SetLogsGauge publishes the per-status record counts from st.
func SetLogsGauge(st *model.Stats) {
	logsTotal.WithLabelValues(string(model.AnchorStatusPending)).Set(float64(st.PendingLogs))
	logsTotal.WithLabelValues(string(model.AnchorStatusConfirmed)).Set(float64(st.ConfirmedLogs))
	logsTotal.WithLabelValues(string(model.AnchorStatusFailed)).Set(float64(st.FailedLogs))
}
