package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// SubmissionCounter result: correct | incorrect | execution_failure
	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegrow_submissions_total",
			Help: "Code submissions by evaluation result",
		},
		[]string{"result"},
	)

	ExecutorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codegrow_executor_duration_seconds",
			Help:    "Latency of the remote code execution gateway",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"mode", "outcome"},
	)

	StreakEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegrow_streak_events_total",
			Help: "Streak transitions: advanced, kept, reset, decayed",
		},
		[]string{"event"},
	)

	TopicRecomputeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codegrow_topic_recompute_failures_total",
			Help: "Topic completion recomputations that failed after a task completion",
		},
	)

	TxRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codegrow_progress_tx_retries_total",
			Help: "Progress transactions retried after a conflict",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SubmissionCounter,
			ExecutorDuration,
			StreakEvents,
			TopicRecomputeFailures,
			TxRetries,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
