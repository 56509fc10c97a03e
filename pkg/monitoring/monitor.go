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

	// RemoteRequestDuration 远程测验服务调用耗时
	RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_api_request_duration_seconds",
			Help:    "Duration of requests to the remote quiz API",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation", "status"},
	)

	TaskPollChecks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "task_poll_checks_total",
			Help: "Total number of task status checks",
		},
	)

	TaskPollOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_poll_outcomes_total",
			Help: "Terminal results of task polling by kind",
		},
		[]string{"kind"},
	)

	QuizCreationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_creation_outcomes_total",
			Help: "Classified quiz creation outcomes",
		},
		[]string{"kind"},
	)

	ExamSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_submissions_total",
			Help: "Submitted exam sessions by scorer and verdict",
		},
		[]string{"scored_by", "passed"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			RemoteRequestDuration,
			TaskPollChecks,
			TaskPollOutcomes,
			QuizCreationOutcomes,
			ExamSubmissions,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

// ObserveRemote 记录一次远程调用，status 为 0 表示网络错误
func ObserveRemote(operation string, status int, started time.Time) {
	label := strconv.Itoa(status)
	if status == 0 {
		label = "error"
	}
	RemoteRequestDuration.WithLabelValues(operation, label).Observe(time.Since(started).Seconds())
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
