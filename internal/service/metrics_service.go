package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "classconnect"

// MetricsService owns a private Prometheus registry with HTTP, listing cache and classroom activity collectors.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec

	cacheLookups *prometheus.CounterVec
	cacheLatency *prometheus.HistogramVec

	logins        *prometheus.CounterVec
	tasksAssigned prometheus.Counter
	submissions   *prometheus.CounterVec

	hits, lookups atomic.Uint64
}

// NewMetricsService registers every collector on a fresh registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.httpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern and status.",
	}, []string{"method", "path", "status"})

	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Classroom listing cache lookups by result.",
	}, []string{"result"})
	m.cacheLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "operation_seconds",
		Help:      "Latency of listing cache reads and writes.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	}, []string{"op"})
	hitRatio := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "hit_ratio",
		Help:      "Share of listing lookups served from cache.",
	}, m.hitRatio)

	m.logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "logins_total",
		Help:      "Login attempts by role and outcome.",
	}, []string{"role", "result"})
	m.tasksAssigned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "tasks_assigned_total",
		Help:      "Tasks assigned to classrooms.",
	})
	m.submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "submissions_total",
		Help:      "Submission attempts that reached file storage, by outcome.",
	}, []string{"result"})

	m.registry.MustRegister(
		m.httpDuration, m.httpTotal,
		m.cacheLookups, m.cacheLatency, hitRatio,
		m.logins, m.tasksAssigned, m.submissions,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the registry in the Prometheus text format. A nil service answers 503.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one completed request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, path, code).Inc()
}

// RecordCacheOperation records a listing cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	m.lookups.Add(1)
	if hit {
		m.hits.Add(1)
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveCacheWrite records a listing cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

// RecordLogin counts a login attempt.
func (m *MetricsService) RecordLogin(role string, success bool) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(role, outcome(success)).Inc()
}

// RecordTaskAssigned counts a created task.
func (m *MetricsService) RecordTaskAssigned() {
	if m == nil {
		return
	}
	m.tasksAssigned.Inc()
}

// RecordSubmission counts a submission attempt that reached the storage step.
func (m *MetricsService) RecordSubmission(success bool) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome(success)).Inc()
}

func (m *MetricsService) hitRatio() float64 {
	total := m.lookups.Load()
	if total == 0 {
		return 0
	}
	return float64(m.hits.Load()) / float64(total)
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
