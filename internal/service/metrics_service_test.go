package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func TestMetricsServiceCacheHitRatio(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveCacheWrite(time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `classconnect_cache_lookups_total{result="hit"} 3`)
	assert.Contains(t, body, `classconnect_cache_lookups_total{result="miss"} 1`)
	assert.Contains(t, body, "classconnect_cache_hit_ratio 0.75")
	assert.Contains(t, body, `classconnect_cache_operation_seconds_count{op="set"} 1`)
}

func TestMetricsServiceDomainCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordLogin("teacher", true)
	m.RecordLogin("student", false)
	m.RecordTaskAssigned()
	m.RecordSubmission(true)
	m.RecordSubmission(false)
	m.ObserveHTTPRequest(http.MethodPost, "/classrooms/:classroomID/tasks", http.StatusCreated, 5*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `classconnect_logins_total{result="success",role="teacher"} 1`)
	assert.Contains(t, body, `classconnect_logins_total{result="failure",role="student"} 1`)
	assert.Contains(t, body, "classconnect_tasks_assigned_total 1")
	assert.Contains(t, body, `classconnect_submissions_total{result="failure"} 1`)
	assert.Contains(t, body, `classconnect_http_requests_total{method="POST",path="/classrooms/:classroomID/tasks",status="201"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordLogin("teacher", true)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
