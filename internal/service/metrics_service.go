package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the admin data API.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	storeDuration    *prometheus.HistogramVec
	versionConflicts *prometheus.CounterVec
	bulkRecords      *prometheus.CounterVec
	rateLimited      prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "record_store_operation_seconds",
		Help:    "Duration of persistence operations by entity, operation and outcome",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity", "operation", "outcome"})

	versionConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "record_version_conflicts_total",
		Help: "Mutations rejected because the version token was stale",
	}, []string{"entity"})

	bulkRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_mutation_records_total",
		Help: "Records processed by bulk mutations by outcome",
	}, []string{"entity", "outcome"})

	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, storeDuration, versionConflicts, bulkRecords, rateLimited, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		storeDuration:    storeDuration,
		versionConflicts: versionConflicts,
		bulkRecords:      bulkRecords,
		rateLimited:      rateLimited,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveStoreOperation records the timing of a persistence call.
func (m *MetricsService) ObserveStoreOperation(entity, operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.storeDuration.WithLabelValues(entity, operation, outcome).Observe(duration.Seconds())
}

// RecordVersionConflict counts a rejected stale mutation.
func (m *MetricsService) RecordVersionConflict(entity string) {
	if m == nil {
		return
	}
	m.versionConflicts.WithLabelValues(entity).Inc()
}

// ObserveBulk counts bulk outcomes per record.
func (m *MetricsService) ObserveBulk(entity string, updated, failed int) {
	if m == nil {
		return
	}
	m.bulkRecords.WithLabelValues(entity, "updated").Add(float64(updated))
	m.bulkRecords.WithLabelValues(entity, "failed").Add(float64(failed))
}

// RecordRateLimited counts a request rejected with 429.
func (m *MetricsService) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
