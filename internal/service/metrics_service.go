package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightpath/studyplan-core/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	extractionJobsTotal   prometheus.Counter
	extractionJobsFailed  prometheus.Counter
	extractionSuccessRate prometheus.Gauge
	activeExtractionLocks prometheus.Gauge

	cacheHitCount          uint64
	cacheMissCount         uint64
	requestCount           uint64
	requestDurationTotal   uint64
	dbQueryCount           uint64
	dbQueryDurationTotal   uint64
	extractionJobCount     uint64
	extractionFailureCount uint64
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	extractionJobsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extraction_jobs_total",
		Help: "Total extraction runs reaching a terminal state",
	})

	extractionJobsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extraction_jobs_failed_total",
		Help: "Total extraction runs that ended failed",
	})

	extractionSuccessRate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "extraction_job_success_rate",
		Help: "Fraction of recent extraction runs that did not fail; feeds the model gateway health check",
	})

	activeExtractionLocks := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "extraction_active_locks",
		Help: "Number of extraction runs currently holding the per-(user,course) lock",
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration, goroutines, extractionJobsTotal, extractionJobsFailed, extractionSuccessRate, activeExtractionLocks)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:              registry,
		handler:               handler,
		requestDuration:       requestDuration,
		requestTotal:          requestTotal,
		cacheLatency:          cacheLatency,
		cacheWrite:            cacheWrite,
		cacheHitRatio:         cacheHitRatio,
		cacheHits:             cacheHits,
		cacheMisses:           cacheMisses,
		dbQueryDuration:       dbQueryDuration,
		extractionJobsTotal:   extractionJobsTotal,
		extractionJobsFailed:  extractionJobsFailed,
		extractionSuccessRate: extractionSuccessRate,
		activeExtractionLocks: activeExtractionLocks,
	}
}

// RecordExtractionResult updates the rolling success-rate gauge consulted by
// the health check's model-gateway verdict.
func (m *MetricsService) RecordExtractionResult(failed bool) {
	if m == nil {
		return
	}
	m.extractionJobsTotal.Inc()
	atomic.AddUint64(&m.extractionJobCount, 1)
	if failed {
		m.extractionJobsFailed.Inc()
		atomic.AddUint64(&m.extractionFailureCount, 1)
	}
	total := atomic.LoadUint64(&m.extractionJobCount)
	failures := atomic.LoadUint64(&m.extractionFailureCount)
	if total > 0 {
		m.extractionSuccessRate.Set(1 - float64(failures)/float64(total))
	}
}

// SetActiveExtractionLocks reports the current count of held extraction locks.
func (m *MetricsService) SetActiveExtractionLocks(count int) {
	if m == nil {
		return
	}
	m.activeExtractionLocks.Set(float64(count))
}

// ExtractionSuccessRate returns the last-observed success rate, or 1 when no
// extraction has completed yet.
func (m *MetricsService) ExtractionSuccessRate() float64 {
	if m == nil {
		return 1
	}
	total := atomic.LoadUint64(&m.extractionJobCount)
	if total == 0 {
		return 1
	}
	failures := atomic.LoadUint64(&m.extractionFailureCount)
	return 1 - float64(failures)/float64(total)
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// Snapshot returns aggregated metrics suitable for operator/diagnostic endpoints.
func (m *MetricsService) Snapshot() models.SystemMetricsSnapshot {
	if m == nil {
		return models.SystemMetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgDBMs float64
	if dbCount > 0 {
		avgDBMs = float64(dbDuration) / float64(dbCount) / float64(time.Millisecond)
	}

	return models.SystemMetricsSnapshot{
		CacheHitRatio:             cacheRatio,
		CacheHits:                 hits,
		CacheMisses:               misses,
		RequestsTotal:             requests,
		AverageRequestDurationMs:  avgRequestMs,
		DBQueryCount:              dbCount,
		AverageDBQueryDurationMs:  avgDBMs,
		ExtractionJobSuccessRate:  m.ExtractionSuccessRate(),
		Goroutines:                runtime.NumGoroutine(),
		GeneratedAt:               time.Now().UTC(),
	}
}
