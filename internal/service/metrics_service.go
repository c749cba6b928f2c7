package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for the scheduler: HTTP
// request metrics plus domain counters for conflict checks, availability
// resolutions and the policy cache.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	conflictChecks  *prometheus.CounterVec
	resolveDuration prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the scheduler's collectors. pendingJobs may be
// nil when background generation is disabled.
func NewMetricsService(pendingJobs func() int) *MetricsService {
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

	conflictChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_conflict_checks_total",
		Help: "Conflict check evaluations by outcome",
	}, []string{"outcome"})

	resolveDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_availability_resolve_seconds",
		Help:    "Duration of availability resolutions",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_policy_cache_hits_total",
		Help: "Effective policy cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_policy_cache_misses_total",
		Help: "Effective policy cache misses",
	})

	collectors := []prometheus.Collector{requestDuration, requestTotal, conflictChecks, resolveDuration, cacheHits, cacheMisses}
	if pendingJobs != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "scheduler_generation_jobs_pending",
			Help: "Generation jobs waiting in the queue",
		}, func() float64 {
			return float64(pendingJobs())
		}))
	}
	registry.MustRegister(collectors...)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		conflictChecks:  conflictChecks,
		resolveDuration: resolveDuration,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusLabel := statusCodeLabel(status)
	m.requestDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, statusLabel).Inc()
}

func statusCodeLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// ObserveConflictCheck records one conflict check evaluation.
func (m *MetricsService) ObserveConflictCheck(blocking bool) {
	if m == nil {
		return
	}
	if blocking {
		m.conflictChecks.WithLabelValues("blocked").Inc()
	} else {
		m.conflictChecks.WithLabelValues("allowed").Inc()
	}
}

// ObserveResolve records the duration of one availability resolution.
func (m *MetricsService) ObserveResolve(duration time.Duration) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records a policy cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
