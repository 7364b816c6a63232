// Package metrics exposes Prometheus instrumentation for snapshot storage, merging and HTTP traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ad-tracker/performance-snapshots-go/internal/config"
)

const namespace = "performance_snapshots"

// Recorder records pipeline metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveMatch(matchType string)
	ObserveMerge(duration time.Duration, records int)
	ObserveStoreOp(op string, duration time.Duration, err error)
	IncRequests(route string, status int)
	ObserveRequestDuration(route string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	Handler() http.Handler
}

// Prometheus is a Recorder backed by its own registry.
type Prometheus struct {
	registry        *prometheus.Registry
	matchesTotal    *prometheus.CounterVec
	mergeDuration   prometheus.Histogram
	mergeRecords    prometheus.Histogram
	storeOpDuration *prometheus.HistogramVec
	storeOpErrors   *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// New returns a Prometheus recorder, or a no-op recorder when metrics are disabled.
func New(cfg config.MetricsConfig) Recorder {
	if !cfg.Enabled {
		return Noop()
	}
	return NewPrometheus(prometheus.NewRegistry())
}

// NewPrometheus registers all collectors on reg.
func NewPrometheus(reg *prometheus.Registry) *Prometheus {
	factory := promauto.With(reg)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Prometheus{
		registry: reg,

		matchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Total number of video titles matched against a snapshot, by match type",
		}, []string{"type"}),

		mergeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "merge_duration_seconds",
			Help:      "Duration of merge runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		mergeRecords: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "merge_records",
			Help:      "Number of video records per merge run",
			Buckets:   []float64{0, 10, 25, 50, 100, 200, 500},
		}),

		storeOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of snapshot store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),

		storeOpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operation_errors_total",
			Help:      "Total number of failed snapshot store operations",
		}, []string{"op"}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of snapshot cache hits",
		}),

		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of snapshot cache misses",
		}),
	}
}

func (p *Prometheus) ObserveMatch(matchType string) {
	p.matchesTotal.WithLabelValues(matchType).Inc()
}

func (p *Prometheus) ObserveMerge(duration time.Duration, records int) {
	p.mergeDuration.Observe(duration.Seconds())
	p.mergeRecords.Observe(float64(records))
}

func (p *Prometheus) ObserveStoreOp(op string, duration time.Duration, err error) {
	p.storeOpDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		p.storeOpErrors.WithLabelValues(op).Inc()
	}
}

func (p *Prometheus) IncRequests(route string, status int) {
	p.requestsTotal.WithLabelValues(route, statusBucket(status)).Inc()
}

func (p *Prometheus) ObserveRequestDuration(route string, duration time.Duration) {
	p.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (p *Prometheus) IncCacheHits() {
	p.cacheHits.Inc()
}

func (p *Prometheus) IncCacheMisses() {
	p.cacheMisses.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop returns a Recorder that discards everything.
func Noop() Recorder {
	return noopRecorder{}
}

type noopRecorder struct{}

func (noopRecorder) ObserveMatch(_ string)                             {}
func (noopRecorder) ObserveMerge(_ time.Duration, _ int)               {}
func (noopRecorder) ObserveStoreOp(_ string, _ time.Duration, _ error) {}
func (noopRecorder) IncRequests(_ string, _ int)                       {}
func (noopRecorder) ObserveRequestDuration(_ string, _ time.Duration)  {}
func (noopRecorder) IncCacheHits()                                     {}
func (noopRecorder) IncCacheMisses()                                   {}
func (noopRecorder) Handler() http.Handler                             { return http.NotFoundHandler() }
