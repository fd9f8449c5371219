package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// HTTP request metrics
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Document assembly metrics
	AssemblyTotal    *prometheus.CounterVec
	AssemblyDuration *prometheus.HistogramVec

	// Mapping resolution metrics
	MappingResolutionTotal *prometheus.CounterVec

	// Thumbnail normalization metrics
	ThumbnailShapeTotal *prometheus.CounterVec

	// Event publishing metrics
	EventPublishTotal    *prometheus.CounterVec
	EventPublishDuration *prometheus.HistogramVec
}

// Global metrics instance with mutex for thread safety
var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics creates a new Metrics instance with all required metrics
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	// Return existing instance if already created
	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		// HTTP request metrics
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		// Document assembly metrics
		AssemblyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "document_assembly_total",
			Help: "Total number of document assembly runs",
		}, []string{"outcome"}),

		AssemblyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "document_assembly_duration_seconds",
			Help:    "Document assembly duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),

		// Mapping resolution metrics
		MappingResolutionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mapping_resolution_total",
			Help: "Total number of logical-key resolutions by winning source",
		}, []string{"key", "source"}),

		// Thumbnail normalization metrics
		ThumbnailShapeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thumbnail_shape_total",
			Help: "Total number of normalized thumbnails by output shape",
		}, []string{"shape"}),

		// Event publishing metrics
		EventPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_publish_total",
			Help: "Total number of event publish operations",
		}, []string{"event_type", "status"}),

		EventPublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "event_publish_duration_seconds",
			Help:    "Event publish duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"event_type", "status"}),
	}

	// Register metrics with the default registry
	registerMetrics(m)

	// Store as global instance
	globalMetrics = m

	return m
}

// registerMetrics registers all metrics with the default registry
func registerMetrics(m *Metrics) {
	// Try to register each metric, ignore if already registered
	registerOrGet(m.HTTPRequestTotal)
	registerOrGet(m.HTTPRequestDuration)
	registerOrGet(m.AssemblyTotal)
	registerOrGet(m.AssemblyDuration)
	registerOrGet(m.MappingResolutionTotal)
	registerOrGet(m.ThumbnailShapeTotal)
	registerOrGet(m.EventPublishTotal)
	registerOrGet(m.EventPublishDuration)
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		// If already registered, return the existing collector
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
