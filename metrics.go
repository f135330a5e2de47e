package reqflow

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the orchestration
// lifecycle. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	dedupHits          *prometheus.CounterVec
	duplicatesResolved prometheus.Counter
	activeFingerprints prometheus.Gauge

	queueDepth *prometheus.GaugeVec
	queueFull  *prometheus.CounterVec

	rateLimited         *prometheus.CounterVec
	highPriorityGateHit prometheus.Counter

	streamBytes    prometheus.Counter
	streamChunks   prometheus.Counter
	streamsActive  prometheus.Gauge
	streamsExpired prometheus.Counter

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_requests_total",
				Help: "Total number of HTTP operations completed",
			},
			[]string{"method", "status_code", "domain"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqflow_request_duration_seconds",
				Help:    "Duration of HTTP operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "domain"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reqflow_requests_in_flight",
				Help: "Number of HTTP operations currently executing",
			},
			[]string{"method", "domain"},
		),
		dedupHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_deduplication_hits_total",
				Help: "Total number of submissions coalesced onto an in-flight request",
			},
			[]string{"method", "domain"},
		),
		duplicatesResolved: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "reqflow_duplicates_resolved_total",
				Help: "Total number of pending duplicates that received an outcome",
			},
		),
		activeFingerprints: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "reqflow_active_fingerprints",
				Help: "Current number of tracked in-flight fingerprints",
			},
		),
		queueDepth: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reqflow_queue_depth",
				Help: "Current number of queued requests per tier",
			},
			[]string{"tier"},
		),
		queueFull: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_queue_full_total",
				Help: "Total number of submissions rejected because a tier was at capacity",
			},
			[]string{"tier"},
		),
		rateLimited: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_rate_limited_total",
				Help: "Total number of requests rejected by a token bucket",
			},
			[]string{"scope"},
		),
		highPriorityGateHit: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "reqflow_high_priority_rate_limited_total",
				Help: "Total number of Critical/High submissions rejected by the admission gate",
			},
		),
		streamBytes: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "reqflow_stream_bytes_total",
				Help: "Total payload bytes delivered over streams",
			},
		),
		streamChunks: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "reqflow_stream_chunks_total",
				Help: "Total data chunks delivered over streams",
			},
		),
		streamsActive: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "reqflow_streams_active",
				Help: "Current number of in-progress streams",
			},
		),
		streamsExpired: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "reqflow_streams_expired_total",
				Help: "Total number of streams aborted for exceeding max duration",
			},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"method", "domain"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"method", "domain"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type", "method", "domain"},
		),
	}
}

// RecordRequestStart marks an operation entering execution.
func (mc *MetricsCollector) RecordRequestStart(method, domain string) {
	mc.requestsInFlight.WithLabelValues(method, domain).Inc()
}

// RecordRequestEnd marks an operation leaving execution.
func (mc *MetricsCollector) RecordRequestEnd(method, domain string) {
	mc.requestsInFlight.WithLabelValues(method, domain).Dec()
}

// RecordRequest records a completed operation with its outcome.
func (mc *MetricsCollector) RecordRequest(method, domain string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, code, domain).Inc()
	mc.requestDuration.WithLabelValues(method, code, domain).Observe(duration.Seconds())
}

// RecordDeduplicationHit records a coalesced submission.
func (mc *MetricsCollector) RecordDeduplicationHit(method, domain string) {
	mc.dedupHits.WithLabelValues(method, domain).Inc()
}

// RecordDuplicatesResolved records outcome fan-out to pending duplicates.
func (mc *MetricsCollector) RecordDuplicatesResolved(n int) {
	mc.duplicatesResolved.Add(float64(n))
}

// RecordActiveFingerprints records the current fingerprint map size.
func (mc *MetricsCollector) RecordActiveFingerprints(n int) {
	mc.activeFingerprints.Set(float64(n))
}

// RecordQueueDepth records the queue occupancy for a tier.
func (mc *MetricsCollector) RecordQueueDepth(tier string, depth int) {
	mc.queueDepth.WithLabelValues(tier).Set(float64(depth))
}

// RecordQueueFull records a capacity rejection for a tier.
func (mc *MetricsCollector) RecordQueueFull(tier string) {
	mc.queueFull.WithLabelValues(tier).Inc()
}

// RecordRateLimited records a token-bucket rejection; scope is "global" or
// "domain".
func (mc *MetricsCollector) RecordRateLimited(scope string) {
	mc.rateLimited.WithLabelValues(scope).Inc()
}

// RecordHighPriorityRateLimited records an admission-gate rejection.
func (mc *MetricsCollector) RecordHighPriorityRateLimited() {
	mc.highPriorityGateHit.Inc()
}

// RecordStreamChunk records one delivered data chunk.
func (mc *MetricsCollector) RecordStreamChunk(size int) {
	mc.streamChunks.Inc()
	mc.streamBytes.Add(float64(size))
}

// RecordActiveStreams records the current stream count.
func (mc *MetricsCollector) RecordActiveStreams(n int) {
	mc.streamsActive.Set(float64(n))
}

// RecordStreamsExpired records streams aborted by the duration cap.
func (mc *MetricsCollector) RecordStreamsExpired(n int) {
	mc.streamsExpired.Add(float64(n))
}

// RecordCacheHit records a cache hit.
func (mc *MetricsCollector) RecordCacheHit(method, domain string) {
	mc.cacheHits.WithLabelValues(method, domain).Inc()
}

// RecordCacheMiss records a cache miss.
func (mc *MetricsCollector) RecordCacheMiss(method, domain string) {
	mc.cacheMisses.WithLabelValues(method, domain).Inc()
}

// RecordError records an error occurrence by type.
func (mc *MetricsCollector) RecordError(errorType, method, domain string) {
	mc.errorsTotal.WithLabelValues(errorType, method, domain).Inc()
}
