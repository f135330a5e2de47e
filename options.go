package reqflow

import (
	"fmt"
	"time"
)

// WithDeduplication sets the deduplication configuration.
func WithDeduplication(config DeduplicationConfig) Option {
	return func(o *Orchestrator) {
		o.dedupConfig = config
		o.dedupDisabled = false
	}
}

// WithoutDeduplication disables duplicate coalescing entirely; every
// submission runs its own network operation.
func WithoutDeduplication() Option {
	return func(o *Orchestrator) {
		o.dedupDisabled = true
	}
}

// WithDedupStrategy sets just the fingerprinting strategy.
func WithDedupStrategy(strategy DedupStrategy) Option {
	return func(o *Orchestrator) {
		o.dedupConfig.Strategy = strategy
	}
}

// WithPrioritization sets the priority queue configuration.
func WithPrioritization(config PrioritizationConfig) Option {
	return func(o *Orchestrator) {
		o.prioConfig = config
	}
}

// WithAgingStrategy sets just the starvation-prevention aging strategy.
func WithAgingStrategy(strategy AgingStrategy) Option {
	return func(o *Orchestrator) {
		o.prioConfig.Aging = strategy
	}
}

// WithRateLimits sets the global and per-domain token bucket configuration.
func WithRateLimits(config RateLimitConfig) Option {
	return func(o *Orchestrator) {
		o.rateConfig = config
	}
}

// WithStreaming sets the chunked delivery configuration.
func WithStreaming(config StreamingConfig) Option {
	return func(o *Orchestrator) {
		o.streamConfig = config
	}
}

// WithConnectionPool sets the pooled client configuration.
func WithConnectionPool(config PoolConfig) Option {
	return func(o *Orchestrator) {
		o.poolConfig = config
	}
}

// WithCache enables response caching with the default in-memory cache.
func WithCache(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cache = NewInMemoryCache()
		o.cacheTTL = ttl
	}
}

// WithCustomCache sets a custom cache implementation.
func WithCustomCache(cache Cache, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cache = cache
		o.cacheTTL = ttl
	}
}

// WithMetrics enables Prometheus metrics collection on the default registerer.
func WithMetrics() Option {
	return func(o *Orchestrator) {
		o.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(o *Orchestrator) {
		o.metrics = collector
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(o *Orchestrator) {
		o.debug.Enabled = true
		o.logger = NewSimpleLogger()
	}
}

// WithDebug enables debug logging with the default stage selection.
func WithDebug() Option {
	return func(o *Orchestrator) {
		o.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(o *Orchestrator) {
		if config.OperationIDGen == nil {
			config.OperationIDGen = DefaultDebugConfig().OperationIDGen
		}
		o.debug = config
	}
}

// WithOperationIDGenerator sets a custom function for generating operation and
// correlation IDs.
func WithOperationIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		o.debug.OperationIDGen = gen
	}
}

// WithEventBuffer sets the events channel depth.
func WithEventBuffer(n int) Option {
	return func(o *Orchestrator) {
		o.eventBuffer = n
	}
}

// WithDispatchers sets the number of concurrent dispatch workers.
func WithDispatchers(n int) Option {
	return func(o *Orchestrator) {
		o.dispatchers = n
	}
}

// WithJanitorInterval sets the cleanup pass frequency. Mostly useful in tests.
func WithJanitorInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.janitorInterval = d
	}
}

// ValidateConfiguration checks the configured values for inconsistencies. New
// runs it automatically; the result is available via ValidationError.
func (o *Orchestrator) ValidateConfiguration() error {
	var problems []string

	if o.dedupConfig.Window < 0 {
		problems = append(problems, "deduplication window must not be negative")
	}
	if o.dedupConfig.MaxPendingDuplicates < 0 {
		problems = append(problems, "max pending duplicates must not be negative")
	}
	if o.prioConfig.MaxQueueSizePerPriority < 0 {
		problems = append(problems, "queue size per priority must not be negative")
	}
	if o.prioConfig.StarvationTimeout < 0 {
		problems = append(problems, "starvation timeout must not be negative")
	}
	if o.prioConfig.HighPriorityRate < 0 {
		problems = append(problems, "high priority rate must not be negative")
	}
	if o.rateConfig.GlobalRate < 0 || o.rateConfig.PerDomainRate < 0 {
		problems = append(problems, "rate limits must not be negative")
	}
	if o.streamConfig.ChunkSize < 0 {
		problems = append(problems, "chunk size must not be negative")
	}
	if o.streamConfig.BufferSize < 0 {
		problems = append(problems, "stream buffer size must not be negative")
	}
	if o.streamConfig.ChunkTimeout < 0 || o.streamConfig.MaxStreamDuration < 0 {
		problems = append(problems, "stream timeouts must not be negative")
	}
	if o.poolConfig.Size < 0 {
		problems = append(problems, "pool size must not be negative")
	}
	if o.dispatchers <= 0 {
		problems = append(problems, "dispatcher count must be positive")
	}
	if o.eventBuffer <= 0 {
		problems = append(problems, "event buffer must be positive")
	}
	if o.cache != nil && o.cacheTTL <= 0 {
		problems = append(problems, "cache TTL must be positive when caching is enabled")
	}

	if len(problems) == 0 {
		return nil
	}
	msg := problems[0]
	for _, p := range problems[1:] {
		msg += "; " + p
	}
	return &OrchestratorError{
		Type:      ErrorTypeConfiguration,
		Message:   fmt.Sprintf("invalid configuration: %s", msg),
		Timestamp: time.Now(),
	}
}
