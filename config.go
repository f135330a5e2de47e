package reqflow

import (
	"crypto/tls"
	"time"
)

// DeduplicationConfig controls request fingerprinting and duplicate tracking.
type DeduplicationConfig struct {
	// Strategy selects how fingerprints are derived. See DedupStrategy.
	Strategy DedupStrategy

	// Window is how long an ActiveRequest may stay in flight before it is
	// expired by the cleanup pass. Default 30s.
	Window time.Duration

	// MaxPendingDuplicates caps how many callers may wait on one fingerprint.
	// Excess callers are told to submit independently. Default 100.
	MaxPendingDuplicates int

	// HeaderAllowlist names the headers folded into content-based fingerprints.
	// Empty means headers do not participate under StrategyContentBased.
	HeaderAllowlist []string
}

// DefaultDeduplicationConfig returns the documented defaults.
func DefaultDeduplicationConfig() DeduplicationConfig {
	return DeduplicationConfig{
		Strategy:             StrategyContentBased,
		Window:               30 * time.Second,
		MaxPendingDuplicates: 100,
	}
}

// AgingStrategy selects how queued requests gain effective priority with age.
type AgingStrategy int

const (
	// AgingNone never boosts; effective priority equals base priority.
	AgingNone AgingStrategy = iota
	// AgingLinear boosts by one unit per elapsed threshold interval.
	AgingLinear
	// AgingExponential boosts by unit × floor(ln(age/threshold)). The natural
	// log truncates to zero until age exceeds e× the threshold; that delay is
	// a documented characteristic of the formula, not a defect.
	AgingExponential
	// AgingThreshold applies a single ten-unit jump once age passes the
	// threshold.
	AgingThreshold
)

// PrioritizationConfig controls the multi-tier priority queue.
type PrioritizationConfig struct {
	// MaxQueueSizePerPriority caps each tier independently. The global cap is
	// 3× this value. Default 1000.
	MaxQueueSizePerPriority int

	// StarvationTimeout is both the aging threshold and the queue-time beyond
	// which a Normal/Low entry is dequeued out of order. Default 30s.
	StarvationTimeout time.Duration

	// Aging selects the age-boost formula. Default AgingLinear.
	Aging AgingStrategy

	// AgeBoostUnit is the per-step priority increment applied by the aging
	// strategies. Default 5.
	AgeBoostUnit int

	// HighPriorityRate and HighPriorityBurst gate admission of Critical/High
	// requests. Defaults 100/s, burst 20.
	HighPriorityRate  float64
	HighPriorityBurst int
}

// DefaultPrioritizationConfig returns the documented defaults.
func DefaultPrioritizationConfig() PrioritizationConfig {
	return PrioritizationConfig{
		MaxQueueSizePerPriority: 1000,
		StarvationTimeout:       30 * time.Second,
		Aging:                   AgingLinear,
		AgeBoostUnit:            5,
		HighPriorityRate:        100,
		HighPriorityBurst:       20,
	}
}

// RateLimitConfig controls the global and per-domain token buckets.
type RateLimitConfig struct {
	// GlobalRate/GlobalBurst bound total outbound throughput. Defaults 100/s,
	// burst 50.
	GlobalRate  float64
	GlobalBurst int

	// PerDomainRate/PerDomainBurst apply to each domain bucket, created lazily
	// on first contact. Defaults 10/s, burst 5.
	PerDomainRate  float64
	PerDomainBurst int

	// InactiveAfter is how long a domain bucket may go unused before the
	// cleanup pass reclaims it. Default 5m.
	InactiveAfter time.Duration
}

// DefaultRateLimitConfig returns the documented defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		GlobalRate:     100,
		GlobalBurst:    50,
		PerDomainRate:  10,
		PerDomainBurst: 5,
		InactiveAfter:  5 * time.Minute,
	}
}

// StreamingConfig controls chunked response delivery.
type StreamingConfig struct {
	// ChunkSize is the fixed slice size for data chunks. Default 64KiB.
	ChunkSize int

	// BufferSize is the chunk channel depth; the producer blocks (backpressure)
	// when the consumer lags this far behind. Default 100 chunks.
	BufferSize int

	// ChunkTimeout bounds a single chunk delivery; exceeding it kills the
	// stream. Default 30s.
	ChunkTimeout time.Duration

	// MaxStreamDuration forcibly aborts streams that run longer. Default 300s.
	MaxStreamDuration time.Duration

	// BackpressureThreshold is the producer-side buffered byte count above
	// which the backpressure flag is raised. Default 10MiB.
	BackpressureThreshold int64

	// MinStreamSize is the response content length at or above which the
	// orchestrator streams instead of buffering. Responses with unknown length
	// always stream. Default 256KiB.
	MinStreamSize int64
}

// DefaultStreamingConfig returns the documented defaults.
func DefaultStreamingConfig() StreamingConfig {
	return StreamingConfig{
		ChunkSize:             64 * 1024,
		BufferSize:            100,
		ChunkTimeout:          30 * time.Second,
		MaxStreamDuration:     300 * time.Second,
		BackpressureThreshold: 10 * 1024 * 1024,
		MinStreamSize:         256 * 1024,
	}
}

// PoolConfig controls the fixed set of pooled HTTP clients.
type PoolConfig struct {
	// Size is the number of pre-built clients handed out round-robin.
	// Default 8.
	Size int

	// Timeout bounds the wait for response headers on every pooled client; it
	// also serves as the default per-request timeout. Body reads are governed
	// by the request context and the streaming duration cap. Default 30s.
	Timeout time.Duration

	// Transport tuning shared by every client in the pool.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	DisableKeepAlives   bool
	TLSClientConfig     *tls.Config
}

// DefaultPoolConfig returns the documented defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Size:                8,
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}
