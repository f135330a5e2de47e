package reqflow

import (
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// TokenBucket is a lock-free token bucket. Tokens refill proportionally to
// elapsed time up to the burst capacity and only decrease on successful
// admission.
type TokenBucket struct {
	maxTokens      int64
	tokens         int64
	refillInterval int64 // nanoseconds per token; 0 disables refill
	lastRefill     int64 // unix nanos
	lastUsed       int64 // unix nanos, stamped on every Allow
}

// NewTokenBucket creates a bucket admitting ratePerSecond operations sustained
// with bursts up to burst. The bucket starts full.
func NewTokenBucket(ratePerSecond float64, burst int) *TokenBucket {
	var interval int64
	if ratePerSecond > 0 {
		interval = int64(float64(time.Second) / ratePerSecond)
	}
	return &TokenBucket{
		maxTokens:      int64(burst),
		tokens:         int64(burst),
		refillInterval: interval,
		lastRefill:     time.Now().UnixNano(),
		lastUsed:       time.Now().UnixNano(),
	}
}

// Allow reports whether one operation may proceed, consuming a token if so.
func (b *TokenBucket) Allow() bool {
	atomic.StoreInt64(&b.lastUsed, time.Now().UnixNano())
	b.refill()
	return b.consume()
}

// refill adds elapsed-time-proportional tokens, capped at burst capacity.
func (b *TokenBucket) refill() {
	if b.refillInterval <= 0 {
		return
	}
	now := time.Now().UnixNano()

	for {
		currentTokens := atomic.LoadInt64(&b.tokens)
		lastRefill := atomic.LoadInt64(&b.lastRefill)

		elapsed := now - lastRefill
		tokensToAdd := elapsed / b.refillInterval
		if tokensToAdd == 0 {
			return
		}

		newTokens := currentTokens + tokensToAdd
		if newTokens > b.maxTokens {
			newTokens = b.maxTokens
		}
		newLastRefill := lastRefill + tokensToAdd*b.refillInterval

		if !atomic.CompareAndSwapInt64(&b.lastRefill, lastRefill, newLastRefill) {
			continue
		}
		atomic.StoreInt64(&b.tokens, newTokens)
		return
	}
}

func (b *TokenBucket) consume() bool {
	for {
		currentTokens := atomic.LoadInt64(&b.tokens)
		if currentTokens <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&b.tokens, currentTokens, currentTokens-1) {
			return true
		}
	}
}

// Tokens returns the current token count for monitoring.
func (b *TokenBucket) Tokens() int64 {
	b.refill()
	return atomic.LoadInt64(&b.tokens)
}

// LastUsed returns when the bucket was last consulted.
func (b *TokenBucket) LastUsed() time.Time {
	return time.Unix(0, atomic.LoadInt64(&b.lastUsed))
}

// DomainRateLimiter applies a global token bucket plus a lazily-created bucket
// per contacted domain. The global bucket is always checked first; exceeding
// it rejects regardless of the domain budget. Safe for concurrent use.
type DomainRateLimiter struct {
	mu      sync.RWMutex
	global  *TokenBucket
	domains map[string]*TokenBucket
	config  RateLimitConfig
}

// NewDomainRateLimiter creates a limiter with the given configuration.
func NewDomainRateLimiter(config RateLimitConfig) *DomainRateLimiter {
	def := DefaultRateLimitConfig()
	if config.GlobalRate <= 0 {
		config.GlobalRate = def.GlobalRate
	}
	if config.GlobalBurst <= 0 {
		config.GlobalBurst = def.GlobalBurst
	}
	if config.PerDomainRate <= 0 {
		config.PerDomainRate = def.PerDomainRate
	}
	if config.PerDomainBurst <= 0 {
		config.PerDomainBurst = def.PerDomainBurst
	}
	if config.InactiveAfter <= 0 {
		config.InactiveAfter = def.InactiveAfter
	}
	return &DomainRateLimiter{
		global:  NewTokenBucket(config.GlobalRate, config.GlobalBurst),
		domains: make(map[string]*TokenBucket),
		config:  config,
	}
}

// Check admits one operation for the domain or returns ErrGlobalRateLimited /
// *DomainRateLimitError.
func (l *DomainRateLimiter) Check(domain string) error {
	if !l.global.Allow() {
		return ErrGlobalRateLimited
	}
	if !l.bucketFor(domain).Allow() {
		return &DomainRateLimitError{Domain: domain}
	}
	return nil
}

func (l *DomainRateLimiter) bucketFor(domain string) *TokenBucket {
	l.mu.RLock()
	bucket, ok := l.domains[domain]
	l.mu.RUnlock()
	if ok {
		return bucket
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if bucket, ok = l.domains[domain]; ok {
		return bucket
	}
	bucket = NewTokenBucket(l.config.PerDomainRate, l.config.PerDomainBurst)
	l.domains[domain] = bucket
	return bucket
}

// CleanupInactiveLimiters reclaims domain buckets unused for longer than
// inactive, bounding memory for long-running processes that contact many
// hosts. Returns the number of buckets removed.
func (l *DomainRateLimiter) CleanupInactiveLimiters(inactive time.Duration) int {
	cutoff := time.Now().Add(-inactive)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for domain, bucket := range l.domains {
		if bucket.LastUsed().Before(cutoff) {
			delete(l.domains, domain)
			removed++
		}
	}
	return removed
}

// DomainCount returns the number of live domain buckets.
func (l *DomainRateLimiter) DomainCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.domains)
}

// GlobalTokens returns the global bucket's current token count.
func (l *DomainRateLimiter) GlobalTokens() int64 { return l.global.Tokens() }

// DomainFromURL extracts the rate-limiting domain (host without port) from a
// raw URL. Unparseable URLs map to "unknown" so they still share one bucket.
func DomainFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := u.Host
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host, "]") {
		host = host[:i]
	} else if i := strings.Index(host, "]:"); i >= 0 {
		host = host[:i+1]
	}
	return host
}
