package reqflow

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestTokenBucketBurst(t *testing.T) {
	bucket := NewTokenBucket(1, 3)

	for i := 0; i < 3; i++ {
		if !bucket.Allow() {
			t.Fatalf("Request %d should be allowed within burst", i)
		}
	}
	if bucket.Allow() {
		t.Error("Request beyond burst should be denied")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	bucket := NewTokenBucket(100, 2) // one token per 10ms

	bucket.Allow()
	bucket.Allow()
	if bucket.Allow() {
		t.Fatal("Bucket should be empty")
	}

	time.Sleep(25 * time.Millisecond)

	if !bucket.Allow() {
		t.Error("Bucket should have refilled after waiting")
	}
}

func TestTokenBucketRefillCappedAtBurst(t *testing.T) {
	bucket := NewTokenBucket(1000, 2)

	time.Sleep(20 * time.Millisecond)

	if got := bucket.Tokens(); got != 2 {
		t.Errorf("Tokens() = %d, want 2 (capped at burst)", got)
	}
}

func TestTokenBucketZeroRateNeverRefills(t *testing.T) {
	bucket := NewTokenBucket(0, 1)

	if !bucket.Allow() {
		t.Fatal("Initial token should be available")
	}
	time.Sleep(10 * time.Millisecond)
	if bucket.Allow() {
		t.Error("Zero-rate bucket must not refill")
	}
}

func TestTokenBucketConcurrentConsume(t *testing.T) {
	const burst = 50
	bucket := NewTokenBucket(0, burst)

	var wg sync.WaitGroup
	var allowed int64
	var mu sync.Mutex

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if bucket.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != burst {
		t.Errorf("Allowed %d requests, want exactly %d", allowed, burst)
	}
}

func TestTokenBucketLastUsed(t *testing.T) {
	bucket := NewTokenBucket(10, 5)
	before := time.Now()
	bucket.Allow()
	if bucket.LastUsed().Before(before) {
		t.Error("LastUsed should be stamped by Allow")
	}
}

func TestDomainRateLimiterGlobalFirst(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.GlobalRate = 0.001
	cfg.GlobalBurst = 1
	cfg.PerDomainBurst = 100
	l := NewDomainRateLimiter(cfg)

	if err := l.Check("a.example.com"); err != nil {
		t.Fatalf("First request should pass: %v", err)
	}
	err := l.Check("b.example.com")
	if !errors.Is(err, ErrGlobalRateLimited) {
		t.Fatalf("Expected ErrGlobalRateLimited, got %v", err)
	}
}

func TestDomainRateLimiterPerDomain(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.GlobalBurst = 100
	cfg.PerDomainRate = 0.001
	cfg.PerDomainBurst = 2
	l := NewDomainRateLimiter(cfg)

	for i := 0; i < 2; i++ {
		if err := l.Check("api.example.com"); err != nil {
			t.Fatalf("Request %d within domain burst should pass: %v", i, err)
		}
	}

	err := l.Check("api.example.com")
	if !errors.Is(err, ErrDomainRateLimited) {
		t.Fatalf("Expected ErrDomainRateLimited, got %v", err)
	}
	var de *DomainRateLimitError
	if !errors.As(err, &de) || de.Domain != "api.example.com" {
		t.Errorf("Expected DomainRateLimitError for api.example.com, got %v", err)
	}

	// Another domain has its own fresh bucket.
	if err := l.Check("other.example.com"); err != nil {
		t.Errorf("Fresh domain should pass, got %v", err)
	}
}

func TestDomainBucketsCreatedLazily(t *testing.T) {
	l := NewDomainRateLimiter(DefaultRateLimitConfig())

	if got := l.DomainCount(); got != 0 {
		t.Fatalf("DomainCount() = %d before any check, want 0", got)
	}
	l.Check("a.example.com")
	l.Check("b.example.com")
	if got := l.DomainCount(); got != 2 {
		t.Errorf("DomainCount() = %d, want 2", got)
	}
}

func TestCleanupInactiveLimiters(t *testing.T) {
	l := NewDomainRateLimiter(DefaultRateLimitConfig())

	l.Check("stale.example.com")
	time.Sleep(15 * time.Millisecond)
	l.Check("fresh.example.com")

	removed := l.CleanupInactiveLimiters(10 * time.Millisecond)
	if removed != 1 {
		t.Errorf("Removed %d buckets, want 1", removed)
	}
	if got := l.DomainCount(); got != 1 {
		t.Errorf("DomainCount() = %d after cleanup, want 1", got)
	}
}

func TestDomainFromURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://api.example.com/v1/data", "api.example.com"},
		{"https://api.example.com:8443/v1", "api.example.com"},
		{"http://localhost:8080/", "localhost"},
		{"http://[::1]:9090/health", "[::1]"},
		{"not a url", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := DomainFromURL(tt.raw); got != tt.want {
			t.Errorf("DomainFromURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
