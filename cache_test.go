package reqflow

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := NewInMemoryCache()

	entry := &CacheEntry{StatusCode: 200, Body: []byte("cached")}
	c.Set("GET:https://example.com/a", entry, time.Minute)

	got, ok := c.Get("GET:https://example.com/a")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if got.StatusCode != 200 || string(got.Body) != "cached" {
		t.Errorf("Unexpected entry: %+v", got)
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewInMemoryCache()
	if _, ok := c.Get("GET:https://example.com/missing"); ok {
		t.Error("Expected cache miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewInMemoryCache()

	c.Set("key", &CacheEntry{StatusCode: 200}, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("key"); ok {
		t.Error("Expired entry should not be returned")
	}
	if c.Len() != 0 {
		t.Errorf("Expired entry should be deleted on read, Len() = %d", c.Len())
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := NewInMemoryCache()

	for i := 0; i < 20; i++ {
		c.Set(fmt.Sprintf("key-%d", i), &CacheEntry{StatusCode: 200}, time.Minute)
	}
	if c.Len() != 20 {
		t.Fatalf("Len() = %d, want 20", c.Len())
	}

	c.Delete("key-0")
	if _, ok := c.Get("key-0"); ok {
		t.Error("Deleted entry should miss")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewInMemoryCache()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%10)
			c.Set(key, &CacheEntry{StatusCode: 200}, time.Minute)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Len() != 10 {
		t.Errorf("Len() = %d, want 10", c.Len())
	}
}

func TestCacheableMethod(t *testing.T) {
	tests := []struct {
		method string
		want   bool
	}{
		{http.MethodGet, true},
		{http.MethodHead, true},
		{http.MethodPost, false},
		{http.MethodPut, false},
		{http.MethodDelete, false},
	}
	for _, tt := range tests {
		if got := cacheableMethod(tt.method); got != tt.want {
			t.Errorf("cacheableMethod(%s) = %v, want %v", tt.method, got, tt.want)
		}
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey("GET", "https://example.com/a"); got != "GET:https://example.com/a" {
		t.Errorf("cacheKey = %q", got)
	}
}
