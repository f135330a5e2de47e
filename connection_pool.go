package reqflow

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HostStats holds per-host request counters maintained by the pool. Failure
// rates are exposed for external circuit-breaking decisions; the pool itself
// never refuses a host.
type HostStats struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	LastUsed           time.Time
}

// PoolStats is the aggregate view returned by Stats.
type PoolStats struct {
	Size               int
	ActiveConnections  int64
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	SuccessRate        float64
	TrackedHosts       int
}

// ConnectionPool holds a fixed set of pre-configured HTTP clients handed out
// round-robin. The pool cannot be exhausted: clients are shared, not checked
// out. Safe for concurrent use.
type ConnectionPool struct {
	clients []*http.Client
	next    uint64

	active int64

	mu    sync.Mutex
	hosts map[string]*HostStats
}

// NewConnectionPool builds config.Size clients sharing the same transport
// tuning.
func NewConnectionPool(config PoolConfig) *ConnectionPool {
	def := DefaultPoolConfig()
	if config.Size <= 0 {
		config.Size = def.Size
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = def.MaxIdleConns
	}
	if config.MaxIdleConnsPerHost <= 0 {
		config.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	if config.IdleConnTimeout <= 0 {
		config.IdleConnTimeout = def.IdleConnTimeout
	}
	if config.TLSHandshakeTimeout <= 0 {
		config.TLSHandshakeTimeout = def.TLSHandshakeTimeout
	}

	clients := make([]*http.Client, config.Size)
	for i := range clients {
		transport := &http.Transport{
			MaxIdleConns:          config.MaxIdleConns,
			MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
			IdleConnTimeout:       config.IdleConnTimeout,
			TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
			ResponseHeaderTimeout: config.Timeout,
			DisableKeepAlives:     config.DisableKeepAlives,
			TLSClientConfig:       config.TLSClientConfig,
		}
		// No client-level timeout: it would cap streamed body reads. The
		// header wait is bounded above and the per-request context bounds the
		// rest.
		clients[i] = &http.Client{Transport: transport}
	}

	return &ConnectionPool{
		clients: clients,
		hosts:   make(map[string]*HostStats),
	}
}

// GetClient returns the next pooled client round-robin.
func (p *ConnectionPool) GetClient() *http.Client {
	n := atomic.AddUint64(&p.next, 1)
	return p.clients[(n-1)%uint64(len(p.clients))]
}

// TrackConnectionStart records a request beginning against host.
func (p *ConnectionPool) TrackConnectionStart(host string) {
	atomic.AddInt64(&p.active, 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	stats, ok := p.hosts[host]
	if !ok {
		stats = &HostStats{}
		p.hosts[host] = stats
	}
	stats.TotalRequests++
	stats.LastUsed = time.Now()
}

// TrackConnectionEnd records a request finishing against host.
func (p *ConnectionPool) TrackConnectionEnd(host string, success bool) {
	atomic.AddInt64(&p.active, -1)

	p.mu.Lock()
	defer p.mu.Unlock()
	stats, ok := p.hosts[host]
	if !ok {
		stats = &HostStats{}
		p.hosts[host] = stats
	}
	if success {
		stats.SuccessfulRequests++
	} else {
		stats.FailedRequests++
	}
	stats.LastUsed = time.Now()
}

// HostStats returns a copy of the counters for one host.
func (p *ConnectionPool) HostStats(host string) (HostStats, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats, ok := p.hosts[host]
	if !ok {
		return HostStats{}, false
	}
	return *stats, true
}

// Stats returns the aggregate pool view.
func (p *ConnectionPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := PoolStats{
		Size:              len(p.clients),
		ActiveConnections: atomic.LoadInt64(&p.active),
		TrackedHosts:      len(p.hosts),
	}
	for _, stats := range p.hosts {
		out.TotalRequests += stats.TotalRequests
		out.SuccessfulRequests += stats.SuccessfulRequests
		out.FailedRequests += stats.FailedRequests
	}
	if finished := out.SuccessfulRequests + out.FailedRequests; finished > 0 {
		out.SuccessRate = float64(out.SuccessfulRequests) / float64(finished)
	}
	return out
}
