package reqflow

import (
	"testing"
	"time"
)

func TestPoolRoundRobin(t *testing.T) {
	cfg := DefaultPoolConfig()
	cfg.Size = 3
	p := NewConnectionPool(cfg)

	first := p.GetClient()
	second := p.GetClient()
	third := p.GetClient()
	if first == second || second == third || first == third {
		t.Error("Consecutive GetClient calls should rotate through distinct clients")
	}

	if again := p.GetClient(); again != first {
		t.Error("Round-robin should wrap back to the first client")
	}
}

func TestPoolDefaults(t *testing.T) {
	p := NewConnectionPool(PoolConfig{})
	if got := p.Stats().Size; got != DefaultPoolConfig().Size {
		t.Errorf("Pool size = %d, want default %d", got, DefaultPoolConfig().Size)
	}
}

func TestPoolClientsHaveNoClientTimeout(t *testing.T) {
	p := NewConnectionPool(DefaultPoolConfig())
	client := p.GetClient()
	// Long-lived streamed bodies would be killed by a client-level timeout;
	// only the header wait is bounded.
	if client.Timeout != 0 {
		t.Errorf("Client timeout = %v, want 0", client.Timeout)
	}
}

func TestConnectionTracking(t *testing.T) {
	p := NewConnectionPool(DefaultPoolConfig())

	p.TrackConnectionStart("api.example.com")
	p.TrackConnectionStart("api.example.com")
	p.TrackConnectionStart("other.example.com")

	if got := p.Stats().ActiveConnections; got != 3 {
		t.Errorf("ActiveConnections = %d, want 3", got)
	}

	p.TrackConnectionEnd("api.example.com", true)
	p.TrackConnectionEnd("api.example.com", false)
	p.TrackConnectionEnd("other.example.com", true)

	stats, ok := p.HostStats("api.example.com")
	if !ok {
		t.Fatal("Expected stats for api.example.com")
	}
	if stats.TotalRequests != 2 || stats.SuccessfulRequests != 1 || stats.FailedRequests != 1 {
		t.Errorf("Host stats = %+v, want 2 total, 1 success, 1 failure", stats)
	}
	if stats.LastUsed.IsZero() || time.Since(stats.LastUsed) > time.Second {
		t.Error("LastUsed should be recent")
	}

	agg := p.Stats()
	if agg.ActiveConnections != 0 {
		t.Errorf("ActiveConnections = %d after all ends, want 0", agg.ActiveConnections)
	}
	if agg.TotalRequests != 3 || agg.TrackedHosts != 2 {
		t.Errorf("Aggregate = %+v, want 3 total across 2 hosts", agg)
	}
	if agg.SuccessRate < 0.66 || agg.SuccessRate > 0.67 {
		t.Errorf("SuccessRate = %f, want 2/3", agg.SuccessRate)
	}
}

func TestHostStatsUnknownHost(t *testing.T) {
	p := NewConnectionPool(DefaultPoolConfig())
	if _, ok := p.HostStats("never-seen.example.com"); ok {
		t.Error("HostStats for unknown host should report not found")
	}
}
