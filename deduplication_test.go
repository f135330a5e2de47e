package reqflow

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

const dedupTestURL = "https://example.com/data"

func newTestDedupManager(maxPending int) *DeduplicationManager {
	cfg := DefaultDeduplicationConfig()
	cfg.MaxPendingDuplicates = maxPending
	return NewDeduplicationManager(cfg)
}

func TestFirstRequestIsNotDuplicate(t *testing.T) {
	m := newTestDedupManager(10)

	res := m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, "op-1", "corr-1", "tester")
	if res.Status != DedupNotDuplicate {
		t.Fatalf("Expected DedupNotDuplicate, got %v", res.Status)
	}
	if m.ActiveRequestCount() != 1 {
		t.Errorf("Expected 1 active request, got %d", m.ActiveRequestCount())
	}
}

func TestSecondIdenticalRequestIsDuplicate(t *testing.T) {
	m := newTestDedupManager(10)

	first := m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, "op-1", "corr-1", "tester")
	second := m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, "op-2", "corr-2", "tester")

	if second.Status != DedupDuplicate {
		t.Fatalf("Expected DedupDuplicate, got %v", second.Status)
	}
	if second.OriginalOperationID != "op-1" {
		t.Errorf("Expected original op-1, got %s", second.OriginalOperationID)
	}
	if second.DuplicateCount != 1 {
		t.Errorf("Expected duplicate count 1, got %d", second.DuplicateCount)
	}
	if first.Fingerprint.Key() != second.Fingerprint.Key() {
		t.Error("Identical requests should share a fingerprint key")
	}
	// Still one active fingerprint; the duplicate is pending on it.
	if m.ActiveRequestCount() != 1 {
		t.Errorf("Expected 1 active request, got %d", m.ActiveRequestCount())
	}
}

func TestDifferentBodiesAreNotDuplicates(t *testing.T) {
	m := newTestDedupManager(10)

	a := m.CheckAndHandleDuplicate("POST", dedupTestURL, nil, []byte("one"), "op-1", "c-1", "tester")
	b := m.CheckAndHandleDuplicate("POST", dedupTestURL, nil, []byte("two"), "op-2", "c-2", "tester")

	if a.Status != DedupNotDuplicate || b.Status != DedupNotDuplicate {
		t.Error("Content-based strategy should distinguish different bodies")
	}
	if m.ActiveRequestCount() != 2 {
		t.Errorf("Expected 2 active requests, got %d", m.ActiveRequestCount())
	}
}

func TestTooManyPendingDuplicates(t *testing.T) {
	m := newTestDedupManager(2)

	m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, "op-0", "c-0", "tester")
	for i := 1; i <= 2; i++ {
		res := m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, fmt.Sprintf("op-%d", i), fmt.Sprintf("c-%d", i), "tester")
		if res.Status != DedupDuplicate {
			t.Fatalf("Duplicate %d should have been registered", i)
		}
	}

	overflow := m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, "op-3", "c-3", "tester")
	if overflow.Status != DedupTooManyDuplicates {
		t.Fatalf("Expected DedupTooManyDuplicates, got %v", overflow.Status)
	}
}

func TestCompleteRequestReturnsAllPendingDuplicates(t *testing.T) {
	m := newTestDedupManager(100)

	first := m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, "op-0", "c-0", "tester")
	const n = 5
	for i := 1; i <= n; i++ {
		m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, fmt.Sprintf("op-%d", i), fmt.Sprintf("c-%d", i), "tester")
	}

	pending := m.CompleteRequest(first.Fingerprint.Key())
	if len(pending) != n {
		t.Fatalf("Expected %d pending duplicates, got %d", n, len(pending))
	}
	if m.ActiveRequestCount() != 0 {
		t.Errorf("Expected 0 active requests after completion, got %d", m.ActiveRequestCount())
	}

	// Completing again is a no-op.
	if again := m.CompleteRequest(first.Fingerprint.Key()); again != nil {
		t.Errorf("Second completion should return nil, got %d entries", len(again))
	}
}

func TestCleanupExpiredRequestsSurfacesPending(t *testing.T) {
	cfg := DefaultDeduplicationConfig()
	cfg.Window = 10 * time.Millisecond
	m := NewDeduplicationManager(cfg)

	m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, "op-0", "c-0", "tester")
	m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, "op-1", "c-1", "tester")

	time.Sleep(20 * time.Millisecond)

	expired := m.CleanupExpiredRequests()
	if len(expired) != 1 {
		t.Fatalf("Expected 1 expired request, got %d", len(expired))
	}
	if expired[0].OperationID != "op-0" {
		t.Errorf("Expected expired original op-0, got %s", expired[0].OperationID)
	}
	if len(expired[0].Pending) != 1 || expired[0].Pending[0].OperationID != "op-1" {
		t.Error("Pending duplicates must be surfaced on expiry, not dropped")
	}
	if m.ActiveRequestCount() != 0 {
		t.Errorf("Expected 0 active requests after cleanup, got %d", m.ActiveRequestCount())
	}
}

func TestCleanupKeepsFreshRequests(t *testing.T) {
	m := newTestDedupManager(10)

	m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, "op-0", "c-0", "tester")
	if expired := m.CleanupExpiredRequests(); len(expired) != 0 {
		t.Errorf("Fresh requests should not expire, got %d", len(expired))
	}
	if m.ActiveRequestCount() != 1 {
		t.Errorf("Expected 1 active request, got %d", m.ActiveRequestCount())
	}
}

func TestConcurrentDuplicateChecksSingleOwner(t *testing.T) {
	m := newTestDedupManager(100)

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	owners := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := m.CheckAndHandleDuplicate("GET", dedupTestURL, nil, nil, fmt.Sprintf("op-%d", i), fmt.Sprintf("c-%d", i), "tester")
			if res.Status == DedupNotDuplicate {
				mu.Lock()
				owners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if owners != 1 {
		t.Errorf("Exactly one concurrent submitter should own the request, got %d", owners)
	}
	if m.ActiveRequestCount() != 1 {
		t.Errorf("Expected 1 active request, got %d", m.ActiveRequestCount())
	}
}
