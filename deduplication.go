package reqflow

import (
	"net/http"
	"sync"
	"time"
)

// PendingDuplicate records a caller waiting on an identical in-flight request.
type PendingDuplicate struct {
	OperationID   string
	CorrelationID string
	Requester     string
	DetectedAt    time.Time
}

// ActiveRequest tracks the first-seen request for a fingerprint. It exists
// from the moment the fingerprint is first observed until the operation
// completes, is cancelled, or expires.
type ActiveRequest struct {
	OperationID   string
	CorrelationID string
	Requester     string
	StartedAt     time.Time
	pending       []PendingDuplicate
}

// DedupStatus classifies the outcome of a duplicate check.
type DedupStatus int

const (
	// DedupNotDuplicate means no identical request is in flight; the caller
	// becomes the original and owns the network operation.
	DedupNotDuplicate DedupStatus = iota
	// DedupDuplicate means the caller was registered as a pending duplicate
	// and will receive the original's outcome.
	DedupDuplicate
	// DedupTooManyDuplicates means the pending list is at capacity; the caller
	// must run the request independently.
	DedupTooManyDuplicates
)

// DedupResult is the outcome of CheckAndHandleDuplicate.
type DedupResult struct {
	Status                DedupStatus
	Fingerprint           RequestFingerprint
	OriginalOperationID   string
	OriginalCorrelationID string
	DuplicateCount        int
}

// ExpiredRequest reports an ActiveRequest removed by the cleanup pass along
// with the duplicates that were still waiting on it. Pending duplicates are
// surfaced, never dropped, so their callers can be unblocked.
type ExpiredRequest struct {
	OperationID   string
	CorrelationID string
	Age           time.Duration
	Pending       []PendingDuplicate
}

// DeduplicationManager coalesces structurally identical concurrent requests
// onto a single network operation. Safe for concurrent use.
type DeduplicationManager struct {
	mu            sync.Mutex
	fingerprinter *Fingerprinter
	active        map[string]*ActiveRequest
	config        DeduplicationConfig
}

// NewDeduplicationManager creates a manager with the given configuration.
func NewDeduplicationManager(config DeduplicationConfig) *DeduplicationManager {
	if config.Window <= 0 {
		config.Window = DefaultDeduplicationConfig().Window
	}
	if config.MaxPendingDuplicates <= 0 {
		config.MaxPendingDuplicates = DefaultDeduplicationConfig().MaxPendingDuplicates
	}
	return &DeduplicationManager{
		fingerprinter: NewFingerprinter(config.Strategy, config.HeaderAllowlist),
		active:        make(map[string]*ActiveRequest),
		config:        config,
	}
}

// CheckAndHandleDuplicate fingerprints the request and either records it as
// the original (DedupNotDuplicate), registers the caller as a pending
// duplicate (DedupDuplicate), or refuses because the pending list is full
// (DedupTooManyDuplicates).
func (m *DeduplicationManager) CheckAndHandleDuplicate(method, url string, headers http.Header, body []byte, operationID, correlationID, requester string) DedupResult {
	fp := m.fingerprinter.Fingerprint(method, url, headers, body)
	key := fp.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.active[key]
	if !ok {
		m.active[key] = &ActiveRequest{
			OperationID:   operationID,
			CorrelationID: correlationID,
			Requester:     requester,
			StartedAt:     time.Now(),
		}
		return DedupResult{Status: DedupNotDuplicate, Fingerprint: fp}
	}

	if len(existing.pending) >= m.config.MaxPendingDuplicates {
		return DedupResult{
			Status:              DedupTooManyDuplicates,
			Fingerprint:         fp,
			OriginalOperationID: existing.OperationID,
			DuplicateCount:      len(existing.pending),
		}
	}

	existing.pending = append(existing.pending, PendingDuplicate{
		OperationID:   operationID,
		CorrelationID: correlationID,
		Requester:     requester,
		DetectedAt:    time.Now(),
	})

	return DedupResult{
		Status:                DedupDuplicate,
		Fingerprint:           fp,
		OriginalOperationID:   existing.OperationID,
		OriginalCorrelationID: existing.CorrelationID,
		DuplicateCount:        len(existing.pending),
	}
}

// CompleteRequest removes the ActiveRequest for the fingerprint key and
// returns every pending duplicate so the caller can fan the outcome out to
// them. Returns nil when the key is not tracked (already expired or
// cancelled).
func (m *DeduplicationManager) CompleteRequest(key string) []PendingDuplicate {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.active[key]
	if !ok {
		return nil
	}
	delete(m.active, key)
	return entry.pending
}

// CancelRequest removes the ActiveRequest without an outcome and returns the
// pending duplicates, which must still receive a resolution.
func (m *DeduplicationManager) CancelRequest(key string) []PendingDuplicate {
	return m.CompleteRequest(key)
}

// CleanupExpiredRequests removes ActiveRequests older than the deduplication
// window and reports them together with their still-waiting duplicates.
func (m *DeduplicationManager) CleanupExpiredRequests() []ExpiredRequest {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []ExpiredRequest
	for key, entry := range m.active {
		age := now.Sub(entry.StartedAt)
		if age <= m.config.Window {
			continue
		}
		expired = append(expired, ExpiredRequest{
			OperationID:   entry.OperationID,
			CorrelationID: entry.CorrelationID,
			Age:           age,
			Pending:       entry.pending,
		})
		delete(m.active, key)
	}
	return expired
}

// ActiveRequestCount returns the number of tracked fingerprints.
func (m *DeduplicationManager) ActiveRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// PendingDuplicateCount returns how many callers wait on the given key.
func (m *DeduplicationManager) PendingDuplicateCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.active[key]; ok {
		return len(entry.pending)
	}
	return 0
}
