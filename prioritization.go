package reqflow

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cyrup-ai/reqflow/internal/aging"
)

// PrioritizationManager is the scheduling gate between submission and
// execution: a capacity-bounded PriorityQueue plus a token-bucket admission
// gate for Critical/High requests. Safe for concurrent use.
type PrioritizationManager struct {
	mu     sync.Mutex
	queue  *PriorityQueue
	config PrioritizationConfig

	// highPriorityGate bounds the admission rate of Critical/High requests so
	// a burst of urgent work cannot monopolize the queue. Exhaustion fails the
	// enqueue; priority is never silently downgraded.
	highPriorityGate *rate.Limiter
}

// NewPrioritizationManager creates a manager with the given configuration.
func NewPrioritizationManager(config PrioritizationConfig) *PrioritizationManager {
	def := DefaultPrioritizationConfig()
	if config.MaxQueueSizePerPriority <= 0 {
		config.MaxQueueSizePerPriority = def.MaxQueueSizePerPriority
	}
	if config.StarvationTimeout <= 0 {
		config.StarvationTimeout = def.StarvationTimeout
	}
	if config.AgeBoostUnit <= 0 {
		config.AgeBoostUnit = def.AgeBoostUnit
	}
	if config.HighPriorityRate <= 0 {
		config.HighPriorityRate = def.HighPriorityRate
	}
	if config.HighPriorityBurst <= 0 {
		config.HighPriorityBurst = def.HighPriorityBurst
	}

	calc := aging.NewCalculator(aging.Kind(config.Aging), config.StarvationTimeout, config.AgeBoostUnit)
	return &PrioritizationManager{
		queue:            NewPriorityQueue(calc),
		config:           config,
		highPriorityGate: rate.NewLimiter(rate.Limit(config.HighPriorityRate), config.HighPriorityBurst),
	}
}

// Enqueue admits the request into its priority tier. Critical/High requests
// must additionally pass the high-priority rate gate. Capacity violations and
// gate exhaustion are reported synchronously; nothing is retried here.
func (m *PrioritizationManager) Enqueue(r *PrioritizedRequest) error {
	if !r.Priority.valid() {
		return &OrchestratorError{
			Type:        ErrorTypeConfiguration,
			Message:     "invalid priority " + r.Priority.String(),
			OperationID: r.OperationID,
			Timestamp:   time.Now(),
		}
	}

	if r.Priority.isHighTier() && !m.highPriorityGate.Allow() {
		return ErrHighPriorityRateLimited
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tierSize := m.queue.TierLen(r.Priority)
	if tierSize >= m.config.MaxQueueSizePerPriority {
		return &QueueFullError{Priority: r.Priority, QueueSize: tierSize}
	}
	if total := m.queue.Len(); total >= 3*m.config.MaxQueueSizePerPriority {
		return &QueueFullError{Priority: r.Priority, QueueSize: total}
	}

	m.queue.Push(r)
	return nil
}

// Dequeue returns the next request to execute, or nil when the queue is empty.
func (m *PrioritizationManager) Dequeue() *PrioritizedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Pop(m.config.StarvationTimeout)
}

// Remove withdraws a still-queued request by operation ID, typically on
// cancellation. Returns the removed request or nil when it already left the
// queue.
func (m *PrioritizationManager) Remove(operationID string) *PrioritizedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Remove(operationID)
}

// Len returns the total queued request count.
func (m *PrioritizationManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// IsEmpty reports whether nothing is queued.
func (m *PrioritizationManager) IsEmpty() bool { return m.Len() == 0 }

// TierLen returns the occupancy of the storage serving the given priority.
func (m *PrioritizationManager) TierLen(p Priority) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.TierLen(p)
}

// OldestRequestAge reports the maximum starvation risk across the Normal/Low
// and Background storages for monitoring.
func (m *PrioritizationManager) OldestRequestAge() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.OldestAge(time.Now())
}
