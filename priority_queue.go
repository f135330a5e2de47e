package reqflow

import (
	"container/heap"
	"time"

	"github.com/cyrup-ai/reqflow/internal/aging"
)

// PrioritizedRequest is one queued operation. EffectivePriority starts at the
// base weight and is only ever raised by aging while the request sits in a
// queue; it saturates at 255 rather than wrapping.
type PrioritizedRequest struct {
	OperationID      string
	CorrelationID    string
	Priority         Priority
	OriginalPriority Priority
	EffectivePriority uint8
	QueuedAt         time.Time
	Metadata         map[string]string

	index int // heap bookkeeping; -1 when not in the heap
}

// UpdateEffectivePriority recomputes the effective priority from the base
// weight plus the aging boost for the current queue time.
func (r *PrioritizedRequest) UpdateEffectivePriority(calc *aging.Calculator, now time.Time) {
	boost := calc.Boost(now.Sub(r.QueuedAt))
	r.EffectivePriority = saturatingPriority(int(r.OriginalPriority) + boost)
}

func saturatingPriority(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// requestHeap is a max-heap ordered by effective priority, ties broken by
// earliest QueuedAt.
type requestHeap []*PrioritizedRequest

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if h[i].EffectivePriority != h[j].EffectivePriority {
		return h[i].EffectivePriority > h[j].EffectivePriority
	}
	return h[i].QueuedAt.Before(h[j].QueuedAt)
}

func (h requestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *requestHeap) Push(x interface{}) {
	r := x.(*PrioritizedRequest)
	r.index = len(*h)
	*h = append(*h, r)
}

func (h *requestHeap) Pop() interface{} {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	*h = old[:n-1]
	return r
}

// requestFIFO is a slice-backed queue with stable head removal.
type requestFIFO struct {
	items []*PrioritizedRequest
}

func (q *requestFIFO) push(r *PrioritizedRequest) { q.items = append(q.items, r) }

func (q *requestFIFO) pop() *PrioritizedRequest {
	if len(q.items) == 0 {
		return nil
	}
	r := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return r
}

func (q *requestFIFO) removeAt(i int) *PrioritizedRequest {
	r := q.items[i]
	q.items = append(q.items[:i], q.items[i+1:]...)
	return r
}

func (q *requestFIFO) len() int { return len(q.items) }

// PriorityQueue is the three-storage scheduling structure: a max-heap for
// Critical/High, a FIFO for Normal/Low and a FIFO for Background. A request is
// present in exactly one storage at a time. The type is a pure data structure;
// PrioritizationManager adds locking, capacities and admission gating.
type PriorityQueue struct {
	high       requestHeap
	normalLow  requestFIFO
	background requestFIFO
	calc       *aging.Calculator
}

// NewPriorityQueue creates a queue using the given aging calculator.
func NewPriorityQueue(calc *aging.Calculator) *PriorityQueue {
	pq := &PriorityQueue{calc: calc}
	heap.Init(&pq.high)
	return pq
}

// Push places the request in the storage matching its tier.
func (pq *PriorityQueue) Push(r *PrioritizedRequest) {
	r.OriginalPriority = r.Priority
	r.EffectivePriority = saturatingPriority(int(r.Priority))
	if r.QueuedAt.IsZero() {
		r.QueuedAt = time.Now()
	}

	switch {
	case r.Priority.isHighTier():
		heap.Push(&pq.high, r)
	case r.Priority == PriorityBackground:
		pq.background.push(r)
	default:
		pq.normalLow.push(r)
	}
}

// Pop removes and returns the next request to run, or nil when empty:
// the high-priority heap drains first; then the Normal/Low FIFO, except that
// an entry queued longer than starvationTimeout is pulled out of order; then
// the Background FIFO. Every pop recomputes effective priorities for the aged
// FIFO entries first.
func (pq *PriorityQueue) Pop(starvationTimeout time.Duration) *PrioritizedRequest {
	now := time.Now()
	pq.age(now)

	if pq.high.Len() > 0 {
		return heap.Pop(&pq.high).(*PrioritizedRequest)
	}

	if starvationTimeout > 0 {
		for i, r := range pq.normalLow.items {
			if now.Sub(r.QueuedAt) > starvationTimeout {
				return pq.normalLow.removeAt(i)
			}
		}
	}

	if r := pq.normalLow.pop(); r != nil {
		return r
	}
	return pq.background.pop()
}

// age recomputes effective priorities for all Normal/Low and Background
// entries. Heap entries keep their base weight; they are already served first.
func (pq *PriorityQueue) age(now time.Time) {
	for _, r := range pq.normalLow.items {
		r.UpdateEffectivePriority(pq.calc, now)
	}
	for _, r := range pq.background.items {
		r.UpdateEffectivePriority(pq.calc, now)
	}
}

// Remove deletes the request with the given operation ID from whichever
// storage holds it. Returns the removed request or nil.
func (pq *PriorityQueue) Remove(operationID string) *PrioritizedRequest {
	for i, r := range pq.high {
		if r.OperationID == operationID {
			return heap.Remove(&pq.high, i).(*PrioritizedRequest)
		}
	}
	for i, r := range pq.normalLow.items {
		if r.OperationID == operationID {
			return pq.normalLow.removeAt(i)
		}
	}
	for i, r := range pq.background.items {
		if r.OperationID == operationID {
			return pq.background.removeAt(i)
		}
	}
	return nil
}

// Len returns the total number of queued requests across all storages.
func (pq *PriorityQueue) Len() int {
	return pq.high.Len() + pq.normalLow.len() + pq.background.len()
}

// IsEmpty reports whether no requests are queued.
func (pq *PriorityQueue) IsEmpty() bool { return pq.Len() == 0 }

// TierLen returns the occupancy of the storage serving the given priority.
func (pq *PriorityQueue) TierLen(p Priority) int {
	switch {
	case p.isHighTier():
		return pq.high.Len()
	case p == PriorityBackground:
		return pq.background.len()
	default:
		return pq.normalLow.len()
	}
}

// OldestAge returns the longest queue time across the Normal/Low and
// Background storages, the population at risk of starvation.
func (pq *PriorityQueue) OldestAge(now time.Time) time.Duration {
	var oldest time.Duration
	for _, r := range pq.normalLow.items {
		if age := now.Sub(r.QueuedAt); age > oldest {
			oldest = age
		}
	}
	for _, r := range pq.background.items {
		if age := now.Sub(r.QueuedAt); age > oldest {
			oldest = age
		}
	}
	return oldest
}
