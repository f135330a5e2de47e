package reqflow

import (
	"net/http"
	"time"
)

// Priority orders requests in the scheduling queue. The numeric values are the
// base weights used for effective-priority computation; higher runs first.
type Priority int

const (
	PriorityBackground Priority = 1
	PriorityLow        Priority = 20
	PriorityNormal     Priority = 50
	PriorityHigh       Priority = 80
	PriorityCritical   Priority = 100
)

// String returns the human-readable tier name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	default:
		return "unknown"
	}
}

func (p Priority) valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow, PriorityBackground:
		return true
	}
	return false
}

// isHighTier reports whether the priority is served by the max-heap storage.
func (p Priority) isHighTier() bool {
	return p == PriorityCritical || p == PriorityHigh
}

// CachePolicy controls per-request interaction with the response cache.
type CachePolicy int

const (
	// CacheDefault consults the cache for safe methods and stores 2xx responses.
	CacheDefault CachePolicy = iota
	// CacheDisabled skips the cache entirely for this request.
	CacheDisabled
	// CacheRefresh skips the lookup but stores the fresh response.
	CacheRefresh
)

// SubmitRequest describes one HTTP operation handed to the Orchestrator.
// Execution is asynchronous; the outcome arrives on the Events channel keyed by
// the operation ID returned from Submit.
type SubmitRequest struct {
	Method        string
	URL           string
	Headers       http.Header
	Body          []byte
	Priority      Priority
	CachePolicy   CachePolicy
	Timeout       time.Duration
	Requester     string
	CorrelationID string

	// Stream forces chunked delivery of the response body even when it would
	// fit in a buffered RequestCompleted event.
	Stream bool
}

// Event is the interface implemented by all orchestration notifications.
type Event interface {
	Kind() EventKind
}

// EventKind identifies the concrete type of an Event.
type EventKind string

const (
	EventRequestCompleted    EventKind = "request_completed"
	EventRequestFailed       EventKind = "request_failed"
	EventRequestDuplicated   EventKind = "request_duplicated"
	EventRequestRateLimited  EventKind = "request_rate_limited"
	EventRequestQueueFull    EventKind = "request_queue_full"
	EventRequestExpired      EventKind = "request_expired"
	EventStreamChunkReceived EventKind = "stream_chunk_received"
	EventStreamCompleted     EventKind = "stream_completed"
)

// RequestCompleted reports a finished operation. Exactly one of Body or Stream
// is set: small responses arrive buffered, large or explicitly streamed ones
// carry a StreamReceiver the consumer drains itself.
type RequestCompleted struct {
	OperationID   string
	CorrelationID string
	Status        int
	Headers       http.Header
	Body          []byte
	Stream        *StreamReceiver
	FromCache     bool
	Duration      time.Duration
}

func (RequestCompleted) Kind() EventKind { return EventRequestCompleted }

// RequestFailed reports a terminal execution or streaming failure.
type RequestFailed struct {
	OperationID   string
	CorrelationID string
	ErrorType     string
	Message       string
	Err           error
}

func (RequestFailed) Kind() EventKind { return EventRequestFailed }

// RequestDuplicated reports that a submission was coalesced onto an in-flight
// identical request; the duplicate receives the original's outcome later.
type RequestDuplicated struct {
	OperationID         string
	OriginalOperationID string
	DuplicateCount      int
}

func (RequestDuplicated) Kind() EventKind { return EventRequestDuplicated }

// RequestRateLimited reports a request rejected by the global or per-domain
// token bucket after it was dequeued.
type RequestRateLimited struct {
	OperationID string
	Domain      string
	Global      bool
}

func (RequestRateLimited) Kind() EventKind { return EventRequestRateLimited }

// RequestQueueFull reports a submission rejected because its priority tier was
// at capacity.
type RequestQueueFull struct {
	Priority  Priority
	QueueSize int
}

func (RequestQueueFull) Kind() EventKind { return EventRequestQueueFull }

// RequestExpired reports that a tracked operation outlived its window without
// producing an outcome. It is deliberately distinct from RequestFailed so
// monitoring can tell "never got an answer" from "got an error".
type RequestExpired struct {
	OperationID   string
	CorrelationID string
	Age           time.Duration
}

func (RequestExpired) Kind() EventKind { return EventRequestExpired }

// StreamChunkReceived reports one chunk produced on an active stream.
type StreamChunkReceived struct {
	OperationID string
	Sequence    uint64
	ChunkSize   int
	BytesTotal  int64
}

func (StreamChunkReceived) Kind() EventKind { return EventStreamChunkReceived }

// StreamCompleted reports that a stream delivered its final chunk.
type StreamCompleted struct {
	OperationID string
	TotalBytes  int64
	TotalChunks int64
	Duration    time.Duration
}

func (StreamCompleted) Kind() EventKind { return EventStreamCompleted }

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)
