package reqflow

import (
	"errors"
	"fmt"
	"time"
)

// Error type constants used in OrchestratorError.Type and RequestFailed events.
const (
	ErrorTypeQueueFull     = "QueueFull"
	ErrorTypeRateLimit     = "RateLimit"
	ErrorTypeDuplicate     = "Duplicate"
	ErrorTypeNetwork       = "Network"
	ErrorTypeServer        = "Server"
	ErrorTypeStream        = "Stream"
	ErrorTypeExpired       = "Expired"
	ErrorTypeCancelled     = "Cancelled"
	ErrorTypeClosed        = "Closed"
	ErrorTypeConfiguration = "Configuration"
)

// Sentinel errors for common failure scenarios
var (
	// ErrGlobalRateLimited is returned when the global token bucket is exhausted.
	ErrGlobalRateLimited = errors.New("reqflow: global rate limit exceeded")

	// ErrDomainRateLimited is the base error for per-domain rejections; use
	// errors.As with *DomainRateLimitError to recover the domain.
	ErrDomainRateLimited = errors.New("reqflow: domain rate limit exceeded")

	// ErrHighPriorityRateLimited is returned when Critical/High admission
	// exceeds the high-priority token bucket.
	ErrHighPriorityRateLimited = errors.New("reqflow: high priority admission rate limited")

	// ErrQueueFull is the base error for per-tier capacity rejections; use
	// errors.As with *QueueFullError to recover the tier.
	ErrQueueFull = errors.New("reqflow: priority queue full")

	// ErrTooManyDuplicates is returned when a fingerprint already carries the
	// maximum number of pending duplicates.
	ErrTooManyDuplicates = errors.New("reqflow: too many pending duplicates")

	// ErrStreamTimeout is returned when a chunk could not be delivered within
	// the configured chunk timeout. It is fatal to the stream.
	ErrStreamTimeout = errors.New("reqflow: stream chunk delivery timed out")

	// ErrStreamCancelled is returned when a stream was cancelled by control
	// message or by Cancel on the orchestrator.
	ErrStreamCancelled = errors.New("reqflow: stream cancelled")

	// ErrStreamExpired is returned when a stream exceeded the maximum stream
	// duration and was forcibly aborted.
	ErrStreamExpired = errors.New("reqflow: stream exceeded max duration")

	// ErrStreamNotFound is returned for control operations on unknown streams.
	ErrStreamNotFound = errors.New("reqflow: stream not found")

	// ErrStreamControlFull is returned when the control buffer cannot accept
	// another message without blocking.
	ErrStreamControlFull = errors.New("reqflow: stream control buffer full")

	// ErrExpired is returned when a tracked request outlived its window.
	ErrExpired = errors.New("reqflow: request expired")

	// ErrClosed is returned when submitting to a closed orchestrator.
	ErrClosed = errors.New("reqflow: orchestrator closed")

	// ErrCancelled is the terminal outcome of an explicitly cancelled
	// operation.
	ErrCancelled = errors.New("reqflow: operation cancelled")

	// ErrUnknownOperation is returned by Cancel for operation IDs the
	// orchestrator is not tracking.
	ErrUnknownOperation = errors.New("reqflow: unknown operation")

	// ErrNotCancellable is returned by Cancel for operations that already left
	// the queue and are executing; they run to completion or timeout.
	ErrNotCancellable = errors.New("reqflow: operation is executing and cannot be cancelled")
)

// QueueFullError reports which priority tier was at capacity.
type QueueFullError struct {
	Priority  Priority
	QueueSize int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("reqflow: %s priority queue full (%d entries)", e.Priority, e.QueueSize)
}

// Is makes errors.Is(err, ErrQueueFull) succeed for any tier.
func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }

// DomainRateLimitError reports which domain bucket rejected the request.
type DomainRateLimitError struct {
	Domain string
}

func (e *DomainRateLimitError) Error() string {
	return fmt.Sprintf("reqflow: rate limit exceeded for domain %q", e.Domain)
}

// Is makes errors.Is(err, ErrDomainRateLimited) succeed.
func (e *DomainRateLimitError) Is(target error) bool { return target == ErrDomainRateLimited }

// IsAdmissionError reports whether err was returned synchronously at submission
// time (queue full, high-priority rate limited, too many duplicates). Retry
// policy for these belongs to the caller, never to the orchestrator.
func IsAdmissionError(err error) bool {
	return errors.Is(err, ErrQueueFull) ||
		errors.Is(err, ErrHighPriorityRateLimited) ||
		errors.Is(err, ErrTooManyDuplicates)
}

// IsExpiry reports whether err represents an expiry outcome rather than a
// failure: the operation never produced an answer inside its window.
func IsExpiry(err error) bool {
	return errors.Is(err, ErrExpired) || errors.Is(err, ErrStreamExpired)
}

// OrchestratorError carries diagnostic context for a failed operation.
type OrchestratorError struct {
	Type          string
	Message       string
	Cause         error
	OperationID   string
	CorrelationID string
	Method        string
	URL           string
	Domain        string
	Priority      Priority
	StatusCode    int
	Timestamp     time.Time
	Duration      time.Duration
}

// Error implements error interface.
func (e *OrchestratorError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.OperationID != "" {
		msg = fmt.Sprintf("[%s] %s", e.OperationID, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *OrchestratorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *OrchestratorError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*OrchestratorError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *OrchestratorError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.OperationID != "" {
		info += fmt.Sprintf("Operation ID: %s\n", e.OperationID)
	}
	if e.CorrelationID != "" {
		info += fmt.Sprintf("Correlation ID: %s\n", e.CorrelationID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.Domain != "" {
		info += fmt.Sprintf("Domain: %s\n", e.Domain)
	}
	if e.Priority != 0 {
		info += fmt.Sprintf("Priority: %s\n", e.Priority)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}
