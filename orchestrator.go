package reqflow

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"
)

type opState int

const (
	opQueued opState = iota
	opExecuting
	opStreaming
)

// operation is the orchestrator's private record of one submitted request from
// admission to terminal outcome.
type operation struct {
	req           SubmitRequest
	id            string
	correlationID string
	fpKey         string
	dedupOwner    bool
	state         opState
	submittedAt   time.Time
	startedAt     time.Time
	status        int
	header        http.Header
	cancel        context.CancelFunc
}

// Orchestrator turns concurrently-submitted HTTP requests into a bounded,
// fair, deduplicated, rate-limited stream of network operations. Submission is
// synchronous and returns an operation ID; outcomes arrive asynchronously on
// the Events channel. Safe for concurrent use.
type Orchestrator struct {
	dedupConfig   DeduplicationConfig
	dedupDisabled bool
	prioConfig    PrioritizationConfig
	rateConfig    RateLimitConfig
	streamConfig  StreamingConfig
	poolConfig    PoolConfig

	cache    Cache
	cacheTTL time.Duration
	metrics  *MetricsCollector
	logger   Logger
	debug    *DebugConfig

	eventBuffer     int
	dispatchers     int
	janitorInterval time.Duration
	validationError error

	dedup   *DeduplicationManager
	prio    *PrioritizationManager
	limiter *DomainRateLimiter
	pool    *ConnectionPool
	streams *StreamingManager

	events chan Event
	wake   chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	// emitters tracks caller goroutines (Submit, Cancel) that may emit events;
	// Close waits for them before closing the channel.
	emitters sync.WaitGroup

	mu     sync.Mutex
	ops    map[string]*operation
	closed bool
}

// New constructs an Orchestrator using the provided functional options and
// starts its dispatcher and janitor goroutines. A best effort validation is
// performed; call IsValid / ValidationError for errors. Call Close to release
// the background goroutines.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		dedupConfig:     DefaultDeduplicationConfig(),
		prioConfig:      DefaultPrioritizationConfig(),
		rateConfig:      DefaultRateLimitConfig(),
		streamConfig:    DefaultStreamingConfig(),
		poolConfig:      DefaultPoolConfig(),
		cacheTTL:        5 * time.Minute,
		debug:           DefaultDebugConfig(),
		eventBuffer:     256,
		dispatchers:     4,
		janitorInterval: time.Second,
		ops:             make(map[string]*operation),
	}

	for _, option := range options {
		option(o)
	}

	if err := o.ValidateConfiguration(); err != nil {
		o.validationError = err
	}

	// Construction proceeds even when validation failed; clamp the two values
	// used directly below so a bad option cannot panic New.
	if o.eventBuffer <= 0 {
		o.eventBuffer = 256
	}
	if o.dispatchers <= 0 {
		o.dispatchers = 4
	}
	if o.janitorInterval <= 0 {
		o.janitorInterval = time.Second
	}

	if !o.dedupDisabled {
		o.dedup = NewDeduplicationManager(o.dedupConfig)
	}
	o.prio = NewPrioritizationManager(o.prioConfig)
	o.limiter = NewDomainRateLimiter(o.rateConfig)
	o.pool = NewConnectionPool(o.poolConfig)
	o.streams = NewStreamingManager(o.streamConfig)
	o.streams.logger = o.logger
	o.streams.hooks = streamHooks{
		onChunk:    o.onStreamChunk,
		onComplete: o.onStreamComplete,
		onError:    o.onStreamError,
	}

	o.events = make(chan Event, o.eventBuffer)
	o.wake = make(chan struct{}, 1)
	o.done = make(chan struct{})

	for i := 0; i < o.dispatchers; i++ {
		o.wg.Add(1)
		go o.dispatch()
	}
	o.wg.Add(1)
	go o.janitor()

	return o
}

// Events returns the notification channel. Consumers must drain it; event
// emission blocks once the buffer fills.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// IsValid reports whether configuration validation passed at construction.
func (o *Orchestrator) IsValid() bool { return o.validationError == nil }

// ValidationError returns the configuration validation error, if any.
func (o *Orchestrator) ValidationError() error { return o.validationError }

// Submit admits one request. The returned operation ID keys every later event
// for this request. Admission errors (queue full, high-priority rate limited)
// are returned synchronously and are never retried by the orchestrator.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return "", ErrClosed
	}
	o.emitters.Add(1)
	o.mu.Unlock()
	defer o.emitters.Done()

	if req.Priority == 0 {
		req.Priority = PriorityNormal
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	operationID := o.debug.OperationIDGen()
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = o.debug.OperationIDGen()
	}
	domain := DomainFromURL(req.URL)

	if o.debug.Enabled && o.debug.LogSubmissions && o.logger != nil {
		o.logger.Debug("request submitted", "operationID", operationID, "method", req.Method, "url", req.URL, "priority", req.Priority.String())
	}

	// Cache consultation happens before dedup: a fresh cached response
	// resolves the submission without touching the queue at all.
	if o.cache != nil && req.CachePolicy == CacheDefault && cacheableMethod(req.Method) {
		if entry, found := o.cache.Get(cacheKey(req.Method, req.URL)); found {
			if o.metrics != nil {
				o.metrics.RecordCacheHit(req.Method, domain)
			}
			o.emit(RequestCompleted{
				OperationID:   operationID,
				CorrelationID: correlationID,
				Status:        entry.StatusCode,
				Headers:       entry.Header,
				Body:          entry.Body,
				FromCache:     true,
			})
			return operationID, nil
		}
		if o.metrics != nil {
			o.metrics.RecordCacheMiss(req.Method, domain)
		}
	}

	var fpKey string
	dedupOwner := false
	if o.dedup != nil {
		result := o.dedup.CheckAndHandleDuplicate(req.Method, req.URL, req.Headers, req.Body, operationID, correlationID, req.Requester)
		switch result.Status {
		case DedupDuplicate:
			if o.metrics != nil {
				o.metrics.RecordDeduplicationHit(req.Method, domain)
			}
			if o.debug.Enabled && o.debug.LogDedup && o.logger != nil {
				o.logger.Debug("duplicate coalesced", "operationID", operationID, "originalOperationID", result.OriginalOperationID)
			}
			o.emit(RequestDuplicated{
				OperationID:         operationID,
				OriginalOperationID: result.OriginalOperationID,
				DuplicateCount:      result.DuplicateCount,
			})
			return operationID, nil
		case DedupNotDuplicate:
			fpKey = result.Fingerprint.Key()
			dedupOwner = true
		case DedupTooManyDuplicates:
			// Pending list is full: run independently, not deduplicated.
			if o.debug.Enabled && o.debug.LogDedup && o.logger != nil {
				o.logger.Warn("pending duplicates at capacity, running independently", "operationID", operationID)
			}
		}
	}

	pr := &PrioritizedRequest{
		OperationID:   operationID,
		CorrelationID: correlationID,
		Priority:      req.Priority,
		QueuedAt:      time.Now(),
		Metadata: map[string]string{
			"domain":    domain,
			"requester": req.Requester,
		},
	}

	// The operation must be visible to dispatchers before it enters the queue;
	// a dequeue racing ahead of registration would drop the request without a
	// terminal event.
	o.mu.Lock()
	o.ops[operationID] = &operation{
		req:           req,
		id:            operationID,
		correlationID: correlationID,
		fpKey:         fpKey,
		dedupOwner:    dedupOwner,
		state:         opQueued,
		submittedAt:   time.Now(),
	}
	o.mu.Unlock()

	if err := o.prio.Enqueue(pr); err != nil {
		o.mu.Lock()
		delete(o.ops, operationID)
		o.mu.Unlock()
		if dedupOwner {
			// The fingerprint entry was never scheduled; release it and
			// resolve any duplicate that raced in behind us.
			o.resolvePendingFailures(o.dedup.CancelRequest(fpKey), err)
		}
		var qf *QueueFullError
		if errors.As(err, &qf) {
			if o.metrics != nil {
				o.metrics.RecordQueueFull(qf.Priority.String())
			}
			o.emit(RequestQueueFull{Priority: qf.Priority, QueueSize: qf.QueueSize})
		}
		if errors.Is(err, ErrHighPriorityRateLimited) && o.metrics != nil {
			o.metrics.RecordHighPriorityRateLimited()
		}
		return "", err
	}

	select {
	case o.wake <- struct{}{}:
	default:
	}

	return operationID, nil
}

// Cancel withdraws a queued operation or cancels its stream. Operations that
// already left the queue and are mid-execution cannot be cancelled; they run
// to completion or timeout.
func (o *Orchestrator) Cancel(operationID string) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	op, ok := o.ops[operationID]
	if !ok {
		o.mu.Unlock()
		return ErrUnknownOperation
	}
	state := op.state
	o.emitters.Add(1)
	o.mu.Unlock()
	defer o.emitters.Done()

	switch state {
	case opQueued:
		if o.prio.Remove(operationID) == nil {
			// Raced into execution between lookup and removal.
			return ErrNotCancellable
		}
		o.finishFailure(op, ErrorTypeCancelled, ErrCancelled)
		return nil
	case opStreaming:
		return o.streams.CancelStream(operationID)
	default:
		return ErrNotCancellable
	}
}

// Close stops accepting submissions, aborts in-flight work and releases the
// background goroutines. The events channel closes once everything drained.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	cancels := make([]context.CancelFunc, 0, len(o.ops))
	for _, op := range o.ops {
		if op.cancel != nil {
			cancels = append(cancels, op.cancel)
		}
	}
	o.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	close(o.done)
	o.wg.Wait()
	// Stream producers are not part of the orchestrator wait group; their
	// contexts were cancelled above, so this returns promptly. Only then is it
	// safe to close the events channel they emit on.
	o.streams.Wait()
	// Submit and Cancel emit on the caller's goroutine; any that entered before
	// the closed flag was set must finish before the channel closes. Their
	// emissions unblock on done, so this never stalls.
	o.emitters.Wait()
	close(o.events)
}

// OrchestratorStats is a point-in-time monitoring snapshot.
type OrchestratorStats struct {
	QueueLen           int
	OldestRequestAge   time.Duration
	ActiveFingerprints int
	ActiveStreams      int
	TrackedOperations  int
	Pool               PoolStats
	DomainBuckets      int
}

// Stats returns a monitoring snapshot across all managers.
func (o *Orchestrator) Stats() OrchestratorStats {
	o.mu.Lock()
	tracked := len(o.ops)
	o.mu.Unlock()

	stats := OrchestratorStats{
		QueueLen:          o.prio.Len(),
		OldestRequestAge:  o.prio.OldestRequestAge(),
		ActiveStreams:     o.streams.ActiveStreamCount(),
		TrackedOperations: tracked,
		Pool:              o.pool.Stats(),
		DomainBuckets:     o.limiter.DomainCount(),
	}
	if o.dedup != nil {
		stats.ActiveFingerprints = o.dedup.ActiveRequestCount()
	}
	return stats
}

// dispatch is one worker loop: dequeue, gate, execute.
func (o *Orchestrator) dispatch() {
	defer o.wg.Done()

	// The ticker re-polls the queue so aging and starvation checks run even
	// when no new submissions arrive.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-o.done:
			return
		case <-o.wake:
		case <-ticker.C:
		}

		for {
			select {
			case <-o.done:
				return
			default:
			}
			pr := o.prio.Dequeue()
			if pr == nil {
				break
			}
			o.execute(pr)
		}
	}
}

// execute runs one dequeued request through the rate gate, pooled client and
// response delivery.
func (o *Orchestrator) execute(pr *PrioritizedRequest) {
	o.mu.Lock()
	op, ok := o.ops[pr.OperationID]
	if ok {
		op.state = opExecuting
		op.startedAt = time.Now()
	}
	o.mu.Unlock()
	if !ok {
		return
	}

	req := op.req
	domain := DomainFromURL(req.URL)

	if err := o.limiter.Check(domain); err != nil {
		global := errors.Is(err, ErrGlobalRateLimited)
		if o.metrics != nil {
			if global {
				o.metrics.RecordRateLimited("global")
			} else {
				o.metrics.RecordRateLimited("domain")
			}
			o.metrics.RecordError(ErrorTypeRateLimit, req.Method, domain)
		}
		if o.debug.Enabled && o.debug.LogRateLimit && o.logger != nil {
			o.logger.Warn("rate limit exceeded", "operationID", op.id, "domain", domain, "global", global)
		}
		o.emit(RequestRateLimited{OperationID: op.id, Domain: domain, Global: global})
		o.finishFailure(op, ErrorTypeRateLimit, err)
		return
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = o.poolConfig.Timeout
	}
	// Whether the response streams is unknown until headers arrive, so the
	// context must leave room for the stream duration cap; the transport's
	// ResponseHeaderTimeout still bounds the wait for headers.
	if timeout < o.streamConfig.MaxStreamDuration {
		timeout = o.streamConfig.MaxStreamDuration
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	o.mu.Lock()
	op.cancel = cancel
	o.mu.Unlock()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		cancel()
		o.finishFailure(op, ErrorTypeNetwork, err)
		return
	}
	for k, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	if o.metrics != nil {
		o.metrics.RecordRequestStart(req.Method, domain)
	}
	o.pool.TrackConnectionStart(domain)

	client := o.pool.GetClient()
	resp, err := client.Do(httpReq)

	if o.metrics != nil {
		o.metrics.RecordRequestEnd(req.Method, domain)
	}

	duration := time.Since(op.startedAt)
	if err != nil {
		o.pool.TrackConnectionEnd(domain, false)
		if o.metrics != nil {
			o.metrics.RecordRequest(req.Method, domain, 0, duration)
			o.metrics.RecordError(ErrorTypeNetwork, req.Method, domain)
		}
		cancel()
		o.finishFailure(op, ErrorTypeNetwork, err)
		return
	}

	o.pool.TrackConnectionEnd(domain, resp.StatusCode < 500)
	if o.metrics != nil {
		o.metrics.RecordRequest(req.Method, domain, resp.StatusCode, duration)
	}

	op.status = resp.StatusCode
	op.header = resp.Header

	if o.shouldStream(req, resp) {
		o.mu.Lock()
		op.state = opStreaming
		o.mu.Unlock()

		receiver, startErr := o.streams.StartStream(ctx, op.id, op.correlationID, resp)
		if startErr != nil {
			cancel()
			o.finishFailure(op, ErrorTypeStream, startErr)
			return
		}
		if o.debug.Enabled && o.debug.LogStreaming && o.logger != nil {
			o.logger.Debug("stream started", "operationID", op.id, "contentLength", resp.ContentLength)
		}
		o.emit(RequestCompleted{
			OperationID:   op.id,
			CorrelationID: op.correlationID,
			Status:        resp.StatusCode,
			Headers:       resp.Header,
			Stream:        receiver,
			Duration:      duration,
		})
		// Dedup completion waits for the stream's terminal outcome; the
		// hooks finish the operation.
		return
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	cancel()
	if readErr != nil {
		if o.metrics != nil {
			o.metrics.RecordError(ErrorTypeNetwork, req.Method, domain)
		}
		o.finishFailure(op, ErrorTypeNetwork, readErr)
		return
	}

	if o.cache != nil && req.CachePolicy != CacheDisabled && cacheableMethod(req.Method) &&
		resp.StatusCode >= 200 && resp.StatusCode < 300 {
		o.cache.Set(cacheKey(req.Method, req.URL), &CacheEntry{
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}, o.cacheTTL)
	}

	duration = time.Since(op.startedAt)
	o.emit(RequestCompleted{
		OperationID:   op.id,
		CorrelationID: op.correlationID,
		Status:        resp.StatusCode,
		Headers:       resp.Header,
		Body:          body,
		Duration:      duration,
	})

	o.finishSuccess(op, body, duration)
}

// shouldStream decides chunked versus buffered delivery: explicit request,
// unknown content length, or a body at least MinStreamSize all stream.
func (o *Orchestrator) shouldStream(req SubmitRequest, resp *http.Response) bool {
	if req.Stream {
		return true
	}
	if resp.ContentLength < 0 {
		return true
	}
	return resp.ContentLength >= o.streamConfig.MinStreamSize
}

// finishSuccess removes the operation record and fans the buffered outcome out
// to every pending duplicate.
func (o *Orchestrator) finishSuccess(op *operation, body []byte, duration time.Duration) {
	o.mu.Lock()
	delete(o.ops, op.id)
	o.mu.Unlock()

	if !op.dedupOwner {
		return
	}
	pending := o.dedup.CompleteRequest(op.fpKey)
	for _, p := range pending {
		o.emit(RequestCompleted{
			OperationID:   p.OperationID,
			CorrelationID: p.CorrelationID,
			Status:        op.status,
			Headers:       op.header,
			Body:          body,
			Duration:      duration,
		})
	}
	if len(pending) > 0 && o.metrics != nil {
		o.metrics.RecordDuplicatesResolved(len(pending))
	}
}

// finishFailure removes the operation record, emits the failure and resolves
// pending duplicates with the same error.
func (o *Orchestrator) finishFailure(op *operation, errorType string, err error) {
	o.mu.Lock()
	delete(o.ops, op.id)
	o.mu.Unlock()

	o.emit(RequestFailed{
		OperationID:   op.id,
		CorrelationID: op.correlationID,
		ErrorType:     errorType,
		Message:       err.Error(),
		Err:           err,
	})

	if op.dedupOwner {
		o.resolvePendingFailures(o.dedup.CancelRequest(op.fpKey), err)
	}
}

// resolvePendingFailures delivers a failure to duplicates whose original never
// produced a response. They are never silently dropped.
func (o *Orchestrator) resolvePendingFailures(pending []PendingDuplicate, err error) {
	errorType := ErrorTypeNetwork
	switch {
	case errors.Is(err, ErrCancelled):
		errorType = ErrorTypeCancelled
	case errors.Is(err, ErrGlobalRateLimited), errors.Is(err, ErrDomainRateLimited):
		errorType = ErrorTypeRateLimit
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrHighPriorityRateLimited):
		errorType = ErrorTypeQueueFull
	case IsExpiry(err):
		errorType = ErrorTypeExpired
	case errors.Is(err, ErrStreamTimeout), errors.Is(err, ErrStreamCancelled):
		errorType = ErrorTypeStream
	}
	for _, p := range pending {
		o.emit(RequestFailed{
			OperationID:   p.OperationID,
			CorrelationID: p.CorrelationID,
			ErrorType:     errorType,
			Message:       err.Error(),
			Err:           err,
		})
	}
	if len(pending) > 0 && o.metrics != nil {
		o.metrics.RecordDuplicatesResolved(len(pending))
	}
}

// onStreamChunk is the producer hook emitting chunk notifications.
func (o *Orchestrator) onStreamChunk(operationID string, chunk StreamChunk, bytesTotal int64) {
	if o.metrics != nil {
		o.metrics.RecordStreamChunk(len(chunk.Data))
	}
	o.emit(StreamChunkReceived{
		OperationID: operationID,
		Sequence:    chunk.Sequence,
		ChunkSize:   len(chunk.Data),
		BytesTotal:  bytesTotal,
	})
}

// onStreamComplete finishes a successfully streamed operation. Duplicates
// receive the status and headers; the body itself went to the single stream
// consumer and cannot be replayed.
func (o *Orchestrator) onStreamComplete(operationID string, totalBytes, totalChunks int64, duration time.Duration) {
	o.emit(StreamCompleted{
		OperationID: operationID,
		TotalBytes:  totalBytes,
		TotalChunks: totalChunks,
		Duration:    duration,
	})

	o.mu.Lock()
	op, ok := o.ops[operationID]
	delete(o.ops, operationID)
	o.mu.Unlock()
	if !ok {
		return
	}
	if op.cancel != nil {
		op.cancel()
	}

	if op.dedupOwner {
		pending := o.dedup.CompleteRequest(op.fpKey)
		for _, p := range pending {
			o.emit(RequestCompleted{
				OperationID:   p.OperationID,
				CorrelationID: p.CorrelationID,
				Status:        op.status,
				Headers:       op.header,
				Duration:      duration,
			})
		}
		if len(pending) > 0 && o.metrics != nil {
			o.metrics.RecordDuplicatesResolved(len(pending))
		}
	}
}

// onStreamError finishes a stream that terminated abnormally. Expiry is
// reported as RequestExpired, a distinct outcome from failure.
func (o *Orchestrator) onStreamError(operationID string, streamErr error) {
	o.mu.Lock()
	op, ok := o.ops[operationID]
	delete(o.ops, operationID)
	o.mu.Unlock()
	if !ok {
		return
	}
	if op.cancel != nil {
		op.cancel()
	}

	if errors.Is(streamErr, ErrStreamExpired) {
		if o.metrics != nil {
			o.metrics.RecordStreamsExpired(1)
		}
		o.emit(RequestExpired{
			OperationID:   op.id,
			CorrelationID: op.correlationID,
			Age:           time.Since(op.startedAt),
		})
	} else {
		errorType := ErrorTypeStream
		if errors.Is(streamErr, ErrStreamCancelled) {
			errorType = ErrorTypeCancelled
		}
		o.emit(RequestFailed{
			OperationID:   op.id,
			CorrelationID: op.correlationID,
			ErrorType:     errorType,
			Message:       streamErr.Error(),
			Err:           streamErr,
		})
	}

	if op.dedupOwner {
		o.resolvePendingFailures(o.dedup.CancelRequest(op.fpKey), streamErr)
	}
}

// janitor drives the periodic cleanup passes and refreshes monitoring gauges.
func (o *Orchestrator) janitor() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.done:
			return
		case <-ticker.C:
		}

		if o.dedup != nil {
			for _, expired := range o.dedup.CleanupExpiredRequests() {
				o.mu.Lock()
				op, tracked := o.ops[expired.OperationID]
				queued := tracked && op.state == opQueued
				o.mu.Unlock()
				// The original may still be queued; drop it so a late
				// completion does not double-report.
				if queued {
					o.prio.Remove(expired.OperationID)
					o.mu.Lock()
					delete(o.ops, expired.OperationID)
					o.mu.Unlock()
					o.emit(RequestExpired{
						OperationID:   expired.OperationID,
						CorrelationID: expired.CorrelationID,
						Age:           expired.Age,
					})
				}
				for _, p := range expired.Pending {
					o.emit(RequestExpired{
						OperationID:   p.OperationID,
						CorrelationID: p.CorrelationID,
						Age:           expired.Age,
					})
				}
			}
		}

		if n := o.streams.CleanupExpiredStreams(); n > 0 && o.debug.Enabled && o.debug.LogStreaming && o.logger != nil {
			o.logger.Warn("expired streams aborted", "count", n)
		}

		o.limiter.CleanupInactiveLimiters(o.rateConfig.InactiveAfter)

		if o.metrics != nil {
			if o.dedup != nil {
				o.metrics.RecordActiveFingerprints(o.dedup.ActiveRequestCount())
			}
			o.metrics.RecordActiveStreams(o.streams.ActiveStreamCount())
			o.metrics.RecordQueueDepth("high", o.prio.TierLen(PriorityHigh))
			o.metrics.RecordQueueDepth("normal", o.prio.TierLen(PriorityNormal))
			o.metrics.RecordQueueDepth("background", o.prio.TierLen(PriorityBackground))
		}
	}
}

// emit delivers one event, giving up only when the orchestrator shuts down.
func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}
