package reqflow

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// StreamControlOp is an out-of-band instruction to a stream producer.
type StreamControlOp int

const (
	// StreamPause stops polling the transport until StreamResume.
	StreamPause StreamControlOp = iota
	// StreamResume continues a paused stream.
	StreamResume
	// StreamCancel aborts the stream; the receiver observes ErrStreamCancelled.
	StreamCancel
	// StreamAdjustChunkSize changes the chunk size and immediately re-slices
	// any already-buffered data.
	StreamAdjustChunkSize
)

// StreamControlMessage carries one control operation. ChunkSize is only read
// for StreamAdjustChunkSize.
type StreamControlMessage struct {
	Op        StreamControlOp
	ChunkSize int
}

// ChunkMetadata describes the payload of one chunk.
type ChunkMetadata struct {
	OriginalSize   int
	CompressedSize int
	Hash           string
	Encoding       string
}

// StreamChunk is one slice of a response body. Sequence numbers start at 0 and
// are strictly increasing within a stream. Exactly one chunk has IsFinal set;
// it is always delivered last and carries no data.
type StreamChunk struct {
	Sequence  uint64
	Data      []byte
	Timestamp time.Time
	IsFinal   bool
	Metadata  ChunkMetadata
}

// ActiveStream is the bookkeeping record for one in-progress response body.
type ActiveStream struct {
	OperationID   string
	CorrelationID string
	StartedAt     time.Time
	ContentLength int64 // -1 when unknown

	bytesStreamed int64
	chunksSent    int64
	backpressure  int32

	control chan StreamControlMessage
	chunks  chan StreamChunk
	done    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	body      io.ReadCloser
	closeBody sync.Once

	reasonMu sync.Mutex
	reason   error
}

// BytesStreamed returns the number of payload bytes emitted so far.
func (s *ActiveStream) BytesStreamed() int64 { return atomic.LoadInt64(&s.bytesStreamed) }

// ChunksSent returns the number of data chunks emitted so far.
func (s *ActiveStream) ChunksSent() int64 { return atomic.LoadInt64(&s.chunksSent) }

// BackpressureActive reports whether the producer's undelivered data exceeds
// BackpressureThreshold or the delivery channel is full.
func (s *ActiveStream) BackpressureActive() bool { return atomic.LoadInt32(&s.backpressure) == 1 }

// abort records the terminal reason (first writer wins), cancels the stream
// context and closes the transport body so a blocked Read returns.
func (s *ActiveStream) abort(reason error) {
	s.reasonMu.Lock()
	if s.reason == nil {
		s.reason = reason
	}
	s.reasonMu.Unlock()

	s.cancel()
	s.closeBody.Do(func() { _ = s.body.Close() })
}

func (s *ActiveStream) terminalReason() error {
	s.reasonMu.Lock()
	defer s.reasonMu.Unlock()
	return s.reason
}

// streamHooks lets the composition root observe chunk production without the
// manager knowing about events or metrics.
type streamHooks struct {
	onChunk    func(operationID string, chunk StreamChunk, bytesTotal int64)
	onComplete func(operationID string, totalBytes, totalChunks int64, duration time.Duration)
	onError    func(operationID string, err error)
}

// StreamingManager owns the lifecycle of chunked response deliveries: one
// producer goroutine per stream, bounded delivery channels, out-of-band
// control and duration-based expiry. Safe for concurrent use.
type StreamingManager struct {
	mu      sync.Mutex
	streams map[string]*ActiveStream
	config  StreamingConfig
	hooks   streamHooks
	logger  Logger
	wg      sync.WaitGroup
}

// NewStreamingManager creates a manager with the given configuration.
func NewStreamingManager(config StreamingConfig) *StreamingManager {
	def := DefaultStreamingConfig()
	if config.ChunkSize <= 0 {
		config.ChunkSize = def.ChunkSize
	}
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if config.ChunkTimeout <= 0 {
		config.ChunkTimeout = def.ChunkTimeout
	}
	if config.MaxStreamDuration <= 0 {
		config.MaxStreamDuration = def.MaxStreamDuration
	}
	if config.BackpressureThreshold <= 0 {
		config.BackpressureThreshold = def.BackpressureThreshold
	}
	return &StreamingManager{
		streams: make(map[string]*ActiveStream),
		config:  config,
	}
}

// StartStream begins chunked delivery of the response body and returns the
// receiver the consumer drains. The producer goroutine owns the body from this
// point; the caller must not touch resp.Body again.
func (sm *StreamingManager) StartStream(ctx context.Context, operationID, correlationID string, resp *http.Response) (*StreamReceiver, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	st := &ActiveStream{
		OperationID:   operationID,
		CorrelationID: correlationID,
		StartedAt:     time.Now(),
		ContentLength: resp.ContentLength,
		control:       make(chan StreamControlMessage, 16),
		chunks:        make(chan StreamChunk, sm.config.BufferSize),
		done:          make(chan struct{}),
		ctx:           streamCtx,
		cancel:        cancel,
		body:          resp.Body,
	}

	sm.mu.Lock()
	sm.streams[operationID] = st
	sm.mu.Unlock()

	receiver := &StreamReceiver{
		operationID:   operationID,
		correlationID: correlationID,
		contentLength: resp.ContentLength,
		chunks:        st.chunks,
		control:       st.control,
		done:          st.done,
		stream:        st,
	}

	sm.wg.Add(1)
	go sm.produce(st)

	return receiver, nil
}

// Wait blocks until every producer goroutine has exited. Callers must abort or
// drain the streams first.
func (sm *StreamingManager) Wait() {
	sm.wg.Wait()
}

// CancelStream aborts the stream for the given operation.
func (sm *StreamingManager) CancelStream(operationID string) error {
	sm.mu.Lock()
	st, ok := sm.streams[operationID]
	sm.mu.Unlock()
	if !ok {
		return ErrStreamNotFound
	}
	st.abort(ErrStreamCancelled)
	return nil
}

// CompleteStream drops the bookkeeping entry for a finished stream.
func (sm *StreamingManager) CompleteStream(operationID string) {
	sm.mu.Lock()
	delete(sm.streams, operationID)
	sm.mu.Unlock()
}

// CleanupExpiredStreams aborts streams older than MaxStreamDuration and
// returns how many were expired. Expired streams report ErrStreamExpired,
// which is a distinct terminal outcome from failure.
func (sm *StreamingManager) CleanupExpiredStreams() int {
	cutoff := time.Now().Add(-sm.config.MaxStreamDuration)

	sm.mu.Lock()
	var stale []*ActiveStream
	for _, st := range sm.streams {
		if st.StartedAt.Before(cutoff) {
			stale = append(stale, st)
		}
	}
	sm.mu.Unlock()

	for _, st := range stale {
		st.abort(ErrStreamExpired)
	}
	return len(stale)
}

// ActiveStreamCount returns the number of in-progress streams.
func (sm *StreamingManager) ActiveStreamCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.streams)
}

// ActiveStream returns the bookkeeping record for an in-progress stream.
func (sm *StreamingManager) ActiveStream(operationID string) (*ActiveStream, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	st, ok := sm.streams[operationID]
	return st, ok
}

// produce is the single producer task for one stream. It alternates between
// draining control messages and reading the transport, slices buffered bytes
// into fixed-size chunks, flushes the trailing partial chunk at EOF and ends
// with the synthetic empty final chunk.
func (sm *StreamingManager) produce(st *ActiveStream) {
	defer sm.wg.Done()
	defer st.closeBody.Do(func() { _ = st.body.Close() })
	defer close(st.done)
	defer close(st.chunks)
	defer sm.CompleteStream(st.OperationID)

	deadline := time.NewTimer(sm.config.MaxStreamDuration)
	defer deadline.Stop()

	chunkSize := sm.config.ChunkSize
	buf := make([]byte, 0, chunkSize)
	readBuf := make([]byte, 32*1024)
	var seq uint64
	paused := false

	emit := func(data []byte, final bool) bool {
		chunk := StreamChunk{
			Sequence:  seq,
			Data:      data,
			Timestamp: time.Now(),
			IsFinal:   final,
			Metadata:  ChunkMetadata{OriginalSize: len(data)},
		}
		if err := sm.deliver(st, chunk); err != nil {
			st.abort(err)
			sm.fail(st)
			return false
		}
		seq++
		if !final {
			atomic.AddInt64(&st.bytesStreamed, int64(len(data)))
			atomic.AddInt64(&st.chunksSent, 1)
			if sm.hooks.onChunk != nil {
				sm.hooks.onChunk(st.OperationID, chunk, st.BytesStreamed())
			}
		}
		return true
	}

	// updatePressure reflects how much data sits undelivered: the accumulation
	// buffer plus chunks parked in the delivery channel.
	updatePressure := func() {
		pending := int64(len(buf)) + int64(len(st.chunks))*int64(chunkSize)
		if pending > sm.config.BackpressureThreshold || len(st.chunks) == cap(st.chunks) {
			atomic.StoreInt32(&st.backpressure, 1)
		} else {
			atomic.StoreInt32(&st.backpressure, 0)
		}
	}

	// reslice emits full chunks out of the accumulation buffer.
	reslice := func() bool {
		for len(buf) >= chunkSize {
			data := make([]byte, chunkSize)
			copy(data, buf[:chunkSize])
			buf = buf[chunkSize:]
			if !emit(data, false) {
				return false
			}
		}
		return true
	}

	for {
		// Apply pending control messages; while paused the transport is not
		// polled at all.
		for {
			if paused {
				select {
				case msg := <-st.control:
					switch msg.Op {
					case StreamResume:
						paused = false
					case StreamCancel:
						st.abort(ErrStreamCancelled)
						sm.fail(st)
						return
					case StreamAdjustChunkSize:
						if msg.ChunkSize > 0 {
							chunkSize = msg.ChunkSize
							if !reslice() {
								return
							}
						}
					}
				case <-st.ctx.Done():
					sm.failReason(st, ErrStreamCancelled)
					return
				case <-deadline.C:
					st.abort(ErrStreamExpired)
					sm.fail(st)
					return
				}
				continue
			}

			select {
			case msg := <-st.control:
				switch msg.Op {
				case StreamPause:
					paused = true
				case StreamCancel:
					st.abort(ErrStreamCancelled)
					sm.fail(st)
					return
				case StreamAdjustChunkSize:
					if msg.ChunkSize > 0 {
						chunkSize = msg.ChunkSize
						if !reslice() {
							return
						}
					}
				}
				continue
			case <-st.ctx.Done():
				sm.failReason(st, ErrStreamCancelled)
				return
			case <-deadline.C:
				st.abort(ErrStreamExpired)
				sm.fail(st)
				return
			default:
			}
			break
		}

		n, err := st.body.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)
			if !reslice() {
				return
			}
			updatePressure()
		}

		if err == io.EOF {
			// Final partial buffer flushes as one last data chunk before the
			// synthetic empty final chunk.
			if len(buf) > 0 {
				data := make([]byte, len(buf))
				copy(data, buf)
				buf = buf[:0]
				if !emit(data, false) {
					return
				}
			}
			if !emit(nil, true) {
				return
			}
			if sm.hooks.onComplete != nil {
				sm.hooks.onComplete(st.OperationID, st.BytesStreamed(), st.ChunksSent(), time.Since(st.StartedAt))
			}
			return
		}
		if err != nil {
			// Read errors caused by abort report the recorded reason; genuine
			// transport errors pass through.
			sm.failReason(st, err)
			return
		}
	}
}

// deliver sends one chunk on the bounded channel, honoring cancellation and
// the chunk timeout. Exceeding the timeout is fatal to the stream.
func (sm *StreamingManager) deliver(st *ActiveStream, chunk StreamChunk) error {
	// A full delivery channel always counts as backpressure; the producer loop
	// recomputes the flag against BackpressureThreshold after each read.
	if len(st.chunks) == cap(st.chunks) {
		atomic.StoreInt32(&st.backpressure, 1)
	}

	timer := time.NewTimer(sm.config.ChunkTimeout)
	defer timer.Stop()

	select {
	case st.chunks <- chunk:
		return nil
	case <-st.ctx.Done():
		if reason := st.terminalReason(); reason != nil {
			return reason
		}
		return ErrStreamCancelled
	case <-timer.C:
		return ErrStreamTimeout
	}
}

// fail reports the stream's recorded terminal reason through the hooks.
func (sm *StreamingManager) fail(st *ActiveStream) {
	sm.failReason(st, nil)
}

func (sm *StreamingManager) failReason(st *ActiveStream, fallback error) {
	reason := st.terminalReason()
	if reason == nil {
		reason = fallback
	}
	if reason == nil {
		reason = ErrStreamCancelled
	}
	st.reasonMu.Lock()
	if st.reason == nil {
		st.reason = reason
	}
	st.reasonMu.Unlock()
	if sm.hooks.onError != nil {
		sm.hooks.onError(st.OperationID, reason)
	}
	if sm.logger != nil {
		sm.logger.Warn("stream terminated", "operationID", st.OperationID, "reason", reason)
	}
}

// StreamReceiver is the consumer handle for one stream.
type StreamReceiver struct {
	operationID   string
	correlationID string
	contentLength int64

	chunks  <-chan StreamChunk
	control chan<- StreamControlMessage
	done    <-chan struct{}
	stream  *ActiveStream

	bytesReceived int64
}

// OperationID returns the owning operation's ID.
func (r *StreamReceiver) OperationID() string { return r.operationID }

// CorrelationID returns the owning operation's correlation ID.
func (r *StreamReceiver) CorrelationID() string { return r.correlationID }

// Chunks returns the delivery channel. It closes after the final chunk or on
// stream failure; check Err after it closes.
func (r *StreamReceiver) Chunks() <-chan StreamChunk { return r.chunks }

// Control sends an out-of-band control message to the producer. It fails when
// the stream has already terminated or the control buffer is full.
func (r *StreamReceiver) Control(msg StreamControlMessage) error {
	select {
	case <-r.done:
		return ErrStreamNotFound
	default:
	}
	select {
	case r.control <- msg:
		return nil
	case <-r.done:
		return ErrStreamNotFound
	default:
		return ErrStreamControlFull
	}
}

// Pause suspends transport polling.
func (r *StreamReceiver) Pause() error { return r.Control(StreamControlMessage{Op: StreamPause}) }

// Resume continues a paused stream.
func (r *StreamReceiver) Resume() error { return r.Control(StreamControlMessage{Op: StreamResume}) }

// Cancel aborts the stream.
func (r *StreamReceiver) Cancel() error {
	if err := r.Control(StreamControlMessage{Op: StreamCancel}); err != nil {
		return err
	}
	r.stream.abort(ErrStreamCancelled)
	return nil
}

// AdjustChunkSize changes the chunk size mid-stream; buffered data is
// re-sliced immediately.
func (r *StreamReceiver) AdjustChunkSize(n int) error {
	return r.Control(StreamControlMessage{Op: StreamAdjustChunkSize, ChunkSize: n})
}

// Progress returns the completed fraction when the content length is known.
// It counts bytes the producer has handed to the delivery channel, so it can
// run ahead of the consumer by up to BufferSize chunks.
func (r *StreamReceiver) Progress() (float64, bool) {
	if r.contentLength <= 0 {
		return 0, false
	}
	return float64(r.stream.BytesStreamed()) / float64(r.contentLength), true
}

// BytesReceived returns how many payload bytes CollectAll has consumed.
// Callers draining Chunks directly keep their own count.
func (r *StreamReceiver) BytesReceived() int64 { return atomic.LoadInt64(&r.bytesReceived) }

// Err returns the terminal error after the chunk channel closes; nil means the
// stream completed normally.
func (r *StreamReceiver) Err() error {
	return r.stream.terminalReason()
}

// CollectAll drains the stream into one contiguous buffer, stopping at the
// final chunk. On failure it returns the bytes received so far alongside the
// stream's terminal error.
func (r *StreamReceiver) CollectAll(ctx context.Context) ([]byte, error) {
	var out []byte
	for {
		select {
		case chunk, ok := <-r.chunks:
			if !ok {
				if err := r.Err(); err != nil {
					return out, err
				}
				return out, nil
			}
			if chunk.IsFinal {
				return out, nil
			}
			out = append(out, chunk.Data...)
			atomic.AddInt64(&r.bytesReceived, int64(len(chunk.Data)))
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}
