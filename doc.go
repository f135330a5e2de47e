// Package reqflow orchestrates concurrently-submitted HTTP requests into a
// bounded, fair, deduplicated, rate-limited stream of network operations:
//
//   - Request de-duplication (fingerprints identical in-flight requests and
//     fans the single outcome out to every duplicate submitter)
//   - Five-tier priority scheduling with age-based boosting and starvation
//     prevention
//   - Global and per-domain token-bucket rate limiting
//   - A fixed round-robin pool of pre-configured HTTP clients with per-host
//     success/failure accounting
//   - Chunked response streaming with backpressure, pause/resume/cancel and
//     mid-stream chunk resizing
//   - Optional response caching, Prometheus metrics and lightweight
//     structured debug logging
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - Synchronous, non-blocking admission; network I/O and chunk production
//     are the only suspending operations
//   - Safe concurrent use of a single *Orchestrator instance
//   - Each manager owns its state behind its own lock; nothing reaches into
//     another component's internals
//
// Typical usage:
//
//	orch := reqflow.New(
//	    reqflow.WithRateLimits(reqflow.DefaultRateLimitConfig()),
//	    reqflow.WithCache(5*time.Minute),
//	    reqflow.WithMetrics(),
//	)
//	defer orch.Close()
//
//	opID, err := orch.Submit(ctx, reqflow.SubmitRequest{
//	    Method:   "GET",
//	    URL:      "https://api.example.com/data",
//	    Priority: reqflow.PriorityNormal,
//	})
//
//	for ev := range orch.Events() {
//	    switch ev := ev.(type) {
//	    case reqflow.RequestCompleted:
//	        // ev.Body or ev.Stream
//	    case reqflow.RequestFailed:
//	        // terminal failure for ev.OperationID
//	    }
//	}
//
// Admission errors (queue full, high-priority rate limited) return from Submit
// synchronously and are never retried here: retry policy belongs to the
// caller. Expiry (deduplication window, stream duration cap) is reported as a
// distinct outcome from failure so monitoring can tell "never got an answer"
// from "got a network error".
package reqflow
