// Package governor provides admission control for calls to a metered,
// rate-limited inference API.
//
// # Overview
//
// A Governor decides, for every outbound call, whether it may proceed now,
// queues it if not, retries it when the provider itself signals throttling,
// and keeps the rolling request/token counters that admission decisions are
// made against. It enforces six ceilings:
//
//   - Requests per minute / hour / day
//   - Tokens per minute / hour / day
//
// Window counts are reconstructed at query time from the history of
// dispatched requests, so a count can never drift from what was actually
// dispatched: records are appended only when a dispatch completes and
// removed only by age-based pruning.
//
// # Usage
//
//	gov := governor.New(governor.Config{
//	    Limits: governor.LimitConfig{
//	        RequestsPerMinute: 60,
//	        TokensPerMinute:   100000,
//	    },
//	})
//	defer gov.Close()
//
//	ticket, err := gov.Submit(ctx, estimate, governor.PriorityMedium, callProvider)
//	if err != nil {
//	    return err // permanently inadmissible or governor closed
//	}
//	result, err := ticket.Wait(ctx)
//
// Work that is admitted immediately while the queue is empty runs without
// queueing. Everything else waits in a priority queue: higher priorities
// always dispatch first, and work at the same priority dispatches in
// submission order. A single dispatch loop drains the queue, sleeping until
// window capacity frees when necessary.
//
// # Throttle Retries
//
// When a dispatched work unit fails with a provider throttle signal
// (decided by the configured throttle.Classifier), the governor retries it
// in place with exponential backoff, honoring any retry-after hint from
// the provider. After MaxRetries retries the error propagates as a
// *ThrottleExhaustedError. All other work unit errors propagate on first
// occurrence.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Admission decisions, queue
// mutation, and history pruning share one critical section; the work units
// themselves run outside it and may overlap arbitrarily long.
package governor
