package governor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"turnstile-ai/turnstile/pkg/audit"
	"turnstile-ai/turnstile/pkg/throttle"
)

// minCapacityWait is the floor for dispatch-loop capacity waits. It keeps
// the loop from spinning when a violated window is about to free up.
const minCapacityWait = 10 * time.Millisecond

// Governor admits work under rolling-window ceilings. Work that cannot be
// admitted immediately queues by priority; a single dispatch loop releases
// it as window capacity frees up. Provider throttle errors are retried
// with exponential backoff before propagating.
//
// All methods are safe for concurrent use.
type Governor struct {
	name          string
	backoff       BackoffConfig
	classify      throttle.Classifier
	logger        *slog.Logger
	metrics       *Metrics
	trail         audit.Recorder
	pruneInterval time.Duration

	// spans are the rolling-window durations indexed by tier.
	spans [numTiers]time.Duration

	// now is the clock, replaceable in tests.
	now func() time.Time

	// mu guards everything below. Queue state, window history, and the
	// throttle streak form one critical section so admission decisions see
	// a consistent snapshot.
	mu                sync.Mutex
	limits            LimitConfig
	hist              *history
	q                 *queue
	consecutiveErrors int
	processing        bool
	closed            bool

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Governor. Zero config fields take defaults; a zero Limits
// field is respected as configured and admits nothing.
func New(cfg Config) *Governor {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Classifier == nil {
		cfg.Classifier = throttle.Classify
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "governor")
	}

	g := &Governor{
		name:          cfg.Name,
		limits:        cfg.Limits,
		backoff:       applyBackoffDefaults(cfg.Backoff),
		classify:      cfg.Classifier,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		trail:         cfg.Audit,
		pruneInterval: cfg.PruneInterval,
		spans:         defaultSpans,
		now:           time.Now,
		hist:          &history{},
		q:             &queue{},
		done:          make(chan struct{}),
	}

	g.wg.Add(1)
	go g.pruneLoop()

	return g
}

// Check evaluates the admission ceilings for a token estimate without
// submitting work. The result reflects this instant; Submit re-evaluates.
func (g *Governor) Check(estimate int) CheckResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkLocked(g.now(), estimate)
}

// checkLocked evaluates all six ceilings against the reconstructed
// windows. Permanent violations dominate the result; among temporary
// violations the smallest wait wins. Callers must hold g.mu.
func (g *Governor) checkLocked(now time.Time, estimate int) CheckResult {
	req, tok := g.countsLocked(now)

	res := CheckResult{
		Allowed: true,
		Usage:   snapshot(req, tok),
	}

	reqLimits := g.limits.requestLimits()
	tokLimits := g.limits.tokenLimits()

	for t := 0; t < numTiers; t++ {
		// Request ceiling. A ceiling below one can never admit a request.
		if reqLimits[t] < 1 {
			res.applyViolation(
				fmt.Sprintf("requests per %s limit admits no requests", tierNames[t]),
				tierNames[t], reqLimits[t], 0, true)
		} else if req[t] >= reqLimits[t] {
			res.applyViolation(
				fmt.Sprintf("requests per %s limit exceeded", tierNames[t]),
				tierNames[t], reqLimits[t], g.retryWaitLocked(now, g.spans[t]), false)
		}

		// Token ceiling. An estimate larger than the ceiling can never fit,
		// not even with an empty window.
		if estimate > tokLimits[t] {
			res.applyViolation(
				fmt.Sprintf("token estimate exceeds tokens per %s limit", tierNames[t]),
				tierNames[t], tokLimits[t], 0, true)
		} else if tok[t]+estimate > tokLimits[t] {
			res.applyViolation(
				fmt.Sprintf("tokens per %s limit exceeded", tierNames[t]),
				tierNames[t], tokLimits[t], g.retryWaitLocked(now, g.spans[t]), false)
		}
	}

	g.metrics.RecordCheck(g.name, res.Allowed)
	if !res.Allowed {
		g.metrics.RecordRejection(g.name, res.Tier)
	}

	return res
}

// applyViolation merges a ceiling violation into the result. Permanent
// violations replace temporary ones; a temporary violation replaces
// another only when its wait is shorter.
func (r *CheckResult) applyViolation(reason, tier string, limit int, wait time.Duration, permanent bool) {
	replace := r.Allowed ||
		(permanent && !r.Permanent) ||
		(!permanent && !r.Permanent && wait < r.Wait)
	if !replace {
		return
	}
	r.Allowed = false
	r.Reason = reason
	r.Tier = tier
	r.Limit = limit
	r.Wait = wait
	r.Permanent = permanent
}

// retryWaitLocked returns how long until the oldest record in the window
// expires. Callers must hold g.mu.
func (g *Governor) retryWaitLocked(now time.Time, span time.Duration) time.Duration {
	oldest, ok := g.hist.oldest(now, span)
	if !ok {
		return 0
	}
	wait := span - now.Sub(oldest)
	if wait < 0 {
		wait = 0
	}
	return wait
}

// countsLocked reconstructs the per-tier request and token counts from the
// dispatch history. Callers must hold g.mu.
func (g *Governor) countsLocked(now time.Time) (req, tok [numTiers]int) {
	for t := 0; t < numTiers; t++ {
		req[t], tok[t] = g.hist.stats(now, g.spans[t])
	}
	return req, tok
}

// snapshot converts per-tier counts into a UsageSnapshot.
func snapshot(req, tok [numTiers]int) UsageSnapshot {
	return UsageSnapshot{
		RequestsLastMinute: req[tierMinute],
		RequestsLastHour:   req[tierHour],
		RequestsLastDay:    req[tierDay],
		TokensLastMinute:   tok[tierMinute],
		TokensLastHour:     tok[tierHour],
		TokensLastDay:      tok[tierDay],
	}
}

// Record appends a dispatched request to the rolling-window history and
// resets the throttle streak. Submit records automatically after a
// successful dispatch; call Record directly only when admission was
// checked with Check and the provider call happened outside the governor.
func (g *Governor) Record(tokens int) {
	g.mu.Lock()
	g.hist.add(g.now(), tokens)
	g.consecutiveErrors = 0
	g.mu.Unlock()

	g.metrics.RecordTokens(g.name, tokens)
}

// Submit hands a work unit to the governor. When capacity is available and
// nothing is queued the work dispatches immediately; otherwise it queues
// by priority. The returned Ticket resolves when the work finishes, fails,
// or is rejected by shutdown.
//
// A submission whose estimate exceeds a token ceiling outright (or that
// faces a request ceiling below one) can never be admitted; Submit rejects
// it synchronously with an *AdmissionError instead of queueing it.
//
// The context is carried through to fn; cancelling it stops retries and
// is observed by well-behaved work units. It does not remove an already
// queued item.
func (g *Governor) Submit(ctx context.Context, estimate int, priority Priority, fn WorkFunc) (*Ticket, error) {
	if fn == nil {
		return nil, fmt.Errorf("work function cannot be nil")
	}
	if estimate < 0 {
		return nil, fmt.Errorf("token estimate cannot be negative: %d", estimate)
	}
	if !priority.valid() {
		return nil, fmt.Errorf("unknown priority %d", int(priority))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	it := newItem(ctx, fn, estimate, priority)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}

	res := g.checkLocked(g.now(), estimate)
	if res.Permanent {
		g.mu.Unlock()
		g.auditEvent(audit.EventReject, it, res.Tier, 0, res.Reason)
		g.logger.Warn("submission permanently rejected",
			"id", it.id,
			"reason", res.Reason,
			"estimate", estimate,
			"limit", res.Limit,
		)
		return nil, &AdmissionError{
			Reason:   res.Reason,
			Tier:     res.Tier,
			Estimate: estimate,
			Limit:    res.Limit,
		}
	}

	if res.Allowed && g.q.len() == 0 {
		g.mu.Unlock()
		g.auditEvent(audit.EventAdmit, it, "", 0, "")
		go g.dispatch(it)
		return &Ticket{it: it}, nil
	}

	g.q.push(it)
	depth := g.q.len()
	startDrain := !g.processing
	if startDrain {
		g.processing = true
	}
	g.mu.Unlock()

	g.metrics.SetQueueDepth(g.name, depth)
	g.auditEvent(audit.EventEnqueue, it, res.Tier, res.Wait, res.Reason)
	g.logger.Debug("submission queued",
		"id", it.id,
		"priority", priority.String(),
		"estimate", estimate,
		"queue_depth", depth,
	)

	if startDrain {
		go g.drain()
	}

	return &Ticket{it: it}, nil
}

// Execute submits work and waits for its result, combining Submit and
// Ticket.Wait.
func (g *Governor) Execute(ctx context.Context, estimate int, priority Priority, fn WorkFunc) (any, error) {
	ticket, err := g.Submit(ctx, estimate, priority, fn)
	if err != nil {
		return nil, err
	}
	return ticket.Wait(ctx)
}

// Run submits typed work and waits for its result. It wraps Submit and
// Ticket.Wait for callers who want the result without a type assertion.
func Run[T any](ctx context.Context, g *Governor, estimate int, priority Priority, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	ticket, err := g.Submit(ctx, estimate, priority, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}

	value, err := ticket.Wait(ctx)
	if err != nil {
		return zero, err
	}

	out, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("work returned %T", value)
	}
	return out, nil
}

// dispatch runs one work unit to completion, records usage on success, and
// resolves the ticket.
func (g *Governor) dispatch(it *item) {
	value, err := g.callWithRetry(it)
	if err != nil {
		var exhausted *ThrottleExhaustedError
		if errors.As(err, &exhausted) {
			g.metrics.RecordDispatch(g.name, "throttle_exhausted")
			g.auditEvent(audit.EventExhausted, it, "", 0, err.Error())
		} else {
			g.metrics.RecordDispatch(g.name, "error")
		}
		it.resolve(nil, err)
		return
	}

	g.Record(it.estimate)
	g.metrics.RecordDispatch(g.name, "ok")
	it.resolve(value, nil)
}

// callWithRetry invokes the work unit, retrying provider throttle errors
// with exponential backoff. Non-throttle errors propagate untouched. Every
// throttle extends the governor-wide streak; only a successful dispatch
// resets it.
func (g *Governor) callWithRetry(it *item) (any, error) {
	ctx := it.submitCtx

	for attempt := 0; ; attempt++ {
		value, err := it.run(ctx)
		if err == nil {
			return value, nil
		}

		retryAfter, throttled := g.classify(err)
		if !throttled {
			return nil, err
		}

		g.mu.Lock()
		streak := g.consecutiveErrors
		g.consecutiveErrors++
		g.mu.Unlock()

		if attempt >= g.backoff.MaxRetries {
			g.logger.Warn("throttled on all retries",
				"id", it.id,
				"attempts", attempt+1,
				"error", err,
			)
			return nil, &ThrottleExhaustedError{Attempts: attempt + 1, Err: err}
		}

		delay := backoffDelay(g.backoff, streak, retryAfter)
		g.metrics.RecordThrottleRetry(g.name)
		g.auditEvent(audit.EventThrottle, it, "", delay, err.Error())
		g.logger.Info("provider throttled, backing off",
			"id", it.id,
			"attempt", attempt+1,
			"delay", delay,
			"retry_after", retryAfter,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-g.done:
			return nil, ErrClosed
		}
	}
}

// drain is the dispatch loop. The processing flag guarantees at most one
// drain goroutine, so queued work dispatches strictly one at a time in
// priority order.
func (g *Governor) drain() {
	for {
		g.mu.Lock()
		if g.closed {
			g.processing = false
			g.mu.Unlock()
			return
		}

		it := g.q.peek()
		if it == nil {
			g.processing = false
			g.mu.Unlock()
			return
		}

		now := g.now()
		res := g.checkLocked(now, it.estimate)

		switch {
		case res.Allowed:
			g.q.pop()
			depth := g.q.len()
			g.mu.Unlock()

			g.metrics.SetQueueDepth(g.name, depth)
			g.auditEvent(audit.EventDispatch, it, "", now.Sub(it.enqueued), "")
			g.dispatch(it)

		case res.Permanent:
			// Ceilings shrank after this item queued. Waiting cannot help
			// it anymore, so fail it rather than wedge the queue.
			g.q.pop()
			depth := g.q.len()
			g.mu.Unlock()

			g.metrics.SetQueueDepth(g.name, depth)
			g.metrics.RecordDispatch(g.name, "rejected")
			g.auditEvent(audit.EventReject, it, res.Tier, 0, res.Reason)
			g.logger.Warn("queued item permanently rejected",
				"id", it.id,
				"reason", res.Reason,
			)
			it.resolve(nil, &AdmissionError{
				Reason:   res.Reason,
				Tier:     res.Tier,
				Estimate: it.estimate,
				Limit:    res.Limit,
			})

		default:
			g.mu.Unlock()

			wait := res.Wait
			if wait < minCapacityWait {
				wait = minCapacityWait
			}
			g.metrics.RecordCapacityWait(g.name, wait)
			g.logger.Debug("waiting for window capacity",
				"tier", res.Tier,
				"wait", wait,
			)

			select {
			case <-time.After(wait):
			case <-g.done:
				// Re-loop; a closed governor exits on the next iteration.
			}
		}
	}
}

// Status returns a read-only snapshot of the governor.
func (g *Governor) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	req, tok := g.countsLocked(g.now())
	return Status{
		QueueLength:       g.q.len(),
		Processing:        g.processing,
		ConsecutiveErrors: g.consecutiveErrors,
		Usage:             snapshot(req, tok),
	}
}

// SetLimits replaces the admission ceilings. History is kept, so the new
// ceilings apply to the windows as already used; queued items re-evaluate
// against them when they reach the head of the queue or when the current
// capacity wait expires.
func (g *Governor) SetLimits(limits LimitConfig) {
	g.mu.Lock()
	g.limits = limits
	g.mu.Unlock()

	g.logger.Info("admission ceilings updated",
		"requests_per_minute", limits.RequestsPerMinute,
		"requests_per_hour", limits.RequestsPerHour,
		"requests_per_day", limits.RequestsPerDay,
		"tokens_per_minute", limits.TokensPerMinute,
		"tokens_per_hour", limits.TokensPerHour,
		"tokens_per_day", limits.TokensPerDay,
	)
}

// Limits returns the current admission ceilings.
func (g *Governor) Limits() LimitConfig {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limits
}

// Close shuts the governor down. Queued, not-yet-dispatched items resolve
// with ErrClosed; in-flight work is not waited for, but its backoff sleeps
// are interrupted. Close is idempotent and safe to call multiple times.
func (g *Governor) Close() error {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		drained := g.q.drain()
		g.mu.Unlock()

		close(g.done)

		for _, it := range drained {
			g.metrics.RecordDispatch(g.name, "closed")
			g.auditEvent(audit.EventClosed, it, "", 0, "")
			it.resolve(nil, ErrClosed)
		}
		g.metrics.SetQueueDepth(g.name, 0)

		g.wg.Wait()

		g.logger.Info("governor closed", "rejected_queued", len(drained))
	})
	return nil
}

// pruneLoop periodically drops history records older than the largest
// window. Reconstruction only ever looks one day back, so older records
// can never influence a decision.
func (g *Governor) pruneLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.pruneOnce()
		case <-g.done:
			return
		}
	}
}

// pruneOnce runs one prune cycle.
func (g *Governor) pruneOnce() {
	g.mu.Lock()
	cutoff := g.now().Add(-g.spans[tierDay])
	removed := g.hist.prune(cutoff)
	g.mu.Unlock()

	if removed > 0 {
		g.metrics.RecordPruned(g.name, removed)
		g.logger.Debug("pruned dispatch history", "removed", removed)
	}
}

// auditEvent records a trail entry. Recording is best-effort; failures are
// logged and never fail the governed operation.
func (g *Governor) auditEvent(event audit.Event, it *item, tier string, wait time.Duration, detail string) {
	if g.trail == nil {
		return
	}

	e := audit.Entry{
		Event:     event,
		RequestID: it.id,
		Priority:  it.priority.String(),
		Tokens:    it.estimate,
		Tier:      tier,
		Wait:      wait,
		Detail:    detail,
	}
	if err := g.trail.Record(context.Background(), e); err != nil {
		g.logger.Warn("audit record failed",
			"event", string(event),
			"error", err,
		)
	}
}
