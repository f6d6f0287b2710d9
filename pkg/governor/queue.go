package governor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// outcome is the terminal result of a queued work unit.
type outcome struct {
	value any
	err   error
}

// item is one submitted unit of work waiting for (or undergoing) dispatch.
type item struct {
	id        string
	run       WorkFunc
	estimate  int
	priority  Priority
	enqueued  time.Time
	submitCtx context.Context

	// done is closed exactly once, after out is set.
	out  outcome
	done chan struct{}
}

// newItem creates an item carrying the submission context through to the
// work unit.
func newItem(ctx context.Context, run WorkFunc, estimate int, priority Priority) *item {
	return &item{
		id:        uuid.NewString(),
		run:       run,
		estimate:  estimate,
		priority:  priority,
		enqueued:  time.Now(),
		submitCtx: ctx,
		done:      make(chan struct{}),
	}
}

// resolve delivers the terminal result. It must be called exactly once;
// the governor guarantees an item is resolved either by its dispatch or by
// shutdown rejection, never both.
func (it *item) resolve(value any, err error) {
	it.out = outcome{value: value, err: err}
	close(it.done)
}

// Ticket is the result handle returned by Submit. The dispatch loop
// fulfills it; any number of goroutines may Wait on it, and Wait may be
// called repeatedly after the result is available.
type Ticket struct {
	it *item
}

// ID returns the queue item's unique identifier.
func (t *Ticket) ID() string {
	return t.it.id
}

// Wait blocks until the work unit's result is available or ctx is done.
// Abandoning a Wait does not cancel the submitted work; the governor
// still dispatches it and the result remains available to later Waits.
func (t *Ticket) Wait(ctx context.Context) (any, error) {
	select {
	case <-t.it.done:
		return t.it.out.value, t.it.out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// queue is a priority queue with FIFO ordering inside each priority lane.
// It is not self-locking; the governor's mutex guards all access.
type queue struct {
	lanes [numPriorities][]*item
	size  int
}

// push appends the item to its priority lane.
func (q *queue) push(it *item) {
	q.lanes[it.priority] = append(q.lanes[it.priority], it)
	q.size++
}

// peek returns the next item to dispatch without removing it: the head of
// the highest-priority non-empty lane. Returns nil when empty.
func (q *queue) peek() *item {
	for p := int(PriorityHigh); p >= int(PriorityLow); p-- {
		if len(q.lanes[p]) > 0 {
			return q.lanes[p][0]
		}
	}
	return nil
}

// pop removes and returns the next item to dispatch. Returns nil when
// empty.
func (q *queue) pop() *item {
	for p := int(PriorityHigh); p >= int(PriorityLow); p-- {
		lane := q.lanes[p]
		if len(lane) == 0 {
			continue
		}
		it := lane[0]
		lane[0] = nil
		q.lanes[p] = lane[1:]
		q.size--
		return it
	}
	return nil
}

// len returns the number of queued items.
func (q *queue) len() int {
	return q.size
}

// drain removes and returns all queued items in dispatch order.
func (q *queue) drain() []*item {
	items := make([]*item, 0, q.size)
	for p := int(PriorityHigh); p >= int(PriorityLow); p-- {
		items = append(items, q.lanes[p]...)
		q.lanes[p] = nil
	}
	q.size = 0
	return items
}
