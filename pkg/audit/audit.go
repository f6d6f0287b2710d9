package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event classifies an admission trail entry.
type Event string

const (
	// EventAdmit records a request admitted for immediate dispatch.
	EventAdmit Event = "admit"

	// EventEnqueue records a request parked in the priority queue.
	EventEnqueue Event = "enqueue"

	// EventDispatch records a queued request released to its work unit.
	EventDispatch Event = "dispatch"

	// EventReject records a permanent admission rejection.
	EventReject Event = "reject"

	// EventThrottle records a provider throttle signal and the retry delay
	// chosen for it.
	EventThrottle Event = "throttle"

	// EventExhausted records a work unit that stayed throttled through all
	// of its retries.
	EventExhausted Event = "exhausted"

	// EventClosed records a queued request rejected by shutdown.
	EventClosed Event = "closed"
)

// Entry is one admission trail record.
type Entry struct {
	// ID uniquely identifies the entry. Assigned on record when empty.
	ID string

	// Time is when the event happened. Assigned on record when zero.
	Time time.Time

	// Event is the entry classification.
	Event Event

	// RequestID ties together all entries for one submission.
	RequestID string

	// Priority is the submission priority name ("high", "medium", "low").
	Priority string

	// Tokens is the token estimate of the affected request.
	Tokens int

	// Tier names the violated window for rejections and capacity waits.
	Tier string

	// Wait is the capacity wait or retry delay attached to the event.
	Wait time.Duration

	// Detail carries free-form context, such as a rejection reason.
	Detail string
}

// Filter selects entries from a Query. Zero fields match everything.
type Filter struct {
	// Event restricts results to one event type.
	Event Event

	// Since restricts results to entries at or after this time.
	Since time.Time

	// Limit caps the number of returned entries. Zero means no cap.
	Limit int
}

// matches reports whether the entry passes the event and time predicates.
func (f Filter) matches(e Entry) bool {
	if f.Event != "" && e.Event != f.Event {
		return false
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	return true
}

// Recorder persists admission trail entries.
//
// Implementations must be safe for concurrent use. Record is called on the
// admission hot path, so implementations should stay cheap; callers treat
// failures as log-and-continue.
type Recorder interface {
	// Record appends one entry to the trail, assigning ID and Time when
	// they are unset.
	Record(ctx context.Context, e Entry) error

	// Query returns entries matching the filter, newest first.
	Query(ctx context.Context, f Filter) ([]Entry, error)

	// Cleanup removes entries recorded before the cutoff and reports how
	// many were removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases any resources held by the recorder.
	Close() error
}

// normalize fills the entry fields assigned at record time.
func normalize(e *Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
}
