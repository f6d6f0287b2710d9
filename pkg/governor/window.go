package governor

import (
	"sort"
	"time"
)

// Window tiers, indexed consistently across limits, spans, and names.
const (
	tierMinute = iota
	tierHour
	tierDay
	numTiers
)

// tierNames maps tier indices to the names used in reasons and metrics.
var tierNames = [numTiers]string{"minute", "hour", "day"}

// defaultSpans are the trailing window sizes per tier.
var defaultSpans = [numTiers]time.Duration{time.Minute, time.Hour, 24 * time.Hour}

// record is one dispatched request: when it completed and how many tokens
// it was admitted for.
type record struct {
	ts     time.Time
	tokens int
}

// history holds the dispatch records that rolling-window counts are
// reconstructed from. Records are kept in append order, which is time
// order because they are only ever added under the governor's lock with
// the current time.
//
// history is not self-locking; the governor's mutex guards all access.
type history struct {
	records []record
}

// add appends a record.
func (h *history) add(ts time.Time, tokens int) {
	h.records = append(h.records, record{ts: ts, tokens: tokens})
}

// len returns the number of records held.
func (h *history) len() int {
	return len(h.records)
}

// firstAfter returns the index of the first record strictly inside the
// trailing window (now-span, now].
func (h *history) firstAfter(now time.Time, span time.Duration) int {
	cutoff := now.Add(-span)
	return sort.Search(len(h.records), func(i int) bool {
		return h.records[i].ts.After(cutoff)
	})
}

// stats returns the request count and token sum inside the trailing window.
func (h *history) stats(now time.Time, span time.Duration) (requests, tokens int) {
	start := h.firstAfter(now, span)
	for i := start; i < len(h.records); i++ {
		tokens += h.records[i].tokens
	}
	return len(h.records) - start, tokens
}

// oldest returns the timestamp of the oldest record inside the trailing
// window, if any.
func (h *history) oldest(now time.Time, span time.Duration) (time.Time, bool) {
	start := h.firstAfter(now, span)
	if start >= len(h.records) {
		return time.Time{}, false
	}
	return h.records[start].ts, true
}

// prune drops records at or before the cutoff and returns how many were
// removed. Records exactly at the cutoff are already outside every window
// the cutoff was derived from.
func (h *history) prune(cutoff time.Time) int {
	idx := sort.Search(len(h.records), func(i int) bool {
		return h.records[i].ts.After(cutoff)
	})
	if idx == 0 {
		return 0
	}

	remaining := len(h.records) - idx
	copy(h.records, h.records[idx:])
	// Zero the tail so pruned records do not pin memory
	for i := remaining; i < len(h.records); i++ {
		h.records[i] = record{}
	}
	h.records = h.records[:remaining]
	return idx
}
