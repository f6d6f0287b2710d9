package audit

import (
	"context"
	"sync"
	"time"
)

// defaultMemoryCapacity bounds the in-memory trail when no capacity is given.
const defaultMemoryCapacity = 10000

// MemoryRecorder keeps the trail in a bounded in-memory ring. When the ring
// is full the oldest entry is evicted. All data is lost when the process
// exits; use SQLiteRecorder for a durable trail.
type MemoryRecorder struct {
	mu       sync.RWMutex
	entries  []Entry
	start    int
	size     int
	capacity int
}

// NewMemoryRecorder creates a recorder holding at most capacity entries.
// A capacity below one takes the default of 10,000.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity < 1 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryRecorder{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Record appends an entry, evicting the oldest when the ring is full.
func (m *MemoryRecorder) Record(_ context.Context, e Entry) error {
	normalize(&e)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.size < m.capacity {
		m.entries[(m.start+m.size)%m.capacity] = e
		m.size++
		return nil
	}

	// Full: overwrite the oldest slot and advance the ring start.
	m.entries[m.start] = e
	m.start = (m.start + 1) % m.capacity
	return nil
}

// Query returns matching entries, newest first.
func (m *MemoryRecorder) Query(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for i := m.size - 1; i >= 0; i-- {
		e := m.entries[(m.start+i)%m.capacity]
		if !f.matches(e) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Cleanup removes entries recorded before the cutoff.
func (m *MemoryRecorder) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Entries are stored in record order, so survivors form a suffix.
	removed := 0
	for m.size > 0 {
		oldest := m.entries[m.start]
		if !oldest.Time.Before(olderThan) {
			break
		}
		m.entries[m.start] = Entry{}
		m.start = (m.start + 1) % m.capacity
		m.size--
		removed++
	}
	return removed, nil
}

// Len returns the number of stored entries.
func (m *MemoryRecorder) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Close releases the recorder. It is safe to call multiple times.
func (m *MemoryRecorder) Close() error {
	return nil
}
