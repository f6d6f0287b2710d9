package audit

import (
	"context"
	"testing"
	"time"
)

// ============================================================================
// InstrumentedRecorder Tests
// ============================================================================

func TestInstrumentedRecorderDelegates(t *testing.T) {
	inner := NewMemoryRecorder(10)
	rec := WithMetrics(inner, nil)
	defer rec.Close()

	if err := rec.Record(context.Background(), Entry{Event: EventAdmit}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := rec.Record(context.Background(), Entry{Event: EventReject}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := rec.Query(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Query() returned %d entries, want 2", len(entries))
	}

	removed, err := rec.Cleanup(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Cleanup() removed %d entries, want 2", removed)
	}
}

func TestInstrumentedRecorderSatisfiesRecorder(t *testing.T) {
	var _ Recorder = WithMetrics(NewMemoryRecorder(1), nil)
}
