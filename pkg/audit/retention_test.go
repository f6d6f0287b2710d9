package audit

import (
	"context"
	"testing"
	"time"
)

func TestNewScheduler_Validation(t *testing.T) {
	rec := NewMemoryRecorder(10)
	defer rec.Close()

	tests := []struct {
		name      string
		rec       Recorder
		cfg       SchedulerConfig
		wantError bool
	}{
		{
			name:      "valid daily schedule",
			rec:       rec,
			cfg:       SchedulerConfig{Schedule: "0 3 * * *"},
			wantError: false,
		},
		{
			name:      "valid hourly schedule",
			rec:       rec,
			cfg:       SchedulerConfig{Schedule: "0 * * * *"},
			wantError: false,
		},
		{
			name:      "nil recorder",
			rec:       nil,
			cfg:       SchedulerConfig{Schedule: "0 3 * * *"},
			wantError: true,
		},
		{
			name:      "empty schedule",
			rec:       rec,
			cfg:       SchedulerConfig{},
			wantError: true,
		},
		{
			name:      "invalid schedule",
			rec:       rec,
			cfg:       SchedulerConfig{Schedule: "not a cron"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(tt.rec, tt.cfg)
			if (err != nil) != tt.wantError {
				t.Errorf("NewScheduler() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	rec := NewMemoryRecorder(10)
	defer rec.Close()

	sched, err := NewScheduler(rec, SchedulerConfig{
		Schedule:  "0 3 * * *",
		Retention: 7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	if sched.IsRunning() {
		t.Error("IsRunning() = true before Start()")
	}
	if sched.NextRun() != nil {
		t.Error("NextRun() != nil before Start()")
	}

	if err := sched.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !sched.IsRunning() {
		t.Error("IsRunning() = false after Start()")
	}
	if sched.NextRun() == nil {
		t.Error("NextRun() = nil for running scheduler")
	}

	// Second Start is a no-op
	if err := sched.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	sched.Stop()
	if sched.IsRunning() {
		t.Error("IsRunning() = true after Stop()")
	}
}

func TestScheduler_CleanupRemovesOldEntries(t *testing.T) {
	rec := NewMemoryRecorder(10)
	defer rec.Close()

	old := Entry{ID: "old", Time: time.Now().Add(-48 * time.Hour), Event: EventAdmit}
	fresh := Entry{ID: "fresh", Time: time.Now(), Event: EventAdmit}
	for _, e := range []Entry{old, fresh} {
		if err := rec.Record(context.Background(), e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	sched, err := NewScheduler(rec, SchedulerConfig{
		Schedule:  "0 3 * * *",
		Retention: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	// Run the cleanup cycle directly rather than waiting for cron.
	sched.runCleanup()

	entries, err := rec.Query(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "fresh" {
		t.Errorf("entries after cleanup = %v, want [fresh]", ids(entries))
	}
}
