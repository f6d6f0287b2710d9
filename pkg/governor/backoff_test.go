package governor

import (
	"testing"
	"time"
)

// ============================================================================
// Backoff Delay Tests
// ============================================================================

func TestBackoffDelay_ExponentialEscalation(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay:   time.Second,
		MaxDelay:       60 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0, // deterministic
		MaxRetries:     3,
	}

	tests := []struct {
		streak int
		want   time.Duration
	}{
		{streak: 0, want: time.Second},
		{streak: 1, want: 2 * time.Second},
		{streak: 2, want: 4 * time.Second},
		{streak: 3, want: 8 * time.Second},
		{streak: 6, want: 60 * time.Second}, // capped
		{streak: 20, want: 60 * time.Second},
	}

	for _, tt := range tests {
		if got := backoffDelay(cfg, tt.streak, 0); got != tt.want {
			t.Errorf("backoffDelay(streak=%d) = %v, want %v", tt.streak, got, tt.want)
		}
	}
}

func TestBackoffDelay_JitterStaysInRange(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay:   time.Second,
		MaxDelay:       60 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}

	min := 750 * time.Millisecond
	max := 1250 * time.Millisecond
	for i := 0; i < 200; i++ {
		got := backoffDelay(cfg, 0, 0)
		if got < min || got > max {
			t.Fatalf("backoffDelay() = %v, want within [%v, %v]", got, min, max)
		}
	}
}

func TestBackoffDelay_RetryAfterStretchesButNeverShrinks(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay:   time.Second,
		MaxDelay:       60 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0,
	}

	// Hint longer than computed delay wins
	if got := backoffDelay(cfg, 0, 5*time.Second); got != 5*time.Second {
		t.Errorf("backoffDelay(retryAfter=5s) = %v, want 5s", got)
	}

	// Hint shorter than computed delay is ignored
	if got := backoffDelay(cfg, 3, 2*time.Second); got != 8*time.Second {
		t.Errorf("backoffDelay(streak=3, retryAfter=2s) = %v, want 8s", got)
	}

	// The hint may exceed MaxDelay; provider instructions win
	if got := backoffDelay(cfg, 0, 90*time.Second); got != 90*time.Second {
		t.Errorf("backoffDelay(retryAfter=90s) = %v, want 90s", got)
	}
}

func TestBackoffDelay_ConstantWithUnitMultiplier(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       60 * time.Second,
		Multiplier:     1.0,
		JitterFraction: 0,
	}

	for streak := 0; streak < 5; streak++ {
		if got := backoffDelay(cfg, streak, 0); got != 500*time.Millisecond {
			t.Errorf("backoffDelay(streak=%d) = %v, want 500ms", streak, got)
		}
	}
}

// ============================================================================
// Backoff Defaults Tests
// ============================================================================

func TestApplyBackoffDefaults(t *testing.T) {
	got := applyBackoffDefaults(BackoffConfig{})
	want := DefaultBackoffConfig()

	if got.InitialDelay != want.InitialDelay {
		t.Errorf("InitialDelay = %v, want %v", got.InitialDelay, want.InitialDelay)
	}
	if got.MaxDelay != want.MaxDelay {
		t.Errorf("MaxDelay = %v, want %v", got.MaxDelay, want.MaxDelay)
	}
	if got.Multiplier != want.Multiplier {
		t.Errorf("Multiplier = %v, want %v", got.Multiplier, want.Multiplier)
	}
	if got.JitterFraction != 0 {
		t.Errorf("JitterFraction = %v, want 0 (zero value is meaningful)", got.JitterFraction)
	}
	if got.MaxRetries != 0 {
		t.Errorf("MaxRetries = %v, want 0 (zero value is meaningful)", got.MaxRetries)
	}
}

func TestApplyBackoffDefaults_PreservesExplicitValues(t *testing.T) {
	in := BackoffConfig{
		InitialDelay:   250 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     1.0,
		JitterFraction: 0.5,
		MaxRetries:     7,
	}

	if got := applyBackoffDefaults(in); got != in {
		t.Errorf("applyBackoffDefaults(%+v) = %+v, want unchanged", in, got)
	}
}

func TestApplyBackoffDefaults_ClampsNegatives(t *testing.T) {
	got := applyBackoffDefaults(BackoffConfig{
		InitialDelay:   -time.Second,
		MaxDelay:       -time.Second,
		Multiplier:     -3,
		JitterFraction: -0.5,
		MaxRetries:     -2,
	})

	want := DefaultBackoffConfig()
	if got.InitialDelay != want.InitialDelay || got.MaxDelay != want.MaxDelay || got.Multiplier != want.Multiplier {
		t.Errorf("negative durations/multiplier not defaulted: %+v", got)
	}
	if got.JitterFraction != 0 {
		t.Errorf("JitterFraction = %v, want 0", got.JitterFraction)
	}
	if got.MaxRetries != 0 {
		t.Errorf("MaxRetries = %v, want 0", got.MaxRetries)
	}
}
