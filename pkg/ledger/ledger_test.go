package ledger

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func newTestLedger(budget BudgetConfig) *Ledger {
	return New(Config{
		Name:   "test",
		Budget: budget,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// ============================================================================
// Budget Check Tests
// ============================================================================

func TestLedger_CheckBudgetAllowsWithinLimits(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 1000, MonthlyLimitTokens: 5000})

	check := l.CheckBudget(500)

	if !check.Allowed {
		t.Fatalf("CheckBudget() blocked fresh ledger: %s", check.Reason)
	}
	if check.Reason != "" {
		t.Errorf("Reason = %q, want empty", check.Reason)
	}
	if check.Status.Daily.Used != 0 {
		t.Errorf("Status.Daily.Used = %d, want 0", check.Status.Daily.Used)
	}
}

func TestLedger_CheckBudgetAllowsExactFit(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 1000})
	l.RecordUsage(Usage{TotalTokens: 600})

	// 600 + 400 lands exactly on the limit, which still fits.
	if check := l.CheckBudget(400); !check.Allowed {
		t.Errorf("CheckBudget(400) blocked exact fit: %s", check.Reason)
	}
	if check := l.CheckBudget(401); check.Allowed {
		t.Error("CheckBudget(401) allowed one token over the limit")
	}
}

func TestLedger_CheckBudgetDailyReason(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 100})
	l.RecordUsage(Usage{TotalTokens: 100})

	check := l.CheckBudget(1)

	if check.Allowed {
		t.Fatal("CheckBudget() allowed over daily limit")
	}
	if check.Reason != "daily token budget exceeded" {
		t.Errorf("Reason = %q, want daily budget reason", check.Reason)
	}
}

func TestLedger_CheckBudgetMonthlyReason(t *testing.T) {
	l := newTestLedger(BudgetConfig{MonthlyLimitTokens: 100})
	l.RecordUsage(Usage{TotalTokens: 100})

	check := l.CheckBudget(1)

	if check.Allowed {
		t.Fatal("CheckBudget() allowed over monthly limit")
	}
	if check.Reason != "monthly token budget exceeded" {
		t.Errorf("Reason = %q, want monthly budget reason", check.Reason)
	}
}

func TestLedger_CheckBudgetDailyReasonWinsWhenBothExceeded(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 100, MonthlyLimitTokens: 100})
	l.RecordUsage(Usage{TotalTokens: 100})

	check := l.CheckBudget(1)

	if check.Allowed {
		t.Fatal("CheckBudget() allowed over both limits")
	}
	if check.Reason != "daily token budget exceeded" {
		t.Errorf("Reason = %q, want the daily reason to win", check.Reason)
	}
}

func TestLedger_ZeroLimitsUnenforced(t *testing.T) {
	l := newTestLedger(BudgetConfig{})
	l.RecordUsage(Usage{TotalTokens: 1 << 30})

	check := l.CheckBudget(1 << 30)

	if !check.Allowed {
		t.Fatalf("CheckBudget() blocked with no limits configured: %s", check.Reason)
	}
	status := l.Status()
	if status.Daily.PercentUsed != 0 || status.Daily.Remaining != 0 {
		t.Errorf("unenforced tier reported PercentUsed=%v Remaining=%d, want zeros",
			status.Daily.PercentUsed, status.Daily.Remaining)
	}
	if status.NearLimit {
		t.Error("NearLimit = true with no limits configured")
	}
}

func TestLedger_CheckBudgetReservesNothing(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 100})

	// Repeated checks of the same estimate keep passing until something
	// is actually recorded.
	for i := 0; i < 10; i++ {
		if check := l.CheckBudget(100); !check.Allowed {
			t.Fatalf("CheckBudget() #%d blocked: %s", i, check.Reason)
		}
	}
	if used := l.Status().Daily.Used; used != 0 {
		t.Errorf("Daily.Used = %d after checks only, want 0", used)
	}
}

// ============================================================================
// Usage Recording Tests
// ============================================================================

func TestLedger_RecordUsageAccumulates(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 10000})
	day := time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return day }

	l.RecordUsage(Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, EstimatedCost: 0.01})
	l.RecordUsage(Usage{PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300, EstimatedCost: 0.02})
	l.RecordUsage(Usage{PromptTokens: 10, CompletionTokens: 40, TotalTokens: 50, EstimatedCost: 0.005})

	history := l.History()
	if len(history) != 1 {
		t.Fatalf("History() returned %d entries, want 1", len(history))
	}
	entry := history[0]
	if entry.Date != "2025-06-15" {
		t.Errorf("Date = %q, want 2025-06-15", entry.Date)
	}
	if entry.PromptTokens != 310 || entry.CompletionTokens != 190 || entry.TotalTokens != 500 {
		t.Errorf("accumulated tokens = %d/%d/%d, want 310/190/500",
			entry.PromptTokens, entry.CompletionTokens, entry.TotalTokens)
	}
	if entry.EstimatedCost < 0.034 || entry.EstimatedCost > 0.036 {
		t.Errorf("EstimatedCost = %v, want 0.035", entry.EstimatedCost)
	}
	if used := l.Status().Daily.Used; used != 500 {
		t.Errorf("Daily.Used = %d, want 500", used)
	}
}

func TestLedger_RecordUsageRecordsOverBudget(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 100})

	// Recording never rejects; enforcement happens only in CheckBudget.
	l.RecordUsage(Usage{TotalTokens: 500})

	if used := l.Status().Daily.Used; used != 500 {
		t.Errorf("Daily.Used = %d, want 500 even though that is over the limit", used)
	}
}

func TestLedger_StatusReportsRemainingAndPercent(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 1000})
	l.RecordUsage(Usage{TotalTokens: 250})

	daily := l.Status().Daily
	if daily.Remaining != 750 {
		t.Errorf("Remaining = %d, want 750", daily.Remaining)
	}
	if daily.PercentUsed != 25 {
		t.Errorf("PercentUsed = %v, want 25", daily.PercentUsed)
	}

	l.RecordUsage(Usage{TotalTokens: 2000})
	if daily := l.Status().Daily; daily.Remaining != 0 {
		t.Errorf("Remaining = %d when over limit, want floor of 0", daily.Remaining)
	}
}

// ============================================================================
// Warning Threshold Tests
// ============================================================================

func TestLedger_NearLimitAtThreshold(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 100000, WarningThresholdPercent: 80})

	l.RecordUsage(Usage{TotalTokens: 79999})
	if l.Status().NearLimit {
		t.Error("NearLimit = true below the threshold")
	}

	l.RecordUsage(Usage{TotalTokens: 1})
	if !l.Status().NearLimit {
		t.Error("NearLimit = false at exactly 80 percent")
	}

	l.RecordUsage(Usage{TotalTokens: 5000})
	if !l.Status().NearLimit {
		t.Error("NearLimit = false at 85 percent")
	}
}

func TestLedger_NearLimitFromMonthlyTier(t *testing.T) {
	l := newTestLedger(BudgetConfig{
		DailyLimitTokens:        1 << 40,
		MonthlyLimitTokens:      1000,
		WarningThresholdPercent: 50,
	})

	l.RecordUsage(Usage{TotalTokens: 600})

	if !l.Status().NearLimit {
		t.Error("NearLimit = false, want true via the monthly tier")
	}
}

func TestLedger_ThresholdZeroDisablesWarning(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 100})
	l.RecordUsage(Usage{TotalTokens: 1000})

	if l.Status().NearLimit {
		t.Error("NearLimit = true with warning threshold disabled")
	}
}

func TestLedger_ThresholdClampedAtConstruction(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{name: "above range", threshold: 150, want: 100},
		{name: "below range", threshold: -10, want: 0},
		{name: "in range", threshold: 75, want: 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(BudgetConfig{WarningThresholdPercent: tt.threshold})
			if got := l.Limits().WarningThresholdPercent; got != tt.want {
				t.Errorf("WarningThresholdPercent = %v, want %v", got, tt.want)
			}
		})
	}
}

// ============================================================================
// Calendar Boundary Tests
// ============================================================================

func TestLedger_MonthlyUsesCalendarMonth(t *testing.T) {
	l := newTestLedger(BudgetConfig{MonthlyLimitTokens: 600})

	cur := time.Date(2025, time.May, 31, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return cur }
	l.RecordUsage(Usage{TotalTokens: 1000})

	cur = time.Date(2025, time.June, 1, 0, 30, 0, 0, time.UTC)
	l.RecordUsage(Usage{TotalTokens: 300})

	cur = time.Date(2025, time.June, 14, 9, 0, 0, 0, time.UTC)
	l.RecordUsage(Usage{TotalTokens: 200})

	// May 31 is well inside a rolling 30 days but outside the calendar
	// month, so June sums to 500.
	cur = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	if used := l.Status().Monthly.Used; used != 500 {
		t.Fatalf("Monthly.Used = %d, want 500", used)
	}

	if check := l.CheckBudget(100); !check.Allowed {
		t.Errorf("CheckBudget(100) blocked exact monthly fit: %s", check.Reason)
	}
	check := l.CheckBudget(101)
	if check.Allowed {
		t.Error("CheckBudget(101) allowed over the monthly limit")
	}
	if check.Status.Monthly.Used != 500 {
		t.Errorf("check Status.Monthly.Used = %d, want 500 excluding the estimate", check.Status.Monthly.Used)
	}
}

func TestLedger_DailyKeyIsUTC(t *testing.T) {
	l := newTestLedger(BudgetConfig{})
	zone := time.FixedZone("UTC+2", 2*60*60)

	// Local June 16 01:30 is still June 15 in UTC.
	cur := time.Date(2025, time.June, 16, 1, 30, 0, 0, zone)
	l.now = func() time.Time { return cur }
	l.RecordUsage(Usage{TotalTokens: 100})

	// Local June 16 02:30 crosses into UTC June 16.
	cur = time.Date(2025, time.June, 16, 2, 30, 0, 0, zone)
	l.RecordUsage(Usage{TotalTokens: 50})

	history := l.History()
	if len(history) != 2 {
		t.Fatalf("History() returned %d entries, want 2", len(history))
	}
	if history[0].Date != "2025-06-15" || history[1].Date != "2025-06-16" {
		t.Errorf("dates = %q, %q, want UTC days 2025-06-15, 2025-06-16",
			history[0].Date, history[1].Date)
	}
	if history[0].TotalTokens != 100 || history[1].TotalTokens != 50 {
		t.Errorf("tokens split = %d/%d, want 100/50", history[0].TotalTokens, history[1].TotalTokens)
	}
}

func TestLedger_DailyResetsAtMidnightUTC(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 100})

	cur := time.Date(2025, time.June, 15, 23, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return cur }
	l.RecordUsage(Usage{TotalTokens: 100})

	if check := l.CheckBudget(1); check.Allowed {
		t.Fatal("CheckBudget() allowed at the daily limit")
	}

	cur = time.Date(2025, time.June, 16, 0, 1, 0, 0, time.UTC)
	if check := l.CheckBudget(1); !check.Allowed {
		t.Errorf("CheckBudget() still blocked after the UTC day rolled over: %s", check.Reason)
	}
	if used := l.Status().Daily.Used; used != 0 {
		t.Errorf("Daily.Used = %d on the new day, want 0", used)
	}
}

// ============================================================================
// Limit Update Tests
// ============================================================================

func TestLedger_UpdateLimitsPartial(t *testing.T) {
	l := newTestLedger(BudgetConfig{
		DailyLimitTokens:        1000,
		MonthlyLimitTokens:      5000,
		WarningThresholdPercent: 50,
	})

	if err := l.UpdateLimits(LimitsUpdate{DailyLimitTokens: intPtr(2000)}); err != nil {
		t.Fatalf("UpdateLimits() error: %v", err)
	}

	limits := l.Limits()
	if limits.DailyLimitTokens != 2000 {
		t.Errorf("DailyLimitTokens = %d, want 2000", limits.DailyLimitTokens)
	}
	if limits.MonthlyLimitTokens != 5000 || limits.WarningThresholdPercent != 50 {
		t.Errorf("untouched fields changed: monthly=%d threshold=%v",
			limits.MonthlyLimitTokens, limits.WarningThresholdPercent)
	}
}

func TestLedger_UpdateLimitsValidation(t *testing.T) {
	tests := []struct {
		name      string
		update    LimitsUpdate
		wantError bool
	}{
		{name: "empty update", update: LimitsUpdate{}, wantError: false},
		{name: "all fields", update: LimitsUpdate{
			DailyLimitTokens:        intPtr(100),
			MonthlyLimitTokens:      intPtr(1000),
			WarningThresholdPercent: floatPtr(90),
		}, wantError: false},
		{name: "zero disables", update: LimitsUpdate{DailyLimitTokens: intPtr(0)}, wantError: false},
		{name: "negative daily", update: LimitsUpdate{DailyLimitTokens: intPtr(-1)}, wantError: true},
		{name: "negative monthly", update: LimitsUpdate{MonthlyLimitTokens: intPtr(-5)}, wantError: true},
		{name: "threshold above range", update: LimitsUpdate{WarningThresholdPercent: floatPtr(150)}, wantError: true},
		{name: "threshold below range", update: LimitsUpdate{WarningThresholdPercent: floatPtr(-1)}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(BudgetConfig{DailyLimitTokens: 1000})
			err := l.UpdateLimits(tt.update)
			if tt.wantError && err == nil {
				t.Error("UpdateLimits() succeeded, want error")
			}
			if !tt.wantError && err != nil {
				t.Errorf("UpdateLimits() error: %v", err)
			}
		})
	}
}

func TestLedger_UpdateLimitsTakesEffectImmediately(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 1000})
	l.RecordUsage(Usage{TotalTokens: 500})

	if check := l.CheckBudget(400); !check.Allowed {
		t.Fatalf("CheckBudget() blocked under original limit: %s", check.Reason)
	}

	if err := l.UpdateLimits(LimitsUpdate{DailyLimitTokens: intPtr(600)}); err != nil {
		t.Fatalf("UpdateLimits() error: %v", err)
	}

	if check := l.CheckBudget(400); check.Allowed {
		t.Error("CheckBudget() allowed after the limit shrank below usage+estimate")
	}
}

// ============================================================================
// History and Cost Tests
// ============================================================================

func TestLedger_HistorySortedOldestFirst(t *testing.T) {
	l := newTestLedger(BudgetConfig{})

	days := []time.Time{
		time.Date(2025, time.June, 20, 8, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 5, 8, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 12, 8, 0, 0, 0, time.UTC),
	}
	var cur time.Time
	l.now = func() time.Time { return cur }
	for _, day := range days {
		cur = day
		l.RecordUsage(Usage{TotalTokens: 10})
	}

	history := l.History()
	if len(history) != 3 {
		t.Fatalf("History() returned %d entries, want 3", len(history))
	}
	want := []string{"2025-06-05", "2025-06-12", "2025-06-20"}
	for i, date := range want {
		if history[i].Date != date {
			t.Errorf("history[%d].Date = %q, want %q", i, history[i].Date, date)
		}
	}
}

func TestLedger_HistoryReturnsCopy(t *testing.T) {
	l := newTestLedger(BudgetConfig{})
	l.RecordUsage(Usage{TotalTokens: 10})

	history := l.History()
	history[0].TotalTokens = 9999

	if got := l.History()[0].TotalTokens; got != 10 {
		t.Errorf("mutating the returned history changed the ledger: %d", got)
	}
}

func TestLedger_EstimateCost(t *testing.T) {
	l := New(Config{
		Budget: BudgetConfig{},
		Pricing: NewPricingTable(map[string]Price{
			"gpt-4o":  {Prompt: 0.0025, Completion: 0.01},
			"default": {Prompt: 0.002, Completion: 0.006},
		}),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	got := l.EstimateCost("gpt-4o", 1000, 1000)
	if got != 0.0125 {
		t.Errorf("EstimateCost() = %v, want 0.0125", got)
	}
}

func TestLedger_AnalyzeDelegates(t *testing.T) {
	l := newTestLedger(BudgetConfig{})

	if a := l.Analyze("Short and focused."); a.ShouldOptimize {
		t.Errorf("Analyze() flagged a clean prompt: %v", a.Recommendations)
	}
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestLedger_ConcurrentRecordAndCheck(t *testing.T) {
	l := newTestLedger(BudgetConfig{DailyLimitTokens: 1 << 30, WarningThresholdPercent: 90})

	const (
		goroutines = 8
		perWorker  = 50
	)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				l.RecordUsage(Usage{PromptTokens: 6, CompletionTokens: 4, TotalTokens: 10})
				l.CheckBudget(10)
				l.Status()
			}
		}()
	}
	wg.Wait()

	if used := l.Status().Daily.Used; used != goroutines*perWorker*10 {
		t.Errorf("Daily.Used = %d, want %d", used, goroutines*perWorker*10)
	}
}
