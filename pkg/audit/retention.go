package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler prunes old trail entries on a cron schedule (e.g. daily at
// 3 AM). Entries older than the configured retention are removed.
type Scheduler struct {
	rec     Recorder
	cfg     SchedulerConfig
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// SchedulerConfig configures trail retention.
type SchedulerConfig struct {
	// Schedule is a standard cron expression.
	//
	// Common expressions:
	//   - "0 3 * * *"    - Daily at 3 AM
	//   - "0 */6 * * *"  - Every 6 hours
	//   - "0 0 * * 0"    - Weekly on Sunday at midnight
	Schedule string

	// Retention is how long entries are kept. Default: 30 days.
	Retention time.Duration

	// Logger is the structured logger. Defaults to slog.Default() scoped
	// with component=audit.scheduler.
	Logger *slog.Logger
}

// NewScheduler creates a retention scheduler for the recorder. The cron
// expression is validated up front.
func NewScheduler(rec Recorder, cfg SchedulerConfig) (*Scheduler, error) {
	if rec == nil {
		return nil, fmt.Errorf("recorder cannot be nil")
	}
	if cfg.Schedule == "" {
		return nil, fmt.Errorf("schedule cannot be empty")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "audit.scheduler")
	}

	return &Scheduler{
		rec:    rec,
		cfg:    cfg,
		cron:   cron.New(),
		logger: cfg.Logger,
	}, nil
}

// Start begins scheduled pruning. It is a no-op when already running.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Schedule, s.runCleanup)
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("audit retention scheduler started",
		"schedule", s.cfg.Schedule,
		"retention", s.cfg.Retention,
	)

	return nil
}

// runCleanup executes one cleanup cycle.
func (s *Scheduler) runCleanup() {
	cutoff := time.Now().Add(-s.cfg.Retention)

	deleted, err := s.rec.Cleanup(context.Background(), cutoff)
	if err != nil {
		s.logger.Error("scheduled audit cleanup failed",
			"error", err,
		)
		return
	}

	if deleted > 0 {
		s.logger.Info("scheduled audit cleanup completed",
			"deleted_count", deleted,
		)
	} else {
		s.logger.Debug("scheduled audit cleanup completed, no entries deleted")
	}
}

// Stop stops the scheduler and waits for any running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		s.running = false
		s.logger.Info("audit retention scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled cleanup time, or nil when the
// scheduler is not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
