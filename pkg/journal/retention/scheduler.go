package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on its cron schedule.
type Scheduler struct {
	pruner  *Pruner
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a new retention scheduler.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		cron:   cron.New(),
		logger: slog.Default().With("component", "journal.scheduler"),
	}
}

// Start schedules pruning using the pruner's PruneSchedule, a standard
// five-field cron expression such as:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//
// An empty schedule or a disabled retention period leaves the scheduler
// idle. The scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.pruner.Config()
	if cfg.PruneSchedule == "" || cfg.RetentionDays <= 0 {
		s.logger.Info("journal pruning not scheduled",
			"schedule", cfg.PruneSchedule,
			"retention_days", cfg.RetentionDays,
		)
		return nil
	}
	if s.running {
		return nil
	}

	// Validate cron expression
	if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cfg.PruneSchedule, err)
	}

	// Add cron job
	if _, err := s.cron.AddFunc(cfg.PruneSchedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	// Start cron scheduler
	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", cfg.PruneSchedule,
		"retention_days", cfg.RetentionDays,
	)

	// Wait for context cancellation in background
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// run executes one scheduled pruning cycle.
func (s *Scheduler) run(ctx context.Context) {
	s.logger.Debug("starting scheduled journal pruning")

	if _, err := s.pruner.Prune(ctx); err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
	}
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done() // Wait for a running prune to finish
	s.running = false
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled prune, or nil when nothing is
// scheduled.
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
