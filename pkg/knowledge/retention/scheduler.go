package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on a cron schedule.
type Scheduler struct {
	pruner   *Pruner
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool

	// OnPrune, when set, is called after every scheduled prune.
	OnPrune func(removed int, err error)
}

// NewScheduler creates a scheduler using the pruner's configured schedule.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		schedule: pruner.config.Schedule,
		cron:     cron.New(),
		logger:   pruner.logger.With("component", "knowledge.retention.scheduler"),
	}
}

// Start schedules pruning and returns. The scheduler stops when ctx is
// cancelled or Stop is called. An empty schedule is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("retention scheduler already running")
	}
	if s.schedule == "" {
		s.logger.Info("Prune schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.runPruning(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("Retention scheduler started",
		"schedule", s.schedule,
		"max_age", s.pruner.config.MaxAge.String(),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) runPruning(ctx context.Context) {
	removed, err := s.pruner.Prune(ctx)
	if s.OnPrune != nil {
		s.OnPrune(removed, err)
	}
	if err != nil {
		s.logger.Error("Scheduled pruning failed", "error", err)
		return
	}
	s.logger.Debug("Scheduled pruning completed", "removed", removed)
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("Retention scheduler stopped")
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled prune, or nil when nothing is scheduled.
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
