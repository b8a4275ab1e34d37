package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Target is a store whose entries can be pruned by age.
type Target interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Config contains configuration for the retention pruner.
type Config struct {
	// MaxAge is how long an entry is kept after its last update.
	// Zero keeps entries forever.
	MaxAge time.Duration

	// Schedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	Schedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAge:   30 * 24 * time.Hour,
		Schedule: "0 3 * * *",
	}
}

// Pruner deletes knowledge base entries older than the configured age.
type Pruner struct {
	target Target
	config *Config
	logger *slog.Logger
	now    func() time.Time
}

// NewPruner creates a pruner for target.
func NewPruner(target Target, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		target: target,
		config: config,
		logger: logger.With("component", "knowledge.retention"),
		now:    time.Now,
	}
}

// Prune deletes entries older than MaxAge and returns how many were removed.
// With a zero MaxAge nothing is deleted.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.config.MaxAge <= 0 {
		p.logger.Debug("Retention disabled, skipping prune")
		return 0, nil
	}
	return p.PruneOlderThan(ctx, p.config.MaxAge)
}

// PruneOlderThan deletes entries last updated more than age ago.
func (p *Pruner) PruneOlderThan(ctx context.Context, age time.Duration) (int, error) {
	if age <= 0 {
		return 0, fmt.Errorf("retention age must be positive, got %s", age)
	}

	cutoff := p.now().Add(-age)
	start := time.Now()

	removed, err := p.target.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune knowledge base: %w", err)
	}

	p.logger.Info("Knowledge base pruned",
		"cutoff", cutoff.Format(time.RFC3339),
		"removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return removed, nil
}
