package pipeline

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/verdict/pkg/compliance"
)

// Observer receives run events. Implementations must not block and cannot
// fail a run.
type Observer interface {
	StageStarted(ctx context.Context, runID, stage string)
	StageCompleted(ctx context.Context, runID string, result StageResult)
	RunCompleted(ctx context.Context, result *Result)
}

// LoggingObserver logs run events.
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates a logging observer.
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger.With("component", "pipeline")}
}

func (o *LoggingObserver) StageStarted(ctx context.Context, runID, stage string) {
	o.logger.DebugContext(ctx, "Stage started", "run_id", runID, "stage", stage)
}

func (o *LoggingObserver) StageCompleted(ctx context.Context, runID string, r StageResult) {
	o.logger.InfoContext(ctx, "Stage completed",
		"run_id", runID,
		"stage", r.Name,
		"status", string(r.Status),
		"records", r.RecordsProcessed,
		"duration_ms", r.Duration.Milliseconds(),
	)
}

func (o *LoggingObserver) RunCompleted(ctx context.Context, r *Result) {
	o.logger.InfoContext(ctx, "Run completed",
		"run_id", r.RunID,
		"mode", string(r.Mode),
		"policy_version", r.PolicyVersion,
		"records", r.Report.Summary.Total,
		"compliance_rate", r.Report.Summary.ComplianceRate,
		"cache_hits", r.CacheHits,
		"cache_misses", r.CacheMisses,
		"duration_ms", r.Duration().Milliseconds(),
	)
}

// MetricsSink records run metrics. The telemetry metrics collector
// implements it.
type MetricsSink interface {
	RecordStage(stage string, duration time.Duration, records int)
	RecordRun(mode string, summary compliance.Summary, duration time.Duration)
}

// MetricsObserver forwards run events to a MetricsSink.
type MetricsObserver struct {
	sink MetricsSink
}

// NewMetricsObserver creates a metrics observer.
func NewMetricsObserver(sink MetricsSink) *MetricsObserver {
	return &MetricsObserver{sink: sink}
}

func (o *MetricsObserver) StageStarted(context.Context, string, string) {}

func (o *MetricsObserver) StageCompleted(_ context.Context, _ string, r StageResult) {
	o.sink.RecordStage(r.Name, r.Duration, r.RecordsProcessed)
}

func (o *MetricsObserver) RunCompleted(_ context.Context, r *Result) {
	o.sink.RecordRun(string(r.Mode), r.Report.Summary, r.Duration())
}
