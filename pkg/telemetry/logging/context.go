package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// RunIDKey is the context key for pipeline run IDs.
	RunIDKey contextKey = "run_id"

	// StageKey is the context key for pipeline stage names.
	StageKey contextKey = "stage"
)

// WithRunID adds a pipeline run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithStage adds a pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// GetStage retrieves the stage name from the context.
func GetStage(ctx context.Context) string {
	if stage, ok := ctx.Value(StageKey).(string); ok {
		return stage
	}
	return ""
}

// contextAttrs extracts the logging fields carried by ctx, including the
// IDs of the active span.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if runID := GetRunID(ctx); runID != "" {
		attrs = append(attrs, slog.String(string(RunIDKey), runID))
	}
	if stage := GetStage(ctx); stage != "" {
		attrs = append(attrs, slog.String(string(StageKey), stage))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}
