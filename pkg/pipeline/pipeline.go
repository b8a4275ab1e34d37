package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/verdict/pkg/classify"
	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/dedup"
	"mercator-hq/verdict/pkg/knowledge"
	"mercator-hq/verdict/pkg/policy"
	"mercator-hq/verdict/pkg/report"
	"mercator-hq/verdict/pkg/telemetry/logging"
	"mercator-hq/verdict/pkg/telemetry/tracing"
)

// ErrNoRules is returned when the rule provider has no engine to run.
var ErrNoRules = errors.New("no rule engine available")

// RuleProvider supplies the rule engine for a run. The engine is read once
// at the start of each run, so a reload never affects a run in progress.
type RuleProvider interface {
	Engine() *policy.Engine
}

// StaticRules is a RuleProvider over a fixed engine.
type StaticRules struct {
	engine *policy.Engine
}

// Static returns a RuleProvider that always yields engine.
func Static(engine *policy.Engine) StaticRules {
	return StaticRules{engine: engine}
}

// Engine returns the engine.
func (s StaticRules) Engine() *policy.Engine {
	return s.engine
}

// Resolver resolves pairs to compliance metadata. *knowledge.KnowledgeBase
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, pairs []compliance.PairKey, mode knowledge.Mode) *knowledge.Resolution
}

// Pipeline runs batches through the classification stages.
type Pipeline struct {
	rules     RuleProvider
	kb        Resolver
	logger    *slog.Logger
	observers []Observer
	tracer    trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// WithTracer sets the tracer. The global tracer is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// New creates a pipeline.
func New(rules RuleProvider, kb Resolver, opts ...Option) (*Pipeline, error) {
	if rules == nil {
		return nil, fmt.Errorf("rule provider cannot be nil")
	}
	if kb == nil {
		return nil, fmt.Errorf("knowledge base cannot be nil")
	}

	p := &Pipeline{
		rules:  rules,
		kb:     kb,
		logger: slog.Default(),
		tracer: otel.Tracer("mercator-hq/verdict/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Run classifies records. Data problems never fail a run: missing values
// take documented defaults and reasoning failures yield fallback entries.
// Only a missing rule engine or an unknown mode return an error. An empty
// mode means full.
func (p *Pipeline) Run(ctx context.Context, records []compliance.Record, mode knowledge.Mode) (*Result, error) {
	if mode == "" {
		mode = knowledge.ModeFull
	}
	if mode != knowledge.ModeFull && mode != knowledge.ModeQuick {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	engine := p.rules.Engine()
	if engine == nil {
		return nil, ErrNoRules
	}

	res := &Result{
		RunID:         uuid.NewString(),
		Mode:          mode,
		PolicyVersion: engine.Version(),
		StartedAt:     time.Now().UTC(),
	}

	ctx = logging.WithRunID(ctx, res.RunID)
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String(tracing.AttrRunID, res.RunID),
		attribute.String(tracing.AttrMode, string(mode)),
		attribute.String(tracing.AttrPolicyVersion, res.PolicyVersion),
		attribute.Int(tracing.AttrRecords, len(records)),
	))
	defer span.End()

	p.logger.InfoContext(ctx, "Run started",
		"mode", string(mode),
		"records", len(records),
		"rules", engine.Len(),
	)

	var annotated []compliance.AnnotatedRecord
	p.stage(ctx, res, StageRuleApplication, func(context.Context) (int, StageStatus) {
		annotated = engine.Apply(records)
		return len(annotated), StatusCompleted
	})

	var pairs []compliance.PairKey
	p.stage(ctx, res, StageSegregation, func(context.Context) (int, StageStatus) {
		pairs = dedup.UniquePairs(annotated)
		return len(pairs), StatusCompleted
	})

	var resolution *knowledge.Resolution
	p.stage(ctx, res, StageKnowledgeBase, func(ctx context.Context) (int, StageStatus) {
		resolution = p.kb.Resolve(ctx, pairs, mode)
		if len(pairs) == 0 {
			return 0, StatusSkipped
		}
		return len(resolution.Pairs), StatusCompleted
	})
	res.Pairs = resolution.Pairs
	res.CacheHits = resolution.Hits
	res.CacheMisses = resolution.Misses

	var classified []compliance.ClassifiedRecord
	p.stage(ctx, res, StageClassification, func(context.Context) (int, StageStatus) {
		classified = classify.Classify(annotated, resolution)
		return len(classified), StatusCompleted
	})

	p.stage(ctx, res, StageReport, func(context.Context) (int, StageStatus) {
		res.Report = report.Aggregate(classified)
		res.Report.RunID = res.RunID
		return len(res.Report.Obligations), StatusCompleted
	})

	res.CompletedAt = time.Now().UTC()
	span.SetAttributes(attribute.Float64(tracing.AttrComplianceRate, res.Report.Summary.ComplianceRate))
	tracing.SetStatus(span, nil)

	for _, o := range p.observers {
		o.RunCompleted(ctx, res)
	}
	return res, nil
}

// stage runs fn inside a span, times it and notifies observers.
func (p *Pipeline) stage(ctx context.Context, res *Result, name string, fn func(context.Context) (int, StageStatus)) {
	ctx = logging.WithStage(ctx, name)
	ctx, span := p.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(
		attribute.String(tracing.AttrStage, name),
	))
	defer span.End()

	for _, o := range p.observers {
		o.StageStarted(ctx, res.RunID, name)
	}

	start := time.Now()
	n, status := fn(ctx)
	elapsed := time.Since(start)

	result := StageResult{
		Name:             name,
		Description:      stageDescriptions[name],
		Status:           status,
		Duration:         elapsed,
		DurationSeconds:  elapsed.Seconds(),
		RecordsProcessed: n,
	}
	res.Stages = append(res.Stages, result)
	span.SetAttributes(attribute.Int(tracing.AttrRecords, n))

	for _, o := range p.observers {
		o.StageCompleted(ctx, res.RunID, result)
	}
}
