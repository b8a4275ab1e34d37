package reasoner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/knowledge"
	"mercator-hq/verdict/pkg/telemetry/tracing"
)

// Metrics receives one event per provider call.
type Metrics interface {
	RecordReasonerCall(provider, outcome string, duration time.Duration)
}

// Limiter paces provider calls. *ratelimit.TokenBucket implements it.
type Limiter interface {
	Wait(ctx context.Context) error
}

type noopMetrics struct{}

func (noopMetrics) RecordReasonerCall(string, string, time.Duration) {}

// Guarded adapts a Provider to knowledge.Reasoner. Calls are bounded by a
// timeout and are never retried; any failure yields the fallback entry.
type Guarded struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
	metrics  Metrics
	tracer   trace.Tracer
	limiter  Limiter
}

var _ knowledge.Reasoner = (*Guarded)(nil)

// GuardOption configures a Guarded reasoner.
type GuardOption func(*Guarded)

// WithTimeout bounds each provider call. Non-positive values are ignored.
func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guarded) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guarded) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics sets the call metrics sink.
func WithMetrics(m Metrics) GuardOption {
	return func(g *Guarded) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithTracer sets the tracer. The global tracer is used otherwise.
func WithTracer(t trace.Tracer) GuardOption {
	return func(g *Guarded) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithRateLimiter paces calls through l. Time spent waiting for l does not
// count against the call timeout.
func WithRateLimiter(l Limiter) GuardOption {
	return func(g *Guarded) {
		if l != nil {
			g.limiter = l
		}
	}
}

// NewGuarded wraps p.
func NewGuarded(p Provider, opts ...GuardOption) (*Guarded, error) {
	if p == nil {
		return nil, errors.New("provider cannot be nil")
	}

	g := &Guarded{
		provider: p,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		metrics:  noopMetrics{},
		tracer:   otel.Tracer("mercator-hq/verdict/reasoner"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "reasoner", "provider", p.Name())
	return g, nil
}

// Provider returns the wrapped provider.
func (g *Guarded) Provider() Provider {
	return g.provider
}

// Reason derives the entry for key. Fields the model leaves empty are taken
// from the fallback entry.
func (g *Guarded) Reason(ctx context.Context, key compliance.PairKey) compliance.Entry {
	ctx, span := g.tracer.Start(ctx, "reasoner.derive",
		trace.WithAttributes(
			attribute.String(tracing.AttrProvider, g.provider.Name()),
			attribute.String(tracing.AttrAction, key.Action),
		),
	)
	defer span.End()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				err = &RateLimitError{Provider: g.provider.Name(), Message: err.Error()}
			}
			return g.fallback(ctx, span, key, err, 0)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	entry, err := g.provider.Derive(callCtx, key.Action, key.Reason)
	if err == nil && callCtx.Err() != nil {
		// A provider that ignores its context must not leak a late answer.
		err = &TimeoutError{Provider: g.provider.Name(), Timeout: g.timeout}
	}
	elapsed := time.Since(start)

	if err != nil {
		return g.fallback(ctx, span, key, err, elapsed)
	}
	g.metrics.RecordReasonerCall(g.provider.Name(), OutcomeSuccess, elapsed)

	tracing.SetStatus(span, nil)
	g.logger.DebugContext(ctx, "Reasoning completed",
		"action", key.Action,
		"duration_ms", elapsed.Milliseconds(),
	)
	return entry.WithDefaults(key)
}

// fallback records a failed call and returns the fallback entry.
func (g *Guarded) fallback(ctx context.Context, span trace.Span, key compliance.PairKey, err error, elapsed time.Duration) compliance.Entry {
	outcome := Classify(err)
	g.metrics.RecordReasonerCall(g.provider.Name(), outcome, elapsed)
	tracing.SetErrorAttributes(span, err, outcome)

	g.logger.WarnContext(ctx, "Reasoning failed, using fallback entry",
		"action", key.Action,
		"reason", key.Reason,
		"outcome", outcome,
		"duration_ms", elapsed.Milliseconds(),
		"error", err,
	)
	return compliance.FallbackEntry(key)
}

// Close releases provider resources, if any.
func (g *Guarded) Close() error {
	if c, ok := g.provider.(Closer); ok {
		return c.Close()
	}
	return nil
}
