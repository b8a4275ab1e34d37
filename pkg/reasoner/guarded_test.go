package reasoner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/verdict/pkg/compliance"
)

type stubProvider struct {
	entry compliance.Entry
	err   error
	delay time.Duration
	calls int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Derive(ctx context.Context, action, reason string) (compliance.Entry, error) {
	p.calls++
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return compliance.Entry{}, ctx.Err()
		}
	}
	return p.entry, p.err
}

type recordedCall struct {
	provider, outcome string
}

type recordingMetrics struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (m *recordingMetrics) RecordReasonerCall(provider, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{provider, outcome})
}

var testKey = compliance.PairKey{Action: "deny", Reason: "high risk"}

func TestGuarded_Success(t *testing.T) {
	p := &stubProvider{entry: compliance.Entry{ComplianceFramework: "SOC 2", Severity: "High"}}
	metrics := &recordingMetrics{}
	g, err := NewGuarded(p, WithLogger(quietLogger()), WithMetrics(metrics))
	if err != nil {
		t.Fatalf("NewGuarded() failed: %v", err)
	}

	got := g.Reason(context.Background(), testKey)
	want := compliance.Entry{
		ComplianceFramework: "SOC 2",
		ObligationID:        compliance.FallbackObligationID,
		Description:         "deny: high risk",
		Category:            compliance.FallbackCategory,
		Severity:            "High",
	}
	if got != want {
		t.Errorf("Reason() = %+v, want %+v", got, want)
	}
	if len(metrics.calls) != 1 || metrics.calls[0] != (recordedCall{"stub", OutcomeSuccess}) {
		t.Errorf("metrics = %+v", metrics.calls)
	}
}

// TestGuarded_FailuresYieldFallback tests that every failure mode degrades to
// the fallback entry with a single provider call
func TestGuarded_FailuresYieldFallback(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome string
	}{
		{name: "auth", err: &AuthError{Provider: "stub"}, outcome: OutcomeAuth},
		{name: "rate limit", err: &RateLimitError{Provider: "stub"}, outcome: OutcomeRateLimit},
		{name: "parse", err: &ParseError{Provider: "stub", Cause: errors.New("bad")}, outcome: OutcomeParse},
		{name: "transport", err: errors.New("connection refused"), outcome: OutcomeProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{err: tt.err}
			metrics := &recordingMetrics{}
			g, _ := NewGuarded(p, WithLogger(quietLogger()), WithMetrics(metrics))

			got := g.Reason(context.Background(), testKey)
			if got != compliance.FallbackEntry(testKey) {
				t.Errorf("Reason() = %+v, want fallback", got)
			}
			if p.calls != 1 {
				t.Errorf("provider called %d times, want 1", p.calls)
			}
			if len(metrics.calls) != 1 || metrics.calls[0].outcome != tt.outcome {
				t.Errorf("metrics = %+v, want outcome %q", metrics.calls, tt.outcome)
			}
		})
	}
}

func TestGuarded_Timeout(t *testing.T) {
	p := &stubProvider{delay: time.Second}
	metrics := &recordingMetrics{}
	g, _ := NewGuarded(p,
		WithLogger(quietLogger()),
		WithMetrics(metrics),
		WithTimeout(30*time.Millisecond),
	)

	start := time.Now()
	got := g.Reason(context.Background(), testKey)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Reason() took %v, want it bounded by the timeout", elapsed)
	}
	if got != compliance.FallbackEntry(testKey) {
		t.Errorf("Reason() = %+v, want fallback", got)
	}
	if metrics.calls[0].outcome != OutcomeTimeout {
		t.Errorf("outcome = %q, want %q", metrics.calls[0].outcome, OutcomeTimeout)
	}
}

func TestGuarded_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	g, _ := NewGuarded(&stubProvider{err: &AuthError{}},
		WithLogger(quietLogger()),
		WithTracer(tp.Tracer("test")),
	)
	g.Reason(context.Background(), testKey)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name() != "reasoner.derive" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if len(spans[0].Events()) == 0 {
		t.Error("span has no recorded error event")
	}
}

func TestNewGuarded_NilProvider(t *testing.T) {
	if _, err := NewGuarded(nil); err == nil {
		t.Error("NewGuarded(nil) expected error")
	}
}

type denyingLimiter struct{ err error }

func (l denyingLimiter) Wait(context.Context) error { return l.err }

func TestGuarded_RateLimiterDenial(t *testing.T) {
	p := &stubProvider{entry: compliance.Entry{ComplianceFramework: "SOC 2"}}
	metrics := &recordingMetrics{}
	g, err := NewGuarded(p,
		WithLogger(quietLogger()),
		WithMetrics(metrics),
		WithRateLimiter(denyingLimiter{err: errors.New("wait would exceed deadline")}),
	)
	if err != nil {
		t.Fatalf("NewGuarded() failed: %v", err)
	}

	got := g.Reason(context.Background(), testKey)
	if got != compliance.FallbackEntry(testKey) {
		t.Errorf("Reason() = %+v, want fallback", got)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times, want 0", p.calls)
	}
	if len(metrics.calls) != 1 || metrics.calls[0].outcome != OutcomeRateLimit {
		t.Errorf("metrics = %+v, want one rate_limit outcome", metrics.calls)
	}
}

func TestGuarded_RateLimiterCanceled(t *testing.T) {
	p := &stubProvider{}
	metrics := &recordingMetrics{}
	g, _ := NewGuarded(p,
		WithLogger(quietLogger()),
		WithMetrics(metrics),
		WithRateLimiter(denyingLimiter{err: context.Canceled}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g.Reason(ctx, testKey)
	if len(metrics.calls) != 1 || metrics.calls[0].outcome != OutcomeCanceled {
		t.Errorf("metrics = %+v, want one canceled outcome", metrics.calls)
	}
}
