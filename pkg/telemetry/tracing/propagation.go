package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Inject writes the W3C traceparent and tracestate of ctx into headers, so
// OpenAI-compatible gateways that trace requests join the run's trace:
//
//	req, _ := http.NewRequestWithContext(ctx, "POST", url, body)
//	tracing.Inject(ctx, req.Header)
//
// Nothing is written until New has installed a propagator.
func Inject(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
