package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. Custom keys use the "verdict.*" namespace.
const (
	// Pipeline attributes
	AttrRunID          = "verdict.run_id"
	AttrMode           = "verdict.mode"
	AttrPolicyVersion  = "verdict.policy.version"
	AttrRecords        = "verdict.records"
	AttrStage          = "verdict.stage"
	AttrComplianceRate = "verdict.compliance_rate"

	// Reasoner attributes
	AttrProvider = "verdict.reasoner.provider"
	AttrAction   = "verdict.action"

	// Error attributes
	AttrErrorType    = "verdict.error.type"
	AttrErrorMessage = "error.message"
)

// SetErrorAttributes records err on span, tags it with errorType and marks
// the span failed.
//
// Example:
//
//	SetErrorAttributes(span, err, "rate_limit")
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}

	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String(AttrErrorType, errorType),
		attribute.String(AttrErrorMessage, err.Error()),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetStatus sets the span status based on an error.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
