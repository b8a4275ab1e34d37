package classify

import (
	"math"
	"testing"

	"mercator-hq/verdict/pkg/compliance"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		action string
		want   compliance.Status
	}{
		{"deny", compliance.StatusNonCompliant},
		{"quarantine", compliance.StatusRequiresAction},
		{"mfa", compliance.StatusRequiresAction},
		{"monitor", compliance.StatusCompliant},
		{"allow", compliance.StatusCompliant},
		{"Deny", compliance.StatusUnknown},
		{"escalate", compliance.StatusUnknown},
		{"", compliance.StatusUnknown},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.action); got != tt.want {
			t.Errorf("StatusFor(%q) = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{v: 6.25, places: 1, want: 6.2},
		{v: 31.25, places: 1, want: 31.2},
		{v: 9.375, places: 2, want: 9.38},
		{v: 0.125, places: 2, want: 0.12},
		{v: 2.675, places: 2, want: 2.67},
		{v: 33.33333, places: 1, want: 33.3},
		{v: -6.25, places: 1, want: -6.2},
		{v: 87.3, places: 2, want: 87.3},
	}
	for _, tt := range tests {
		if got := Round(tt.v, tt.places); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		name  string
		score compliance.Score
		want  float64
	}{
		{name: "scaled", score: compliance.NewScore(0.873), want: 87.3},
		{name: "two decimals", score: compliance.NewScore(0.56789), want: 56.79},
		{name: "one", score: compliance.NewScore(1), want: 100},
		{name: "missing", score: compliance.Score{}, want: 50},
		{name: "out of range", score: compliance.NewScore(1.5), want: 150},
		{name: "negative", score: compliance.NewScore(-0.2), want: -20},
		{name: "overflow saturates", score: compliance.NewScore(1e307), want: math.MaxFloat64},
		{name: "negative overflow saturates", score: compliance.NewScore(-1e307), want: -math.MaxFloat64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConfidenceScore(tt.score); got != tt.want {
				t.Errorf("ConfidenceScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	denyKey := compliance.PairKey{Action: "deny", Reason: "high risk"}
	entry := compliance.Entry{
		ComplianceFramework: "ISO 27001",
		ObligationID:        "A.12.4.1",
		Description:         "Event logging",
		Category:            "Logging",
		Severity:            "High",
	}

	batch := []compliance.AnnotatedRecord{
		{
			Record: compliance.NewRecord(
				compliance.Field{Name: "final_confidence_score", Value: 0.95},
				compliance.Field{Name: "severity", Value: "high"},
			),
			Outcome: compliance.Outcome{Action: "deny", Reason: "high risk", RuleID: "r1"},
		},
		{
			Record:  compliance.NewRecord(compliance.Field{Name: "host", Value: "web-1"}),
			Outcome: compliance.DefaultOutcome(),
		},
	}

	got := Classify(batch, Entries{denyKey: entry})
	if len(got) != 2 {
		t.Fatalf("Classify() returned %d records, want 2", len(got))
	}

	first := got[0]
	if first.Status != compliance.StatusNonCompliant || first.ConfidenceScore != 95 {
		t.Errorf("first = status %q confidence %v", first.Status, first.ConfidenceScore)
	}
	if first.Framework != "ISO 27001" || first.Severity != "High" {
		t.Errorf("first annotations = %+v", first)
	}
	if first.Record.Severity != "high" {
		t.Error("input severity was modified")
	}

	// No entry for the default pair: fallback metadata, record kept.
	second := got[1]
	fb := compliance.FallbackEntry(compliance.DefaultOutcome().Key())
	if second.ObligationID != fb.ObligationID || second.Description != fb.Description {
		t.Errorf("second annotations = %+v, want fallback", second)
	}
	if second.Status != compliance.StatusCompliant || second.ConfidenceScore != 50 {
		t.Errorf("second = status %q confidence %v", second.Status, second.ConfidenceScore)
	}
}

func TestClassify_NilLookup(t *testing.T) {
	batch := []compliance.AnnotatedRecord{{Outcome: compliance.Outcome{Action: "mfa", Reason: "r"}}}
	got := Classify(batch, nil)
	if got[0].Status != compliance.StatusRequiresAction || got[0].Framework != compliance.FallbackFramework {
		t.Errorf("Classify(nil) = %+v", got[0])
	}
}
