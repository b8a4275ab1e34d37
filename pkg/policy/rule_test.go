package policy

import (
	"testing"

	"mercator-hq/verdict/pkg/compliance"
)

// TestParseComparator tests parsing of condition strings
func TestParseComparator(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Comparator
		wantErr bool
	}{
		{name: "greater or equal", input: ">=0.9", want: Comparator{Op: OpGreaterOrEqual, Threshold: 0.9}},
		{name: "less than", input: "<0.1", want: Comparator{Op: OpLessThan, Threshold: 0.1}},
		{name: "whitespace", input: "  >= 0.5 ", want: Comparator{Op: OpGreaterOrEqual, Threshold: 0.5}},
		{name: "integer threshold", input: "<1", want: Comparator{Op: OpLessThan, Threshold: 1}},
		{name: "unsupported operator", input: ">0.5", wantErr: true},
		{name: "equality", input: "==0.5", wantErr: true},
		{name: "missing threshold", input: ">=", wantErr: true},
		{name: "text threshold", input: "<high", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseComparator(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseComparator(%q) expected error, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseComparator(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseComparator(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

// TestComparator_Boundaries tests inclusive and exclusive thresholds
func TestComparator_Boundaries(t *testing.T) {
	ge := Comparator{Op: OpGreaterOrEqual, Threshold: 0.9}
	if !ge.Holds(0.9) {
		t.Error(">=0.9 should hold for 0.9")
	}
	if ge.Holds(0.8999) {
		t.Error(">=0.9 should not hold for 0.8999")
	}

	lt := Comparator{Op: OpLessThan, Threshold: 0.1}
	if lt.Holds(0.1) {
		t.Error("<0.1 should not hold for 0.1")
	}
	if !lt.Holds(0.0999) {
		t.Error("<0.1 should hold for 0.0999")
	}

	if (Comparator{}).Holds(1) {
		t.Error("zero comparator should never hold")
	}
}

func TestComparator_String(t *testing.T) {
	if got := (Comparator{Op: OpGreaterOrEqual, Threshold: 0.25}).String(); got != ">=0.25" {
		t.Errorf("String() = %q, want >=0.25", got)
	}
}

// TestRule_Matches tests evaluation of all four conditions
func TestRule_Matches(t *testing.T) {
	rule := Rule{
		ID: "r1", Priority: 1, Action: "deny", Reason: "high risk",
		Conditions: Conditions{
			FinalConfidenceScore:    Comparator{Op: OpGreaterOrEqual, Threshold: 0.9},
			FalsePositiveLikelihood: Comparator{Op: OpLessThan, Threshold: 0.1},
			CorrelationScore:        Comparator{Op: OpGreaterOrEqual, Threshold: 0.5},
			Severity:                []string{"high", "critical"},
		},
	}

	record := func(conf, fp, corr any, severity any) compliance.Record {
		return compliance.NewRecord(
			compliance.Field{Name: compliance.FieldFinalConfidenceScore, Value: conf},
			compliance.Field{Name: compliance.FieldFalsePositiveLikelihood, Value: fp},
			compliance.Field{Name: compliance.FieldCorrelationScore, Value: corr},
			compliance.Field{Name: compliance.FieldSeverity, Value: severity},
		)
	}

	tests := []struct {
		name string
		rec  compliance.Record
		want bool
	}{
		{"all conditions hold", record(0.95, 0.05, 0.6, "High"), true},
		{"severity case folded", record(0.95, 0.05, 0.6, " CRITICAL "), true},
		{"confidence too low", record(0.85, 0.05, 0.6, "high"), false},
		{"false positive too high", record(0.95, 0.1, 0.6, "high"), false},
		{"severity not allowed", record(0.95, 0.05, 0.6, "medium"), false},
		{"missing confidence evaluates as zero", record(nil, 0.05, 0.6, "high"), false},
		{"missing false positive evaluates as zero", record(0.95, nil, 0.6, "high"), true},
		{"absent severity is low", record(0.95, 0.05, 0.6, nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Matches(tt.rec); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRule_MatchesAbsentSeverityAsLow(t *testing.T) {
	rule := Rule{
		Conditions: Conditions{
			FinalConfidenceScore:    Comparator{Op: OpGreaterOrEqual, Threshold: 0},
			FalsePositiveLikelihood: Comparator{Op: OpGreaterOrEqual, Threshold: 0},
			CorrelationScore:        Comparator{Op: OpGreaterOrEqual, Threshold: 0},
			Severity:                []string{"low"},
		},
	}
	if !rule.Matches(compliance.NewRecord()) {
		t.Error("empty record should match a rule allowing severity low")
	}
}
