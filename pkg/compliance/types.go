package compliance

import (
	"fmt"
	"time"
)

// Default outcome assigned when no rule matches a record.
const (
	DefaultAction = "allow"
	DefaultReason = "No matching rule found - default allow"
	DefaultRuleID = "default"
)

// Outcome is the result of rule matching for one record.
type Outcome struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
	RuleID string `json:"rule_id"`
}

// DefaultOutcome returns the outcome used when no rule matches.
func DefaultOutcome() Outcome {
	return Outcome{
		Action: DefaultAction,
		Reason: DefaultReason,
		RuleID: DefaultRuleID,
	}
}

// IsZero reports whether the outcome carries neither an action nor a reason.
func (o Outcome) IsZero() bool {
	return o.Action == "" && o.Reason == ""
}

// Key returns the pair key of the outcome.
func (o Outcome) Key() PairKey {
	return PairKey{Action: o.Action, Reason: o.Reason}
}

// AnnotatedRecord is a record together with its rule outcome.
type AnnotatedRecord struct {
	Record
	Outcome Outcome
}

// Fields returns the record columns followed by the outcome columns.
func (a AnnotatedRecord) Fields() Fields {
	return append(a.Record.Fields(),
		Field{Name: "action", Value: a.Outcome.Action},
		Field{Name: "reason", Value: a.Outcome.Reason},
		Field{Name: "rule_id", Value: a.Outcome.RuleID},
	)
}

// MarshalJSON writes the annotated record as a flat JSON object.
func (a AnnotatedRecord) MarshalJSON() ([]byte, error) {
	return marshalOrdered(a.Fields())
}

// PairKey identifies a distinct (action, reason) combination.
type PairKey struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// String renders the key as "action||reason". The form is ambiguous when
// either part contains "||" and must not be used as a storage key.
func (k PairKey) String() string {
	return k.Action + "||" + k.Reason
}

// Entry is the compliance metadata resolved for a PairKey.
type Entry struct {
	ComplianceFramework string `json:"compliance_framework"`
	ObligationID        string `json:"obligation_id"`
	Description         string `json:"description"`
	Category            string `json:"category"`
	Severity            string `json:"severity"`
}

// Fallback values used when no compliance metadata can be derived.
const (
	FallbackFramework    = "ISO 27001"
	FallbackObligationID = "UNKNOWN"
	FallbackCategory     = "Security"
	FallbackSeverity     = "Medium"
)

// FallbackEntry returns the deterministic entry used when reasoning is
// skipped or fails.
func FallbackEntry(key PairKey) Entry {
	return Entry{
		ComplianceFramework: FallbackFramework,
		ObligationID:        FallbackObligationID,
		Description:         fmt.Sprintf("%s: %s", key.Action, key.Reason),
		Category:            FallbackCategory,
		Severity:            FallbackSeverity,
	}
}

// WithDefaults fills empty fields of e from the fallback entry for key.
func (e Entry) WithDefaults(key PairKey) Entry {
	fb := FallbackEntry(key)
	if e.ComplianceFramework == "" {
		e.ComplianceFramework = fb.ComplianceFramework
	}
	if e.ObligationID == "" {
		e.ObligationID = fb.ObligationID
	}
	if e.Description == "" {
		e.Description = fb.Description
	}
	if e.Category == "" {
		e.Category = fb.Category
	}
	if e.Severity == "" {
		e.Severity = fb.Severity
	}
	return e
}

// Status is the compliance determination of a classified record.
type Status string

const (
	StatusCompliant      Status = "Compliant"
	StatusNonCompliant   Status = "Non-Compliant"
	StatusRequiresAction Status = "Requires Action"
	StatusUnknown        Status = "Unknown"
)

// ClassifiedRecord is an annotated record joined with its compliance
// metadata, status and confidence.
type ClassifiedRecord struct {
	AnnotatedRecord

	Framework       string
	ObligationID    string
	Description     string
	Category        string
	Severity        string
	Status          Status
	ConfidenceScore float64
}

// Fields returns the record's output columns: input columns in order, then
// the rule outcome and the compliance annotations. The compliance severity
// replaces the input severity.
func (c ClassifiedRecord) Fields() Fields {
	out := make(Fields, 0, len(c.Extra)+14)
	for _, f := range c.Record.Fields() {
		if f.Name == FieldSeverity {
			continue
		}
		out = append(out, f)
	}
	return append(out,
		Field{Name: "action", Value: c.Outcome.Action},
		Field{Name: "reason", Value: c.Outcome.Reason},
		Field{Name: "rule_id", Value: c.Outcome.RuleID},
		Field{Name: "framework", Value: c.Framework},
		Field{Name: "obligationId", Value: c.ObligationID},
		Field{Name: "description", Value: c.Description},
		Field{Name: "category", Value: c.Category},
		Field{Name: FieldSeverity, Value: c.Severity},
		Field{Name: "status", Value: string(c.Status)},
		Field{Name: "confidence_score", Value: c.ConfidenceScore},
	)
}

// MarshalJSON writes the classified record as a flat JSON object.
func (c ClassifiedRecord) MarshalJSON() ([]byte, error) {
	return marshalOrdered(c.Fields())
}

// Summary holds the aggregate counts of a report.
type Summary struct {
	Total          int     `json:"total"`
	Compliant      int     `json:"compliant"`
	NonCompliant   int     `json:"non_compliant"`
	RequiresAction int     `json:"requires_action"`
	Unknown        int     `json:"unknown"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// Report is the final output of a pipeline run.
type Report struct {
	RunID       string             `json:"run_id,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
	Obligations []ClassifiedRecord `json:"obligations"`
	Summary     Summary            `json:"summary"`
}
