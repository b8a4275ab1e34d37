package policy

import (
	"fmt"
	"strconv"
	"strings"

	"mercator-hq/verdict/pkg/compliance"
)

// Operator is a comparison operator of a rule condition.
type Operator string

const (
	// OpGreaterOrEqual matches values at or above the threshold.
	OpGreaterOrEqual Operator = ">="

	// OpLessThan matches values strictly below the threshold.
	OpLessThan Operator = "<"
)

// Comparator is a single-sided numeric condition such as ">=0.9" or "<0.1".
type Comparator struct {
	Op        Operator
	Threshold float64
}

// ParseComparator parses a condition string of the form ">=N" or "<N".
// Whitespace around the operator and the number is ignored.
func ParseComparator(s string) (Comparator, error) {
	trimmed := strings.TrimSpace(s)

	var op Operator
	var rest string
	switch {
	case strings.HasPrefix(trimmed, string(OpGreaterOrEqual)):
		op = OpGreaterOrEqual
		rest = strings.TrimPrefix(trimmed, string(OpGreaterOrEqual))
	case strings.HasPrefix(trimmed, string(OpLessThan)):
		op = OpLessThan
		rest = strings.TrimPrefix(trimmed, string(OpLessThan))
	default:
		return Comparator{}, fmt.Errorf("condition %q must have the form \">=N\" or \"<N\"", s)
	}

	threshold, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return Comparator{}, fmt.Errorf("condition %q has an invalid threshold: %w", s, err)
	}

	return Comparator{Op: op, Threshold: threshold}, nil
}

// Holds reports whether v satisfies the comparator.
func (c Comparator) Holds(v float64) bool {
	switch c.Op {
	case OpGreaterOrEqual:
		return v >= c.Threshold
	case OpLessThan:
		return v < c.Threshold
	default:
		return false
	}
}

// String returns the condition in its source form.
func (c Comparator) String() string {
	return string(c.Op) + strconv.FormatFloat(c.Threshold, 'f', -1, 64)
}

// Conditions are the four conditions a record must satisfy for a rule to match.
type Conditions struct {
	FinalConfidenceScore    Comparator
	FalsePositiveLikelihood Comparator
	CorrelationScore        Comparator

	// Severity is the set of allowed severities, case-folded.
	Severity []string
}

// allowsSeverity reports whether the case-folded severity is allowed.
func (c Conditions) allowsSeverity(severity string) bool {
	for _, s := range c.Severity {
		if s == severity {
			return true
		}
	}
	return false
}

// Rule maps records satisfying its conditions to an action and reason.
type Rule struct {
	ID         string
	Priority   int
	Action     string
	Reason     string
	Conditions Conditions

	// index is the declaration position in the policy, used to break
	// priority ties.
	index int
}

// Index returns the rule's declaration position in its policy.
func (r Rule) Index() int {
	return r.index
}

// Outcome returns the outcome assigned to records matched by the rule.
func (r Rule) Outcome() compliance.Outcome {
	return compliance.Outcome{
		Action: r.Action,
		Reason: r.Reason,
		RuleID: r.ID,
	}
}

// DefaultSeverity is assumed for records without a severity.
const DefaultSeverity = "low"

// Matches reports whether all four conditions hold for the record.
// Invalid scores evaluate as 0.
func (r Rule) Matches(rec compliance.Record) bool {
	if !r.Conditions.FinalConfidenceScore.Holds(rec.FinalConfidenceScore.Or(0)) {
		return false
	}
	if !r.Conditions.FalsePositiveLikelihood.Holds(rec.FalsePositiveLikelihood.Or(0)) {
		return false
	}
	if !r.Conditions.CorrelationScore.Holds(rec.CorrelationScore.Or(0)) {
		return false
	}
	return r.Conditions.allowsSeverity(foldSeverity(rec.Severity))
}

func foldSeverity(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSeverity
	}
	return s
}
