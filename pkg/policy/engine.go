package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"mercator-hq/verdict/pkg/compliance"
)

// Engine applies an ordered rule set to records. An Engine is immutable and
// safe for concurrent use.
type Engine struct {
	rules   []Rule
	version string
}

// NewEngine returns an engine evaluating rules in (priority, declaration
// index) order. The input slice is not modified.
func NewEngine(rules []Rule) *Engine {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].index < sorted[j].index
	})

	return &Engine{
		rules:   sorted,
		version: rulesVersion(sorted),
	}
}

// Match returns the outcome of the first rule matching rec, or the default
// outcome when none does.
func (e *Engine) Match(rec compliance.Record) compliance.Outcome {
	if rule, ok := e.MatchRule(rec); ok {
		return rule.Outcome()
	}
	return compliance.DefaultOutcome()
}

// MatchRule returns the first rule matching rec.
func (e *Engine) MatchRule(rec compliance.Record) (Rule, bool) {
	for _, rule := range e.rules {
		if rule.Matches(rec) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Apply annotates every record with its outcome. The output has the same
// length and order as the input.
func (e *Engine) Apply(records []compliance.Record) []compliance.AnnotatedRecord {
	out := make([]compliance.AnnotatedRecord, len(records))
	for i, rec := range records {
		out[i] = compliance.AnnotatedRecord{
			Record:  rec,
			Outcome: e.Match(rec),
		}
	}
	return out
}

// Rules returns a copy of the rules in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Len returns the number of rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Version returns a SHA-256 fingerprint of the rule set in evaluation order.
// Two engines with the same version produce the same outcomes.
func (e *Engine) Version() string {
	return e.version
}

func rulesVersion(rules []Rule) string {
	var sb strings.Builder
	for _, r := range rules {
		fmt.Fprintf(&sb, "%q|%d|%q|%q|%s|%s|%s|%q\n",
			r.ID, r.Priority, r.Action, r.Reason,
			r.Conditions.FinalConfidenceScore,
			r.Conditions.FalsePositiveLikelihood,
			r.Conditions.CorrelationScore,
			strings.Join(r.Conditions.Severity, ","),
		)
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
