// Package classify joins rule-annotated records with their compliance
// metadata and derives a status and confidence score for each.
package classify

import (
	"math"
	"strconv"

	"mercator-hq/verdict/pkg/compliance"
)

// DefaultConfidence is used when a record has no usable
// final_confidence_score.
const DefaultConfidence = 0.5

// Lookup resolves compliance metadata for a pair.
type Lookup interface {
	Entry(key compliance.PairKey) (compliance.Entry, bool)
}

// Entries adapts a map to Lookup.
type Entries map[compliance.PairKey]compliance.Entry

// Entry returns the entry for key.
func (e Entries) Entry(key compliance.PairKey) (compliance.Entry, bool) {
	entry, ok := e[key]
	return entry, ok
}

// Classify returns one classified record per input record, in input order.
// A record whose pair has no entry gets the fallback entry; records are
// never dropped. The input batch is not modified.
func Classify(batch []compliance.AnnotatedRecord, entries Lookup) []compliance.ClassifiedRecord {
	out := make([]compliance.ClassifiedRecord, len(batch))
	for i, rec := range batch {
		key := rec.Outcome.Key()
		entry, ok := compliance.Entry{}, false
		if entries != nil {
			entry, ok = entries.Entry(key)
		}
		if !ok {
			entry = compliance.FallbackEntry(key)
		}

		out[i] = compliance.ClassifiedRecord{
			AnnotatedRecord: rec,
			Framework:       entry.ComplianceFramework,
			ObligationID:    entry.ObligationID,
			Description:     entry.Description,
			Category:        entry.Category,
			Severity:        entry.Severity,
			Status:          StatusFor(rec.Outcome.Action),
			ConfidenceScore: ConfidenceScore(rec.FinalConfidenceScore),
		}
	}
	return out
}

// StatusFor maps an action to its compliance status. Matching is
// case-sensitive.
func StatusFor(action string) compliance.Status {
	switch action {
	case "deny":
		return compliance.StatusNonCompliant
	case "quarantine", "mfa":
		return compliance.StatusRequiresAction
	case "monitor", "allow":
		return compliance.StatusCompliant
	default:
		return compliance.StatusUnknown
	}
}

// ConfidenceScore scales a [0,1] score to a percentage rounded to two
// decimals. Values outside [0,1] are scaled as given; a product too large
// for a float64 saturates at the largest finite value.
func ConfidenceScore(s compliance.Score) float64 {
	v := s.Or(DefaultConfidence)
	if math.IsNaN(v) {
		v = DefaultConfidence
	}
	scaled := v * 100
	if math.IsInf(scaled, 0) {
		scaled = math.Copysign(math.MaxFloat64, scaled)
	}
	return Round(scaled, 2)
}

// Round rounds v to the given number of decimal places. Ties are decided on
// the exact binary value and go to even, so 6.25 rounds to 6.2.
func Round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
