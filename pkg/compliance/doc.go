// Package compliance defines the data model shared by every stage of the
// classification pipeline: input records, rule outcomes, knowledge base
// entries, classified records and the summary report.
//
// # Records
//
// A Record keeps the four fields consumed by rule matching as typed values
// and carries every other input column unchanged in an ordered side map:
//
//	rec := compliance.NewRecord(
//	    compliance.Field{Name: "event_id", Value: "evt-1"},
//	    compliance.Field{Name: "final_confidence_score", Value: 0.95},
//	    compliance.Field{Name: "severity", Value: "High"},
//	)
//
// Scores that are absent, null or not numeric are kept as invalid Scores so
// that each stage can apply its own documented default.
//
// # Pair keys
//
// PairKey is a structured (action, reason) key. It is used for deduplication
// and as the knowledge base cache key; its String form is for display only.
package compliance
