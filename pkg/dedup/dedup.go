// Package dedup reduces an annotated batch to the distinct (action, reason)
// pairs it contains.
package dedup

import "mercator-hq/verdict/pkg/compliance"

// UniquePairs returns the distinct pair keys of batch in first-seen order.
// Records without an outcome are skipped.
func UniquePairs(batch []compliance.AnnotatedRecord) []compliance.PairKey {
	seen := make(map[compliance.PairKey]struct{})
	pairs := make([]compliance.PairKey, 0)

	for _, rec := range batch {
		if rec.Outcome.IsZero() {
			continue
		}
		key := rec.Outcome.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		pairs = append(pairs, key)
	}
	return pairs
}

// Count returns how many records of batch carry each pair key.
func Count(batch []compliance.AnnotatedRecord) map[compliance.PairKey]int {
	counts := make(map[compliance.PairKey]int)
	for _, rec := range batch {
		if rec.Outcome.IsZero() {
			continue
		}
		counts[rec.Outcome.Key()]++
	}
	return counts
}
