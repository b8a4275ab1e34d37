package dedup

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/verdict/pkg/compliance"
)

func annotated(action, reason string) compliance.AnnotatedRecord {
	return compliance.AnnotatedRecord{
		Outcome: compliance.Outcome{Action: action, Reason: reason, RuleID: "r"},
	}
}

// TestUniquePairs tests uniqueness and first-seen order
func TestUniquePairs(t *testing.T) {
	batch := []compliance.AnnotatedRecord{
		annotated("deny", "high risk"),
		annotated("allow", "ok"),
		annotated("deny", "high risk"),
		annotated("deny", "other"),
		annotated("allow", "ok"),
	}

	got := UniquePairs(batch)
	want := []compliance.PairKey{
		{Action: "deny", Reason: "high risk"},
		{Action: "allow", Reason: "ok"},
		{Action: "deny", Reason: "other"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UniquePairs() mismatch (-want +got):\n%s", diff)
	}
}

func TestUniquePairs_SeparatorInValues(t *testing.T) {
	batch := []compliance.AnnotatedRecord{
		annotated("a||b", "c"),
		annotated("a", "b||c"),
	}
	if got := UniquePairs(batch); len(got) != 2 {
		t.Errorf("UniquePairs() = %v, want 2 distinct keys", got)
	}
}

func TestUniquePairs_Empty(t *testing.T) {
	got := UniquePairs([]compliance.AnnotatedRecord{{}, {}})
	if got == nil || len(got) != 0 {
		t.Errorf("UniquePairs() = %#v, want empty non-nil slice", got)
	}
	if got := UniquePairs(nil); len(got) != 0 {
		t.Errorf("UniquePairs(nil) = %v, want empty", got)
	}
}

func TestCount(t *testing.T) {
	batch := []compliance.AnnotatedRecord{
		annotated("deny", "x"),
		annotated("deny", "x"),
		annotated("allow", "y"),
		{},
	}
	got := Count(batch)
	want := map[compliance.PairKey]int{
		{Action: "deny", Reason: "x"}:  2,
		{Action: "allow", Reason: "y"}: 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Count() mismatch (-want +got):\n%s", diff)
	}
}
