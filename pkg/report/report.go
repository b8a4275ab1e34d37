// Package report aggregates classified records into a summary report.
package report

import (
	"time"

	"mercator-hq/verdict/pkg/classify"
	"mercator-hq/verdict/pkg/compliance"
)

// Aggregate builds the report for a classified batch. Obligations keep input
// order. The compliance rate is the compliant share in percent, rounded to
// one decimal, and 0 for an empty batch.
func Aggregate(classified []compliance.ClassifiedRecord) compliance.Report {
	obligations := make([]compliance.ClassifiedRecord, len(classified))
	copy(obligations, classified)

	return compliance.Report{
		GeneratedAt: time.Now().UTC(),
		Obligations: obligations,
		Summary:     Summarize(classified),
	}
}

// Summarize counts records per status.
func Summarize(classified []compliance.ClassifiedRecord) compliance.Summary {
	s := compliance.Summary{Total: len(classified)}
	for _, rec := range classified {
		switch rec.Status {
		case compliance.StatusCompliant:
			s.Compliant++
		case compliance.StatusNonCompliant:
			s.NonCompliant++
		case compliance.StatusRequiresAction:
			s.RequiresAction++
		default:
			s.Unknown++
		}
	}
	if s.Total > 0 {
		s.ComplianceRate = classify.Round(float64(s.Compliant)/float64(s.Total)*100, 1)
	}
	return s
}
