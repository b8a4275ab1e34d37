package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/verdict/pkg/compliance"
)

func testReport() *compliance.Report {
	first := compliance.ClassifiedRecord{
		AnnotatedRecord: compliance.AnnotatedRecord{
			Record: compliance.NewRecord(
				compliance.Field{Name: "final_confidence_score", Value: 0.95},
				compliance.Field{Name: "severity", Value: "high"},
				compliance.Field{Name: "host", Value: "web-1"},
			),
			Outcome: compliance.Outcome{Action: "deny", Reason: "high risk", RuleID: "r1"},
		},
		Framework:       "ISO 27001",
		ObligationID:    "A.9",
		Description:     "Access",
		Category:        "Access Control",
		Severity:        "High",
		Status:          compliance.StatusNonCompliant,
		ConfidenceScore: 95,
	}
	second := compliance.ClassifiedRecord{
		AnnotatedRecord: compliance.AnnotatedRecord{
			Record: compliance.NewRecord(
				compliance.Field{Name: "user", Value: "alice"},
				compliance.Field{Name: "blocked", Value: false},
			),
			Outcome: compliance.DefaultOutcome(),
		},
		Status:          compliance.StatusCompliant,
		ConfidenceScore: 50,
	}
	return &compliance.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Obligations: []compliance.ClassifiedRecord{first, second},
		Summary:     compliance.Summary{Total: 2, Compliant: 1, NonCompliant: 1, ComplianceRate: 50},
	}
}

func TestJSONExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(true).Export(testReport(), &buf); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	var decoded struct {
		RunID       string           `json:"run_id"`
		Obligations []map[string]any `json:"obligations"`
		Summary     compliance.Summary
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if decoded.RunID != "run-1" || len(decoded.Obligations) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Obligations[0]["severity"] != "High" {
		t.Errorf("severity = %v, want the compliance severity", decoded.Obligations[0]["severity"])
	}
	if decoded.Summary.ComplianceRate != 50 {
		t.Errorf("compliance_rate = %v", decoded.Summary.ComplianceRate)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("pretty output is not indented")
	}
}

func TestJSONExporter_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(&compliance.Report{}, &buf); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"obligations":[]`) {
		t.Errorf("Export() = %s, want an empty obligations array", buf.String())
	}
}

func TestCSVExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(testReport(), &buf); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}

	wantHeader := []string{
		"final_confidence_score", "host", "action", "reason", "rule_id",
		"framework", "obligationId", "description", "category", "severity",
		"status", "confidence_score", "user", "blocked",
	}
	if diff := cmp.Diff(wantHeader, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[1][0] != "0.95" || rows[1][1] != "web-1" || rows[1][10] != "Non-Compliant" || rows[1][12] != "" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][0] != "" || rows[2][12] != "alice" || rows[2][13] != "false" || rows[2][11] != "50" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExport_WriteError(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatCSV} {
		exp, err := New(format, false)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", format, err)
		}
		err = exp.Export(testReport(), failingWriter{})
		var exportErr *Error
		if !errors.As(err, &exportErr) || exportErr.Format != format || exportErr.RecordCount != 2 {
			t.Errorf("%s Export() error = %v", format, err)
		}
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New("xml", false); err == nil {
		t.Error("New(xml) expected error")
	}
}
