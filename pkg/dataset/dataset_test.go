package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/verdict/pkg/compliance"
)

func TestReadCSV(t *testing.T) {
	input := "\xEF\xBB\xBFfinal_confidence_score,false_positive_likelihood,correlation_score,severity,host,note\n" +
		"0.95,0.02,0.7,high,web-1,ok\n" +
		",n/a,0.3,low,web-2\n"

	records, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.FinalConfidenceScore != compliance.NewScore(0.95) || first.Severity != "high" {
		t.Errorf("first = %+v", first)
	}
	want := compliance.Fields{{Name: "host", Value: "web-1"}, {Name: "note", Value: "ok"}}
	if diff := cmp.Diff(want, first.Extra); diff != "" {
		t.Errorf("Extra mismatch (-want +got):\n%s", diff)
	}

	second := records[1]
	if second.FinalConfidenceScore.Valid || second.FalsePositiveLikelihood.Valid {
		t.Errorf("second scores = %+v / %+v, want invalid", second.FinalConfidenceScore, second.FalsePositiveLikelihood)
	}
	if v, ok := second.Extra.Get("note"); !ok || v != nil {
		t.Errorf("short row note = %v, %v; want nil, true", v, ok)
	}
}

func TestReadCSV_NonFiniteCellsStayText(t *testing.T) {
	input := "severity,note,ratio,weight\nhigh,NaN,+Inf,infinity\n"

	records, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() failed: %v", err)
	}
	want := compliance.Fields{
		{Name: "note", Value: "NaN"},
		{Name: "ratio", Value: "+Inf"},
		{Name: "weight", Value: "infinity"},
	}
	if diff := cmp.Diff(want, records[0].Extra); diff != "" {
		t.Errorf("Extra mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n")); err == nil {
		t.Error("ReadCSV() expected error for a long row")
	}

	records, err := ReadCSV(strings.NewReader(""))
	if err != nil || len(records) != 0 {
		t.Errorf("ReadCSV(empty) = %v, %v", records, err)
	}
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "array", input: `[{"severity":"high","zeta":1,"alpha":"x","tags":["a","b"]},{"final_confidence_score":"0.5"}]`},
		{name: "wrapped", input: `{"meta":{"v":1},"records":[{"severity":"high","zeta":1,"alpha":"x","tags":["a","b"]},{"final_confidence_score":"0.5"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ReadJSON(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadJSON() failed: %v", err)
			}
			if len(records) != 2 {
				t.Fatalf("got %d records, want 2", len(records))
			}
			want := compliance.Fields{
				{Name: "zeta", Value: 1.0},
				{Name: "alpha", Value: "x"},
				{Name: "tags", Value: `["a","b"]`},
			}
			if diff := cmp.Diff(want, records[0].Extra); diff != "" {
				t.Errorf("Extra mismatch (-want +got):\n%s", diff)
			}
			if records[1].FinalConfidenceScore != compliance.NewScore(0.5) {
				t.Errorf("score = %+v, want 0.5", records[1].FinalConfidenceScore)
			}
		})
	}
}

func TestReadJSON_Errors(t *testing.T) {
	for _, input := range []string{`42`, `{"rows":[]}`, `{"records":{}}`, `[1,2]`, `[{"a":1}`} {
		_, err := ReadJSON(strings.NewReader(input))
		var dsErr *Error
		if !errors.As(err, &dsErr) {
			t.Errorf("ReadJSON(%s) error = %v, want *Error", input, err)
		}
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "events.csv")
	jsonPath := filepath.Join(dir, "events.JSON")
	if err := os.WriteFile(csvPath, []byte("severity\nhigh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jsonPath, []byte(`[{"severity":"low"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	for path, want := range map[string]string{csvPath: "high", jsonPath: "low"} {
		records, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) failed: %v", path, err)
		}
		if len(records) != 1 || records[0].Severity != want {
			t.Errorf("ReadFile(%s) = %+v", path, records)
		}
	}

	_, err := ReadFile(filepath.Join(dir, "missing.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(missing) error = %v, want ErrNotExist", err)
	}
}
