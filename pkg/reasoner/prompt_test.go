package reasoner

import (
	"errors"
	"strings"
	"testing"

	"mercator-hq/verdict/pkg/compliance"
)

func TestUserPrompt(t *testing.T) {
	p := UserPrompt("deny", "high risk")
	for _, want := range []string{"Action: deny", "Reason: high risk", "compliance_framework", "severity (High, Medium, or Low)"} {
		if !strings.Contains(p, want) {
			t.Errorf("UserPrompt() missing %q", want)
		}
	}
}

func TestParseEntry(t *testing.T) {
	full := compliance.Entry{
		ComplianceFramework: "ISO 27001",
		ObligationID:        "A.9.4.1",
		Description:         "Restrict access",
		Category:            "Access Control",
		Severity:            "High",
	}
	fullJSON := `{"compliance_framework":"ISO 27001","obligation_id":"A.9.4.1","description":"Restrict access","category":"Access Control","severity":"High"}`

	tests := []struct {
		name    string
		content string
		want    compliance.Entry
		wantErr bool
	}{
		{name: "plain", content: fullJSON, want: full},
		{name: "fenced", content: "```json\n" + fullJSON + "\n```", want: full},
		{name: "bare fence", content: "```\n" + fullJSON + "\n```", want: full},
		{name: "padded", content: "\n  " + fullJSON + "  \n", want: full},
		{name: "partial", content: `{"compliance_framework":"HIPAA"}`, want: compliance.Entry{ComplianceFramework: "HIPAA"}},
		{name: "number value", content: `{"obligation_id": 164}`, want: compliance.Entry{ObligationID: "164"}},
		{name: "empty", content: "   ", wantErr: true},
		{name: "prose", content: "I think ISO 27001 applies.", wantErr: true},
		{name: "array", content: `["ISO 27001"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntry("test", tt.content)
			if tt.wantErr {
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("ParseEntry() error = %v, want *ParseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEntry() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseEntry() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
