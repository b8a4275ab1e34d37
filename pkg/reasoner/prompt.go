package reasoner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mercator-hq/verdict/pkg/compliance"
)

// SystemPrompt frames the model as a compliance mapper.
const SystemPrompt = "You are a compliance expert. Provide accurate compliance framework mappings. Always respond with valid JSON only."

// UserPrompt asks for the compliance metadata of one pair.
func UserPrompt(action, reason string) string {
	return fmt.Sprintf(`Given the following security action and reason, provide compliance metadata:

Action: %s
Reason: %s

Please provide:
1. compliance_framework (e.g., ISO 27001, HIPAA, GDPR, PCI-DSS, SOC 2, NIST)
2. obligation_id (specific control ID from the framework)
3. description (detailed explanation of the compliance obligation)
4. category (e.g., Access Control, Data Protection, Incident Response, Network Security, etc.)
5. severity (High, Medium, or Low)

Respond ONLY with valid JSON in this exact format:
{
  "compliance_framework": "...",
  "obligation_id": "...",
  "description": "...",
  "category": "...",
  "severity": "..."
}`, action, reason)
}

// ParseEntry decodes a model answer into an entry. Surrounding whitespace
// and Markdown code fences are ignored. Fields missing from the object are
// left empty; non-string values are rendered as text.
func ParseEntry(provider, content string) (compliance.Entry, error) {
	text := stripFences(strings.TrimSpace(content))
	if text == "" {
		return compliance.Entry{}, &ParseError{
			Provider: provider,
			Cause:    errors.New("empty response content"),
		}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return compliance.Entry{}, &ParseError{
			Provider:    provider,
			RawResponse: content,
			Cause:       fmt.Errorf("response is not a JSON object: %w", err),
		}
	}

	return compliance.Entry{
		ComplianceFramework: stringField(fields, "compliance_framework"),
		ObligationID:        stringField(fields, "obligation_id"),
		Description:         stringField(fields, "description"),
		Category:            stringField(fields, "category"),
		Severity:            stringField(fields, "severity"),
	}, nil
}

func stringField(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// stripFences removes a leading ```json (or ```) line and a trailing ```.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
