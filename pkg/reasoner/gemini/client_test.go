package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/verdict/pkg/reasoner"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := New(context.Background(), reasoner.Config{
		BaseURL: server.URL,
		APIKey:  "gk",
		Model:   "gemini-test",
	}, quietLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestProvider_Derive(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["systemInstruction"]; !ok {
			t.Error("request has no systemInstruction")
		}

		answer := `{"compliance_framework":"HIPAA","obligation_id":"164.312(b)","category":"Audit","severity":"High"}`
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": answer}},
				},
			}},
		})
	})

	entry, err := p.Derive(context.Background(), "deny", "phi access")
	if err != nil {
		t.Fatalf("Derive() failed: %v", err)
	}
	if entry.ComplianceFramework != "HIPAA" || entry.ObligationID != "164.312(b)" || entry.Description != "" {
		t.Errorf("Derive() = %+v", entry)
	}
}

func TestProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		outcome string
	}{
		{name: "forbidden", status: http.StatusForbidden, outcome: reasoner.OutcomeAuth},
		{name: "throttled", status: http.StatusTooManyRequests, outcome: reasoner.OutcomeRateLimit},
		{name: "unavailable", status: http.StatusServiceUnavailable, outcome: reasoner.OutcomeProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": tt.status, "message": "nope", "status": "ERR"},
				})
			})
			_, err := p.Derive(context.Background(), "a", "r")
			if got := reasoner.Classify(err); got != tt.outcome {
				t.Errorf("Classify() = %q, want %q (err: %v)", got, tt.outcome, err)
			}
		})
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), reasoner.Config{}, quietLogger()); err == nil {
		t.Error("New() expected error without API key")
	}
}
