package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/reasoner"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const answer = `{"compliance_framework":"PCI-DSS","obligation_id":"1.2.1","description":"Restrict traffic","category":"Network Security","severity":"High"}`

func completion(content string) Response {
	return Response{
		ID:    "chatcmpl-1",
		Model: "gpt-4",
		Choices: []Choice{{
			Message:      Message{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
	}
}

func TestProvider_Derive(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(completion(answer))
	}))
	defer server.Close()

	p, err := New(reasoner.Config{BaseURL: server.URL, APIKey: "sk-test"}, quietLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer p.Close()

	entry, err := p.Derive(context.Background(), "deny", "high risk")
	if err != nil {
		t.Fatalf("Derive() failed: %v", err)
	}
	want := compliance.Entry{
		ComplianceFramework: "PCI-DSS",
		ObligationID:        "1.2.1",
		Description:         "Restrict traffic",
		Category:            "Network Security",
		Severity:            "High",
	}
	if entry != want {
		t.Errorf("Derive() = %+v, want %+v", entry, want)
	}

	if got.Model != DefaultModel {
		t.Errorf("model = %q, want %q", got.Model, DefaultModel)
	}
	if got.Temperature != reasoner.DefaultTemperature || got.MaxTokens != reasoner.DefaultMaxTokens {
		t.Errorf("temperature/max_tokens = %v/%d", got.Temperature, got.MaxTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[0].Content != reasoner.SystemPrompt {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.ResponseFormat != nil {
		t.Errorf("response_format = %+v, want omitted", got.ResponseFormat)
	}
}

func TestProvider_JSONMode(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_ = json.NewEncoder(w).Encode(completion(answer))
	}))
	defer server.Close()

	p, _ := New(reasoner.Config{BaseURL: server.URL, APIKey: "k", JSONMode: true}, quietLogger())
	if _, err := p.Derive(context.Background(), "a", "r"); err != nil {
		t.Fatalf("Derive() failed: %v", err)
	}
	rf, ok := raw["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("response_format = %v", raw["response_format"])
	}
}

func TestProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		outcome string
	}{
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"choices":[]}`)
			},
			outcome: reasoner.OutcomeParse,
		},
		{
			name: "prose answer",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(completion("ISO 27001, probably."))
			},
			outcome: reasoner.OutcomeParse,
		},
		{
			name: "invalid key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			outcome: reasoner.OutcomeAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			p, _ := New(reasoner.Config{BaseURL: server.URL, APIKey: "k"}, quietLogger())
			_, err := p.Derive(context.Background(), "a", "r")
			if got := reasoner.Classify(err); got != tt.outcome {
				t.Errorf("Classify() = %q, want %q (err: %v)", got, tt.outcome, err)
			}
		})
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(reasoner.Config{}, quietLogger())
	var cfgErr *reasoner.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "api_key" {
		t.Errorf("New() error = %v, want api_key ConfigError", err)
	}
}

func TestBuildRequest_Temperature(t *testing.T) {
	zero := 0.0
	if got := BuildRequest(reasoner.Config{Temperature: &zero}, "deny", "x").Temperature; got != 0 {
		t.Errorf("explicit zero temperature = %v, want 0", got)
	}
	if got := BuildRequest(reasoner.Config{}, "deny", "x").Temperature; got != reasoner.DefaultTemperature {
		t.Errorf("unset temperature = %v, want %v", got, reasoner.DefaultTemperature)
	}
}
