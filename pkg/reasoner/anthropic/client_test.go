package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/verdict/pkg/reasoner"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvider_Derive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "ak" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != APIVersion {
			t.Errorf("anthropic-version = %q", got)
		}
		var req messagesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.System != reasoner.SystemPrompt || req.MaxTokens != reasoner.DefaultMaxTokens {
			t.Errorf("request = %+v", req)
		}
		_, _ = io.WriteString(w, `{"id":"msg_1","model":"claude","content":[{"type":"text","text":"{\"compliance_framework\":\"GDPR\",\"obligation_id\":\"Art. 32\"}"}],"stop_reason":"end_turn"}`)
	}))
	defer server.Close()

	p, err := New(reasoner.Config{BaseURL: server.URL, APIKey: "ak"}, quietLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	entry, err := p.Derive(context.Background(), "deny", "personal data")
	if err != nil {
		t.Fatalf("Derive() failed: %v", err)
	}
	if entry.ComplianceFramework != "GDPR" || entry.ObligationID != "Art. 32" {
		t.Errorf("Derive() = %+v", entry)
	}
}

func TestProvider_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"content":[]}`)
	}))
	defer server.Close()

	p, _ := New(reasoner.Config{BaseURL: server.URL, APIKey: "ak"}, quietLogger())
	_, err := p.Derive(context.Background(), "a", "r")
	if got := reasoner.Classify(err); got != reasoner.OutcomeParse {
		t.Errorf("Classify() = %q, want parse (err: %v)", got, err)
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(reasoner.Config{}, quietLogger()); err == nil {
		t.Error("New() expected error without API key")
	}
}
