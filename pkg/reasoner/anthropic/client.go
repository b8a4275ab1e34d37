// Package anthropic derives compliance entries through the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/reasoner"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-haiku-latest"

	// APIVersion is sent in the anthropic-version header.
	APIVersion = "2023-06-01"
)

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Provider is the Anthropic adapter.
type Provider struct {
	cfg    reasoner.Config
	client *reasoner.HTTPClient
	logger *slog.Logger
}

var _ reasoner.Provider = (*Provider)(nil)

// New validates cfg and returns a provider. An API key is required.
func New(cfg reasoner.Config, logger *slog.Logger) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = "anthropic"
	}
	if cfg.APIKey == "" {
		return nil, &reasoner.ConfigError{
			Provider: cfg.Name,
			Field:    "api_key",
			Message:  "API key is required for Anthropic",
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		cfg:    cfg,
		client: reasoner.NewHTTPClient(cfg, logger),
		logger: logger.With("component", "reasoner.anthropic", "provider", cfg.Name),
	}
	p.logger.Info("Anthropic provider initialized", "base_url", cfg.BaseURL, "model", cfg.Model)
	return p, nil
}

// Name returns the configured provider name.
func (p *Provider) Name() string {
	return p.cfg.Name
}

// Derive asks the model for the compliance metadata of a pair.
func (p *Provider) Derive(ctx context.Context, action, reason string) (compliance.Entry, error) {
	req := &messagesRequest{
		Model:       p.cfg.Model,
		System:      reasoner.SystemPrompt,
		Messages:    []message{{Role: "user", Content: reasoner.UserPrompt(action, reason)}},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.SamplingTemperature(),
	}
	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages"
	headers := map[string]string{
		"x-api-key":         p.cfg.APIKey,
		"anthropic-version": APIVersion,
	}

	var resp messagesResponse
	if err := p.client.PostJSON(ctx, url, headers, req, &resp); err != nil {
		return compliance.Entry{}, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return compliance.Entry{}, &reasoner.ParseError{
			Provider: p.cfg.Name,
			Cause:    errors.New("no text content in response"),
		}
	}

	p.logger.Debug("Message received",
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return reasoner.ParseEntry(p.cfg.Name, text.String())
}

// Close releases pooled connections.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
