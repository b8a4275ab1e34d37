package openai

import (
	"context"
	"log/slog"
	"strings"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/reasoner"
)

// Defaults for the OpenAI API.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4"
)

// Provider is the OpenAI adapter.
type Provider struct {
	cfg    reasoner.Config
	client *reasoner.HTTPClient
	logger *slog.Logger
}

var _ reasoner.Provider = (*Provider)(nil)

// New validates cfg and returns a provider. An API key is required.
func New(cfg reasoner.Config, logger *slog.Logger) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.APIKey == "" {
		return nil, &reasoner.ConfigError{
			Provider: cfg.Name,
			Field:    "api_key",
			Message:  "API key is required for OpenAI",
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
		logger: logger.With("component", "reasoner.openai", "provider", cfg.Name),
	}
	p.logger.Info("OpenAI provider initialized", "base_url", cfg.BaseURL, "model", cfg.Model)
	return p, nil
}

// Name returns the configured provider name.
func (p *Provider) Name() string {
	return p.cfg.Name
}

// Derive asks the model for the compliance metadata of a pair.
func (p *Provider) Derive(ctx context.Context, action, reason string) (compliance.Entry, error) {
	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{
		"Authorization": "Bearer " + p.cfg.APIKey,
	}

	var resp Response
	if err := p.client.PostJSON(ctx, url, headers, BuildRequest(p.cfg, action, reason), &resp); err != nil {
		return compliance.Entry{}, err
	}

	p.logger.Debug("Completion received",
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)
	return ParseResponse(p.cfg.Name, &resp)
}

// Close releases pooled connections.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
