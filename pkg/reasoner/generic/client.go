// Package generic derives compliance entries through any server that speaks
// the OpenAI Chat Completions format, such as Ollama, vLLM or LM Studio.
package generic

import (
	"context"
	"log/slog"
	"strings"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/reasoner"
	"mercator-hq/verdict/pkg/reasoner/openai"
)

// Provider is an OpenAI-compatible adapter. The API key is optional since
// local model servers usually need none.
type Provider struct {
	cfg    reasoner.Config
	client *reasoner.HTTPClient
	logger *slog.Logger
}

var _ reasoner.Provider = (*Provider)(nil)

// New validates cfg and returns a provider. A base URL and a model are
// required.
func New(cfg reasoner.Config, logger *slog.Logger) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = "generic"
	}
	if cfg.BaseURL == "" {
		return nil, &reasoner.ConfigError{
			Provider: cfg.Name,
			Field:    "base_url",
			Message:  "base URL is required for generic provider",
		}
	}
	if cfg.Model == "" {
		return nil, &reasoner.ConfigError{
			Provider: cfg.Name,
			Field:    "model",
			Message:  "model is required for generic provider",
		}
	}
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		cfg:    cfg,
		client: reasoner.NewHTTPClient(cfg, logger),
		logger: logger.With("component", "reasoner.generic", "provider", cfg.Name),
	}
	p.logger.Info("Generic OpenAI-compatible provider initialized",
		"base_url", cfg.BaseURL,
		"model", cfg.Model,
	)
	return p, nil
}

// Name returns the configured provider name.
func (p *Provider) Name() string {
	return p.cfg.Name
}

// Derive asks the model for the compliance metadata of a pair.
func (p *Provider) Derive(ctx context.Context, action, reason string) (compliance.Entry, error) {
	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"

	var headers map[string]string
	if p.cfg.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}
	}

	var resp openai.Response
	if err := p.client.PostJSON(ctx, url, headers, openai.BuildRequest(p.cfg, action, reason), &resp); err != nil {
		return compliance.Entry{}, err
	}
	return openai.ParseResponse(p.cfg.Name, &resp)
}

// Close releases pooled connections.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
