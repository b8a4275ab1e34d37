// Package gemini derives compliance entries through the Gemini API using
// the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/genai"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/reasoner"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Provider is the Gemini adapter.
type Provider struct {
	cfg        reasoner.Config
	client     *genai.Client
	httpClient *http.Client
	logger     *slog.Logger
}

var _ reasoner.Provider = (*Provider)(nil)

// New validates cfg and creates the SDK client. An API key is required.
func New(ctx context.Context, cfg reasoner.Config, logger *slog.Logger) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = "gemini"
	}
	if cfg.APIKey == "" {
		return nil, &reasoner.ConfigError{
			Provider: cfg.Name,
			Field:    "api_key",
			Message:  "API key is required for Gemini",
		}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			ForceAttemptHTTP2:   true,
		},
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	p := &Provider{
		cfg:        cfg,
		client:     client,
		httpClient: httpClient,
		logger:     logger.With("component", "reasoner.gemini", "provider", cfg.Name),
	}
	p.logger.Info("Gemini provider initialized", "model", cfg.Model)
	return p, nil
}

// Name returns the configured provider name.
func (p *Provider) Name() string {
	return p.cfg.Name
}

// Derive asks the model for the compliance metadata of a pair.
func (p *Provider) Derive(ctx context.Context, action, reason string) (compliance.Entry, error) {
	resp, err := p.client.Models.GenerateContent(ctx,
		p.cfg.Model,
		genai.Text(reasoner.UserPrompt(action, reason)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(reasoner.SystemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr(float32(p.cfg.SamplingTemperature())),
			MaxOutputTokens:   int32(p.cfg.MaxTokens),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return compliance.Entry{}, p.mapError(ctx, err)
	}
	return reasoner.ParseEntry(p.cfg.Name, resp.Text())
}

// mapError converts SDK failures to the typed errors of package reasoner.
func (p *Provider) mapError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &reasoner.TimeoutError{Provider: p.cfg.Name, Timeout: p.cfg.Timeout}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &reasoner.AuthError{Provider: p.cfg.Name, Message: apiErr.Message}
		case http.StatusTooManyRequests:
			return &reasoner.RateLimitError{Provider: p.cfg.Name, Message: apiErr.Message}
		default:
			return &reasoner.ProviderError{
				Provider:   p.cfg.Name,
				StatusCode: apiErr.Code,
				Message:    apiErr.Message,
				Cause:      err,
			}
		}
	}
	return &reasoner.ProviderError{Provider: p.cfg.Name, Message: "request failed", Cause: err}
}

// Close releases pooled connections.
func (p *Provider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
