package reasoner

import (
	"context"
	"time"

	"mercator-hq/verdict/pkg/compliance"
)

// Provider derives an entry from a model. Implementations must respect
// context cancellation and must not retry.
type Provider interface {
	// Name returns the configured provider name, used in logs and metrics.
	Name() string

	// Derive asks the model for the compliance metadata of a pair. Fields
	// the model omits are left empty.
	Derive(ctx context.Context, action, reason string) (compliance.Entry, error)
}

// Closer is implemented by providers holding resources.
type Closer interface {
	Close() error
}

// Default generation settings.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 300
	DefaultTimeout     = 8 * time.Second
)

// Config is shared by all provider adapters.
type Config struct {
	// Name identifies the provider in logs and metrics.
	Name string

	// Type is "openai", "generic", "anthropic", "gemini" or "none".
	Type string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// Model is the model identifier.
	Model string

	// Temperature controls sampling. Nil means 0.3; an explicit 0 asks for
	// deterministic output.
	Temperature *float64

	// MaxTokens bounds the answer length. Default: 300
	MaxTokens int

	// JSONMode asks OpenAI-style APIs for a JSON object response. Not every
	// model supports it.
	JSONMode bool

	// Timeout bounds each call. Default: 8s
	Timeout time.Duration

	// MaxIdleConns and MaxIdleConnsPerHost size the connection pool.
	MaxIdleConns        int
	MaxIdleConnsPerHost int

	// IdleConnTimeout closes pooled connections after this idle period.
	IdleConnTimeout time.Duration
}

// SamplingTemperature returns the configured temperature or the default.
func (c Config) SamplingTemperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// WithDefaults returns c with zero generation and pool settings defaulted.
func (c Config) WithDefaults() Config {
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 16
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 8
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	return c
}
