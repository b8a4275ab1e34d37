// Package reasonerfactory builds reasoner providers from configuration.
package reasonerfactory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/verdict/pkg/reasoner"
	"mercator-hq/verdict/pkg/reasoner/anthropic"
	"mercator-hq/verdict/pkg/reasoner/gemini"
	"mercator-hq/verdict/pkg/reasoner/generic"
	"mercator-hq/verdict/pkg/reasoner/openai"
)

// Provider types.
const (
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
	TypeGemini    = "gemini"
	TypeGeneric   = "generic"
	TypeNone      = "none"
)

// New creates a provider for cfg.Type. When the type is empty it is inferred
// from the name: "openai", "anthropic" and "gemini" select their adapter,
// "none" disables reasoning and any other name selects the generic adapter.
//
// Type "none" returns a nil provider and no error; the knowledge base then
// resolves misses to the fallback entry.
func New(ctx context.Context, cfg reasoner.Config, logger *slog.Logger) (reasoner.Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	providerType := strings.ToLower(strings.TrimSpace(cfg.Type))
	if providerType == "" {
		providerType = inferType(cfg.Name)
	}

	logger.Debug("Creating reasoner provider",
		"name", cfg.Name,
		"type", providerType,
		"base_url", cfg.BaseURL,
	)

	var (
		provider reasoner.Provider
		err      error
	)
	switch providerType {
	case TypeNone:
		logger.Info("Reasoner disabled, misses resolve to fallback entries")
		return nil, nil
	case TypeOpenAI:
		provider, err = openai.New(cfg, logger)
	case TypeAnthropic:
		provider, err = anthropic.New(cfg, logger)
	case TypeGemini:
		provider, err = gemini.New(ctx, cfg, logger)
	case TypeGeneric:
		provider, err = generic.New(cfg, logger)
	default:
		return nil, &reasoner.ConfigError{
			Provider: cfg.Name,
			Field:    "type",
			Message: fmt.Sprintf("unsupported provider type: %q (supported: %s, %s, %s, %s, %s)",
				providerType, TypeOpenAI, TypeAnthropic, TypeGemini, TypeGeneric, TypeNone),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", cfg.Name, err)
	}
	return provider, nil
}

func inferType(name string) string {
	switch n := strings.ToLower(name); n {
	case "", TypeNone:
		return TypeNone
	case TypeOpenAI, TypeAnthropic, TypeGemini:
		return n
	default:
		return TypeGeneric
	}
}
