// Package logging builds the slog loggers used across verdict.
//
// # Overview
//
// New returns a *slog.Logger whose handler adds:
//   - JSON, text, and console output formats
//   - Redaction of credentials (API keys, bearer and git tokens)
//   - Run and stage identifiers carried in the context
//   - Trace and span IDs of the active OpenTelemetry span
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//
//	logger.Info("Reasoner configured",
//	    "provider", "openai",
//	    "api_key", "sk-abc123xyz",  // logged as "sk-a***"
//	)
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "Run started")  // includes run_id
//
// # Redaction
//
// Values of sensitive keys (api_key, token, password, authorization and
// similar) are masked down to a four character prefix. Every other string
// value is scanned for credential patterns:
//
//   - OpenAI and Anthropic keys: sk-abc123 → sk-***
//   - Google API keys: AIzaSy... → AIza***
//   - GitHub tokens: ghp_abc → ghp_***
//   - Bearer tokens: Bearer abc → Bearer ***
//
// Custom patterns are appended from configuration.
package logging
