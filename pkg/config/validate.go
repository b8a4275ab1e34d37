package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "reasoner.api_key").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the whole configuration and returns a ValidationError
// holding every problem found, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validatePipeline(&cfg.Pipeline)...)
	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateKnowledgeBase(&cfg.KnowledgeBase)...)
	errs = append(errs, validateReasoner(&cfg.Reasoner)...)
	errs = append(errs, validateSchedule(&cfg.Schedule)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validatePipeline(cfg *PipelineConfig) []FieldError {
	var errs []FieldError

	if cfg.Mode != "full" && cfg.Mode != "quick" {
		errs = append(errs, FieldError{
			Field:   "pipeline.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'full' or 'quick'", cfg.Mode),
		})
	}
	if cfg.Concurrency < 1 {
		errs = append(errs, FieldError{
			Field:   "pipeline.concurrency",
			Message: "concurrency must be at least 1",
		})
	}
	if cfg.OutputFormat != "json" && cfg.OutputFormat != "csv" {
		errs = append(errs, FieldError{
			Field:   "pipeline.output_format",
			Message: fmt.Sprintf("invalid output format %q: must be 'json' or 'csv'", cfg.OutputFormat),
		})
	}
	return errs
}

func validatePolicy(cfg *PolicyConfig) []FieldError {
	var errs []FieldError

	switch cfg.Source {
	case "file":
		if cfg.FilePath == "" {
			errs = append(errs, FieldError{
				Field:   "policy.file_path",
				Message: "file path is required when source is 'file'",
			})
		}
	case "git":
		if cfg.Git.URL == "" {
			errs = append(errs, FieldError{
				Field:   "policy.git.url",
				Message: "repository URL is required when source is 'git'",
			})
		}
		if cfg.Git.PollInterval <= 0 {
			errs = append(errs, FieldError{
				Field:   "policy.git.poll_interval",
				Message: "poll interval must be positive",
			})
		}
		errs = append(errs, validateGitAuth(&cfg.Git.Auth)...)
	default:
		errs = append(errs, FieldError{
			Field:   "policy.source",
			Message: fmt.Sprintf("invalid source %q: must be 'file' or 'git'", cfg.Source),
		})
	}

	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{
			Field:   "policy.debounce",
			Message: "debounce cannot be negative",
		})
	}
	return errs
}

func validateGitAuth(cfg *GitAuthConfig) []FieldError {
	switch cfg.Type {
	case "none":
		return nil
	case "token":
		if cfg.Token == "" {
			return []FieldError{{Field: "policy.git.auth.token", Message: "token is required when auth type is 'token'"}}
		}
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return []FieldError{{Field: "policy.git.auth.ssh_key_path", Message: "SSH key path is required when auth type is 'ssh'"}}
		}
	default:
		return []FieldError{{
			Field:   "policy.git.auth.type",
			Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token', or 'ssh'", cfg.Type),
		}}
	}
	return nil
}

func validateKnowledgeBase(cfg *KnowledgeBaseConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "knowledge_base.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.Driver != "pure" && cfg.SQLite.Driver != "cgo" {
			errs = append(errs, FieldError{
				Field:   "knowledge_base.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'pure' or 'cgo'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "knowledge_base.sqlite.busy_timeout",
				Message: "busy timeout cannot be negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "knowledge_base.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'sqlite' or 'memory'", cfg.Backend),
		})
	}

	if cfg.Retention.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "knowledge_base.retention.max_age",
			Message: "max age cannot be negative",
		})
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "knowledge_base.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	return errs
}

func validateReasoner(cfg *ReasonerConfig) []FieldError {
	var errs []FieldError

	switch cfg.Type {
	case "none":
		return nil
	case "openai", "anthropic", "gemini":
		if cfg.APIKey == "" {
			errs = append(errs, FieldError{
				Field:   "reasoner.api_key",
				Message: fmt.Sprintf("API key is required for provider type %q", cfg.Type),
			})
		}
	case "generic":
		if cfg.BaseURL == "" {
			errs = append(errs, FieldError{
				Field:   "reasoner.base_url",
				Message: "base URL is required for provider type 'generic'",
			})
		}
		if cfg.Model == "" {
			errs = append(errs, FieldError{
				Field:   "reasoner.model",
				Message: "model is required for provider type 'generic'",
			})
		}
	default:
		return []FieldError{{
			Field:   "reasoner.type",
			Message: fmt.Sprintf("invalid type %q: must be 'openai', 'anthropic', 'gemini', 'generic', or 'none'", cfg.Type),
		}}
	}

	if t := cfg.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, FieldError{
			Field:   "reasoner.temperature",
			Message: "temperature must be between 0.0 and 2.0",
		})
	}
	if cfg.MaxTokens < 1 {
		errs = append(errs, FieldError{
			Field:   "reasoner.max_tokens",
			Message: "max tokens must be at least 1",
		})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "reasoner.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, FieldError{
			Field:   "reasoner.rate_limit",
			Message: "rate limit cannot be negative",
		})
	}
	if cfg.RateBurst < 0 {
		errs = append(errs, FieldError{
			Field:   "reasoner.rate_burst",
			Message: "rate burst cannot be negative",
		})
	}
	return errs
}

func validateSchedule(cfg *ScheduleConfig) []FieldError {
	if cfg.Cron == "" {
		return nil
	}

	var errs []FieldError
	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		errs = append(errs, FieldError{
			Field:   "schedule.cron",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}
	if cfg.InputPath == "" {
		errs = append(errs, FieldError{
			Field:   "schedule.input_path",
			Message: "input path is required when a cron expression is set",
		})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}
	if cfg.Tracing.Exporter != "otlp" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("invalid exporter %q: only 'otlp' is supported", cfg.Tracing.Exporter),
		})
	}
	return errs
}
