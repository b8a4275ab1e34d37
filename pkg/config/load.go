package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/verdict/pkg/security/secrets"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VERDICT_"

// LoadConfig loads configuration from a YAML file at the specified path,
// applies defaults and validates the result. Environment variables are
// ignored; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	if err := resolveSecrets(cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. An empty path skips the file and starts
// from the defaults.
//
// The loading sequence is:
//  1. Seed defaults whose zero value is meaningful
//  2. Decode YAML from file
//  3. Apply environment variable overrides
//  4. Resolve secret references (env:NAME, file:/path)
//  5. Apply remaining defaults
//  6. Validate final configuration
//
// Overrides are applied before defaults so a reasoner API key supplied only
// through the environment still selects the openai provider.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := seed()
	if path != "" {
		var err error
		if cfg, err = decodeFile(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	if err := resolveSecrets(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// resolveSecrets expands secret references in the credential fields.
func resolveSecrets(cfg *Config) error {
	r := secrets.NewResolver(secrets.NewEnvProvider(), secrets.NewFileProvider())
	err := r.ResolveAll(context.Background(),
		&cfg.Reasoner.APIKey,
		&cfg.Policy.Git.Auth.Token,
		&cfg.Policy.Git.Auth.SSHKeyPassphrase,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve secrets: %w", err)
	}
	return nil
}

func decodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := seed()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// applyEnvOverrides applies VERDICT_SECTION_FIELD variables. Values that do
// not parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Pipeline
	envString("PIPELINE_MODE", &cfg.Pipeline.Mode)
	envInt("PIPELINE_CONCURRENCY", &cfg.Pipeline.Concurrency)
	envString("PIPELINE_OUTPUT_FORMAT", &cfg.Pipeline.OutputFormat)
	envBool("PIPELINE_PRETTY", &cfg.Pipeline.Pretty)

	// Policy
	envString("POLICY_SOURCE", &cfg.Policy.Source)
	envString("POLICY_FILE_PATH", &cfg.Policy.FilePath)
	envBool("POLICY_WATCH", &cfg.Policy.Watch)
	envDuration("POLICY_DEBOUNCE", &cfg.Policy.Debounce)
	envString("POLICY_GIT_URL", &cfg.Policy.Git.URL)
	envString("POLICY_GIT_BRANCH", &cfg.Policy.Git.Branch)
	envString("POLICY_GIT_FILE", &cfg.Policy.Git.File)
	envString("POLICY_GIT_LOCAL_PATH", &cfg.Policy.Git.LocalPath)
	envDuration("POLICY_GIT_POLL_INTERVAL", &cfg.Policy.Git.PollInterval)
	envString("POLICY_GIT_AUTH_TYPE", &cfg.Policy.Git.Auth.Type)
	envString("POLICY_GIT_AUTH_TOKEN", &cfg.Policy.Git.Auth.Token)
	envString("POLICY_GIT_AUTH_SSH_KEY_PATH", &cfg.Policy.Git.Auth.SSHKeyPath)
	envString("POLICY_GIT_AUTH_SSH_KEY_PASSPHRASE", &cfg.Policy.Git.Auth.SSHKeyPassphrase)

	// Knowledge base
	envString("KNOWLEDGE_BASE_BACKEND", &cfg.KnowledgeBase.Backend)
	envString("KNOWLEDGE_BASE_SQLITE_PATH", &cfg.KnowledgeBase.SQLite.Path)
	envString("KNOWLEDGE_BASE_SQLITE_DRIVER", &cfg.KnowledgeBase.SQLite.Driver)
	envBool("KNOWLEDGE_BASE_SQLITE_WAL_MODE", &cfg.KnowledgeBase.SQLite.WALMode)
	envDuration("KNOWLEDGE_BASE_RETENTION_MAX_AGE", &cfg.KnowledgeBase.Retention.MaxAge)
	envString("KNOWLEDGE_BASE_RETENTION_SCHEDULE", &cfg.KnowledgeBase.Retention.Schedule)

	// Reasoner
	envString("REASONER_NAME", &cfg.Reasoner.Name)
	envString("REASONER_TYPE", &cfg.Reasoner.Type)
	envString("REASONER_BASE_URL", &cfg.Reasoner.BaseURL)
	envString("REASONER_API_KEY", &cfg.Reasoner.APIKey)
	envString("REASONER_MODEL", &cfg.Reasoner.Model)
	envFloatPtr("REASONER_TEMPERATURE", &cfg.Reasoner.Temperature)
	envInt("REASONER_MAX_TOKENS", &cfg.Reasoner.MaxTokens)
	envBool("REASONER_JSON_MODE", &cfg.Reasoner.JSONMode)
	envDuration("REASONER_TIMEOUT", &cfg.Reasoner.Timeout)
	envFloat("REASONER_RATE_LIMIT", &cfg.Reasoner.RateLimit)
	envInt("REASONER_RATE_BURST", &cfg.Reasoner.RateBurst)

	if cfg.Reasoner.APIKey == "" && (cfg.Reasoner.Type == "" || cfg.Reasoner.Type == "openai") {
		cfg.Reasoner.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	// Schedule
	envString("SCHEDULE_CRON", &cfg.Schedule.Cron)
	envString("SCHEDULE_INPUT_PATH", &cfg.Schedule.InputPath)
	envString("SCHEDULE_OUTPUT_PATH", &cfg.Schedule.OutputPath)
	envString("SCHEDULE_METRICS_ADDRESS", &cfg.Schedule.MetricsAddress)

	// Telemetry
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_OTLP_INSECURE", &cfg.Telemetry.Tracing.OTLP.Insecure)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envFloatPtr(name string, dst **float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = &f
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
