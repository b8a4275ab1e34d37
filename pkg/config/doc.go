// Package config loads and validates verdict configuration.
//
// Configuration is read from YAML with optional environment overrides:
//
//	cfg, err := config.LoadConfig("verdict.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("verdict.yaml")
//
// Environment variables follow the naming convention VERDICT_SECTION_FIELD,
// for example:
//
//   - VERDICT_REASONER_API_KEY overrides reasoner.api_key
//   - VERDICT_KNOWLEDGE_BASE_SQLITE_PATH overrides knowledge_base.sqlite.path
//   - VERDICT_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// OPENAI_API_KEY is honoured as the reasoner API key when neither the file
// nor VERDICT_REASONER_API_KEY sets one and the reasoner type is openai or
// unset.
//
// Precedence, later wins:
//
//  1. Default values (Default)
//  2. Values from the YAML file
//  3. Environment variable overrides
//
// The result is validated and every problem is reported at once:
//
//	configuration validation failed with 2 errors:
//	  - reasoner.api_key: API key is required for provider type "openai"
//	  - schedule.input_path: input path is required when a cron expression is set
//
// There is no process-wide configuration; callers pass *Config explicitly.
//
// # Example Configuration
//
//	pipeline:
//	  mode: full
//
//	policy:
//	  source: file
//	  file_path: policy_rules.yaml
//	  watch: true
//
//	knowledge_base:
//	  backend: sqlite
//	  sqlite:
//	    path: data/knowledge.db
//	  retention:
//	    max_age: 720h
//
//	reasoner:
//	  type: openai
//	  model: gpt-4
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
