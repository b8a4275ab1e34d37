package config

import "time"

// Config is the root configuration.
type Config struct {
	// Pipeline controls batch classification.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Policy selects where rules are loaded from.
	Policy PolicyConfig `yaml:"policy"`

	// KnowledgeBase configures the compliance metadata cache.
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`

	// Reasoner configures the model used on cache misses.
	Reasoner ReasonerConfig `yaml:"reasoner"`

	// Schedule configures the daemon started by "verdict schedule".
	Schedule ScheduleConfig `yaml:"schedule"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PipelineConfig controls batch classification.
type PipelineConfig struct {
	// Mode is "full" or "quick". Quick never calls the reasoner.
	// Default: "full"
	Mode string `yaml:"mode"`

	// Concurrency bounds parallel reasoner calls within a run.
	// Default: 4
	Concurrency int `yaml:"concurrency"`

	// OutputFormat is "json" or "csv".
	// Default: "json"
	OutputFormat string `yaml:"output_format"`

	// Pretty indents JSON output.
	// Default: true
	Pretty bool `yaml:"pretty"`
}

// PolicyConfig selects where rules are loaded from.
type PolicyConfig struct {
	// Source is "file" or "git".
	// Default: "file"
	Source string `yaml:"source"`

	// FilePath is the rule file for the file source.
	// Default: "policy_rules.yaml"
	FilePath string `yaml:"file_path"`

	// Watch reloads rules when the source changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce collapses bursts of file events.
	// Default: 200ms
	Debounce time.Duration `yaml:"debounce"`

	// Git configures the git source.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures a policy repository.
type GitConfig struct {
	// URL of the repository (HTTPS, SSH or a local path).
	URL string `yaml:"url"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// File is the rule file path inside the repository.
	// Default: "policy_rules.yaml"
	File string `yaml:"file"`

	// LocalPath is the clone directory.
	// Default: "data/policies"
	LocalPath string `yaml:"local_path"`

	// Depth limits clone history. Zero clones everything.
	Depth int `yaml:"depth"`

	// Timeout bounds each clone or pull.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// PollInterval is how often the repository is pulled when watching.
	// Default: 1m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Auth holds repository credentials.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig holds repository credentials.
type GitAuthConfig struct {
	// Type is "none", "token" or "ssh".
	// Default: "none"
	Type string `yaml:"type"`

	// Token is a personal access token for HTTPS.
	Token string `yaml:"token"`

	// SSHKeyPath is the private key file for SSH.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase decrypts the private key.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// KnowledgeBaseConfig configures the compliance metadata cache.
type KnowledgeBaseConfig struct {
	// Backend is "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention configures pruning of stale entries.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/knowledge.db"
	Path string `yaml:"path"`

	// Driver is "pure" (modernc.org/sqlite) or "cgo" (mattn/go-sqlite3).
	// Default: "pure"
	Driver string `yaml:"driver"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a locked database is retried.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures pruning of stale entries.
type RetentionConfig struct {
	// MaxAge is the age after which unrefreshed entries are pruned. Zero
	// disables pruning.
	// Default: 720h (30 days)
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is the cron expression for pruning in the daemon. Empty
	// disables scheduled pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// ReasonerConfig configures the model used on cache misses.
type ReasonerConfig struct {
	// Name identifies the provider in logs and metrics.
	Name string `yaml:"name"`

	// Type is "openai", "anthropic", "gemini", "generic" or "none".
	// Default: "openai" when an API key is set, "none" otherwise.
	Type string `yaml:"type"`

	// BaseURL overrides the API endpoint. Required for "generic".
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier. Adapters pick a default when empty.
	Model string `yaml:"model"`

	// Temperature controls sampling. An explicit 0 is kept.
	// Default: 0.3
	Temperature *float64 `yaml:"temperature"`

	// MaxTokens bounds the answer length.
	// Default: 300
	MaxTokens int `yaml:"max_tokens"`

	// JSONMode requests a JSON object response from OpenAI-style APIs.
	// Default: false
	JSONMode bool `yaml:"json_mode"`

	// Timeout bounds each call. Calls are never retried.
	// Default: 8s
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns sizes the connection pool.
	// Default: 16
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost sizes the per-host connection pool.
	// Default: 8
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes idle pooled connections.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`

	// RateLimit caps calls per second across the run. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is how many calls may go out back to back.
	// Default: ceil(RateLimit), at least 1, when RateLimit is set
	RateBurst int `yaml:"rate_burst"`
}

// ScheduleConfig configures the daemon started by "verdict schedule".
type ScheduleConfig struct {
	// Cron is the classification schedule. Empty disables scheduled runs.
	Cron string `yaml:"cron"`

	// InputPath is the dataset classified on every run.
	InputPath string `yaml:"input_path"`

	// OutputPath receives the report of the latest run.
	OutputPath string `yaml:"output_path"`

	// MetricsAddress is the listen address of the metrics endpoint. Empty
	// disables the endpoint.
	// Default: "127.0.0.1:9090"
	MetricsAddress string `yaml:"metrics_address"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig configures logging, metrics and tracing.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json", "text" or "console".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks API keys and tokens in log attributes.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`

	// RedactPatterns adds custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "verdict"
	Namespace string `yaml:"namespace"`

	// StageDurationBuckets are histogram buckets for stage durations
	// (seconds).
	// Default: [0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120]
	StageDurationBuckets []float64 `yaml:"stage_duration_buckets"`

	// ReasonerLatencyBuckets are histogram buckets for reasoner calls
	// (seconds).
	// Default: [0.1, 0.25, 0.5, 1, 2, 4, 8, 16]
	ReasonerLatencyBuckets []float64 `yaml:"reasoner_latency_buckets"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled by "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter is the span exporter. Only "otlp" is supported.
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the collector address, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "verdict"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter options.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter options.
type OTLPConfig struct {
	// Insecure disables TLS.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
