package config

import (
	"math"
	"time"
)

// Default values for configuration fields.
const (
	DefaultPipelineMode         = "full"
	DefaultPipelineConcurrency  = 4
	DefaultPipelineOutputFormat = "json"
	DefaultPipelinePretty       = true

	DefaultPolicySource    = "file"
	DefaultPolicyFilePath  = "policy_rules.yaml"
	DefaultPolicyDebounce  = 200 * time.Millisecond
	DefaultGitBranch       = "main"
	DefaultGitFile         = "policy_rules.yaml"
	DefaultGitLocalPath    = "data/policies"
	DefaultGitTimeout      = 30 * time.Second
	DefaultGitPollInterval = time.Minute
	DefaultGitAuthType     = "none"

	DefaultKnowledgeBaseBackend    = "sqlite"
	DefaultSQLitePath              = "data/knowledge.db"
	DefaultSQLiteDriver            = "pure"
	DefaultSQLiteWALMode           = true
	DefaultSQLiteBusyTimeout       = 5 * time.Second
	DefaultRetentionMaxAge         = 30 * 24 * time.Hour
	DefaultRetentionSchedule       = "0 3 * * *"
	DefaultReasonerTemperature     = 0.3
	DefaultReasonerMaxTokens       = 300
	DefaultReasonerTimeout         = 8 * time.Second
	DefaultReasonerMaxIdleConns    = 16
	DefaultReasonerIdlePerHost     = 8
	DefaultReasonerIdleConnTimeout = 90 * time.Second

	DefaultScheduleMetricsAddress  = "127.0.0.1:9090"
	DefaultScheduleShutdownTimeout = 30 * time.Second

	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultLoggingRedactSecrets = true

	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "verdict"

	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingExporter    = "otlp"
	DefaultTracingService     = "verdict"
	DefaultOTLPTimeout        = 10 * time.Second
)

// Default histogram buckets, in seconds.
var (
	DefaultStageDurationBuckets   = []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120}
	DefaultReasonerLatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16}
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := seed()
	ApplyDefaults(cfg)
	return cfg
}

// seed returns the defaults whose zero value is meaningful. LoadConfig
// decodes the file on top of it, so they can still be switched off
// explicitly.
func seed() *Config {
	cfg := &Config{}
	cfg.Pipeline.Pretty = DefaultPipelinePretty
	cfg.KnowledgeBase.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.KnowledgeBase.Retention.MaxAge = DefaultRetentionMaxAge
	cfg.KnowledgeBase.Retention.Schedule = DefaultRetentionSchedule
	cfg.Schedule.MetricsAddress = DefaultScheduleMetricsAddress
	cfg.Telemetry.Logging.RedactSecrets = DefaultLoggingRedactSecrets
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Booleans, the
// retention settings and the metrics address are left alone because their
// zero value disables something.
func ApplyDefaults(cfg *Config) {
	applyPipelineDefaults(&cfg.Pipeline)
	applyPolicyDefaults(&cfg.Policy)
	applyKnowledgeBaseDefaults(&cfg.KnowledgeBase)
	applyReasonerDefaults(&cfg.Reasoner)
	applyScheduleDefaults(&cfg.Schedule)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyPipelineDefaults(cfg *PipelineConfig) {
	if cfg.Mode == "" {
		cfg.Mode = DefaultPipelineMode
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultPipelineConcurrency
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = DefaultPipelineOutputFormat
	}
}

func applyPolicyDefaults(cfg *PolicyConfig) {
	if cfg.Source == "" {
		cfg.Source = DefaultPolicySource
	}
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultPolicyFilePath
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultPolicyDebounce
	}

	git := &cfg.Git
	if git.Branch == "" {
		git.Branch = DefaultGitBranch
	}
	if git.File == "" {
		git.File = DefaultGitFile
	}
	if git.LocalPath == "" {
		git.LocalPath = DefaultGitLocalPath
	}
	if git.Timeout == 0 {
		git.Timeout = DefaultGitTimeout
	}
	if git.PollInterval == 0 {
		git.PollInterval = DefaultGitPollInterval
	}
	if git.Auth.Type == "" {
		git.Auth.Type = DefaultGitAuthType
	}
}

func applyKnowledgeBaseDefaults(cfg *KnowledgeBaseConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultKnowledgeBaseBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultSQLitePath
	}
	if cfg.SQLite.Driver == "" {
		cfg.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
}

// applyReasonerDefaults infers the provider type from the credentials when
// none is configured.
func applyReasonerDefaults(cfg *ReasonerConfig) {
	if cfg.Type == "" {
		if cfg.APIKey != "" {
			cfg.Type = "openai"
		} else {
			cfg.Type = "none"
		}
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Type
	}
	if cfg.Temperature == nil {
		t := DefaultReasonerTemperature
		cfg.Temperature = &t
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultReasonerMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultReasonerTimeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = DefaultReasonerMaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = DefaultReasonerIdlePerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = DefaultReasonerIdleConnTimeout
	}
	if cfg.RateLimit > 0 && cfg.RateBurst == 0 {
		cfg.RateBurst = max(1, int(math.Ceil(cfg.RateLimit)))
	}
}

func applyScheduleDefaults(cfg *ScheduleConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultScheduleShutdownTimeout
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.StageDurationBuckets) == 0 {
		cfg.Metrics.StageDurationBuckets = append([]float64(nil), DefaultStageDurationBuckets...)
	}
	if len(cfg.Metrics.ReasonerLatencyBuckets) == 0 {
		cfg.Metrics.ReasonerLatencyBuckets = append([]float64(nil), DefaultReasonerLatencyBuckets...)
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}
