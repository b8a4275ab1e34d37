package config

import "testing"

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Pipeline.Mode != DefaultPipelineMode {
		t.Errorf("Pipeline.Mode = %q, want %q", cfg.Pipeline.Mode, DefaultPipelineMode)
	}
	if cfg.KnowledgeBase.Backend != DefaultKnowledgeBaseBackend {
		t.Errorf("KnowledgeBase.Backend = %q, want %q", cfg.KnowledgeBase.Backend, DefaultKnowledgeBaseBackend)
	}
	if cfg.Reasoner.Type != "none" {
		t.Errorf("Reasoner.Type = %q, want none", cfg.Reasoner.Type)
	}
	if cfg.KnowledgeBase.Retention.MaxAge != DefaultRetentionMaxAge {
		t.Errorf("Retention.MaxAge = %v, want %v", cfg.KnowledgeBase.Retention.MaxAge, DefaultRetentionMaxAge)
	}
	if !cfg.Telemetry.Logging.RedactSecrets {
		t.Error("Logging.RedactSecrets = false, want true")
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Pipeline: PipelineConfig{Mode: "quick", Concurrency: 2},
		Reasoner: ReasonerConfig{Type: "gemini", Name: "primary", Temperature: ptr(0.9)},
	}
	ApplyDefaults(cfg)

	if cfg.Pipeline.Mode != "quick" || cfg.Pipeline.Concurrency != 2 {
		t.Errorf("pipeline overwritten: %+v", cfg.Pipeline)
	}
	if cfg.Reasoner.Name != "primary" || *cfg.Reasoner.Temperature != 0.9 {
		t.Errorf("reasoner overwritten: %+v", cfg.Reasoner)
	}
}

func TestApplyDefaults_BucketsAreCopied(t *testing.T) {
	a, b := Default(), Default()
	a.Telemetry.Metrics.StageDurationBuckets[0] = 42

	if b.Telemetry.Metrics.StageDurationBuckets[0] == 42 {
		t.Error("default buckets are shared between configs")
	}
	if DefaultStageDurationBuckets[0] == 42 {
		t.Error("default bucket slice was mutated")
	}
}

func ptr[T any](v T) *T { return &v }
