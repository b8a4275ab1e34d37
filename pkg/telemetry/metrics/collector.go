package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/config"
)

// Collector owns the registry and every metric group.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	pipelineMetrics *PipelineMetrics
	reasonerMetrics *ReasonerMetrics
	cacheMetrics    *CacheMetrics
	policyMetrics   *PolicyMetrics
}

// NewCollector creates a collector with the specified configuration. If
// registry is nil a new one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.StageDurationBuckets) == 0 {
		cfg.StageDurationBuckets = config.DefaultStageDurationBuckets
	}
	if len(cfg.ReasonerLatencyBuckets) == 0 {
		cfg.ReasonerLatencyBuckets = config.DefaultReasonerLatencyBuckets
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		pipelineMetrics: NewPipelineMetrics(cfg, registry),
		reasonerMetrics: NewReasonerMetrics(cfg, registry),
		cacheMetrics:    NewCacheMetrics(cfg, registry),
		policyMetrics:   NewPolicyMetrics(cfg, registry),
	}
}

// Registry returns the registry metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordStage records a completed pipeline stage.
func (c *Collector) RecordStage(stage string, duration time.Duration, records int) {
	if !c.config.Enabled {
		return
	}
	c.pipelineMetrics.RecordStage(stage, duration, records)
}

// RecordRun records a completed pipeline run and its report summary.
func (c *Collector) RecordRun(mode string, summary compliance.Summary, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.pipelineMetrics.RecordRun(mode, summary, duration)
}

// RecordReasonerCall records one reasoner call. Outcome is one of the
// reasoner.Outcome constants.
func (c *Collector) RecordReasonerCall(provider, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.reasonerMetrics.RecordCall(provider, outcome, duration)
}

// RecordCacheHit records a knowledge base hit.
func (c *Collector) RecordCacheHit(cache string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordHit(cache)
}

// RecordCacheMiss records a knowledge base miss.
func (c *Collector) RecordCacheMiss(cache string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordMiss(cache)
}

// SetCacheEntries sets the current number of stored entries.
func (c *Collector) SetCacheEntries(cache string, entries int) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.SetEntries(cache, entries)
}

// RecordPruned records entries removed by retention.
func (c *Collector) RecordPruned(cache string, removed int) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordPruned(cache, removed)
}

// RecordPolicyReload records a reload attempt and, on success, the number
// of active rules.
func (c *Collector) RecordPolicyReload(rules int, err error) {
	if !c.config.Enabled {
		return
	}
	c.policyMetrics.RecordReload(rules, err)
}
