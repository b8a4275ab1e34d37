package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/verdict/pkg/config"
)

// CacheMetrics tracks the knowledge base.
//
// Metrics:
//   - verdict_knowledge_base_cache_hits_total: Lookups answered from the store
//   - verdict_knowledge_base_cache_misses_total: Lookups that fell through
//   - verdict_knowledge_base_entries: Current number of stored entries
//   - verdict_knowledge_base_pruned_entries_total: Entries removed by retention
type CacheMetrics struct {
	hitsTotal   *prometheus.CounterVec
	missesTotal *prometheus.CounterVec
	entries     *prometheus.GaugeVec
	prunedTotal *prometheus.CounterVec
}

// NewCacheMetrics creates and registers knowledge base metrics.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "knowledge_base",
				Name:      "cache_hits_total",
				Help:      "Total number of knowledge base hits",
			},
			[]string{"cache"},
		),

		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "knowledge_base",
				Name:      "cache_misses_total",
				Help:      "Total number of knowledge base misses",
			},
			[]string{"cache"},
		),

		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "knowledge_base",
				Name:      "entries",
				Help:      "Current number of knowledge base entries",
			},
			[]string{"cache"},
		),

		prunedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "knowledge_base",
				Name:      "pruned_entries_total",
				Help:      "Total number of entries removed by retention",
			},
			[]string{"cache"},
		),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.entries,
		cm.prunedTotal,
	)

	return cm
}

// RecordHit increments the hit counter.
func (cm *CacheMetrics) RecordHit(cache string) {
	cm.hitsTotal.WithLabelValues(cache).Inc()
}

// RecordMiss increments the miss counter.
func (cm *CacheMetrics) RecordMiss(cache string) {
	cm.missesTotal.WithLabelValues(cache).Inc()
}

// SetEntries sets the entry gauge.
func (cm *CacheMetrics) SetEntries(cache string, n int) {
	cm.entries.WithLabelValues(cache).Set(float64(n))
}

// RecordPruned adds removed entries.
func (cm *CacheMetrics) RecordPruned(cache string, n int) {
	cm.prunedTotal.WithLabelValues(cache).Add(float64(n))
}
