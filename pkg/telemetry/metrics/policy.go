package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/verdict/pkg/config"
)

// PolicyMetrics tracks rule loading.
type PolicyMetrics struct {
	reloadsTotal *prometheus.CounterVec
	rules        prometheus.Gauge
}

// NewPolicyMetrics creates and registers policy metrics.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "policy",
				Name:      "reloads_total",
				Help:      "Total number of policy reload attempts by result",
			},
			[]string{"result"},
		),

		rules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "policy",
				Name:      "rules",
				Help:      "Number of rules in the active policy",
			},
		),
	}

	registry.MustRegister(pm.reloadsTotal, pm.rules)
	return pm
}

// RecordReload records a reload attempt. The rule gauge only moves on
// success since failed reloads keep the previous rules.
func (pm *PolicyMetrics) RecordReload(rules int, err error) {
	if err != nil {
		pm.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	pm.reloadsTotal.WithLabelValues("success").Inc()
	pm.rules.Set(float64(rules))
}
