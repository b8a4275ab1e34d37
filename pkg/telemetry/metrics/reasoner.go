package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/verdict/pkg/config"
)

// ReasonerMetrics tracks calls to the reasoning model.
type ReasonerMetrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

// NewReasonerMetrics creates and registers reasoner metrics.
func NewReasonerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ReasonerMetrics {
	rm := &ReasonerMetrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "reasoner",
				Name:      "calls_total",
				Help:      "Total number of reasoner calls by outcome",
			},
			[]string{"provider", "outcome"},
		),

		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "reasoner",
				Name:      "call_duration_seconds",
				Help:      "Duration of reasoner calls in seconds",
				Buckets:   cfg.ReasonerLatencyBuckets,
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(rm.callsTotal, rm.callDuration)
	return rm
}

// RecordCall records one call.
func (rm *ReasonerMetrics) RecordCall(provider, outcome string, duration time.Duration) {
	rm.callsTotal.WithLabelValues(provider, outcome).Inc()
	rm.callDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
