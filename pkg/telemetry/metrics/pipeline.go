package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/config"
)

// PipelineMetrics tracks classification runs.
type PipelineMetrics struct {
	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	stageDuration     *prometheus.HistogramVec
	stageRecords      *prometheus.CounterVec
	classifiedRecords *prometheus.CounterVec
	complianceRate    prometheus.Gauge
	lastRun           prometheus.Gauge
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PipelineMetrics {
	pm := &PipelineMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total number of completed pipeline runs",
			},
			[]string{"mode"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs in seconds",
				Buckets:   cfg.StageDurationBuckets,
			},
			[]string{"mode"},
		),

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   cfg.StageDurationBuckets,
			},
			[]string{"stage"},
		),

		stageRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "pipeline",
				Name:      "stage_records_total",
				Help:      "Total number of records processed per stage",
			},
			[]string{"stage"},
		),

		classifiedRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "pipeline",
				Name:      "classified_records_total",
				Help:      "Total number of classified records by status",
			},
			[]string{"status"},
		),

		complianceRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "pipeline",
				Name:      "compliance_rate",
				Help:      "Compliance rate of the last run, in percent",
			},
		),

		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "pipeline",
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last completed run",
			},
		),
	}

	registry.MustRegister(
		pm.runsTotal,
		pm.runDuration,
		pm.stageDuration,
		pm.stageRecords,
		pm.classifiedRecords,
		pm.complianceRate,
		pm.lastRun,
	)

	return pm
}

// RecordStage records a completed stage.
func (pm *PipelineMetrics) RecordStage(stage string, duration time.Duration, records int) {
	pm.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	pm.stageRecords.WithLabelValues(stage).Add(float64(records))
}

// RecordRun records a completed run.
func (pm *PipelineMetrics) RecordRun(mode string, summary compliance.Summary, duration time.Duration) {
	pm.runsTotal.WithLabelValues(mode).Inc()
	pm.runDuration.WithLabelValues(mode).Observe(duration.Seconds())

	pm.classifiedRecords.WithLabelValues(string(compliance.StatusCompliant)).Add(float64(summary.Compliant))
	pm.classifiedRecords.WithLabelValues(string(compliance.StatusNonCompliant)).Add(float64(summary.NonCompliant))
	pm.classifiedRecords.WithLabelValues(string(compliance.StatusRequiresAction)).Add(float64(summary.RequiresAction))
	pm.classifiedRecords.WithLabelValues(string(compliance.StatusUnknown)).Add(float64(summary.Unknown))

	pm.complianceRate.Set(summary.ComplianceRate)
	pm.lastRun.SetToCurrentTime()
}
