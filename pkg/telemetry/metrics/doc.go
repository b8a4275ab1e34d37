// Package metrics provides Prometheus metrics for verdict.
//
// # Overview
//
// The Collector registers every metric on its own registry and implements
// the sink interfaces of the components it observes:
//
//   - pipeline.MetricsSink: stage durations, records, runs and compliance rate
//   - reasoner.Metrics: reasoner calls by provider and outcome, call latency
//   - knowledge.Metrics: knowledge base hits and misses
//
// Policy reloads, rule counts, knowledge base size and retention pruning are
// recorded directly.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	kb, _ := knowledge.New(store, reasoner, knowledge.WithMetrics(collector))
//	p := pipeline.New(rules, kb,
//	    pipeline.WithObserver(pipeline.NewMetricsObserver(collector)))
//
//	http.Handle("/metrics", collector.Handler())
//
// # Metric Names
//
// All metrics share the configured namespace (default "verdict"):
//
//	verdict_pipeline_runs_total{mode}
//	verdict_pipeline_run_duration_seconds{mode}
//	verdict_pipeline_stage_duration_seconds{stage}
//	verdict_pipeline_stage_records_total{stage}
//	verdict_pipeline_classified_records_total{status}
//	verdict_pipeline_compliance_rate
//	verdict_pipeline_last_run_timestamp_seconds
//	verdict_reasoner_calls_total{provider,outcome}
//	verdict_reasoner_call_duration_seconds{provider}
//	verdict_knowledge_base_cache_hits_total{cache}
//	verdict_knowledge_base_cache_misses_total{cache}
//	verdict_knowledge_base_entries{cache}
//	verdict_knowledge_base_pruned_entries_total{cache}
//	verdict_policy_reloads_total{result}
//	verdict_policy_rules
//
// When metrics are disabled every Record method returns immediately.
package metrics
