// Package tracing wires OpenTelemetry tracing.
//
// New installs a tracer provider exporting over OTLP/gRPC. Pipeline runs,
// stages and reasoner calls open spans through otel.Tracer, so they are
// exported once the provider is installed and cost nothing otherwise:
//
//	pipeline.run
//	├── pipeline.stage (Rule Application)
//	├── pipeline.stage (Data Segregation)
//	├── pipeline.stage (Knowledge Base)
//	│   └── reasoner.derive (one per miss)
//	├── pipeline.stage (Classification)
//	└── pipeline.stage (Report Generation)
//
// Outgoing reasoner HTTP requests carry the W3C traceparent header.
package tracing
