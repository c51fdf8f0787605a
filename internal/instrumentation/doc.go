// Package instrumentation provides OpenTelemetry instrumentation for inboxvault.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: Counter of trigger requests by method, path, and status
//   - http_request_duration_seconds: Histogram of request durations
//
// Google API:
//   - google_api_operations_total: Counter of Gmail and Cloud Storage calls by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of call durations
//
// Sync:
//   - sync_runs_total / sync_run_duration_seconds: runs by status and final stage
//   - attachments_total: attachments by outcome (archived, skipped, conflict)
//   - archived_bytes_total: bytes written to the bucket
//
// # Tracing
//
// Spans are created for each run (sync.run), each stage (sync.<stage>) and each
// Google API call (google.<service>.<operation>).
//
// # Configuration
//
// Instrumentation is configured from the environment, see DefaultConfig:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: inboxvault)
//
// A *Metrics obtained from a disabled Provider, or a nil *Metrics, is a valid no-op recorder.
package instrumentation
