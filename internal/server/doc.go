// Package server exposes the sync pipeline over HTTP.
//
// # Key Components
//
// TriggerHandler runs one sync per GET / and answers with the archived files
// as pretty-printed JSON. Failures are mapped to an error kind and status code.
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed for Cloud Run
// and Kubernetes probes.
//
// MetricsServer serves Prometheus metrics on a dedicated port, away from the
// trigger traffic.
package server
