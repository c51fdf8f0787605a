package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	provider, err := NewProvider(context.Background(), Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
		DetailedLabels:  true,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestMetrics_Record(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t).Metrics()

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/", 200, 100*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationList, StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceStorage, OperationCreate, StatusError, 50*time.Millisecond)
	metrics.RecordSyncRun(ctx, "info@bank.example", StatusSuccess, "done", time.Second)
	metrics.RecordAttachment(ctx, OutcomeArchived, 1024)
	metrics.RecordAttachment(ctx, OutcomeSkipped, 0)
	metrics.RecordAttachment(ctx, OutcomeConflict, 0)
}

func TestMetrics_NoOp(t *testing.T) {
	ctx := context.Background()

	for name, m := range map[string]*Metrics{"zero": {}, "nil": nil} {
		t.Run(name, func(t *testing.T) {
			// Should not panic
			m.RecordHTTPRequest(ctx, "GET", "/", 500, time.Millisecond)
			m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGet, StatusError, time.Millisecond)
			m.RecordSyncRun(ctx, "", StatusError, "locating", time.Millisecond)
			m.RecordAttachment(ctx, OutcomeArchived, 10)
		})
	}
}
