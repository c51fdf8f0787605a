package instrumentation

import (
	"context"
	"log/slog"
	"time"
)

// SyncRun captures the outcome of one archive sync run for audit logging.
//
// Sender is the configured sender filter. It is an email address, so the default
// log form only carries its domain.
type SyncRun struct {
	RunID  string
	Sender string

	Messages  int
	Archived  int
	Skipped   int
	Conflicts int

	// Stage is where the run ended: "done" or the failing stage.
	Stage string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewSyncRun creates a SyncRun with timing started.
func NewSyncRun(runID, sender string) *SyncRun {
	return &SyncRun{
		RunID:     runID,
		Sender:    sender,
		StartTime: time.Now(),
	}
}

// SenderDomain returns the domain portion of the sender filter.
func (r *SyncRun) SenderDomain() string {
	return ExtractUserDomain(r.Sender)
}

// Status returns "success" or "error" based on the Success field.
func (r *SyncRun) Status() string {
	if r.Success {
		return StatusSuccess
	}
	return StatusError
}

// WithSpanContext extracts trace context from the current span.
func (r *SyncRun) WithSpanContext(ctx context.Context) *SyncRun {
	r.TraceID = GetTraceID(ctx)
	r.SpanID = GetSpanID(ctx)
	return r
}

// Complete marks the run as finished in the given stage and calculates duration.
func (r *SyncRun) Complete(stage string, err error) *SyncRun {
	r.Duration = time.Since(r.StartTime)
	r.Stage = stage
	r.Success = err == nil
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// LogAttrs returns slog attributes for the run. includePII switches the sender
// attribute from the domain to the full address.
func (r *SyncRun) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("run_id", r.RunID),
		slog.String("stage", r.Stage),
		slog.Int("messages", r.Messages),
		slog.Int("archived", r.Archived),
		slog.Int("skipped", r.Skipped),
		slog.Int("conflicts", r.Conflicts),
		slog.Duration("duration", r.Duration),
		slog.Bool("success", r.Success),
	}

	if includePII {
		attrs = append(attrs, slog.String("sender", r.Sender))
	} else {
		attrs = append(attrs, slog.String("sender_domain", r.SenderDomain()))
	}
	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", r.SpanID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String("error", r.Error))
	}

	return attrs
}

// AuditLogger writes one structured record per sync run.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogSyncRun logs a completed run. A nil receiver is a no-op.
func (al *AuditLogger) LogSyncRun(r *SyncRun) {
	if al == nil || !al.enabled {
		return
	}

	attrs := r.LogAttrs(al.includePII)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if r.Success {
		al.logger.Info("sync_run", args...)
	} else {
		al.logger.Warn("sync_run_failed", args...)
	}
}
