package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/inboxvault/internal/instrumentation"
	"github.com/teemow/inboxvault/internal/logging"
)

// Options select the mailbox slice a Syncer archives and where it goes.
type Options struct {
	// Prefix is prepended to every storage key to form the object name.
	Prefix  string
	Sender  string
	Subject string

	// URLTTL is the signed URL lifetime. Zero means DefaultURLTTL.
	URLTTL time.Duration
}

// Result lists the attachments archived by one run.
type Result struct {
	NewFiles []SignedFile `json:"new_files"`
}

// Syncer runs the archive pipeline. It is safe for concurrent use: overlapping
// runs share a single in-flight execution and its result.
//
// A run holds every new attachment of the mailbox in memory between the
// extracting and archiving stages. The first run against a mailbox with a
// long history therefore peaks at the total size of its attachments.
type Syncer struct {
	opts   Options
	source MailSource
	store  BlobStore
	logger *slog.Logger

	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger

	group singleflight.Group
	now   func() time.Time

	mu     sync.Mutex
	flight *flight
}

// flight is the context of the in-flight run. It is canceled once no caller
// waits for the run any more.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewSyncer wires a Syncer to its mailbox and bucket.
func NewSyncer(opts Options, source MailSource, store BlobStore, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = DefaultURLTTL
	}
	return &Syncer{
		opts:   opts,
		source: source,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// SetMetrics enables run and attachment metrics.
func (s *Syncer) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// SetAuditLogger enables one audit record per run.
func (s *Syncer) SetAuditLogger(a *instrumentation.AuditLogger) {
	s.audit = a
}

// Run performs one sync. If a run for the same mailbox query is already in
// flight, Run waits for it and returns its outcome instead of starting another.
// The returned Result is shared between those callers and must not be modified.
//
// The run outlives the context of the caller that started it and is canceled
// only when every waiting caller has gone. A caller whose ctx ends stops
// waiting and gets ctx's error.
//
// When the run fails the error is a *StageError and no result is returned;
// objects written before the failure stay in the bucket.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageLocating, Op: "start run", Err: err}
	}
	key := Query(s.opts.Sender, s.opts.Subject)

	s.mu.Lock()
	f := s.flight
	if f == nil {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: runCtx, cancel: cancel}
		s.flight = f
	}
	f.waiters++
	ch := s.group.DoChan(key, func() (interface{}, error) {
		defer s.finish(f)
		return s.run(f.ctx)
	})
	s.mu.Unlock()

	select {
	case res := <-ch:
		s.leave(key, f)
		if res.Shared {
			s.logger.Debug("joined in-flight sync run")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	case <-ctx.Done():
		s.leave(key, f)
		return nil, fmt.Errorf("stopped waiting for sync run: %w", ctx.Err())
	}
}

// finish retires f once its run has returned.
func (s *Syncer) finish(f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flight == f {
		s.flight = nil
	}
	f.cancel()
}

// leave drops one waiter from f. The last one out cancels the run and makes
// sure later callers start a fresh one instead of joining it.
func (s *Syncer) leave(key string, f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if s.flight == f {
		s.flight = nil
		s.group.Forget(key)
	}
}

func (s *Syncer) run(ctx context.Context) (result *Result, err error) {
	runID := uuid.NewString()
	logger := logging.WithRunID(s.logger, runID)

	ctx, span := instrumentation.StartSpan(ctx, "sync.run",
		instrumentation.NewSpanAttributeBuilder().WithRunID(runID).Build()...)

	audit := instrumentation.NewSyncRun(runID, s.opts.Sender).WithSpanContext(ctx)
	stage := StageLocating

	defer func() {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		audit.Complete(string(stage), err)

		s.metrics.RecordSyncRun(ctx, s.opts.Sender, audit.Status(), string(stage), audit.Duration)
		s.audit.LogSyncRun(audit)
		instrumentation.EndSpan(span, err)

		if err != nil {
			logger.Error("sync run failed", logging.Stage(string(stage)), logging.Err(err))
		}
	}()

	logger.Info("sync run started", logging.Domain(s.opts.Sender), logging.Stage(string(stage)))

	ids, err := s.locate(ctx)
	if err != nil {
		return nil, err
	}
	audit.Messages = len(ids)

	result = &Result{NewFiles: []SignedFile{}}
	if len(ids) == 0 {
		stage = StageDone
		logger.Info("no matching messages", logging.Stage(string(stage)))
		return result, nil
	}

	stage = StageExtracting
	records, skipped, err := s.extract(ctx, ids, logger)
	audit.Skipped = skipped
	if err != nil {
		return nil, err
	}

	stage = StageArchiving
	files, conflicts, err := s.archive(ctx, records, logger)
	audit.Archived = len(files)
	audit.Conflicts = conflicts
	if err != nil {
		return nil, err
	}

	stage = StageDone
	result.NewFiles = files
	logger.Info("sync run finished",
		logging.Stage(string(stage)),
		slog.Int("messages", len(ids)),
		slog.Int("archived", len(files)),
		slog.Int("skipped", skipped),
		slog.Int("conflicts", conflicts))

	return result, nil
}

func (s *Syncer) locate(ctx context.Context) (ids []string, err error) {
	ctx, span := instrumentation.StartStageSpan(ctx, string(StageLocating))
	defer func() { instrumentation.EndSpan(span, err) }()

	ids, err = NewLocator(s.source, s.opts.Sender, s.opts.Subject).Locate(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithCount(len(ids)).Build()...)
	return ids, nil
}

func (s *Syncer) extract(ctx context.Context, ids []string, logger *slog.Logger) (records []Record, skipped int, err error) {
	ctx, span := instrumentation.StartStageSpan(ctx, string(StageExtracting))
	defer func() { instrumentation.EndSpan(span, err) }()

	index, err := LoadIndex(ctx, s.store, s.opts.Prefix)
	if err != nil {
		return nil, 0, err
	}
	logger.Debug("loaded existing keys", slog.Int("count", index.Len()))

	ex := NewExtractor(s.source, s.opts.Prefix, index, logger)
	ex.metrics = s.metrics

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, ex.Skipped(), &StageError{Stage: StageExtracting, Op: "extract", Err: err}
		}
		recs, err := ex.Extract(ctx, id)
		if err != nil {
			return nil, ex.Skipped(), err
		}
		records = append(records, recs...)
	}

	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithCount(len(records)).Build()...)
	return records, ex.Skipped(), nil
}

func (s *Syncer) archive(ctx context.Context, records []Record, logger *slog.Logger) (files []SignedFile, conflicts int, err error) {
	ctx, span := instrumentation.StartStageSpan(ctx, string(StageArchiving))
	defer func() { instrumentation.EndSpan(span, err) }()

	archiver := NewArchiver(s.store, s.opts.URLTTL)
	archiver.now = s.now

	files = make([]SignedFile, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			s.logWritten(logger, files)
			return files, conflicts, &StageError{Stage: StageArchiving, Op: "archive", Err: err}
		}

		file, err := archiver.Archive(ctx, rec)
		if errors.Is(err, ErrAlreadyArchived) {
			conflicts++
			s.metrics.RecordAttachment(ctx, instrumentation.OutcomeConflict, 0)
			logger.Warn("object created by a concurrent run, skipping",
				logging.MessageID(rec.MessageID), logging.Key(rec.Key))
			continue
		}
		if err != nil {
			s.logWritten(logger, files)
			return files, conflicts, err
		}

		s.metrics.RecordAttachment(ctx, instrumentation.OutcomeArchived, len(rec.Data))
		logger.Info("attachment archived", logging.MessageID(rec.MessageID), logging.Key(rec.Key))
		logger.Debug("signed url issued",
			logging.Key(rec.Key),
			slog.String("url", logging.SanitizeURL(file.SignedURL)),
			slog.Time("expires_at", file.ExpiresAt))
		files = append(files, file)
	}

	return files, conflicts, nil
}

// logWritten records the objects a failed run leaves behind.
func (s *Syncer) logWritten(logger *slog.Logger, files []SignedFile) {
	if len(files) == 0 {
		return
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}
	logger.Warn("run aborted after archiving objects", slog.Any("keys", names))
}
