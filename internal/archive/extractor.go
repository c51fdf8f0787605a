package archive

import (
	"context"
	"log/slog"

	"github.com/teemow/inboxvault/internal/instrumentation"
	"github.com/teemow/inboxvault/internal/logging"
)

// Record is an attachment ready to be archived.
type Record struct {
	// Name is the storage key, Key the full object name (prefix + Name).
	Name string
	Key  string

	MessageID string
	Filename  string
	Data      []byte
}

// Extractor turns candidate messages into records for attachments not yet archived.
type Extractor struct {
	source  MailSource
	prefix  string
	index   *KeyIndex
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	// keys emitted during this run; two parts may derive the same key
	emitted map[string]struct{}
	skipped int
}

// NewExtractor returns an extractor that skips every key present in index.
func NewExtractor(source MailSource, prefix string, index *KeyIndex, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		source:  source,
		prefix:  prefix,
		index:   index,
		logger:  logger,
		emitted: make(map[string]struct{}),
	}
}

// Extract fetches one message and returns a record per new attachment, in
// depth-first part order. Indexed keys are skipped before their bytes are fetched.
func (e *Extractor) Extract(ctx context.Context, messageID string) (records []Record, err error) {
	ctx, span := instrumentation.StartSpan(ctx, "sync.extract_message",
		instrumentation.NewSpanAttributeBuilder().WithMessageID(messageID).Build()...)
	defer func() {
		span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithCount(len(records)).Build()...)
		instrumentation.EndSpan(span, err)
	}()

	msg, err := e.source.GetMessage(ctx, messageID)
	if err != nil {
		return nil, &StageError{Stage: StageExtracting, Op: "get message " + messageID, Err: err}
	}

	for _, part := range msg.Attachments() {
		name := DeriveKey(msg, part.Filename)
		key := e.prefix + name

		if e.seen(key) {
			e.skipped++
			e.metrics.RecordAttachment(ctx, instrumentation.OutcomeSkipped, 0)
			e.logger.Debug("attachment already archived", logging.MessageID(msg.ID), logging.Key(key))
			continue
		}

		data, err := e.source.GetAttachment(ctx, msg.ID, part.Body.AttachmentID)
		if err != nil {
			return nil, &StageError{Stage: StageExtracting, Op: "get attachment " + part.Filename, Err: err}
		}

		e.emitted[key] = struct{}{}
		records = append(records, Record{
			Name:      name,
			Key:       key,
			MessageID: msg.ID,
			Filename:  part.Filename,
			Data:      data,
		})
	}

	return records, nil
}

func (e *Extractor) seen(key string) bool {
	if e.index.Contains(key) {
		return true
	}
	_, ok := e.emitted[key]
	return ok
}

// Skipped returns how many attachments were skipped as already archived.
func (e *Extractor) Skipped() int {
	return e.skipped
}
