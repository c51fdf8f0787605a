package archive

import (
	"context"
)

// Query builds the mailbox search for messages from sender with subject that
// carry at least one attachment.
func Query(sender, subject string) string {
	return `from:` + sender + ` subject:"` + subject + `" has:attachment`
}

// Locator finds candidate messages.
type Locator struct {
	source MailSource
	query  string
}

// NewLocator returns a locator for messages from sender with subject.
func NewLocator(source MailSource, sender, subject string) *Locator {
	return &Locator{source: source, query: Query(sender, subject)}
}

// Query returns the search the locator runs.
func (l *Locator) Query() string {
	return l.query
}

// Locate returns matching message ids in source order. No match is an empty
// list. Attachment presence is left to the source.
func (l *Locator) Locate(ctx context.Context) ([]string, error) {
	ids, err := l.source.ListMessageIDs(ctx, l.query)
	if err != nil {
		return nil, &StageError{Stage: StageLocating, Op: "list messages", Err: err}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
