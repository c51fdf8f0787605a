package archive

import (
	"context"
	"time"

	"github.com/teemow/inboxvault/internal/mail"
)

// MailSource is the mailbox the pipeline reads from.
type MailSource interface {
	// ListMessageIDs returns the ids of all messages matching query, across all result pages.
	ListMessageIDs(ctx context.Context, query string) ([]string, error)

	// GetMessage returns a message with its full part tree.
	GetMessage(ctx context.Context, id string) (*mail.Message, error)

	// GetAttachment returns the decoded bytes of an attachment.
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// BlobStore is the bucket attachments are archived into.
type BlobStore interface {
	KeyLister

	// Create writes data under key only if key does not exist yet and
	// returns blobstore.ErrObjectExists otherwise.
	Create(ctx context.Context, key string, data []byte) error

	// SignURL returns a read-only URL for key valid until expires.
	SignURL(key string, expires time.Time) (string, error)
}
