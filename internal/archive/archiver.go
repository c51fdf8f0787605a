package archive

import (
	"context"
	"errors"
	"time"

	"github.com/teemow/inboxvault/internal/blobstore"
	"github.com/teemow/inboxvault/internal/instrumentation"
)

// DefaultURLTTL is the signed URL lifetime used when none is configured.
const DefaultURLTTL = 60 * time.Minute

// ErrAlreadyArchived reports that the object was created by someone else
// between the index snapshot and the write.
var ErrAlreadyArchived = errors.New("attachment already archived")

// SignedFile is one archived attachment as reported to the caller.
type SignedFile struct {
	Filename  string    `json:"filename"`
	SignedURL string    `json:"signed_url"`
	ExpiresAt time.Time `json:"-"`
}

// Archiver writes records and mints their download URLs.
type Archiver struct {
	store BlobStore
	ttl   time.Duration
	now   func() time.Time
}

// NewArchiver returns an archiver whose URLs expire ttl after signing.
func NewArchiver(store BlobStore, ttl time.Duration) *Archiver {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &Archiver{store: store, ttl: ttl, now: time.Now}
}

// Archive creates the object for rec and signs a GET URL for it.
// It returns ErrAlreadyArchived when the key was taken at write time.
func (a *Archiver) Archive(ctx context.Context, rec Record) (file SignedFile, err error) {
	ctx, span := instrumentation.StartSpan(ctx, "sync.archive_object",
		instrumentation.NewSpanAttributeBuilder().WithMessageID(rec.MessageID).WithObjectKey(rec.Key).Build()...)
	defer func() {
		if errors.Is(err, ErrAlreadyArchived) {
			span.AddEvent("object already exists")
			instrumentation.EndSpan(span, nil)
			return
		}
		instrumentation.EndSpan(span, err)
	}()

	if err := a.store.Create(ctx, rec.Key, rec.Data); err != nil {
		if errors.Is(err, blobstore.ErrObjectExists) {
			return SignedFile{}, ErrAlreadyArchived
		}
		return SignedFile{}, &StageError{Stage: StageArchiving, Op: "create object " + rec.Key, Err: err}
	}

	expires := a.now().Add(a.ttl)
	u, err := a.store.SignURL(rec.Key, expires)
	if err != nil {
		return SignedFile{}, &StageError{Stage: StageArchiving, Op: "sign url " + rec.Key, Err: err}
	}

	return SignedFile{
		Filename:  rec.Name,
		SignedURL: u,
		ExpiresAt: expires,
	}, nil
}
