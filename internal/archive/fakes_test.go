package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teemow/inboxvault/internal/blobstore"
	"github.com/teemow/inboxvault/internal/mail"
)

// fakeSource is an in-memory mailbox.
type fakeSource struct {
	mu sync.Mutex

	ids         []string
	messages    map[string]*mail.Message
	attachments map[string][]byte

	listErr       error
	getErr        error
	attachmentErr error

	// started is closed on the first ListMessageIDs call; the call then
	// blocks until release is closed. Both are optional.
	started chan struct{}
	release chan struct{}

	queries         []string
	messageCalls    int
	attachmentCalls []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		messages:    make(map[string]*mail.Message),
		attachments: make(map[string][]byte),
	}
}

// add registers a message with a Date header and one attachment per filename.
func (f *fakeSource) add(id, date string, filenames ...string) *mail.Message {
	msg := &mail.Message{ID: id, Payload: &mail.Part{MimeType: "multipart/mixed"}}
	if date != "" {
		msg.Headers = append(msg.Headers, mail.Header{Name: "Date", Value: date})
	}
	msg.Payload.Parts = append(msg.Payload.Parts, &mail.Part{MimeType: "text/plain", Body: mail.Body{Data: []byte("hi")}})

	for i, name := range filenames {
		attID := fmt.Sprintf("att-%s-%d", id, i)
		msg.Payload.Parts = append(msg.Payload.Parts, &mail.Part{
			PartID:   fmt.Sprint(i + 1),
			MimeType: "application/pdf",
			Filename: name,
			Body:     mail.Body{AttachmentID: attID},
		})
		f.attachments[id+"/"+attID] = []byte("content of " + name)
	}

	f.ids = append(f.ids, id)
	f.messages[id] = msg
	return msg
}

func (f *fakeSource) ListMessageIDs(ctx context.Context, query string) ([]string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	started, release := f.started, f.release
	if len(f.queries) > 1 {
		started = nil
	}
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}

	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.ids...), nil
}

func (f *fakeSource) GetMessage(ctx context.Context, id string) (*mail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messageCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return msg, nil
}

func (f *fakeSource) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attachmentCalls = append(f.attachmentCalls, attachmentID)
	if f.attachmentErr != nil {
		return nil, f.attachmentErr
	}
	data, ok := f.attachments[messageID+"/"+attachmentID]
	if !ok {
		return nil, fmt.Errorf("attachment %s not found", attachmentID)
	}
	return data, nil
}

func (f *fakeSource) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// countingStore wraps a Memory store and can hide objects from listing or
// fail operations.
type countingStore struct {
	*blobstore.Memory

	hideFromList bool
	createErr    error
	signErr      error

	mu        sync.Mutex
	listCalls int
	creates   int
}

func newCountingStore() *countingStore {
	return &countingStore{Memory: blobstore.NewMemory("bucket")}
}

func (s *countingStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()

	if s.hideFromList {
		return nil, nil
	}
	return s.Memory.ListKeys(ctx, prefix)
}

func (s *countingStore) Create(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	return s.Memory.Create(ctx, key, data)
}

func (s *countingStore) SignURL(key string, expires time.Time) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return s.Memory.SignURL(key, expires)
}

var errUpstream = errors.New("upstream unavailable")
