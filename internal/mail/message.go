// Package mail holds the source-independent message model the archive pipeline works on.
package mail

import "strings"

// Header is a single header field. Names are not unique within a message.
type Header struct {
	Name  string
	Value string
}

// Body references the content of a part. Attachment bodies are not inlined by the
// source; AttachmentID must be resolved with a second round trip.
type Body struct {
	AttachmentID string
	Data         []byte
	Size         int64
}

// Part is a node in a message's MIME structure.
type Part struct {
	PartID   string
	MimeType string
	Filename string
	Body     Body
	Parts    []*Part
}

// IsLeaf reports whether the part has no children.
func (p *Part) IsLeaf() bool {
	return len(p.Parts) == 0
}

// IsAttachment reports whether the part is a leaf carrying a named, fetchable attachment.
func (p *Part) IsAttachment() bool {
	return p.IsLeaf() && p.Filename != "" && p.Body.AttachmentID != ""
}

// Message is a mail message as returned by a source.
type Message struct {
	ID      string
	Headers []Header
	Payload *Part
}

// Header returns the value of the first header with the given name and whether it was present.
// Header names are compared case-insensitively.
func (m *Message) Header(name string) (string, bool) {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Walk calls fn for every part in depth-first document order, starting at the payload.
func (m *Message) Walk(fn func(*Part)) {
	walkParts(m.Payload, fn)
}

func walkParts(part *Part, fn func(*Part)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// Attachments returns the attachment parts of the message in document order.
func (m *Message) Attachments() []*Part {
	var parts []*Part
	m.Walk(func(p *Part) {
		if p.IsAttachment() {
			parts = append(parts, p)
		}
	})
	return parts
}
