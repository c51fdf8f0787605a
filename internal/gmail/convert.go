package gmail

import (
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxvault/internal/mail"
)

// toMessage converts an API message. Headers come from the root part.
func toMessage(m *gmail.Message) *mail.Message {
	msg := &mail.Message{ID: m.Id}
	if m.Payload == nil {
		return msg
	}

	for _, h := range m.Payload.Headers {
		msg.Headers = append(msg.Headers, mail.Header{Name: h.Name, Value: h.Value})
	}
	msg.Payload = toPart(m.Payload)
	return msg
}

func toPart(p *gmail.MessagePart) *mail.Part {
	part := &mail.Part{
		PartID:   p.PartId,
		MimeType: p.MimeType,
		Filename: p.Filename,
	}

	if p.Body != nil {
		part.Body = mail.Body{
			AttachmentID: p.Body.AttachmentId,
			Size:         p.Body.Size,
		}
		// Inline bodies are not archived; a malformed one is left empty.
		if data, err := DecodeBase64URL(p.Body.Data); err == nil && len(data) > 0 {
			part.Body.Data = data
		}
	}

	for _, sub := range p.Parts {
		if sub != nil {
			part.Parts = append(part.Parts, toPart(sub))
		}
	}
	return part
}
