package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxvault/internal/instrumentation"
	"github.com/teemow/inboxvault/internal/mail"
)

const (
	// userID addresses the mailbox of the authorized user.
	userID = "me"

	// listPageSize is the largest page Messages.List accepts.
	listPageSize = 500
)

// Client wraps the Gmail Users service.
type Client struct {
	svc     *gmail.UsersService
	metrics *instrumentation.Metrics
}

// NewClient creates a Gmail client on top of an authorized HTTP client.
// opts are applied after the HTTP client option.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("an authorized HTTP client is required")
	}

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{svc: svc.Users}, nil
}

// SetMetrics enables Google API metrics for Gmail calls.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// ListMessageIDs returns the ids of all messages matching query, following every result page.
func (c *Client) ListMessageIDs(ctx context.Context, query string) (ids []string, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationList)
	defer func() { done(err) }()

	ids = []string{}
	pageToken := ""
	for {
		req := c.svc.Messages.List(userID).Q(query).MaxResults(listPageSize).Context(ctx)
		if pageToken != "" {
			req.PageToken(pageToken)
		}
		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			return ids, nil
		}
		pageToken = res.NextPageToken
	}
}

// GetMessage retrieves a message with its full part tree.
func (c *Client) GetMessage(ctx context.Context, id string) (msg *mail.Message, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationGet)
	defer func() { done(err) }()

	m, err := c.svc.Messages.Get(userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return toMessage(m), nil
}

// GetAttachment retrieves and decodes the content of an attachment.
// A payload that is not valid base64url yields ErrDecode.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) (data []byte, err error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	ctx, done := c.observe(ctx, instrumentation.OperationRead)
	defer func() { done(err) }()

	attachment, err := c.svc.Messages.Attachments.Get(userID, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	data, err = DecodeBase64URL(attachment.Data)
	if err != nil {
		return nil, fmt.Errorf("attachment %s of message %s: %w", attachmentID, messageID, err)
	}
	return data, nil
}

func (c *Client) observe(ctx context.Context, operation string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation)

	return ctx, func(err error) {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		instrumentation.EndSpan(span, err)
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))
	}
}
