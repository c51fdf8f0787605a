package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresHTTPClient(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	assert.Error(t, err)
}

func TestListMessageIDs_Pagination(t *testing.T) {
	var queries []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gmail/v1/users/me/messages", r.URL.Path)
		queries = append(queries, r.URL.Query().Get("q"))

		switch r.URL.Query().Get("pageToken") {
		case "":
			writeJSON(t, w, gmail.ListMessagesResponse{
				Messages:      []*gmail.Message{{Id: "m1"}, {Id: "m2"}},
				NextPageToken: "page2",
			})
		case "page2":
			writeJSON(t, w, gmail.ListMessagesResponse{
				Messages: []*gmail.Message{{Id: "m3"}},
			})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	})

	query := `from:info@bcc.kz subject:"Выписка" has:attachment`
	ids, err := client.ListMessageIDs(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
	assert.Equal(t, []string{query, query}, queries)
}

func TestListMessageIDs_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, gmail.ListMessagesResponse{ResultSizeEstimate: 0})
	})

	ids, err := client.ListMessageIDs(context.Background(), "from:nobody")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestListMessageIDs_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	})

	_, err := client.ListMessageIDs(context.Background(), "q")
	require.Error(t, err)

	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Code)
}

func TestGetMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gmail/v1/users/me/messages/m1", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))

		writeJSON(t, w, gmail.Message{
			Id: "m1",
			Payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Headers: []*gmail.MessagePartHeader{
					{Name: "From", Value: "info@bcc.kz"},
					{Name: "Date", Value: "Tue, 02 Jan 2024 10:00:00 +0000"},
				},
				Parts: []*gmail.MessagePart{
					{
						PartId:   "0",
						MimeType: "text/plain",
						Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("hello")), Size: 5},
					},
					{
						PartId:   "1",
						MimeType: "application/pdf",
						Filename: "statement.pdf",
						Body:     &gmail.MessagePartBody{AttachmentId: "att1", Size: 1024},
					},
				},
			},
		})
	})

	msg, err := client.GetMessage(context.Background(), "m1")
	require.NoError(t, err)

	assert.Equal(t, "m1", msg.ID)
	date, ok := msg.Header("date")
	require.True(t, ok)
	assert.Equal(t, "Tue, 02 Jan 2024 10:00:00 +0000", date)

	require.Len(t, msg.Payload.Parts, 2)
	assert.Equal(t, []byte("hello"), msg.Payload.Parts[0].Body.Data)

	attachments := msg.Attachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "statement.pdf", attachments[0].Filename)
	assert.Equal(t, "att1", attachments[0].Body.AttachmentID)
	assert.Equal(t, int64(1024), attachments[0].Body.Size)
}

func TestGetAttachment(t *testing.T) {
	content := []byte{0x25, 0x50, 0x44, 0x46, 0xfb, 0xff}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gmail/v1/users/me/messages/m1/attachments/att1", r.URL.Path)
		writeJSON(t, w, gmail.MessagePartBody{
			Data: base64.URLEncoding.EncodeToString(content),
			Size: int64(len(content)),
		})
	})

	data, err := client.GetAttachment(context.Background(), "m1", "att1")
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestGetAttachment_DecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, gmail.MessagePartBody{Data: "+/8=", Size: 2})
	})

	_, err := client.GetAttachment(context.Background(), "m1", "att1")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestGetAttachment_MissingIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.GetAttachment(context.Background(), "", "att1")
	assert.Error(t, err)
	_, err = client.GetAttachment(context.Background(), "m1", "")
	assert.Error(t, err)
}

func TestClient_CanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, gmail.ListMessagesResponse{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListMessageIDs(ctx, "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "context canceled"))
}
