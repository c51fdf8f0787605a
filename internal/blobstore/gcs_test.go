package blobstore

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const testAccount = "archiver@project.iam.gserviceaccount.com"

// fakeBucket serves the subset of the Cloud Storage JSON API the store uses.
type fakeBucket struct {
	conflict  bool
	uploads   atomic.Int32
	listPages atomic.Int32
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/token":
		fmt.Fprint(w, `{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)

	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/b/bucket/o"):
		f.listPages.Add(1)
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"kind":"storage#objects","items":[{"name":"downloads/a"},{"name":"downloads/b"}],"nextPageToken":"p2"}`)
			return
		}
		fmt.Fprint(w, `{"kind":"storage#objects","items":[{"name":"downloads/c"}]}`)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/b/bucket/o"):
		f.uploads.Add(1)
		if r.URL.Query().Get("ifGenerationMatch") != "0" {
			http.Error(w, `{"error":{"code":400,"message":"missing precondition"}}`, http.StatusBadRequest)
			return
		}
		if f.conflict {
			w.WriteHeader(http.StatusPreconditionFailed)
			fmt.Fprint(w, `{"error":{"code":412,"message":"At least one of the pre-conditions you specified did not hold."}}`)
			return
		}
		fmt.Fprint(w, `{"bucket":"bucket","name":"downloads/new","size":"3","generation":"1"}`)

	default:
		http.NotFound(w, r)
	}
}

func serviceAccountJSON(t *testing.T, tokenURI string) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	creds, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "project",
		"private_key_id": "key-1",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   testAccount,
		"client_id":      "1",
		"token_uri":      tokenURI,
	})
	require.NoError(t, err)
	return creds
}

func newTestGCS(t *testing.T, fake *fakeBucket) *GCS {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewGCS(context.Background(), "bucket", serviceAccountJSON(t, srv.URL+"/token"),
		option.WithEndpoint(srv.URL+"/storage/v1/"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewGCS_RequiresServiceAccount(t *testing.T) {
	_, err := NewGCS(context.Background(), "bucket", []byte(`{"type":"authorized_user"}`))
	assert.Error(t, err)

	_, err = NewGCS(context.Background(), "", []byte(`{}`))
	assert.Error(t, err)
}

func TestGCS_ListKeysFollowsPages(t *testing.T) {
	fake := &fakeBucket{}
	store := newTestGCS(t, fake)

	keys, err := store.ListKeys(context.Background(), "downloads/")
	require.NoError(t, err)
	assert.Equal(t, []string{"downloads/a", "downloads/b", "downloads/c"}, keys)
	assert.Equal(t, int32(2), fake.listPages.Load())
}

func TestGCS_CreateIsConditional(t *testing.T) {
	fake := &fakeBucket{}
	store := newTestGCS(t, fake)

	require.NoError(t, store.Create(context.Background(), "downloads/new", []byte("pdf")))
	assert.Equal(t, int32(1), fake.uploads.Load())
}

func TestGCS_CreateConflict(t *testing.T) {
	store := newTestGCS(t, &fakeBucket{conflict: true})

	err := store.Create(context.Background(), "downloads/new", []byte("pdf"))
	assert.ErrorIs(t, err, ErrObjectExists)
}

func TestGCS_SignURL(t *testing.T) {
	store := newTestGCS(t, &fakeBucket{})
	assert.Equal(t, "bucket", store.Bucket())

	raw, err := store.SignURL("downloads/2024-01-02_m1_report.pdf", time.Now().Add(time.Hour))
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Contains(t, u.Path, "downloads/2024-01-02_m1_report.pdf")

	q := u.Query()
	assert.Equal(t, "GOOG4-RSA-SHA256", q.Get("X-Goog-Algorithm"))
	assert.True(t, strings.HasPrefix(q.Get("X-Goog-Credential"), testAccount+"/"))
	assert.NotEmpty(t, q.Get("X-Goog-Signature"))
	expiresIn, err := strconv.Atoi(q.Get("X-Goog-Expires"))
	require.NoError(t, err)
	assert.InDelta(t, 3600, expiresIn, 5)
}
