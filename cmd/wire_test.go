package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxvault/internal/archive"
	"github.com/teemow/inboxvault/internal/blobstore"
	"github.com/teemow/inboxvault/internal/config"
)

const (
	testClientSecret = `{"installed":{"client_id":"file-client","client_secret":"file-secret",` +
		`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
		`"redirect_uris":["http://localhost"]}}`
	testPythonToken = `{"token":"ya29.access","refresh_token":"1//refresh","token_uri":"https://oauth2.example/token",` +
		`"client_id":"embedded-client","client_secret":"embedded-secret","expiry":"2026-01-02T03:04:05.123456Z"}`
	testGoToken = `{"access_token":"ya29.go","token_type":"Bearer","refresh_token":"1//go"}`
)

type failingReader struct{ err error }

func (f failingReader) Read(context.Context, string) ([]byte, error) { return nil, f.err }

func testConfig() *config.Config {
	return &config.Config{
		GmailTokenObject:        "token.json",
		GmailClientSecretObject: "client_secret.json",
	}
}

func TestResolveOAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("objects from bucket", func(t *testing.T) {
		store := blobstore.NewMemory("b")
		require.NoError(t, store.Write(ctx, "token.json", []byte(testGoToken)))
		require.NoError(t, store.Write(ctx, "client_secret.json", []byte(testClientSecret)))

		conf, tok, err := resolveOAuth(ctx, testConfig(), store)
		require.NoError(t, err)
		assert.Equal(t, "file-client", conf.ClientID)
		assert.Equal(t, "ya29.go", tok.AccessToken)
		assert.Equal(t, "1//go", tok.RefreshToken)
	})

	t.Run("inline values win", func(t *testing.T) {
		cfg := testConfig()
		cfg.GmailToken = testGoToken
		cfg.GmailClientSecret = testClientSecret

		conf, tok, err := resolveOAuth(ctx, cfg, failingReader{err: errors.New("bucket unreachable")})
		require.NoError(t, err)
		assert.Equal(t, "file-client", conf.ClientID)
		assert.Equal(t, "ya29.go", tok.AccessToken)
	})

	t.Run("client embedded in token", func(t *testing.T) {
		store := blobstore.NewMemory("b")
		require.NoError(t, store.Write(ctx, "token.json", []byte(testPythonToken)))

		conf, tok, err := resolveOAuth(ctx, testConfig(), store)
		require.NoError(t, err)
		assert.Equal(t, "embedded-client", conf.ClientID)
		assert.Equal(t, "https://oauth2.example/token", conf.Endpoint.TokenURL)
		assert.Equal(t, "ya29.access", tok.AccessToken)
	})

	t.Run("no client anywhere", func(t *testing.T) {
		store := blobstore.NewMemory("b")
		require.NoError(t, store.Write(ctx, "token.json", []byte(testGoToken)))

		_, _, err := resolveOAuth(ctx, testConfig(), store)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client_secret.json")
	})

	t.Run("missing token", func(t *testing.T) {
		_, _, err := resolveOAuth(ctx, testConfig(), blobstore.NewMemory("b"))
		require.Error(t, err)
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("client secret read failure", func(t *testing.T) {
		cfg := testConfig()
		cfg.GmailToken = testPythonToken

		_, _, err := resolveOAuth(ctx, cfg, failingReader{err: errors.New("permission denied")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission denied")
	})
}

func TestApplyFlagOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("log-format", "", "")
	cmd.Flags().String("port", "", "")
	require.NoError(t, cmd.Flags().Parse([]string{"--log-level=debug", "--port=9000"}))

	cfg := &config.Config{LogLevel: "info", LogFormat: "json", Port: "8080", MetricsAddr: ":9090"}
	applyFlagOverrides(cmd, cfg)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestPrintResult(t *testing.T) {
	t.Run("files", func(t *testing.T) {
		var out bytes.Buffer
		err := printResult(&out, &archive.Result{NewFiles: []archive.SignedFile{
			{Filename: "выписка.pdf", SignedURL: "https://storage.example/o?a=1&b=2"},
		}})
		require.NoError(t, err)
		assert.Equal(t, "{\n  \"new_files\": [\n    {\n      \"filename\": \"выписка.pdf\",\n"+
			"      \"signed_url\": \"https://storage.example/o?a=1&b=2\"\n    }\n  ]\n}\n", out.String())
	})

	t.Run("empty", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printResult(&out, &archive.Result{}))
		assert.Equal(t, "{\n  \"new_files\": []\n}\n", out.String())
	})
}
