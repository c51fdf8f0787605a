package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the duration of the test. envconfig treats a set but
// empty variable as a value, so defaults only apply to unset ones.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BUCKET_NAME", "statements")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", `{"type":"service_account"}`)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	unsetEnv(t, "GCS_PREFIX", "SENDER", "SUBJECT", "SIGNED_URL_TTL", "PORT",
		"GMAIL_TOKEN", "GMAIL_TOKEN_OBJECT", "GMAIL_CLIENT_SECRET", "GMAIL_CLIENT_SECRET_OBJECT",
		"METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "statements", c.BucketName)
	assert.Equal(t, "downloads/bcc/", c.Prefix)
	assert.Equal(t, "info@bcc.kz", c.Sender)
	assert.Equal(t, "Выписка", c.Subject)
	assert.Equal(t, "token.json", c.GmailTokenObject)
	assert.Equal(t, "client_secret.json", c.GmailClientSecretObject)
	assert.Equal(t, 60*time.Minute, c.SignedURLTTL)
	assert.Equal(t, ":8080", c.Addr())
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GCS_PREFIX", "archive/")
	t.Setenv("SENDER", "noreply@bank.example")
	t.Setenv("SUBJECT", "Statement")
	t.Setenv("SIGNED_URL_TTL", "15m")
	t.Setenv("PORT", "9000")
	unsetEnv(t, "GMAIL_TOKEN_OBJECT", "GMAIL_CLIENT_SECRET_OBJECT", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "archive/", c.Prefix)
	assert.Equal(t, "noreply@bank.example", c.Sender)
	assert.Equal(t, "Statement", c.Subject)
	assert.Equal(t, 15*time.Minute, c.SignedURLTTL)
	assert.Equal(t, ":9000", c.Addr())
}

func TestLoad_MissingRequired(t *testing.T) {
	unsetEnv(t, "BUCKET_NAME", "GOOGLE_APPLICATION_CREDENTIALS")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequired(t)
	unsetEnv(t, "GCS_PREFIX", "SENDER", "SUBJECT", "PORT")
	t.Setenv("SIGNED_URL_TTL", "an hour")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			BucketName:              "b",
			Sender:                  "info@bcc.kz",
			Subject:                 "Выписка",
			GmailTokenObject:        "token.json",
			GmailClientSecretObject: "client_secret.json",
			SignedURLTTL:            time.Hour,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero ttl", func(c *Config) { c.SignedURLTTL = 0 }, "SIGNED_URL_TTL must be positive"},
		{"ttl over a week", func(c *Config) { c.SignedURLTTL = 8 * 24 * time.Hour }, "at most 168h"},
		{"quoted subject", func(c *Config) { c.Subject = `a "b"` }, "double quotes"},
		{"blank sender", func(c *Config) { c.Sender = " " }, "SENDER"},
		{"no token source", func(c *Config) { c.GmailTokenObject = "" }, "GMAIL_TOKEN"},
		{"inline token", func(c *Config) { c.GmailTokenObject = ""; c.GmailToken = "{}" }, ""},
		{"no client source", func(c *Config) { c.GmailClientSecretObject = "" }, "GMAIL_CLIENT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUsage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Usage(&buf))
	assert.Contains(t, buf.String(), "BUCKET_NAME")
	assert.Contains(t, buf.String(), "SIGNED_URL_TTL")
}

func TestCredentialsJSON(t *testing.T) {
	inline := &Config{Credentials: ` {"type":"service_account"}`}
	data, err := inline.CredentialsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(data))

	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account","client_email":"a@b"}`), 0o600))
	data, err = (&Config{Credentials: path}).CredentialsJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "client_email")

	_, err = (&Config{Credentials: filepath.Join(t.TempDir(), "missing.json")}).CredentialsJSON()
	assert.Error(t, err)
}
