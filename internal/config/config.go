// Package config loads inboxvault settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const usageFormat = `inboxvault is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`

// Config is built once at startup and passed to the components that need it.
type Config struct {
	BucketName string `envconfig:"BUCKET_NAME" required:"true" desc:"Archive bucket"`
	Prefix     string `envconfig:"GCS_PREFIX" default:"downloads/bcc/" desc:"Object name prefix"`
	Sender     string `envconfig:"SENDER" default:"info@bcc.kz" desc:"Sender filter"`
	Subject    string `envconfig:"SUBJECT" default:"Выписка" desc:"Subject filter"`

	// Credentials is the service account JSON, or a path to it.
	Credentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS" required:"true" desc:"Service account JSON"`

	GmailToken              string `envconfig:"GMAIL_TOKEN" desc:"OAuth user token JSON"`
	GmailTokenObject        string `envconfig:"GMAIL_TOKEN_OBJECT" default:"token.json" desc:"Bucket object holding the user token"`
	GmailClientSecret       string `envconfig:"GMAIL_CLIENT_SECRET" desc:"OAuth client JSON"`
	GmailClientSecretObject string `envconfig:"GMAIL_CLIENT_SECRET_OBJECT" default:"client_secret.json" desc:"Bucket object holding the OAuth client"`

	SignedURLTTL time.Duration `envconfig:"SIGNED_URL_TTL" default:"60m" desc:"Signed URL lifetime"`

	Port        string `envconfig:"PORT" default:"8080" desc:"Trigger listen port"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090" desc:"Prometheus metrics listen address"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" desc:"debug, info, warn, or error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" desc:"json or text"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values envconfig cannot check on its own.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.BucketName) == "" {
		errs = append(errs, errors.New("BUCKET_NAME must not be empty"))
	}
	if strings.TrimSpace(c.Sender) == "" {
		errs = append(errs, errors.New("SENDER must not be empty"))
	}
	if strings.ContainsRune(c.Subject, '"') {
		errs = append(errs, errors.New("SUBJECT must not contain double quotes"))
	}
	if c.SignedURLTTL <= 0 {
		errs = append(errs, fmt.Errorf("SIGNED_URL_TTL must be positive, got %s", c.SignedURLTTL))
	}
	// V4 signed URLs are capped at seven days.
	if c.SignedURLTTL > 7*24*time.Hour {
		errs = append(errs, fmt.Errorf("SIGNED_URL_TTL must be at most 168h, got %s", c.SignedURLTTL))
	}
	if c.GmailToken == "" && c.GmailTokenObject == "" {
		errs = append(errs, errors.New("one of GMAIL_TOKEN or GMAIL_TOKEN_OBJECT is required"))
	}
	if c.GmailClientSecret == "" && c.GmailClientSecretObject == "" {
		errs = append(errs, errors.New("one of GMAIL_CLIENT_SECRET or GMAIL_CLIENT_SECRET_OBJECT is required"))
	}

	return errors.Join(errs...)
}

// CredentialsJSON returns the service account key. The variable normally
// holds the JSON itself; a value that is not a JSON object is read as a file path.
func (c *Config) CredentialsJSON() ([]byte, error) {
	v := strings.TrimSpace(c.Credentials)
	if strings.HasPrefix(v, "{") {
		return []byte(v), nil
	}
	data, err := os.ReadFile(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}
	return data, nil
}

// Addr returns the trigger listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort("", c.Port)
}

// Usage writes the environment variable table to w.
func Usage(w io.Writer) error {
	tabs := tabwriter.NewWriter(w, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef("", &Config{}, tabs, usageFormat); err != nil {
		return err
	}
	return tabs.Flush()
}
