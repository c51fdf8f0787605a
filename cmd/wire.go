package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxvault/internal/archive"
	"github.com/teemow/inboxvault/internal/blobstore"
	"github.com/teemow/inboxvault/internal/config"
	"github.com/teemow/inboxvault/internal/gmail"
	"github.com/teemow/inboxvault/internal/google"
	"github.com/teemow/inboxvault/internal/instrumentation"
	"github.com/teemow/inboxvault/internal/logging"
)

// objectReader reads credential objects from the archive bucket.
type objectReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// applyFlagOverrides copies explicitly set flags over environment values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	override := func(name string, dst *string) {
		f := cmd.Flags().Lookup(name)
		if f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	override("log-level", &cfg.LogLevel)
	override("log-format", &cfg.LogFormat)
	override("port", &cfg.Port)
	override("metrics-addr", &cfg.MetricsAddr)
}

// setupLogger builds the process logger for the named command and makes it
// the slog default.
func setupLogger(cfg *config.Config, operation string) (*slog.Logger, error) {
	logger, err := logging.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logger = logging.WithOperation(logging.WithService(logger, "inboxvault"), operation)
	slog.SetDefault(logger)
	return logger, nil
}

// loadCredential returns the inline value when set, else the bucket object.
func loadCredential(ctx context.Context, objects objectReader, inline, object string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	return objects.Read(ctx, object)
}

// resolveOAuth loads the Gmail user token and the OAuth client that refreshes it.
// Tokens written by the Python client library embed the client, so a missing
// client secret object is not fatal.
func resolveOAuth(ctx context.Context, cfg *config.Config, objects objectReader) (*oauth2.Config, *oauth2.Token, error) {
	tokenJSON, err := loadCredential(ctx, objects, cfg.GmailToken, cfg.GmailTokenObject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load gmail token %q: %w", cfg.GmailTokenObject, err)
	}
	stored, err := google.ParseToken(tokenJSON)
	if err != nil {
		return nil, nil, err
	}

	secretJSON, err := loadCredential(ctx, objects, cfg.GmailClientSecret, cfg.GmailClientSecretObject)
	switch {
	case err == nil:
		conf, err := google.OAuthConfigFromJSON(secretJSON)
		if err != nil {
			return nil, nil, err
		}
		return conf, stored.Token, nil
	case errors.Is(err, blobstore.ErrNotFound):
		conf, confErr := stored.OAuthConfig()
		if confErr != nil {
			return nil, nil, fmt.Errorf("client secret object %q not found and %w", cfg.GmailClientSecretObject, confErr)
		}
		return conf, stored.Token, nil
	default:
		return nil, nil, fmt.Errorf("failed to load client secret %q: %w", cfg.GmailClientSecretObject, err)
	}
}

// buildSyncer connects to the bucket and Gmail and assembles the pipeline.
// The returned func releases the storage client.
func buildSyncer(ctx context.Context, cfg *config.Config, logger *slog.Logger, provider *instrumentation.Provider, audit instrumentation.AuditLoggingConfig) (*archive.Syncer, func() error, error) {
	saJSON, err := cfg.CredentialsJSON()
	if err != nil {
		return nil, nil, err
	}

	store, err := blobstore.NewGCS(ctx, cfg.BucketName, saJSON)
	if err != nil {
		return nil, nil, err
	}
	store.SetMetrics(provider.Metrics())

	conf, tok, err := resolveOAuth(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	logger.Debug("gmail credentials loaded",
		slog.String("client_id", conf.ClientID),
		slog.String("refresh_token", logging.SanitizeToken(tok.RefreshToken)),
		slog.Time("expiry", tok.Expiry))

	// Refreshes outlive any single request.
	httpClient := google.NewHTTPClient(context.WithoutCancel(ctx), conf, tok)
	mailbox, err := gmail.NewClient(ctx, httpClient)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	mailbox.SetMetrics(provider.Metrics())

	syncer := archive.NewSyncer(archive.Options{
		Prefix:  cfg.Prefix,
		Sender:  cfg.Sender,
		Subject: cfg.Subject,
		URLTTL:  cfg.SignedURLTTL,
	}, mailbox, store, logger)
	syncer.SetMetrics(provider.Metrics())
	syncer.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, audit))

	logger.Info("sync pipeline ready",
		slog.String("bucket", cfg.BucketName),
		slog.String("prefix", cfg.Prefix),
		logging.Domain(cfg.Sender))

	return syncer, store.Close, nil
}

// newInstrumentation starts the OpenTelemetry provider for this process.
func newInstrumentation(ctx context.Context) (*instrumentation.Provider, instrumentation.Config, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, instrConfig, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, instrConfig, nil
}
