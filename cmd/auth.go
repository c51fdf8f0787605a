package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxvault/internal/blobstore"
	"github.com/teemow/inboxvault/internal/config"
	"github.com/teemow/inboxvault/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		clientSecretFile string
		outputFile       string
		upload           bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize read access to Gmail and save the user token",
		Long: `Run the OAuth consent flow for the Gmail account to archive from.

The command prints a URL to open in a browser, waits for the redirect on a
loopback address, and writes the resulting token to --output. With --upload
the token is also stored in the bucket under GMAIL_TOKEN_OBJECT, where the
trigger reads it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			secret, err := os.ReadFile(clientSecretFile)
			if err != nil {
				return fmt.Errorf("failed to read client secret: %w", err)
			}
			conf, err := google.OAuthConfigFromJSON(secret)
			if err != nil {
				return err
			}

			tok, err := google.Authorize(ctx, conf, printURL(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			data, err := google.MarshalToken(tok)
			if err != nil {
				return err
			}

			if err := os.WriteFile(outputFile, data, 0o600); err != nil {
				return fmt.Errorf("failed to write token: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Token saved to %s\n", outputFile)

			if !upload {
				return nil
			}
			return uploadToken(ctx, cmd.ErrOrStderr(), data)
		},
	}

	cmd.Flags().StringVar(&clientSecretFile, "client-secret", "client_secret.json", "OAuth client JSON downloaded from the Google Cloud console")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "token.json", "File to write the token to")
	cmd.Flags().BoolVar(&upload, "upload", false, "Also store the token in the bucket (needs BUCKET_NAME and GOOGLE_APPLICATION_CREDENTIALS)")

	return cmd
}

func printURL(w io.Writer) func(string) error {
	return func(url string) error {
		_, err := fmt.Fprintf(w, "Open the following URL in your browser to authorize access:\n\n%s\n\n", url)
		return err
	}
}

func uploadToken(ctx context.Context, w io.Writer, data []byte) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	saJSON, err := cfg.CredentialsJSON()
	if err != nil {
		return err
	}

	store, err := blobstore.NewGCS(ctx, cfg.BucketName, saJSON)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Write(ctx, cfg.GmailTokenObject, data); err != nil {
		return fmt.Errorf("failed to upload token: %w", err)
	}
	fmt.Fprintf(w, "Token uploaded to gs://%s/%s\n", cfg.BucketName, cfg.GmailTokenObject)
	return nil
}
