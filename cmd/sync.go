package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxvault/internal/archive"
	"github.com/teemow/inboxvault/internal/config"
	"github.com/teemow/inboxvault/internal/logging"
	"github.com/teemow/inboxvault/internal/server"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync and print the new files",
		Long: `Run a single sync outside the HTTP trigger. The result is printed to
stdout in the same form the trigger responds with. A failed run exits
non-zero and prints nothing to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg)
			return runSync(cmd.OutOrStdout(), cfg)
		},
	}
}

func runSync(out io.Writer, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := setupLogger(cfg, "sync")
	if err != nil {
		return err
	}

	provider, instrConfig, err := newInstrumentation(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	syncer, closeStore, err := buildSyncer(ctx, cfg, logger, provider, instrConfig.AuditLogging)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	result, err := syncer.Run(ctx)
	if err != nil {
		return err
	}
	return printResult(out, result)
}

// printResult writes result the way the trigger responds.
func printResult(out io.Writer, result *archive.Result) error {
	if result == nil || result.NewFiles == nil {
		result = &archive.Result{NewFiles: []archive.SignedFile{}}
	}
	return server.Encode(out, result)
}
