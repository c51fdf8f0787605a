package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxvault/internal/config"
	"github.com/teemow/inboxvault/internal/instrumentation"
	"github.com/teemow/inboxvault/internal/logging"
	"github.com/teemow/inboxvault/internal/server"
)

const startupTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		metricsEnabled bool
		helpEnv        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger",
		Long: `Start the HTTP trigger. Every GET / scans the mailbox, archives attachments
that are not yet in the bucket, and responds with signed links to the new
objects:

  {"new_files": [{"filename": "...", "signed_url": "..."}]}

Liveness and readiness are served on /healthz and /readyz. When the
Prometheus exporter is active, metrics are served on a separate address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if helpEnv {
				return config.Usage(cmd.OutOrStdout())
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg)
			return runServe(cfg, metricsEnabled)
		},
	}

	cmd.Flags().String("port", "", "Trigger listen port. Overrides PORT.")
	cmd.Flags().String("metrics-addr", "", "Metrics server address. Overrides METRICS_ADDR.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated address.")
	cmd.Flags().BoolVar(&helpEnv, "help-env", false, "List the environment variables and exit.")

	return cmd
}

func runServe(cfg *config.Config, metricsEnabled bool) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := setupLogger(cfg, "serve")
	if err != nil {
		return err
	}

	provider, instrConfig, err := newInstrumentation(shutdownCtx)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if metricsEnabled && provider.Enabled() && instrConfig.MetricsExporter == instrumentation.ExporterPrometheus {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		if err := startAndWait(metricsServer.Start); err != nil {
			return fmt.Errorf("metrics server failed to start: %w", err)
		}
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	syncer, closeStore, err := buildSyncer(shutdownCtx, cfg, logger, provider, instrConfig.AuditLogging)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("error closing storage client", logging.Err(err))
		}
	}()

	health := server.NewHealthChecker()
	trigger := server.NewTriggerHandler(syncer, health, logger)
	router := server.NewRouter(trigger, health, provider.Metrics())
	srv := server.New(cfg.Addr(), router, health)

	serverDone := make(chan error, 1)
	ready := make(chan struct{})
	go func() {
		serverDone <- srv.Start(ready)
	}()

	select {
	case <-ready:
		health.SetReady(true)
		logger.Info("trigger listening", slog.String("addr", srv.Addr()))
	case err := <-serverDone:
		return fmt.Errorf("trigger server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return fmt.Errorf("trigger server startup timed out")
	}

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("error shutting down trigger server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("trigger server stopped with error: %w", err)
		}
	}

	logger.Info("trigger server gracefully stopped")
	return nil
}

// startAndWait runs start in the background and waits until it signals
// ready, fails, or the startup timeout passes.
func startAndWait(start func(ready chan<- struct{}) error) error {
	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		if err := start(ready); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ready:
		return nil
	case err := <-errCh:
		return err
	case <-time.After(startupTimeout):
		return fmt.Errorf("startup timed out")
	}
}
