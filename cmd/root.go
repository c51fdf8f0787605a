package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxvault application
var rootCmd = newRootCmd()

// version will be set by main
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "inboxvault",
		Short: "Archives Gmail attachments from one sender into a GCS bucket",
		Long: `inboxvault scans a Gmail mailbox for messages from a configured sender with
a configured subject, stores every attachment it has not stored before in a
Google Cloud Storage bucket, and returns signed download links for the new
objects.

It can run as:
  - An HTTP trigger (default), where every GET / runs one sync
  - A one-shot command that prints the result of a single sync

Settings are read from the environment. Run "inboxvault serve --help-env"
for the list of variables.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error. Overrides LOG_LEVEL.")
	root.PersistentFlags().String("log-format", "", "Log format: json or text. Overrides LOG_FORMAT.")

	root.AddCommand(newServeCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newAuthCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxvault version %s\n" .Version}}`)

	// If no subcommand is provided, run the trigger server by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
