// Package cmd implements the command-line interface for inboxvault.
//
// This package provides the following commands:
//   - serve: Run the HTTP trigger that syncs attachments on GET /
//   - sync: Run one sync and print the result
//   - auth: Obtain a Gmail user token through the browser consent flow
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
