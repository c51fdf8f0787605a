// Package logging provides structured logging utilities for inboxvault.
//
// All logging goes through log/slog. This package fixes the attribute names
// used across the sync pipeline and builds the process logger from the
// LOG_LEVEL and LOG_FORMAT settings.
//
// # Usage Patterns
//
// Tag a logger with the run it belongs to:
//
//	logger := logging.WithRunID(slog.Default(), runID)
//	logger.Info("attachment archived",
//	    logging.MessageID(msg.ID),
//	    logging.Key(key))
//
// # Security Considerations
//
// Signed URLs and OAuth tokens are credentials. Log them only through
// SanitizeURL and SanitizeToken.
package logging
