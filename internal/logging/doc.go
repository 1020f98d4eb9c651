// Package logging provides a simple leveled logging interface for the
// media catalog ingestion tools.
//
// It supports the following log levels:
//   - DEBUG: Per-stage tracing of every ingested file
//   - INFO: Batch progress and imported files
//   - WARN: Per-file failures that do not stop a batch
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable and can
// be overridden at runtime with SetLevel (the CLI's --log-level flag).
// ForFile returns a logger that prefixes messages with the file being ingested.
package logging
