// Package logging provides a simple leveled logging interface for the
// media converter service and CLI.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information, including relayed engine output
//   - INFO: General operational messages
//   - WARN: Warning conditions such as failed stale-file cleanup
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true.
package logging
