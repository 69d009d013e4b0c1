// Package logging provides opt-in file-based logging with rotation for qbashq.
// When the --debug-log flag is set, comprehensive logs are written to ~/.qbashq/logs/
// for debugging and troubleshooting.
//
// By default (without --debug-log), logging is minimal and goes to stderr only.
package logging
