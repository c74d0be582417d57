// Package logging assembles structured slog loggers and formatting helpers used
// across subdetx.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, fans server output to a per-run JSON log file, and exposes
// context-aware helpers so request handling code tags log lines with request
// IDs. WarnWithContext enforces the event_type / error_hint / impact triple on
// every warning. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
package logging
