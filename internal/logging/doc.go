// Package logging assembles structured slog loggers and formatting helpers used
// across mec.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so adapter runs automatically tag log lines
// with adapter names, run identifiers, source URLs, and event identifiers.
// NewNop provides a logger for tests and wiring code that cannot fail.
package logging
