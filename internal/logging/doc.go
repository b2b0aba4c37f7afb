// Package logging assembles the structured slog loggers used across the
// audio-processing tools.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers plus standardized field keys so
// pipeline stages tag log lines with recording IDs and stage names the same
// way everywhere. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
