// Package logging assembles structured slog loggers and formatting helpers used
// across brainprep.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code tags log lines
// with run IDs, patient IDs, and stage names. NewNop provides a discarding
// logger for tests and wiring code that cannot fail.
package logging
