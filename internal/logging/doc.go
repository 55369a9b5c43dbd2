// Package logging assembles structured slog loggers and formatting helpers used
// across disckit.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so processing steps can tag log
// lines with the title, step name, and batch run identifier. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
