// Package services defines shared utilities consumed by every processing step.
//
// Key responsibilities:
//   - Context helpers that stamp title names, step names, and batch run
//     identifiers for logging.
//   - Structured error markers (NotFound, IOFailure, ParseFailure,
//     ValidationFailure, Inconsistent) plus the Wrap helper that keeps the
//     marker and the underlying cause available to errors.Is.
//
// Use these helpers when wiring new steps so failure classification and
// observability stay uniform across the batch pipeline.
package services
