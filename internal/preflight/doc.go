// Package preflight provides readiness checks for the filesystem paths that
// disckit reads from and writes to.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before a batch run. If any check
//     fails, the run stops before touching a single title.
//   - The CLI "disckit config validate" command prints every result.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
