// Package workflow runs the library batch: every title directory under the
// library root is taken through the configured steps (name repair,
// identification, sheet fix, merge, multi-disc consolidation, companion index,
// cover art, catalogue, verification) and the outcome of each is reported.
//
// The Manager first plans multi-disc groups over a snapshot of the library,
// then runs units (one group or one stand-alone title) on a bounded worker
// pool. Members of a group always run inside the same unit. A failure is
// recorded on the title's Result and never stops the rest of the batch.
// Cancellation takes effect between units; a unit that has started runs to
// completion.
package workflow
