// Package staging finds and removes the hidden leftovers an interrupted run
// leaves in the library: consolidation staging directories and partial merge
// outputs.
package staging
