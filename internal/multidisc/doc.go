// Package multidisc finds titles that are really discs of one release and
// folds them into a single directory the loader can switch between.
//
// Planning is a pure function over a snapshot of scanned titles. Consolidation
// applies one group at a time: renamed files are linked or copied into a
// hidden staging directory next to the target, checked, and only then swapped
// into place and removed from their source directories.
package multidisc
