// Package title models the game titles found under a library root.
//
// A title is one directory holding raw track files, optionally a CUE sheet,
// companion index files and a cover image. Scan builds the in-memory model
// from disk; the processing steps mutate it as they change the directory, and
// Verify checks that what the model claims is actually present.
package title
