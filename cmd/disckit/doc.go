// Package main hosts the disckit CLI entrypoint and command graph.
//
// The Cobra-based command tree exposes the batch workflow ("process") and
// every engine step as a standalone command (identify, fix-cue, merge, cu2,
// multidisc, sanitize, verify, patch, cover) plus catalogue maintenance and
// configuration scaffolding. It centralizes configuration resolution and
// logger setup so subcommands only wire arguments to internal packages.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it here.
package main
