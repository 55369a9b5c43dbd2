// Package cuesheet reads and writes the CUE sheet text files that describe
// how a title's track files are laid out.
//
// Parsing is forgiving: malformed TRACK lines are recorded as issues and
// skipped while the rest of the sheet is kept. A sheet with no FILE entries is
// invalid and can be replaced with entries synthesized from the track files
// found on disk. Generated sheets always use the canonical layout:
//
//	FILE "<name>" BINARY
//	  TRACK 01 MODE2/2352
//	    INDEX 01 00:00:00
package cuesheet
