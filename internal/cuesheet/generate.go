package cuesheet

import (
	"fmt"
	"strings"
)

// Generate renders entries in the canonical sheet layout. Tracks without
// index points get a single INDEX 01 00:00:00.
func Generate(entries []Entry) string {
	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "FILE \"%s\" BINARY\n", entry.File.Name)
		for _, track := range entry.Tracks {
			fmt.Fprintf(&b, "  TRACK %02d %s\n", track.Number, track.Type)
			if len(track.Indexes) == 0 {
				b.WriteString("    INDEX 01 00:00:00\n")
				continue
			}
			for _, idx := range track.Indexes {
				fmt.Fprintf(&b, "    INDEX %02d %s\n", idx.Number, idx.Offset)
			}
		}
	}
	return b.String()
}

// Synthesize builds one entry per track file, numbering tracks from 1 in the
// order given.
func Synthesize(files []TrackFile) []Entry {
	entries := make([]Entry, 0, len(files))
	for i, f := range files {
		entries = append(entries, Entry{
			File:   f,
			Tracks: []Track{{Number: i + 1, Type: SynthesizedTrackType}},
		})
	}
	return entries
}
