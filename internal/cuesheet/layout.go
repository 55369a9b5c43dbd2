package cuesheet

import (
	"strconv"
	"strings"
)

// FileLayout lists the tracks, with their index points, declared under one
// FILE line.
type FileLayout struct {
	Name   string
	Tracks []Track
}

// ScanLayout re-reads sheet text for TRACK and INDEX lines. Unlike Parse it
// keeps index offsets and does not need a FILE line before the first TRACK;
// such tracks are reported under a layout with an empty name.
func ScanLayout(text string) []FileLayout {
	var layouts []FileLayout
	current := func() *FileLayout {
		if len(layouts) == 0 {
			layouts = append(layouts, FileLayout{})
		}
		return &layouts[len(layouts)-1]
	}
	for _, raw := range splitLines(text) {
		line := strings.TrimSpace(raw)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "FILE":
			name, _ := fileName(line)
			layouts = append(layouts, FileLayout{Name: name})
		case "TRACK":
			if len(fields) < 3 {
				continue
			}
			number, err := strconv.Atoi(fields[1])
			if err != nil {
				continue
			}
			l := current()
			l.Tracks = append(l.Tracks, Track{Number: number, Type: fields[2]})
		case "INDEX":
			if len(fields) < 3 {
				continue
			}
			l := current()
			if len(l.Tracks) == 0 {
				continue
			}
			number, err := strconv.Atoi(fields[1])
			if err != nil {
				continue
			}
			offset, err := ParseTimecode(fields[2])
			if err != nil {
				continue
			}
			t := &l.Tracks[len(l.Tracks)-1]
			t.Indexes = append(t.Indexes, Index{Number: number, Offset: offset})
		}
	}
	return layouts
}
