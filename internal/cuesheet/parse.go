package cuesheet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"disckit/internal/services"
)

const stageName = "cuesheet"

// Parse reads sheet text. FILE names are resolved against dir. Malformed
// lines are recorded in Sheet.Issues and parsing continues; a FILE line
// without a quoted name still opens an entry, with an empty name.
func Parse(text, dir string) *Sheet {
	sheet := &Sheet{}
	var current *Entry
	for lineNo, raw := range splitLines(text) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch strings.ToUpper(fields[0]) {
		case "FILE":
			name, ok := fileName(line)
			if !ok {
				sheet.Issues = append(sheet.Issues, ParseIssue{Line: lineNo + 1, Text: line, Reason: "FILE name is not quoted"})
			}
			file := TrackFile{Name: name}
			if name != "" {
				file.Path = filepath.Join(dir, name)
			}
			sheet.Entries = append(sheet.Entries, Entry{File: file})
			current = &sheet.Entries[len(sheet.Entries)-1]
		case "TRACK":
			if current == nil {
				sheet.Issues = append(sheet.Issues, ParseIssue{Line: lineNo + 1, Text: line, Reason: "TRACK before any FILE"})
				continue
			}
			if len(fields) < 3 {
				sheet.Issues = append(sheet.Issues, ParseIssue{Line: lineNo + 1, Text: line, Reason: "TRACK needs a number and a type"})
				continue
			}
			number, err := strconv.Atoi(fields[1])
			if err != nil {
				sheet.Issues = append(sheet.Issues, ParseIssue{Line: lineNo + 1, Text: line, Reason: fmt.Sprintf("track number %q is not numeric", fields[1])})
				continue
			}
			current.Tracks = append(current.Tracks, Track{Number: number, Type: fields[2]})
		}
	}
	return sheet
}

// ParseFile reads and parses the sheet at path. Track paths are resolved
// against the sheet's directory, whose base name becomes the title name.
func ParseFile(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "read", path, err)
		}
		return nil, services.Wrap(services.ErrIO, stageName, "read", path, err)
	}
	dir := filepath.Dir(path)
	sheet := Parse(Decode(data), dir)
	sheet.FileName = filepath.Base(path)
	sheet.FilePath = path
	sheet.TitleName = filepath.Base(dir)
	return sheet, nil
}

// fileName takes the text strictly between the first and last double quote.
// Missing or unbalanced quotes leave the name empty.
func fileName(line string) (string, bool) {
	first := strings.IndexByte(line, '"')
	last := strings.LastIndexByte(line, '"')
	if first < 0 || last <= first {
		return "", false
	}
	return line[first+1 : last], true
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
