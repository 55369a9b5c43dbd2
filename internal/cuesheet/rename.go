package cuesheet

import "strings"

// RenameFiles rewrites the names on FILE lines according to mapping (old
// name to new name) and leaves every other line untouched, line endings
// included.
func RenameFiles(text string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return text
	}
	lines := strings.SplitAfter(text, "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		fields := strings.Fields(line)
		if len(fields) == 0 || !strings.EqualFold(fields[0], "FILE") {
			continue
		}
		name, ok := fileName(line)
		if !ok {
			continue
		}
		renamed, ok := mapping[name]
		if !ok {
			continue
		}
		first := strings.IndexByte(raw, '"')
		last := strings.LastIndexByte(raw, '"')
		lines[i] = raw[:first+1] + renamed + raw[last:]
	}
	return strings.Join(lines, "")
}
