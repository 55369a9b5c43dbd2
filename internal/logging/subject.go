package logging

import "strings"

// FormatSubject builds the title/stage subject string used in console output.
func FormatSubject(title, stage string) string {
	title = strings.TrimSpace(title)
	stage = strings.TrimSpace(stage)
	switch {
	case title != "" && stage != "":
		return title + " · " + stage
	case title != "":
		return title
	default:
		return stage
	}
}
