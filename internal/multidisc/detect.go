package multidisc

import (
	"path/filepath"

	"golang.org/x/text/cases"

	"disckit/internal/fileutil"
	"disckit/internal/textutil"
	"disckit/internal/title"
)

// ManifestName is the play-order list written into a consolidated directory.
const ManifestName = "MULTIDISC.LST"

// BaseName returns the title name with its disc marker removed.
func BaseName(name string) string {
	return textutil.StripDiscMarker(name)
}

func groupKey(name string) string {
	return cases.Fold().String(BaseName(name))
}

// IsMultiDisc reports whether t is a disc of a multi-disc release. A title is
// multi-disc when its directory carries a "(Disc N)" marker shared with at
// least one sibling of the same base name, or when it holds two or more track
// files marked "Disc N" and has not been consolidated yet.
func IsMultiDisc(t *title.Title, siblings []*title.Title) bool {
	return hasSiblingDiscs(t, siblings) || hasDiscTracks(t)
}

func hasSiblingDiscs(t *title.Title, siblings []*title.Title) bool {
	if _, ok := textutil.FindParenDiscMarker(t.DirectoryName); !ok {
		return false
	}
	key := groupKey(t.DirectoryName)
	parent := filepath.Dir(t.DirectoryPath)
	count := 0
	for _, s := range siblings {
		if filepath.Dir(s.DirectoryPath) != parent {
			continue
		}
		if _, ok := textutil.FindParenDiscMarker(s.DirectoryName); !ok {
			continue
		}
		if groupKey(s.DirectoryName) == key {
			count++
		}
	}
	if !containsTitle(siblings, t) {
		count++
	}
	return count >= 2
}

func hasDiscTracks(t *title.Title) bool {
	if fileutil.Exists(filepath.Join(t.DirectoryPath, ManifestName)) {
		return false
	}
	marked := 0
	for _, f := range t.TrackFiles {
		if _, ok := textutil.FindDiscMarker(stem(f.Name)); ok {
			marked++
		}
	}
	return marked >= 2
}

func containsTitle(list []*title.Title, t *title.Title) bool {
	for _, s := range list {
		if s == t || s.DirectoryPath == t.DirectoryPath {
			return true
		}
	}
	return false
}

func stem(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
