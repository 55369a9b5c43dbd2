package multidisc

import (
	"cmp"
	"path/filepath"
	"slices"
	"strings"

	"disckit/internal/textutil"
	"disckit/internal/title"
)

// Kind says how a group was detected.
type Kind string

const (
	// KindSiblings groups separate "(Disc N)" directories.
	KindSiblings Kind = "siblings"
	// KindTracks renames "Disc N" track files inside one directory.
	KindTracks Kind = "tracks"
)

// Disc is one disc of a group: the files moved and renamed together.
type Disc struct {
	Index     int
	Number    int
	SourceDir string
	Files     []string
}

// Group is a set of titles holding the discs of one release.
type Group struct {
	Kind     Kind
	BaseName string
	Members  []*title.Title
	Discs    []Disc
}

// TargetName is the directory name the group is consolidated into.
func (g Group) TargetName() string {
	return textutil.RepairName(g.BaseName)
}

// TargetPath is the consolidated directory location.
func (g Group) TargetPath() string {
	if len(g.Members) == 0 {
		return ""
	}
	return filepath.Join(filepath.Dir(g.Members[0].DirectoryPath), g.TargetName())
}

// Plan splits a snapshot of titles into multi-disc groups and titles that
// stand alone. Groups are ordered by base name; discs inside a group by disc
// number, then by name. Members get each other's paths as related discs.
// Plan touches the filesystem only to list member directories.
func Plan(titles []*title.Title) ([]Group, []*title.Title) {
	bySiblings := make(map[string][]*title.Title)
	var keys []string
	var singles []*title.Title
	var trackGroups []Group

	for _, t := range titles {
		if hasSiblingDiscs(t, titles) {
			key := filepath.Dir(t.DirectoryPath) + "\x00" + groupKey(t.DirectoryName)
			if _, seen := bySiblings[key]; !seen {
				keys = append(keys, key)
			}
			bySiblings[key] = append(bySiblings[key], t)
			continue
		}
		if hasDiscTracks(t) {
			if g, ok := trackGroup(t); ok {
				trackGroups = append(trackGroups, g)
				continue
			}
		}
		singles = append(singles, t)
	}

	groups := make([]Group, 0, len(keys)+len(trackGroups))
	for _, key := range keys {
		groups = append(groups, siblingGroup(bySiblings[key]))
	}
	groups = append(groups, trackGroups...)
	slices.SortStableFunc(groups, func(a, b Group) int {
		return cmp.Compare(strings.ToLower(a.BaseName), strings.ToLower(b.BaseName))
	})
	return groups, singles
}

func siblingGroup(members []*title.Title) Group {
	members = slices.Clone(members)
	slices.SortStableFunc(members, func(a, b *title.Title) int {
		if c := cmp.Compare(textutil.DiscNumber(a.DirectoryName), textutil.DiscNumber(b.DirectoryName)); c != 0 {
			return c
		}
		return cmp.Compare(a.DirectoryName, b.DirectoryName)
	})
	g := Group{Kind: KindSiblings, BaseName: BaseName(members[0].DirectoryName), Members: members}
	for i, m := range members {
		m.DiscNumber = textutil.DiscNumber(m.DirectoryName)
		for _, other := range members {
			m.AddRelated(other.DirectoryPath)
		}
		g.Discs = append(g.Discs, Disc{
			Index:     i + 1,
			Number:    m.DiscNumber,
			SourceDir: m.DirectoryPath,
			Files:     discFiles(m.DirectoryPath),
		})
	}
	return g
}

func trackGroup(t *title.Title) (Group, bool) {
	numbers := make(map[int][]string)
	for _, name := range discFiles(t.DirectoryPath) {
		n := textutil.DiscNumber(stem(filepath.Base(name)))
		numbers[n] = append(numbers[n], name)
	}
	if len(numbers) < 2 {
		return Group{}, false
	}
	order := make([]int, 0, len(numbers))
	for n := range numbers {
		order = append(order, n)
	}
	slices.Sort(order)

	g := Group{Kind: KindTracks, BaseName: BaseName(t.DirectoryName), Members: []*title.Title{t}}
	for i, n := range order {
		g.Discs = append(g.Discs, Disc{Index: i + 1, Number: n, SourceDir: t.DirectoryPath, Files: numbers[n]})
	}
	return g, true
}
