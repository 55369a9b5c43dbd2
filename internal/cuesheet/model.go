package cuesheet

// SynthesizedTrackType is the track type used when entries are built from
// track files instead of a sheet.
const SynthesizedTrackType = "MODE2/2352"

// TrackFile is one raw sector image file referenced by a sheet.
type TrackFile struct {
	Name string
	Path string
}

// Index is an INDEX point expressed in frames from the start of its file.
type Index struct {
	Number int
	Offset Timecode
}

// Track is a TRACK descriptor. Indexes is empty for tracks read by Parse;
// Generate then writes the default INDEX 01 00:00:00.
type Track struct {
	Number  int
	Type    string
	Indexes []Index
}

// Entry groups the tracks stored in one file.
type Entry struct {
	File   TrackFile
	Tracks []Track
}

// ParseIssue records a sheet line that could not be understood.
type ParseIssue struct {
	Line   int
	Text   string
	Reason string
}

// Sheet is a parsed CUE sheet.
type Sheet struct {
	FileName  string
	FilePath  string
	TitleName string
	Entries   []Entry
	Issues    []ParseIssue
}

// Valid reports whether the sheet declares at least one file.
func (s *Sheet) Valid() bool {
	return s != nil && len(s.Entries) > 0
}

// Tracks flattens the track descriptors of every entry in order.
func (s *Sheet) Tracks() []Track {
	if s == nil {
		return nil
	}
	var out []Track
	for _, e := range s.Entries {
		out = append(out, e.Tracks...)
	}
	return out
}

// FileNames lists the referenced file names in entry order.
func (s *Sheet) FileNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		names = append(names, e.File.Name)
	}
	return names
}
