package title

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"disckit/internal/cu2"
	"disckit/internal/cuesheet"
	"disckit/internal/fileutil"
	"disckit/internal/services"
	"disckit/internal/textutil"
)

const (
	// TrackExtension marks raw sector image files.
	TrackExtension = ".bin"
	// SheetExtension marks CUE sheets.
	SheetExtension = ".cue"
	// CoverExtension is the format the loader displays.
	CoverExtension = ".bmp"

	stageName = "title"
)

// Title is one game directory under the library root.
type Title struct {
	DirectoryName    string
	DirectoryPath    string
	ProductID        string
	DiscNumber       int
	RelatedDiscPaths []string
	Sheet            *cuesheet.Sheet
	SheetPath        string
	TrackFiles       []cuesheet.TrackFile
	HasCoverArt      bool
	HasIndexFile     bool
}

// Load reads the title stored in dir.
func Load(dir string) (*Title, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "load", dir, err)
		}
		return nil, services.Wrap(services.ErrIO, stageName, "load", dir, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, stageName, "load", dir+" is not a directory", nil)
	}
	t := &Title{
		DirectoryName: filepath.Base(dir),
		DirectoryPath: dir,
	}
	t.DiscNumber = textutil.DiscNumber(t.DirectoryName)
	if err := t.Refresh(); err != nil {
		return nil, err
	}
	return t, nil
}

// Refresh re-reads the directory contents after a step changed them.
// ProductID and RelatedDiscPaths are kept.
func (t *Title) Refresh() error {
	files, err := TrackFiles(t.DirectoryPath)
	if err != nil {
		return err
	}
	t.TrackFiles = files
	t.SheetPath = FindSheet(t.DirectoryPath)
	t.Sheet = nil
	if t.SheetPath != "" {
		sheet, err := cuesheet.ParseFile(t.SheetPath)
		if err != nil {
			return err
		}
		t.Sheet = sheet
	}
	t.HasCoverArt = fileutil.Exists(t.CoverPath())
	t.HasIndexFile = len(files) > 0 && allCompanions(files)
	return nil
}

// Rename moves the title directory to newName within the same parent.
func (t *Title) Rename(newName string) error {
	target := filepath.Join(filepath.Dir(t.DirectoryPath), newName)
	if fileutil.Exists(target) {
		return services.Wrap(services.ErrValidation, stageName, "rename", "target exists: "+target, nil)
	}
	if err := os.Rename(t.DirectoryPath, target); err != nil {
		return services.Wrap(services.ErrIO, stageName, "rename", t.DirectoryPath, err)
	}
	t.DirectoryName = newName
	t.DirectoryPath = target
	return t.Refresh()
}

// PrimaryTrack returns the track file the product identifier is read from:
// the canonical <directory>.bin when present, else the first file the sheet
// references, else the first track file by name.
func (t *Title) PrimaryTrack() string {
	canonical := t.CanonicalTrackPath()
	for _, f := range t.TrackFiles {
		if f.Path == canonical {
			return canonical
		}
	}
	if t.Sheet.Valid() {
		first := t.Sheet.Entries[0].File
		if first.Name != "" && fileutil.Exists(first.Path) {
			return first.Path
		}
	}
	if len(t.TrackFiles) > 0 {
		return t.TrackFiles[0].Path
	}
	return ""
}

// CanonicalTrackPath is where a merged title keeps its single track file.
func (t *Title) CanonicalTrackPath() string {
	return filepath.Join(t.DirectoryPath, t.DirectoryName+TrackExtension)
}

// CanonicalSheetPath is where a rewritten sheet is stored.
func (t *Title) CanonicalSheetPath() string {
	return filepath.Join(t.DirectoryPath, t.DirectoryName+SheetExtension)
}

// CoverPath is where the loader expects the title's cover image.
func (t *Title) CoverPath() string {
	return filepath.Join(t.DirectoryPath, t.DirectoryName+CoverExtension)
}

// TrackPaths lists the absolute paths of the title's track files.
func (t *Title) TrackPaths() []string {
	paths := make([]string, 0, len(t.TrackFiles))
	for _, f := range t.TrackFiles {
		paths = append(paths, f.Path)
	}
	return paths
}

// SheetPaths lists every CUE sheet in the title directory.
func (t *Title) SheetPaths() []string {
	return listByExtension(t.DirectoryPath, SheetExtension)
}

// AddRelated records another directory holding a disc of the same release.
func (t *Title) AddRelated(path string) {
	if path == "" || path == t.DirectoryPath || slices.Contains(t.RelatedDiscPaths, path) {
		return
	}
	t.RelatedDiscPaths = append(t.RelatedDiscPaths, path)
	slices.Sort(t.RelatedDiscPaths)
}

// TrackFiles lists the raw track files in dir in natural name order, so
// "Track 2" sorts before "Track 10".
func TrackFiles(dir string) ([]cuesheet.TrackFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "list tracks", dir, err)
		}
		return nil, services.Wrap(services.ErrIO, stageName, "list tracks", dir, err)
	}
	var files []cuesheet.TrackFile
	for _, entry := range entries {
		if entry.IsDir() || hidden(entry.Name()) || !hasExtension(entry.Name(), TrackExtension) {
			continue
		}
		files = append(files, cuesheet.TrackFile{Name: entry.Name(), Path: filepath.Join(dir, entry.Name())})
	}
	slices.SortFunc(files, func(a, b cuesheet.TrackFile) int {
		return CompareNames(a.Name, b.Name)
	})
	return files, nil
}

// FindSheet returns <dir>/<dir name>.cue when it exists, else the first CUE
// sheet in the directory, else "".
func FindSheet(dir string) string {
	canonical := filepath.Join(dir, filepath.Base(dir)+SheetExtension)
	if fileutil.Exists(canonical) {
		return canonical
	}
	sheets := listByExtension(dir, SheetExtension)
	if len(sheets) == 0 {
		return ""
	}
	return sheets[0]
}

func listByExtension(dir, ext string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if !entry.IsDir() && !hidden(entry.Name()) && hasExtension(entry.Name(), ext) {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	slices.SortFunc(out, CompareNames)
	return out
}

// hidden names are work files such as partial merge output.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func hasExtension(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}

func allCompanions(files []cuesheet.TrackFile) bool {
	for _, f := range files {
		if !fileutil.Exists(cu2.CompanionPath(f.Path)) {
			return false
		}
	}
	return true
}
