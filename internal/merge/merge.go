package merge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"disckit/internal/backup"
	"disckit/internal/cuesheet"
	"disckit/internal/fileutil"
	"disckit/internal/logging"
	"disckit/internal/services"
	"disckit/internal/title"
)

const (
	// CopyBufferSize is the buffer used for each source copy.
	CopyBufferSize = 1 << 20
	// TempPrefix names in-progress merge outputs. Leftovers are removed by the
	// staging cleanup.
	TempPrefix = ".disckit-merge-"

	stageName = "merge"
)

// Result describes a completed merge.
type Result struct {
	OutputPath  string
	SheetPath   string
	Bytes       int64
	Tracks      []cuesheet.Track
	Removed     []string
	Synthesized bool
	Skipped     bool
}

// Merger merges title directories.
type Merger struct {
	backup backup.Policy
	logger *slog.Logger
}

// NewMerger builds a merger that backs the old sheet up per policy.
func NewMerger(policy backup.Policy, logger *slog.Logger) *Merger {
	return &Merger{backup: policy, logger: logging.NewComponentLogger(logger, stageName)}
}

type source struct {
	file   cuesheet.TrackFile
	layout cuesheet.FileLayout
}

// Merge merges the tracks of the title in dir. The sheet found in dir decides
// the order; without a usable sheet the directory's track files are merged in
// name order and tracks are synthesized. A title already reduced to its
// canonical track file is left alone.
func (m *Merger) Merge(ctx context.Context, dir string) (Result, error) {
	logger := logging.WithContext(services.WithStage(ctx, stageName), m.logger)
	name := filepath.Base(dir)
	canonical := filepath.Join(dir, name+title.TrackExtension)
	sheetPath := title.FindSheet(dir)

	sources, synthesized, err := m.plan(dir, sheetPath)
	if err != nil {
		return Result{}, err
	}
	if len(sources) == 1 && sources[0].file.Path == canonical {
		logger.Debug("merge skipped", logging.Args(logging.DecisionAttrs("merge", "skip", "single canonical track file")...)...)
		return Result{OutputPath: canonical, SheetPath: sheetPath, Skipped: true}, nil
	}
	for _, src := range sources {
		if !fileutil.Exists(src.file.Path) {
			return Result{}, services.Wrap(services.ErrNotFound, stageName, "resolve", "missing track file "+src.file.Name, nil)
		}
	}

	tmpPath, starts, total, err := concatenate(dir, sources)
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(tmpPath)

	tracks := mergedTracks(sources, starts)
	newSheet := filepath.Join(dir, name+title.SheetExtension)
	entries := []cuesheet.Entry{{
		File:   cuesheet.TrackFile{Name: filepath.Base(canonical), Path: canonical},
		Tracks: tracks,
	}}
	tmpSheet, err := stageSheet(tmpPath, entries)
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(tmpSheet)

	if sheetPath != "" {
		if _, err := m.backup.Save(sheetPath); err != nil {
			return Result{}, services.Wrap(services.ErrIO, stageName, "backup", sheetPath, err)
		}
	}
	if err := os.Rename(tmpPath, canonical); err != nil {
		return Result{}, services.Wrap(services.ErrIO, stageName, "replace", canonical, err)
	}
	if err := os.Rename(tmpSheet, newSheet); err != nil {
		return Result{}, services.Wrap(services.ErrIO, stageName, "replace sheet", newSheet, err)
	}

	result := Result{
		OutputPath:  canonical,
		SheetPath:   newSheet,
		Bytes:       total,
		Tracks:      tracks,
		Synthesized: synthesized,
	}
	var removeErrs []error
	for _, src := range sources {
		if src.file.Path == canonical {
			continue
		}
		if err := os.Remove(src.file.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			removeErrs = append(removeErrs, err)
			continue
		}
		result.Removed = append(result.Removed, src.file.Path)
	}
	if sheetPath != "" && sheetPath != newSheet {
		if err := os.Remove(sheetPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			removeErrs = append(removeErrs, err)
		}
	}
	if err := errors.Join(removeErrs...); err != nil {
		logging.WarnWithContext(logger, "merged image written but originals remain", "merge_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "title directory holds both merged and original track files"),
			logging.String(logging.FieldErrorHint, "remove the leftover track files by hand"),
		)
		return result, services.Wrap(services.ErrIO, stageName, "remove originals", dir, err)
	}

	logger.Info("tracks merged",
		logging.String(logging.FieldPath, canonical),
		logging.Int("sources", len(sources)),
		logging.Int("tracks", len(tracks)),
		logging.Int64("bytes", total),
		logging.Bool("synthesized", synthesized),
	)
	return result, nil
}

// stageSheet writes the sheet for the merged image beside the partial image,
// under the same hidden temporary name with a sheet extension.
func stageSheet(tmpImage string, entries []cuesheet.Entry) (string, error) {
	path := strings.TrimSuffix(tmpImage, title.TrackExtension) + title.SheetExtension
	if err := fileutil.WriteFileAtomic(path, []byte(cuesheet.Generate(entries)), 0o644); err != nil {
		return "", services.Wrap(services.ErrIO, stageName, "write sheet", path, err)
	}
	return path, nil
}

// plan resolves the ordered list of source files. The bool result reports
// whether the sheet was synthesized from the directory listing.
func (m *Merger) plan(dir, sheetPath string) ([]source, bool, error) {
	if sheetPath != "" {
		data, err := os.ReadFile(sheetPath)
		if err != nil {
			return nil, false, services.Wrap(services.ErrIO, stageName, "read sheet", sheetPath, err)
		}
		text := cuesheet.Decode(data)
		sheet := cuesheet.Parse(text, dir)
		if usable(sheet) {
			return fromSheet(sheet, text), false, nil
		}
	}
	files, err := title.TrackFiles(dir)
	if err != nil {
		return nil, false, err
	}
	if len(files) == 0 {
		return nil, false, services.Wrap(services.ErrInconsistent, stageName, "plan", "no track files to merge in "+dir, nil)
	}
	sources := make([]source, 0, len(files))
	for _, entry := range cuesheet.Synthesize(files) {
		sources = append(sources, source{
			file:   entry.File,
			layout: cuesheet.FileLayout{Name: entry.File.Name, Tracks: entry.Tracks},
		})
	}
	return sources, true, nil
}

func usable(sheet *cuesheet.Sheet) bool {
	if !sheet.Valid() {
		return false
	}
	for _, entry := range sheet.Entries {
		if entry.File.Name == "" {
			return false
		}
	}
	return true
}

// fromSheet pairs each sheet entry with the TRACK lines rescanned from the
// raw text. Tracks declared before any FILE line are kept with the first file.
func fromSheet(sheet *cuesheet.Sheet, text string) []source {
	layouts := cuesheet.ScanLayout(text)
	var orphans []cuesheet.Track
	named := layouts[:0:0]
	for _, l := range layouts {
		if l.Name == "" && len(named) == 0 {
			orphans = append(orphans, l.Tracks...)
			continue
		}
		named = append(named, l)
	}
	sources := make([]source, 0, len(sheet.Entries))
	for i, entry := range sheet.Entries {
		var l cuesheet.FileLayout
		if i < len(named) {
			l = named[i]
		}
		l.Name = entry.File.Name
		if i == 0 && len(orphans) > 0 {
			l.Tracks = append(orphans, l.Tracks...)
		}
		sources = append(sources, source{file: entry.File, layout: l})
	}
	return sources
}

// concatenate copies every source into a temporary file in dir and returns
// its path, the byte offset at which each source starts, and the total size.
func concatenate(dir string, sources []source) (string, []int64, int64, error) {
	tmp, err := os.CreateTemp(dir, TempPrefix+"*"+title.TrackExtension)
	if err != nil {
		return "", nil, 0, services.Wrap(services.ErrIO, stageName, "create output", dir, err)
	}
	tmpPath := tmp.Name()
	fail := func(op, msg string, err error) (string, []int64, int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", nil, 0, services.Wrap(services.ErrIO, stageName, op, msg, err)
	}

	w := bufio.NewWriterSize(tmp, CopyBufferSize)
	buf := make([]byte, CopyBufferSize)
	starts := make([]int64, 0, len(sources))
	var total int64
	for _, src := range sources {
		starts = append(starts, total)
		in, err := os.Open(src.file.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				_ = tmp.Close()
				_ = os.Remove(tmpPath)
				return "", nil, 0, services.Wrap(services.ErrNotFound, stageName, "open", src.file.Path, err)
			}
			return fail("open", src.file.Path, err)
		}
		n, err := io.CopyBuffer(w, in, buf)
		_ = in.Close()
		if err != nil {
			return fail("copy", src.file.Path, err)
		}
		total += n
	}
	if err := w.Flush(); err != nil {
		return fail("flush", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", nil, 0, services.Wrap(services.ErrIO, stageName, "close", tmpPath, err)
	}
	return tmpPath, starts, total, nil
}

// mergedTracks rebases every track's index points onto the merged image.
// Offsets are counted in sectors of the first track's type.
func mergedTracks(sources []source, starts []int64) []cuesheet.Track {
	var tracks []cuesheet.Track
	sectorSize := int64(cuesheet.SectorSize)
	for _, src := range sources {
		if len(src.layout.Tracks) > 0 {
			sectorSize = cuesheet.SectorSizeForType(src.layout.Tracks[0].Type)
			break
		}
	}
	next := 1
	for i, src := range sources {
		base := cuesheet.Timecode(starts[i] / sectorSize)
		layoutTracks := src.layout.Tracks
		if len(layoutTracks) == 0 {
			layoutTracks = []cuesheet.Track{{Number: next, Type: cuesheet.SynthesizedTrackType}}
		}
		for _, t := range layoutTracks {
			rebased := cuesheet.Track{Number: t.Number, Type: t.Type}
			if len(t.Indexes) == 0 {
				rebased.Indexes = []cuesheet.Index{{Number: 1, Offset: base}}
			}
			for _, idx := range t.Indexes {
				rebased.Indexes = append(rebased.Indexes, cuesheet.Index{Number: idx.Number, Offset: base + idx.Offset})
			}
			tracks = append(tracks, rebased)
			next = t.Number + 1
		}
	}
	return tracks
}

func (r Result) String() string {
	if r.Skipped {
		return "already merged"
	}
	return fmt.Sprintf("%d tracks merged into %s", len(r.Tracks), filepath.Base(r.OutputPath))
}
