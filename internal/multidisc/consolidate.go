package multidisc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"disckit/internal/backup"
	"disckit/internal/cu2"
	"disckit/internal/cuesheet"
	"disckit/internal/fileutil"
	"disckit/internal/logging"
	"disckit/internal/services"
	"disckit/internal/title"
)

const (
	// StagingPrefix names the hidden directories consolidation builds in.
	// Leftovers are removed by the staging cleanup.
	StagingPrefix = ".disckit-staging-"

	// DisplacedDir holds the originals an in-place consolidation replaces
	// until the swap completes. The staging cleanup keeps any staging
	// directory that still has one.
	DisplacedDir = "displaced"

	manifestSeparator = "\r"
	stageName         = "multidisc"
)

// Result describes a consolidated group.
type Result struct {
	Target      string
	Manifest    string
	Tracks      []string
	Moved       int
	RemovedDirs []string
	Companions  []string
}

// Consolidator applies planned groups to disk.
type Consolidator struct {
	backup     backup.Policy
	companions *cu2.Generator
	logger     *slog.Logger
}

// NewConsolidator builds a consolidator. When companions is not nil a
// companion index is generated for every consolidated track file.
func NewConsolidator(policy backup.Policy, companions *cu2.Generator, logger *slog.Logger) *Consolidator {
	return &Consolidator{
		backup:     policy,
		companions: companions,
		logger:     logging.NewComponentLogger(logger, stageName),
	}
}

type rename struct {
	src   string
	dst   string
	sheet bool
	track bool
}

// Consolidate moves every disc of g into the group's target directory,
// renamed to "<base> Disc <n>", and writes the manifest. It returns the
// title loaded from the target directory. Any failure before the staged
// files are swapped into place leaves the source directories untouched, and
// originals are only deleted once every staged file is in place.
func (c *Consolidator) Consolidate(ctx context.Context, g Group) (*title.Title, Result, error) {
	ctx = services.WithStage(services.WithTitle(ctx, g.TargetName()), stageName)
	logger := logging.WithContext(ctx, c.logger)

	if len(g.Discs) == 0 || len(g.Members) == 0 {
		return nil, Result{}, services.Wrap(services.ErrInconsistent, stageName, "consolidate", "group has no discs", nil)
	}
	target := g.TargetPath()
	parent := filepath.Dir(target)
	inPlace := false
	for _, d := range g.Discs {
		if d.SourceDir == target {
			inPlace = true
		}
	}
	if !inPlace && fileutil.Exists(target) {
		return nil, Result{}, services.Wrap(services.ErrInconsistent, stageName, "consolidate", "target directory already exists: "+target, nil)
	}

	renames, tracks := assignNames(g)
	if err := checkNames(renames); err != nil {
		return nil, Result{}, err
	}

	staging := filepath.Join(parent, StagingPrefix+uuid.NewString())
	if err := os.Mkdir(staging, 0o755); err != nil {
		return nil, Result{}, services.Wrap(services.ErrIO, stageName, "create staging", staging, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	if err := c.stage(staging, renames); err != nil {
		return nil, Result{}, err
	}
	manifest := strings.Join(tracks, manifestSeparator)
	if err := fileutil.WriteFileAtomic(filepath.Join(staging, ManifestName), []byte(manifest), 0o644); err != nil {
		return nil, Result{}, services.Wrap(services.ErrIO, stageName, "write manifest", staging, err)
	}

	result := Result{Target: target, Manifest: filepath.Join(target, ManifestName), Tracks: tracks, Moved: len(renames)}
	if inPlace {
		replaced, err := swapInPlace(staging, target, renames)
		if err != nil {
			if errors.Is(err, errRollback) {
				committed = true
			}
			return nil, result, err
		}
		committed = true
		if err := removeSources(renames, replaced); err != nil {
			return nil, result, services.Wrap(services.ErrIO, stageName, "remove originals", target, err)
		}
		if err := os.RemoveAll(staging); err != nil {
			logging.WarnWithContext(logger, "staging directory not removed", "multidisc_staging_kept",
				logging.String(logging.FieldPath, staging),
				logging.Error(err),
				logging.String(logging.FieldImpact, "replaced originals still take disk space"),
				logging.String(logging.FieldErrorHint, "delete the directory by hand"),
			)
		}
	} else {
		if err := os.Rename(staging, target); err != nil {
			return nil, result, services.Wrap(services.ErrIO, stageName, "rename staging", target, err)
		}
		committed = true
		if err := removeSources(renames, nil); err != nil {
			return nil, result, services.Wrap(services.ErrIO, stageName, "remove originals", target, err)
		}
	}

	for _, d := range g.Discs {
		if d.SourceDir == target || slices.Contains(result.RemovedDirs, d.SourceDir) {
			continue
		}
		if err := os.Remove(d.SourceDir); err != nil {
			logging.WarnWithContext(logger, "source directory not removed", "multidisc_source_kept",
				logging.String(logging.FieldPath, d.SourceDir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "leftover files remain in the old disc directory"),
				logging.String(logging.FieldErrorHint, "review and delete the directory by hand"),
			)
			continue
		}
		result.RemovedDirs = append(result.RemovedDirs, d.SourceDir)
	}

	consolidated, err := title.Load(target)
	if err != nil {
		return nil, result, err
	}
	consolidated.ProductID = g.Members[0].ProductID
	consolidated.DiscNumber = 1
	for _, m := range g.Members {
		if m.DirectoryPath != target {
			consolidated.AddRelated(m.DirectoryPath)
		}
	}

	if c.companions != nil {
		gen, err := c.companions.GenerateTitle(ctx, consolidated.TrackPaths(), consolidated.SheetPaths())
		if err != nil {
			return consolidated, result, err
		}
		result.Companions = gen.Companions
		if err := consolidated.Refresh(); err != nil {
			return consolidated, result, err
		}
	}

	logger.Info("discs consolidated",
		logging.String(logging.FieldPath, target),
		logging.String("kind", string(g.Kind)),
		logging.Int("discs", len(g.Discs)),
		logging.Int("files", result.Moved),
		logging.Bool("in_place", inPlace),
	)
	return consolidated, result, nil
}

// stage links or copies every renamed file into staging and checks sizes.
// Sheets are rewritten so their FILE lines name the renamed track files.
func (c *Consolidator) stage(staging string, renames []rename) error {
	mapping := make(map[string]map[string]string)
	for _, r := range renames {
		if !r.track {
			continue
		}
		dir := filepath.Dir(r.src)
		if mapping[dir] == nil {
			mapping[dir] = make(map[string]string)
		}
		mapping[dir][filepath.Base(r.src)] = r.dst
	}

	for _, r := range renames {
		dst := filepath.Join(staging, r.dst)
		if r.sheet {
			if err := c.backupSheet(staging, r); err != nil {
				return err
			}
			data, err := os.ReadFile(r.src)
			if err != nil {
				return services.Wrap(services.ErrIO, stageName, "read sheet", r.src, err)
			}
			text := cuesheet.RenameFiles(cuesheet.Decode(data), mapping[filepath.Dir(r.src)])
			if err := fileutil.WriteFileAtomic(dst, []byte(text), 0o644); err != nil {
				return services.Wrap(services.ErrIO, stageName, "stage sheet", dst, err)
			}
			continue
		}
		if _, err := fileutil.LinkOrCopy(r.src, dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return services.Wrap(services.ErrNotFound, stageName, "stage", r.src, err)
			}
			return services.Wrap(services.ErrIO, stageName, "stage", r.src, err)
		}
		if err := sameSize(r.src, dst); err != nil {
			return services.Wrap(services.ErrIO, stageName, "verify", dst, err)
		}
	}
	return nil
}

// backupSheet saves the original of a sheet about to be rewritten. Without a
// backup directory the copy is staged beside the rewritten sheet, since the
// source directory is going away.
func (c *Consolidator) backupSheet(staging string, r rename) error {
	if !c.backup.Enabled {
		return nil
	}
	if c.backup.Dir != "" {
		if _, err := c.backup.Save(r.src); err != nil {
			return services.Wrap(services.ErrIO, stageName, "backup sheet", r.src, err)
		}
		return nil
	}
	if err := fileutil.CopyFile(r.src, filepath.Join(staging, r.dst+backup.Suffix)); err != nil {
		return services.Wrap(services.ErrIO, stageName, "backup sheet", r.src, err)
	}
	return nil
}

func sameSize(a, b string) error {
	ai, err := os.Stat(a)
	if err != nil {
		return err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return err
	}
	if ai.Size() != bi.Size() {
		return fmt.Errorf("size mismatch: %d != %d", ai.Size(), bi.Size())
	}
	return nil
}

// removeSources deletes the original files, skipping paths that now hold a
// consolidated file.
func removeSources(renames []rename, keep map[string]bool) error {
	var errs []error
	for _, r := range renames {
		if keep[r.src] {
			continue
		}
		if err := os.Remove(r.src); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var errRollback = errors.New("rollback incomplete")

// swapInPlace moves the staged files into target. Originals that a staged
// file replaces are parked in the staging directory's DisplacedDir until
// every staged file is in place, so a failure can put them back. It returns
// the target paths now holding consolidated files.
func swapInPlace(staging, target string, renames []rename) (map[string]bool, error) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, stageName, "read staging", staging, err)
	}
	sources := make(map[string]bool, len(renames))
	for _, r := range renames {
		sources[r.src] = true
	}

	var displace []string
	for _, entry := range entries {
		name := entry.Name()
		dst := filepath.Join(target, name)
		info, err := os.Lstat(dst)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, services.Wrap(services.ErrIO, stageName, "check target", dst, err)
		}
		replaceable := sources[dst] || name == ManifestName
		if !replaceable || !info.Mode().IsRegular() {
			return nil, services.Wrap(services.ErrInconsistent, stageName, "check target",
				"target already holds "+dst, nil)
		}
		displace = append(displace, name)
	}

	parked := filepath.Join(staging, DisplacedDir)
	if err := os.Mkdir(parked, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, stageName, "create staging", parked, err)
	}

	var moved, promoted []string
	rollback := func(cause error, op, path string) error {
		var errs []error
		for i := len(promoted) - 1; i >= 0; i-- {
			name := promoted[i]
			if err := os.Rename(filepath.Join(target, name), filepath.Join(staging, name)); err != nil {
				errs = append(errs, err)
			}
		}
		for _, name := range moved {
			if err := os.Rename(filepath.Join(parked, name), filepath.Join(target, name)); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return services.Wrap(services.ErrIO, stageName, op,
				"originals kept in "+parked, errors.Join(cause, errRollback, errors.Join(errs...)))
		}
		return services.Wrap(services.ErrIO, stageName, op, path, cause)
	}

	for _, name := range displace {
		if err := os.Rename(filepath.Join(target, name), filepath.Join(parked, name)); err != nil {
			return nil, rollback(err, "park original", filepath.Join(target, name))
		}
		moved = append(moved, name)
	}
	for _, entry := range entries {
		name := entry.Name()
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(target, name)); err != nil {
			return nil, rollback(err, "promote staged file", filepath.Join(target, name))
		}
		promoted = append(promoted, name)
	}

	replaced := make(map[string]bool, len(promoted))
	for _, name := range promoted {
		replaced[filepath.Join(target, name)] = true
	}
	return replaced, nil
}

// assignNames maps every disc file to its consolidated name and returns the
// renamed track files in play order. Track files follow the order of the
// disc's sheet when it has one.
func assignNames(g Group) ([]rename, []string) {
	base := g.TargetName()
	var renames []rename
	var tracks []string
	for _, d := range g.Discs {
		discStem := fmt.Sprintf("%s Disc %d", base, d.Index)
		var trackFiles, sheets, companions []string
		for _, f := range d.Files {
			switch strings.ToLower(filepath.Ext(f)) {
			case title.TrackExtension:
				trackFiles = append(trackFiles, f)
			case title.SheetExtension:
				sheets = append(sheets, f)
			case cu2.Extension:
				companions = append(companions, f)
			}
		}
		trackFiles = sheetOrder(trackFiles, sheets)

		stems := make(map[string]string, len(trackFiles))
		for i, f := range trackFiles {
			newStem := discStem
			if len(trackFiles) > 1 {
				newStem = fmt.Sprintf("%s (Track %d)", discStem, i+1)
			}
			stems[stem(f)] = newStem
			name := newStem + filepath.Ext(f)
			renames = append(renames, rename{src: f, dst: name, track: true})
			tracks = append(tracks, name)
		}
		for _, f := range companions {
			if newStem, ok := stems[stem(f)]; ok {
				renames = append(renames, rename{src: f, dst: newStem + filepath.Ext(f)})
			}
		}
		for i, f := range sheets {
			name := discStem + filepath.Ext(f)
			if i > 0 {
				name = fmt.Sprintf("%s (%d)%s", discStem, i+1, filepath.Ext(f))
			}
			renames = append(renames, rename{src: f, dst: name, sheet: true})
		}
	}
	return renames, tracks
}

// sheetOrder puts the track files referenced by the first sheet first, in
// sheet order, followed by the rest in name order.
func sheetOrder(files, sheets []string) []string {
	if len(sheets) == 0 || len(files) < 2 {
		return files
	}
	sheet, err := cuesheet.ParseFile(sheets[0])
	if err != nil || !sheet.Valid() {
		return files
	}
	ordered := make([]string, 0, len(files))
	for _, entry := range sheet.Entries {
		if slices.Contains(files, entry.File.Path) && !slices.Contains(ordered, entry.File.Path) {
			ordered = append(ordered, entry.File.Path)
		}
	}
	for _, f := range files {
		if !slices.Contains(ordered, f) {
			ordered = append(ordered, f)
		}
	}
	return ordered
}

func checkNames(renames []rename) error {
	seen := make(map[string]string, len(renames))
	for _, r := range renames {
		key := strings.ToLower(r.dst)
		if prev, ok := seen[key]; ok {
			return services.Wrap(services.ErrInconsistent, stageName, "plan names",
				fmt.Sprintf("%s and %s both map to %s", prev, r.src, r.dst), nil)
		}
		seen[key] = r.src
	}
	return nil
}

// discFiles lists the track, sheet and companion files in dir in name order.
func discFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case title.TrackExtension, title.SheetExtension, cu2.Extension:
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	slices.SortFunc(files, title.CompareNames)
	return files
}

// ReadManifest returns the track file names listed in a manifest.
func ReadManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "read manifest", path, err)
		}
		return nil, services.Wrap(services.ErrIO, stageName, "read manifest", path, err)
	}
	var names []string
	for _, line := range strings.FieldsFunc(string(data), func(r rune) bool { return r == '\r' || r == '\n' }) {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}
