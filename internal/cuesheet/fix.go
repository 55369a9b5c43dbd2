package cuesheet

import (
	"os"
	"path/filepath"

	"disckit/internal/backup"
	"disckit/internal/fileutil"
	"disckit/internal/services"
)

// FixResult reports what Fix did to a title's sheet.
type FixResult struct {
	Sheet      *Sheet
	Path       string
	Rewritten  bool
	Reason     string
	BackupPath string
}

// Fix checks the sheet at sheetPath against the track files present in dir.
// When the sheet is missing, declares no files, or references a file that
// does not exist, it is backed up per policy and replaced with entries
// synthesized from files. An empty sheetPath means <dir>/<dir name>.cue.
func Fix(dir, sheetPath string, files []TrackFile, policy backup.Policy) (FixResult, error) {
	if len(files) == 0 {
		return FixResult{}, services.Wrap(services.ErrNotFound, stageName, "fix", "no track files in "+dir, nil)
	}
	if sheetPath == "" {
		sheetPath = filepath.Join(dir, filepath.Base(dir)+".cue")
	}

	reason := ""
	sheet, err := ParseFile(sheetPath)
	switch {
	case err != nil && services.Kind(err) == services.KindNotFound:
		reason = "sheet missing"
	case err != nil:
		return FixResult{}, err
	case !sheet.Valid():
		reason = "sheet declares no files"
	default:
		for _, entry := range sheet.Entries {
			if entry.File.Name == "" {
				reason = "sheet has a FILE entry without a name"
				break
			}
			if !fileutil.Exists(entry.File.Path) {
				reason = "sheet references missing file " + entry.File.Name
				break
			}
		}
	}
	if reason == "" {
		return FixResult{Sheet: sheet, Path: sheetPath}, nil
	}

	backupPath, err := policy.Save(sheetPath)
	if err != nil {
		return FixResult{}, services.Wrap(services.ErrIO, stageName, "fix", "backup sheet", err)
	}
	entries := Synthesize(files)
	if err := fileutil.WriteFileAtomic(sheetPath, []byte(Generate(entries)), 0o644); err != nil {
		return FixResult{}, services.Wrap(services.ErrIO, stageName, "fix", "write sheet", err)
	}
	fixed := &Sheet{
		FileName:  filepath.Base(sheetPath),
		FilePath:  sheetPath,
		TitleName: filepath.Base(dir),
		Entries:   entries,
	}
	return FixResult{Sheet: fixed, Path: sheetPath, Rewritten: true, Reason: reason, BackupPath: backupPath}, nil
}

// WriteFile renders entries and atomically writes them to path.
func WriteFile(path string, entries []Entry) error {
	if err := fileutil.WriteFileAtomic(path, []byte(Generate(entries)), 0o644); err != nil {
		return services.Wrap(services.ErrIO, stageName, "write", path, err)
	}
	return nil
}

// Remove deletes the sheet at path after backing it up per policy.
func Remove(path string, policy backup.Policy) error {
	if _, err := policy.Save(path); err != nil {
		return services.Wrap(services.ErrIO, stageName, "remove", "backup sheet", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return services.Wrap(services.ErrIO, stageName, "remove", path, err)
	}
	return nil
}
