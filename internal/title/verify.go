package title

import (
	"errors"
	"fmt"

	"disckit/internal/cu2"
	"disckit/internal/fileutil"
	"disckit/internal/services"
	"disckit/internal/textutil"
)

// Check names reported by Verify.
const (
	CheckName      = "name"
	CheckTracks    = "tracks"
	CheckSheet     = "sheet"
	CheckCompanion = "companion"
	CheckCover     = "cover"
)

// Problem is one failed verification check.
type Problem struct {
	Check string
	Path  string
	Err   error
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s: %v", p.Check, p.Err)
}

func (p Problem) Unwrap() error { return p.Err }

// Verify checks that the files the title claims to have are on disk. A title
// carrying companion index files needs no sheet; otherwise the sheet must
// exist and every file it references must be present.
func Verify(t *Title) []Problem {
	var problems []Problem
	add := func(check, path string, marker error, msg string) {
		problems = append(problems, Problem{
			Check: check,
			Path:  path,
			Err:   services.Wrap(marker, stageName, "verify", msg, nil),
		})
	}

	if err := textutil.ValidateName(t.DirectoryName); err != nil {
		problems = append(problems, Problem{
			Check: CheckName,
			Path:  t.DirectoryPath,
			Err:   services.Wrap(services.ErrValidation, stageName, "verify", "directory name", err),
		})
	}
	if len(t.TrackFiles) == 0 {
		add(CheckTracks, t.DirectoryPath, services.ErrNotFound, "no track files")
	}

	if t.HasIndexFile {
		for _, f := range t.TrackFiles {
			if path := cu2.CompanionPath(f.Path); !fileutil.Exists(path) {
				add(CheckCompanion, path, services.ErrNotFound, "missing companion for "+f.Name)
			}
		}
	} else {
		switch {
		case t.SheetPath == "":
			add(CheckSheet, t.CanonicalSheetPath(), services.ErrNotFound, "no cue sheet")
		case !t.Sheet.Valid():
			add(CheckSheet, t.SheetPath, services.ErrInconsistent, "cue sheet declares no files")
		default:
			for _, entry := range t.Sheet.Entries {
				if entry.File.Name == "" {
					add(CheckSheet, t.SheetPath, services.ErrParse, "FILE entry without a quoted name")
					continue
				}
				if !fileutil.Exists(entry.File.Path) {
					add(CheckSheet, entry.File.Path, services.ErrNotFound, "sheet references missing file "+entry.File.Name)
				}
			}
		}
	}

	if t.HasCoverArt && !fileutil.Exists(t.CoverPath()) {
		add(CheckCover, t.CoverPath(), services.ErrNotFound, "cover image missing")
	}
	return problems
}

// VerifyError folds problems into a single error, or nil when there are none.
func VerifyError(problems []Problem) error {
	if len(problems) == 0 {
		return nil
	}
	errs := make([]error, 0, len(problems))
	for _, p := range problems {
		errs = append(errs, p)
	}
	return errors.Join(errs...)
}
