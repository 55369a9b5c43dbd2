// Package cu2 writes the companion index files the PSIO loader reads in place
// of CUE sheets. Each track file gets its own single-track companion whose
// timecodes are derived purely from the track file's size.
package cu2

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"disckit/internal/backup"
	"disckit/internal/cuesheet"
	"disckit/internal/fileutil"
	"disckit/internal/logging"
	"disckit/internal/services"
)

const (
	// Extension is the companion index file extension.
	Extension = ".cu2"

	lineEnding = "\r\n"
	stageName  = "cu2"
)

// Layout holds the timecodes written to a companion file.
type Layout struct {
	Sectors int64
	Size    cuesheet.Timecode
	Data1   cuesheet.Timecode
	End     cuesheet.Timecode
}

// Compute derives the companion timecodes from a track file size. Partial
// trailing sectors are ignored.
func Compute(sizeBytes int64) Layout {
	sectors := sizeBytes / cuesheet.SectorSize
	return Layout{
		Sectors: sectors,
		Size:    cuesheet.Timecode(sectors),
		Data1:   cuesheet.Timecode(cuesheet.PregapFrames),
		End:     cuesheet.Timecode(sectors + cuesheet.PregapFrames),
	}
}

// Render formats a layout as companion file text.
func Render(l Layout) string {
	var b strings.Builder
	b.WriteString("ntracks 1" + lineEnding)
	fmt.Fprintf(&b, "size\t   %s%s", l.Size, lineEnding)
	fmt.Fprintf(&b, "data1\t   %s%s", l.Data1, lineEnding)
	b.WriteString(lineEnding)
	fmt.Fprintf(&b, "trk end\t %s", l.End)
	return b.String()
}

// CompanionPath returns the companion file path for a track file.
func CompanionPath(trackPath string) string {
	return strings.TrimSuffix(trackPath, filepath.Ext(trackPath)) + Extension
}

// WriteCompanion generates the companion file for the track at trackPath and
// returns its path along with the computed layout.
func WriteCompanion(trackPath string) (string, Layout, error) {
	info, err := os.Stat(trackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", Layout{}, services.Wrap(services.ErrNotFound, stageName, "stat", trackPath, err)
		}
		return "", Layout{}, services.Wrap(services.ErrIO, stageName, "stat", trackPath, err)
	}
	layout := Compute(info.Size())
	path := CompanionPath(trackPath)
	if err := fileutil.WriteFileAtomic(path, []byte(Render(layout)), 0o644); err != nil {
		return "", Layout{}, services.Wrap(services.ErrIO, stageName, "write", path, err)
	}
	return path, layout, nil
}

// Result lists what GenerateTitle wrote and removed.
type Result struct {
	Companions    []string
	RemovedSheets []string
}

// Generator produces companion files for whole titles.
type Generator struct {
	backup backup.Policy
	logger *slog.Logger
}

// NewGenerator builds a generator that backs sheets up per policy before
// removing them.
func NewGenerator(policy backup.Policy, logger *slog.Logger) *Generator {
	return &Generator{backup: policy, logger: logging.NewComponentLogger(logger, stageName)}
}

// GenerateTitle writes a companion for every track in trackPaths. Only when
// all of them are written are the CUE sheets in sheetPaths removed, so a
// title never ends up with neither format on disk.
func (g *Generator) GenerateTitle(ctx context.Context, trackPaths, sheetPaths []string) (Result, error) {
	logger := logging.WithContext(services.WithStage(ctx, stageName), g.logger)
	if len(trackPaths) == 0 {
		return Result{}, services.Wrap(services.ErrNotFound, stageName, "generate", "title has no track files", nil)
	}

	var result Result
	for _, track := range trackPaths {
		path, layout, err := WriteCompanion(track)
		if err != nil {
			return result, err
		}
		if layout.Sectors*cuesheet.SectorSize != fileSize(track) {
			logging.WarnWithContext(logger, "track size is not a whole number of sectors", "cu2_partial_sector",
				logging.String(logging.FieldPath, track),
				logging.String(logging.FieldImpact, "trailing partial sector ignored in companion timecodes"),
				logging.String(logging.FieldErrorHint, "verify the image is a raw 2352-byte sector dump"),
			)
		}
		logger.Debug("companion written",
			logging.String(logging.FieldPath, path),
			logging.String("size", layout.Size.String()),
			logging.String("end", layout.End.String()),
		)
		result.Companions = append(result.Companions, path)
	}

	for _, sheet := range sheetPaths {
		if err := cuesheet.Remove(sheet, g.backup); err != nil {
			return result, err
		}
		result.RemovedSheets = append(result.RemovedSheets, sheet)
	}
	logger.Info("companion index generated",
		logging.Int("tracks", len(result.Companions)),
		logging.Int("sheets_removed", len(result.RemovedSheets)),
	)
	return result, nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
