package ppf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"disckit/internal/backup"
	"disckit/internal/logging"
	"disckit/internal/services"
)

// Mode selects between applying and undoing a patch.
type Mode int

const (
	// Apply writes the patch data.
	Apply Mode = iota + 1
	// Undo restores the original bytes from PPF3 undo data.
	Undo
)

// Result summarises a patch run.
type Result struct {
	Version     int
	Description string
	FileID      string
	Records     int
	Warnings    []string
	BackupPath  string
}

// Patcher patches track files in place.
type Patcher struct {
	backup backup.Policy
	logger *slog.Logger
}

// NewPatcher builds a patcher that backs the track up per policy first.
func NewPatcher(policy backup.Policy, logger *slog.Logger) *Patcher {
	return &Patcher{backup: policy, logger: logging.NewComponentLogger(logger, stageName)}
}

// PatchFile applies or undoes the patch at patchPath on trackPath. Size and
// block check mismatches are reported as warnings, not errors.
func (p *Patcher) PatchFile(ctx context.Context, trackPath, patchPath string, mode Mode) (Result, error) {
	logger := logging.WithContext(services.WithStage(ctx, stageName), p.logger)
	patch, err := Load(patchPath)
	if err != nil {
		return Result{}, err
	}
	if mode == Undo && !patch.HasUndo {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "undo", "patch carries no undo data", nil)
	}

	f, err := os.OpenFile(trackPath, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, services.Wrap(services.ErrNotFound, stageName, "open", trackPath, err)
		}
		return Result{}, services.Wrap(services.ErrIO, stageName, "open", trackPath, err)
	}
	defer f.Close()

	result := Result{
		Version:     patch.Version,
		Description: patch.Description,
		FileID:      patch.FileID,
		Records:     len(patch.Records),
	}
	warnings, err := patch.Check(f)
	if err != nil {
		return result, services.Wrap(services.ErrIO, stageName, "check", trackPath, err)
	}
	result.Warnings = warnings
	for _, w := range warnings {
		logging.WarnWithContext(logger, w, "ppf_validation",
			logging.String(logging.FieldPath, trackPath),
			logging.String(logging.FieldImpact, "patch applied anyway; image may not match the patch"),
			logging.String(logging.FieldErrorHint, "confirm the patch targets this image and region"),
		)
	}

	backupPath, err := p.backup.Save(trackPath)
	if err != nil {
		return result, services.Wrap(services.ErrIO, stageName, "backup", trackPath, err)
	}
	result.BackupPath = backupPath

	if err := patch.ApplyTo(f, mode); err != nil {
		return result, services.Wrap(services.ErrIO, stageName, "write", trackPath, err)
	}
	if err := f.Sync(); err != nil {
		return result, services.Wrap(services.ErrIO, stageName, "sync", trackPath, err)
	}
	logger.Info("patch applied",
		logging.String(logging.FieldPath, trackPath),
		logging.Int("version", patch.Version),
		logging.Int("records", len(patch.Records)),
		logging.Bool("undo", mode == Undo),
		logging.String("description", patch.Description),
	)
	return result, nil
}

// Target is the image a patch is applied to.
type Target interface {
	io.ReaderAt
	io.WriterAt
	Stat() (os.FileInfo, error)
}

// Check compares the image against the patch's size and block check data.
func (p *Patch) Check(t Target) ([]string, error) {
	var warnings []string
	if p.Version == 2 {
		info, err := t.Stat()
		if err != nil {
			return nil, err
		}
		if info.Size() != p.ExpectedSize {
			warnings = append(warnings, "image size does not match the patch")
		}
	}
	if len(p.BlockCheck) > 0 {
		block := make([]byte, len(p.BlockCheck))
		n, err := t.ReadAt(block, p.BlockOffset())
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if !bytes.Equal(block[:n], p.BlockCheck) {
			warnings = append(warnings, "block check failed")
		}
	}
	return warnings, nil
}

// ApplyTo writes every record to t.
func (p *Patch) ApplyTo(t io.WriterAt, mode Mode) error {
	for _, r := range p.Records {
		data := r.Data
		if mode == Undo {
			data = r.Undo
		}
		if _, err := t.WriteAt(data, r.Offset); err != nil {
			return err
		}
	}
	return nil
}
