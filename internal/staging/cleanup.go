package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"disckit/internal/logging"
	"disckit/internal/merge"
	"disckit/internal/multidisc"
)

// CleanStaleResult contains the outcome of a stale leftover cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Leftover describes an interrupted consolidation directory or merge output
// found under the library.
type Leftover struct {
	Name    string
	Path    string
	IsDir   bool
	ModTime time.Time
	Size    int64
}

// ListLeftovers returns consolidation staging directories at the library root
// and partial merge outputs one level below it, sorted by path.
func ListLeftovers(libraryDir string) ([]Leftover, error) {
	libraryDir = strings.TrimSpace(libraryDir)
	if libraryDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(libraryDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var found []Leftover
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(libraryDir, entry.Name())
		if strings.HasPrefix(entry.Name(), multidisc.StagingPrefix) {
			if lo, ok := leftover(path, entry); ok {
				found = append(found, lo)
			}
			continue
		}
		children, err := os.ReadDir(path)
		if err != nil {
			continue
		}
		for _, child := range children {
			if child.IsDir() || !strings.HasPrefix(child.Name(), merge.TempPrefix) {
				continue
			}
			if lo, ok := leftover(filepath.Join(path, child.Name()), child); ok {
				found = append(found, lo)
			}
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

func leftover(path string, entry os.DirEntry) (Leftover, bool) {
	info, err := entry.Info()
	if err != nil {
		return Leftover{}, false
	}
	size := info.Size()
	if entry.IsDir() {
		size, _ = dirSize(path)
	}
	return Leftover{
		Name:    entry.Name(),
		Path:    path,
		IsDir:   entry.IsDir(),
		ModTime: info.ModTime(),
		Size:    size,
	}, true
}

// CleanStale removes leftovers older than maxAge. A non-positive maxAge
// removes every leftover. Cancellation stops the sweep between entries.
func CleanStale(ctx context.Context, libraryDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	found, err := ListLeftovers(libraryDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: libraryDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, lo := range found {
		if ctx.Err() != nil {
			break
		}
		if maxAge > 0 && !lo.ModTime.Before(cutoff) {
			continue
		}
		if lo.IsDir && holdsOriginals(lo.Path) {
			if logger != nil {
				logger.Warn("stale staging directory holds replaced originals",
					logging.String(logging.FieldPath, lo.Path),
					logging.String(logging.FieldEventType, "staging_cleanup_skipped"),
					logging.String(logging.FieldErrorHint, "move the files under "+multidisc.DisplacedDir+" back into their title directory"),
					logging.String(logging.FieldImpact, "directory kept for manual recovery"),
				)
			}
			continue
		}
		if err := os.RemoveAll(lo.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: lo.Path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale leftover",
					logging.String(logging.FieldPath, lo.Path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "staging_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check library_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, lo.Path)
		if logger != nil {
			logger.Info("removed stale leftover",
				logging.String(logging.FieldPath, lo.Path),
				logging.Duration("age", time.Since(lo.ModTime)),
				logging.Int64("bytes", lo.Size),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}

func holdsOriginals(path string) bool {
	info, err := os.Stat(filepath.Join(path, multidisc.DisplacedDir))
	return err == nil && info.IsDir()
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
