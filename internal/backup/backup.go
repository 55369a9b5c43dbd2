// Package backup copies files aside before disckit rewrites, patches, or
// deletes them.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"disckit/internal/config"
	"disckit/internal/fileutil"
)

// Suffix is appended to in-place backups.
const Suffix = ".backup"

// Policy says whether and where backups are written. A zero Policy takes no
// backups.
type Policy struct {
	Enabled bool
	Dir     string
}

// PolicyFromConfig extracts the backup policy from a loaded configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return Policy{}
	}
	return Policy{Enabled: cfg.Backup.Enabled, Dir: cfg.Backup.Dir}
}

var now = time.Now

// Save copies path aside and returns the backup location. It returns "" when
// backups are disabled or path does not exist. With a backup directory the
// copy lands in <dir>/<parent directory name>/<file name>; otherwise it sits
// beside the original as <file>.backup. Existing backups are never
// overwritten: a timestamp is added instead.
func (p Policy) Save(path string) (string, error) {
	if !p.Enabled {
		return "", nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("backup %s: is a directory", path)
	}

	target := path + Suffix
	if p.Dir != "" {
		dir := filepath.Join(p.Dir, filepath.Base(filepath.Dir(path)))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create backup directory: %w", err)
		}
		target = filepath.Join(dir, filepath.Base(path))
	}
	if fileutil.Exists(target) {
		target = fmt.Sprintf("%s.%s", target, now().UTC().Format("20060102T150405.000000000"))
	}
	if err := fileutil.CopyFileMode(path, target, info.Mode().Perm()); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("backup %s: %w", path, err)
	}
	return target, nil
}
