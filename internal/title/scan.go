package title

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"disckit/internal/services"
)

// Scan enumerates the title directories directly under root: every visible
// subdirectory holding at least one track file. Titles come back sorted by
// directory name.
func Scan(ctx context.Context, root string) ([]*Title, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "scan", root, err)
		}
		return nil, services.Wrap(services.ErrIO, stageName, "scan", root, err)
	}
	var titles []*Title
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		t, err := Load(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		if len(t.TrackFiles) == 0 {
			continue
		}
		titles = append(titles, t)
	}
	slices.SortFunc(titles, func(a, b *Title) int {
		return CompareNames(a.DirectoryName, b.DirectoryName)
	})
	return titles, nil
}
