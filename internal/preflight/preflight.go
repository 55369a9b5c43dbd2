package preflight

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"disckit/internal/config"
	"disckit/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil || ctx.Err() != nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	if cfg.Paths.LibraryDir != "" {
		results = append(results, CheckFreeSpace("Library free space", cfg.Paths.LibraryDir, 0))
	}
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.Backup.Enabled && cfg.Backup.Dir != "" {
		results = append(results, CheckDirectoryAccess("Backup directory", cfg.Backup.Dir))
	}
	if cfg.Processing.CatalogEnabled && cfg.Paths.CatalogPath != "" {
		results = append(results, CheckDirectoryAccess("Catalog directory", filepath.Dir(cfg.Paths.CatalogPath)))
	}
	if cfg.Processing.ApplyCovers && cfg.Paths.CoversDir != "" {
		results = append(results, CheckDirectoryReadable("Covers directory", cfg.Paths.CoversDir))
	}

	return results
}

// Failed joins every failed check into a single validation error, or
// returns nil when all checks passed.
func Failed(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Passed {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
	}
	if len(errs) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "preflight", "run checks", "preflight failed", errors.Join(errs...))
}
