package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateCovers(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CatalogPath) == "" && c.Processing.CatalogEnabled {
		return errors.New("paths.catalog_path must be set when processing.catalog_enabled is true")
	}
	if c.Backup.Dir != "" && c.Paths.LibraryDir != "" {
		rel, err := filepath.Rel(c.Paths.LibraryDir, c.Backup.Dir)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("backup.dir %q must not be inside paths.library_dir", c.Backup.Dir)
		}
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if err := ensurePositiveMap(map[string]int{
		"processing.workers":             c.Processing.Workers,
		"processing.stale_staging_hours": c.Processing.StaleStagingHours,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCovers() error {
	if c.Covers.Width < 0 || c.Covers.Height < 0 {
		return errors.New("covers.width and covers.height must be >= 0")
	}
	if (c.Covers.Width == 0) != (c.Covers.Height == 0) {
		return errors.New("covers.width and covers.height must both be set or both be 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// RequireLibrary reports an error when no library directory is configured.
// Commands that scan titles call it; config-only commands do not.
func (c *Config) RequireLibrary() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("paths.library_dir is required. Set %s or edit %s (create with 'disckit config init')", LibraryDirEnv, defaultPath)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
