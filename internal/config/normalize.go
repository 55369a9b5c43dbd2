package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeBackup(); err != nil {
		return err
	}
	c.normalizeProcessing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		if value, ok := os.LookupEnv(LibraryDirEnv); ok {
			c.Paths.LibraryDir = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		c.Paths.CatalogPath = defaultCatalogPath
	}
	if c.Paths.CatalogPath, err = expandPath(c.Paths.CatalogPath); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	if c.Paths.CoversDir, err = expandPath(strings.TrimSpace(c.Paths.CoversDir)); err != nil {
		return fmt.Errorf("paths.covers_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackup() error {
	var err error
	if c.Backup.Dir, err = expandPath(strings.TrimSpace(c.Backup.Dir)); err != nil {
		return fmt.Errorf("backup.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProcessing() {
	if c.Processing.Workers == 0 {
		c.Processing.Workers = defaultWorkers
	}
	if c.Processing.StaleStagingHours == 0 {
		c.Processing.StaleStagingHours = defaultStaleStagingHours
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
