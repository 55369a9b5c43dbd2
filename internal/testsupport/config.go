package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"disckit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Cover art and the catalogue are off unless an option turns them on, so
// tests only touch what they ask for.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "logs", "catalog.db")
	cfgVal.Paths.CoversDir = filepath.Join(base, "covers")
	cfgVal.Processing.Workers = 1
	cfgVal.Processing.ApplyCovers = false
	cfgVal.Processing.CatalogEnabled = false
	cfgVal.Processing.IdentifyISOFallback = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, dir := range []string{builder.cfg.Paths.LibraryDir, builder.cfg.Paths.CoversDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return builder.cfg
}

// WithWorkers overrides the batch worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processing.Workers = n
	}
}

// WithBackupDir stores backups under a dedicated directory instead of beside
// the original files.
func WithBackupDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backup.Enabled = true
		b.cfg.Backup.Dir = filepath.Join(b.baseDir, "backups")
	}
}

// WithoutBackups disables backups.
func WithoutBackups() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backup.Enabled = false
		b.cfg.Backup.Dir = ""
	}
}

// WithCatalog enables the SQLite catalogue.
func WithCatalog() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processing.CatalogEnabled = true
	}
}

// WithCovers enables cover art conversion.
func WithCovers() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processing.ApplyCovers = true
	}
}

// WithProcessing lets a test flip processing toggles directly.
func WithProcessing(fn func(*config.Processing)) ConfigOption {
	return func(b *configBuilder) {
		fn(&b.cfg.Processing)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LibraryDir)
}
