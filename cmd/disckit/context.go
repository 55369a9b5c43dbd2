package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"disckit/internal/backup"
	"disckit/internal/catalog"
	"disckit/internal/config"
	"disckit/internal/logging"
	"disckit/internal/title"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// loggerValue builds the command logger on first use. A logger that cannot
// open its file falls back to stderr only.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger, _ = logging.NewFromConfig(nil)
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) backupPolicy() backup.Policy {
	return backup.PolicyFromConfig(c.configValue())
}

// withCatalog opens the catalogue for the duration of fn.
func (c *commandContext) withCatalog(fn func(*catalog.Store) error) error {
	store, err := catalog.Open(c.configValue())
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// resolveTitleDir accepts an absolute path, a path relative to the working
// directory, or a title name under the library.
func (c *commandContext) resolveTitleDir(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("title directory is required")
	}
	candidates := []string{arg}
	if cfg := c.configValue(); cfg != nil && cfg.Paths.LibraryDir != "" && !filepath.IsAbs(arg) {
		candidates = append(candidates, filepath.Join(cfg.Paths.LibraryDir, arg))
	}
	for _, candidate := range candidates {
		if t, err := title.Load(candidate); err == nil {
			abs, err := filepath.Abs(t.DirectoryPath)
			if err != nil {
				return "", err
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("title directory %q not found", arg)
}

func (c *commandContext) loadTitle(arg string) (*title.Title, error) {
	dir, err := c.resolveTitleDir(arg)
	if err != nil {
		return nil, err
	}
	return title.Load(dir)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
