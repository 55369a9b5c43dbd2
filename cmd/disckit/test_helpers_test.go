package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"disckit/internal/config"
	"disckit/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nlibrary_dir = %q\nlog_dir = %q\ncatalog_path = %q\ncovers_dir = %q\n\n",
		cfg.Paths.LibraryDir, cfg.Paths.LogDir, cfg.Paths.CatalogPath, cfg.Paths.CoversDir)
	fmt.Fprintf(&b, "[backup]\nenabled = %t\ndir = %q\n\n", cfg.Backup.Enabled, cfg.Backup.Dir)
	p := cfg.Processing
	fmt.Fprintf(&b, "[processing]\nworkers = %d\nfix_cue = %t\nmerge_tracks = %t\nconsolidate_multi_disc = %t\n",
		p.Workers, p.FixCue, p.MergeTracks, p.ConsolidateMultiDisc)
	fmt.Fprintf(&b, "companion_index = %t\nrepair_names = %t\napply_covers = %t\nidentify_iso_fallback = %t\ncatalog_enabled = %t\n",
		p.CompanionIndex, p.RepairNames, p.ApplyCovers, p.IdentifyISOFallback, p.CatalogEnabled)
	fmt.Fprintf(&b, "\n[logging]\nlevel = %q\n", "error")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func makeGame(t *testing.T, root, name, code string) string {
	t.Helper()
	track := append(testsupport.ProductSector(code), make([]byte, 2352)...)
	sheet := "FILE \"" + name + ".bin\" BINARY\n  TRACK 01 MODE2/2352\n    INDEX 01 00:00:00\n"
	return testsupport.MakeTitleDir(t, root, name, map[string][]byte{
		name + ".bin": track,
		name + ".cue": []byte(sheet),
	})
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
