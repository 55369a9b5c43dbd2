package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"disckit/internal/config"
	"disckit/internal/services"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_Empty(t *testing.T) {
	result := CheckDirectoryAccess("test", "")
	if result.Passed || result.Detail != "not configured" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckDirectoryReadable(t *testing.T) {
	result := CheckDirectoryReadable("covers", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 0); !result.Passed {
		t.Fatalf("expected pass with zero minimum, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure for impossible minimum")
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 0); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[uint64]string{
		512:        "512 B",
		2048:       "2.0 KiB",
		3 << 30:    "3.0 GiB",
		1536 << 20: "1.5 GiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := config.Default()
	if results := RunAll(ctx, &cfg); results != nil {
		t.Fatalf("expected no results for canceled context, got %d", len(results))
	}
}

func TestRunAll_GatesOptionalChecks(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CatalogPath = filepath.Join(base, "catalog", "catalog.db")
	cfg.Paths.CoversDir = filepath.Join(base, "covers")
	cfg.Backup.Enabled = true
	cfg.Backup.Dir = ""
	cfg.Processing.CatalogEnabled = false
	cfg.Processing.ApplyCovers = false
	for _, dir := range []string{cfg.Paths.LibraryDir, cfg.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	results := RunAll(context.Background(), &cfg)
	names := resultNames(results)
	if len(results) != 3 {
		t.Fatalf("expected library, space and log checks, got %v", names)
	}
	if err := Failed(results); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}

	cfg.Processing.CatalogEnabled = true
	cfg.Processing.ApplyCovers = true
	cfg.Backup.Dir = filepath.Join(base, "backups")
	results = RunAll(context.Background(), &cfg)
	names = resultNames(results)
	for _, want := range []string{"Backup directory", "Catalog directory", "Covers directory"} {
		if !strings.Contains(names, want) {
			t.Fatalf("expected %q check in %v", want, names)
		}
	}
	err := Failed(results)
	if err == nil {
		t.Fatal("expected failures for missing optional directories")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Covers directory") {
		t.Fatalf("error should name failing check: %v", err)
	}
}

func resultNames(results []Result) string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}
