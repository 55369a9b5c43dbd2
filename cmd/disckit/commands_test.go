package main

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"disckit/internal/multidisc"
	"disckit/internal/testsupport"
)

func TestProcessAndCatalogList(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutBackups(), testsupport.WithCatalog())
	dir := makeGame(t, env.cfg.Paths.LibraryDir, "Game", "SLUS_012.34")

	out, _, err := runCLI(t, []string{"process"}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}
	requireContains(t, out, "1 titles: 1 ok, 0 failed, 0 review, 0 skipped")
	if _, err := os.Stat(filepath.Join(dir, "Game.cu2")); err != nil {
		t.Fatalf("expected companion index: %v", err)
	}

	out, _, err = runCLI(t, []string{"catalog", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, out, "Game")
	requireContains(t, out, "SLUS-012.34")

	out, _, err = runCLI(t, []string{"verify"}, env.configPath)
	if err != nil {
		t.Fatalf("verify after process: %v\n%s", err, out)
	}
	requireContains(t, out, "1 titles verified")
}

func TestProcessJSONNamesSteps(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutBackups())
	makeGame(t, env.cfg.Paths.LibraryDir, "Game", "SLUS_012.34")

	out, _, err := runCLI(t, []string{"process", "--json", "Game"}, env.configPath)
	if err != nil {
		t.Fatalf("process --json: %v", err)
	}
	requireContains(t, out, `"outcome": "ok"`)
	requireContains(t, out, `"name": "cu2"`)
	requireContains(t, out, `"product_id": "SLUS-012.34"`)
}

func TestIdentifyResolvesTitleNames(t *testing.T) {
	env := setupCLITestEnv(t)
	makeGame(t, env.cfg.Paths.LibraryDir, "Game", "SLUS_012.34")

	out, _, err := runCLI(t, []string{"identify", "Game"}, env.configPath)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if strings.TrimSpace(out) != "SLUS-012.34" {
		t.Fatalf("identify output = %q", out)
	}

	if _, _, err := runCLI(t, []string{"identify", "Missing"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown title")
	}
}

func TestVerifyReportsMissingFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.MakeTitleDir(t, env.cfg.Paths.LibraryDir, "Broken", map[string][]byte{
		"Broken.bin": make([]byte, 2352),
		"Broken.cue": []byte("FILE \"Gone.bin\" BINARY\n  TRACK 01 MODE2/2352\n    INDEX 01 00:00:00\n"),
	})

	out, _, err := runCLI(t, []string{"verify", "Broken"}, env.configPath)
	if !errors.Is(err, errVerifyFailed) {
		t.Fatalf("expected errVerifyFailed, got %v", err)
	}
	requireContains(t, out, "Gone.bin")
}

func TestFixCueRewritesBrokenSheet(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithBackupDir())
	dir := testsupport.MakeTitleDir(t, env.cfg.Paths.LibraryDir, "Broken", map[string][]byte{
		"Broken.bin": make([]byte, 2352),
		"Broken.cue": []byte("FILE \"Gone.bin\" BINARY\n  TRACK 01 MODE2/2352\n    INDEX 01 00:00:00\n"),
	})

	out, _, err := runCLI(t, []string{"fix-cue", dir}, env.configPath)
	if err != nil {
		t.Fatalf("fix-cue: %v", err)
	}
	requireContains(t, out, "rewritten")
	requireContains(t, out, "Backup:")
	sheet := string(testsupport.ReadFile(t, filepath.Join(dir, "Broken.cue")))
	requireContains(t, sheet, `FILE "Broken.bin" BINARY`)

	out, _, err = runCLI(t, []string{"fix-cue", dir}, env.configPath)
	if err != nil {
		t.Fatalf("second fix-cue: %v", err)
	}
	requireContains(t, out, "sheet is valid")
}

func TestMultiDiscDryRunLeavesLibraryAlone(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutBackups())
	disc1 := makeGame(t, env.cfg.Paths.LibraryDir, "Quest (Disc 1)", "SLUS_000.01")
	disc2 := makeGame(t, env.cfg.Paths.LibraryDir, "Quest (Disc 2)", "SLUS_000.02")

	out, _, err := runCLI(t, []string{"multidisc", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("multidisc --dry-run: %v", err)
	}
	requireContains(t, out, "Quest")
	requireContains(t, out, "siblings")
	for _, dir := range []string{disc1, disc2} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("dry run touched %s: %v", dir, err)
		}
	}

	if _, _, err := runCLI(t, []string{"multidisc"}, env.configPath); err != nil {
		t.Fatalf("multidisc: %v", err)
	}
	target := filepath.Join(env.cfg.Paths.LibraryDir, "Quest")
	if _, err := os.Stat(filepath.Join(target, multidisc.ManifestName)); err != nil {
		t.Fatalf("expected manifest in %s: %v", target, err)
	}
	if _, err := os.Stat(disc1); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, stat err %v", disc1, err)
	}
}

func TestSanitizeSuggestsRepairs(t *testing.T) {
	out, _, err := runCLI(t, []string{"sanitize", "Good Name", "Bad:Name"}, "")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	requireContains(t, out, "Bad_Name")

	out, _, err = runCLI(t, []string{"sanitize", "--json", "v1.1"}, "")
	if err != nil {
		t.Fatalf("sanitize --json: %v", err)
	}
	requireContains(t, out, `"repaired": "v1_1"`)
	requireContains(t, out, `"valid": false`)
}

func TestPatchAppliesPPF1(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutBackups())
	dir := t.TempDir()
	track := filepath.Join(dir, "Game.bin")
	testsupport.WriteBytes(t, track, make([]byte, 64))

	patch := make([]byte, 56)
	copy(patch, "PPF10")
	copy(patch[6:], "Translation")
	record := make([]byte, 5)
	binary.LittleEndian.PutUint32(record, 10)
	record[4] = 2
	patch = append(patch, record...)
	patch = append(patch, 'H', 'I')
	patchPath := filepath.Join(dir, "fix.ppf")
	testsupport.WriteBytes(t, patchPath, patch)

	out, _, err := runCLI(t, []string{"patch", track, patchPath}, env.configPath)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	requireContains(t, out, "PPF1.0 patch: Translation")
	requireContains(t, out, "Applied 1 records")
	if got := string(testsupport.ReadFile(t, track)[10:12]); got != "HI" {
		t.Fatalf("patched bytes = %q", got)
	}

	if _, _, err := runCLI(t, []string{"patch", "--undo", track, patchPath}, env.configPath); err == nil {
		t.Fatal("expected undo of a PPF1 patch to fail")
	}
}

func TestScanListsTitles(t *testing.T) {
	env := setupCLITestEnv(t)
	makeGame(t, env.cfg.Paths.LibraryDir, "Alpha", "SLUS_000.01")
	makeGame(t, env.cfg.Paths.LibraryDir, "Beta", "SLES_000.02")

	out, _, err := runCLI(t, []string{"scan", "--json", "--ids"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, `"title": "Alpha"`)
	requireContains(t, out, `"product_id": "SLES-000.02"`)
	if strings.Index(out, "Alpha") > strings.Index(out, "Beta") {
		t.Fatalf("expected titles in name order:\n%s", out)
	}
}
