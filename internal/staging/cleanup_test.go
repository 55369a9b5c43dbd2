package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"disckit/internal/logging"
	"disckit/internal/merge"
	"disckit/internal/multidisc"
)

func age(t *testing.T, path string, d time.Duration) {
	t.Helper()
	old := time.Now().Add(-d)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("set old time: %v", err)
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldLeftovers(t *testing.T) {
	root := t.TempDir()

	oldStage := filepath.Join(root, multidisc.StagingPrefix+"old")
	if err := os.Mkdir(oldStage, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(oldStage, "Game Disc 1.bin"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	age(t, oldStage, 2*time.Hour)

	recentStage := filepath.Join(root, multidisc.StagingPrefix+"recent")
	if err := os.Mkdir(recentStage, 0o755); err != nil {
		t.Fatal(err)
	}

	titleDir := filepath.Join(root, "Game")
	if err := os.Mkdir(titleDir, 0o755); err != nil {
		t.Fatal(err)
	}
	oldMerge := filepath.Join(titleDir, merge.TempPrefix+"123.bin")
	if err := os.WriteFile(oldMerge, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	age(t, oldMerge, 2*time.Hour)

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", result.Removed)
	}
	for _, gone := range []string{oldStage, oldMerge} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Errorf("%s should have been removed", gone)
		}
	}
	if _, err := os.Stat(recentStage); err != nil {
		t.Error("recent staging directory should still exist")
	}
	if _, err := os.Stat(titleDir); err != nil {
		t.Error("title directory should still exist")
	}
}

func TestCleanStaleZeroAgeRemovesEverything(t *testing.T) {
	root := t.TempDir()
	stage := filepath.Join(root, multidisc.StagingPrefix+"now")
	if err := os.Mkdir(stage, 0o755); err != nil {
		t.Fatal(err)
	}
	result := CleanStale(context.Background(), root, 0, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != stage {
		t.Fatalf("unexpected removals: %v", result.Removed)
	}
}

func TestCleanStaleIgnoresOrdinaryEntries(t *testing.T) {
	root := t.TempDir()

	plain := filepath.Join(root, "old-file.txt")
	if err := os.WriteFile(plain, []byte("test"), 0o644); err != nil {
		t.Fatal(err)
	}
	age(t, plain, 2*time.Hour)
	titleDir := filepath.Join(root, "Game")
	if err := os.Mkdir(titleDir, 0o755); err != nil {
		t.Fatal(err)
	}
	track := filepath.Join(titleDir, "Game.bin")
	if err := os.WriteFile(track, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	age(t, track, 2*time.Hour)
	age(t, titleDir, 2*time.Hour)

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals, got %v", result.Removed)
	}
	for _, keep := range []string{plain, titleDir, track} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should not have been removed", keep)
		}
	}
}

func TestCleanStaleKeepsDisplacedOriginals(t *testing.T) {
	root := t.TempDir()
	stage := filepath.Join(root, multidisc.StagingPrefix+"interrupted")
	parked := filepath.Join(stage, multidisc.DisplacedDir)
	if err := os.MkdirAll(parked, 0o755); err != nil {
		t.Fatal(err)
	}
	original := filepath.Join(parked, "Game Disc 2.bin")
	if err := os.WriteFile(original, []byte("only copy"), 0o644); err != nil {
		t.Fatal(err)
	}
	age(t, stage, 48*time.Hour)

	result := CleanStale(context.Background(), root, 0, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", result.Removed)
	}
	if _, err := os.Stat(original); err != nil {
		t.Fatalf("parked original should survive cleanup: %v", err)
	}
}

func TestCleanStaleHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, multidisc.StagingPrefix+"a"), 0o755); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := CleanStale(ctx, root, 0, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed after cancel, got %v", result.Removed)
	}
}

func TestListLeftovers(t *testing.T) {
	root := t.TempDir()
	stage := filepath.Join(root, multidisc.StagingPrefix+"x")
	if err := os.Mkdir(stage, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stage, "a.bin"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stage, "b.bin"), make([]byte, 50), 0o644); err != nil {
		t.Fatal(err)
	}

	found, err := ListLeftovers(root)
	if err != nil {
		t.Fatalf("ListLeftovers: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 leftover, got %d", len(found))
	}
	if !found[0].IsDir || found[0].Size != 150 || found[0].Path != stage {
		t.Fatalf("unexpected leftover: %+v", found[0])
	}

	missing, err := ListLeftovers(filepath.Join(root, "missing"))
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing root, got %v %v", missing, err)
	}
}
