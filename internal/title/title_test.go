package title

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"disckit/internal/services"
	"disckit/internal/testsupport"
)

func TestScanFindsTitleDirectories(t *testing.T) {
	root := t.TempDir()
	testsupport.MakeTitleDir(t, root, "Game B", map[string][]byte{"Game B.bin": {1}})
	testsupport.MakeTitleDir(t, root, "Game A", map[string][]byte{
		"Track 10.bin": {1},
		"Track 2.bin":  {1},
		"Game A.cue":   []byte("FILE \"Track 2.bin\" BINARY\n  TRACK 01 MODE2/2352\n"),
	})
	testsupport.MakeTitleDir(t, root, "Notes", map[string][]byte{"readme.txt": []byte("x")})
	testsupport.MakeTitleDir(t, root, ".disckit-staging-1", map[string][]byte{"x.bin": {1}})

	titles, err := Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("expected 2 titles, got %d", len(titles))
	}
	if titles[0].DirectoryName != "Game A" || titles[1].DirectoryName != "Game B" {
		t.Fatalf("unexpected order %q, %q", titles[0].DirectoryName, titles[1].DirectoryName)
	}
	a := titles[0]
	if a.TrackFiles[0].Name != "Track 2.bin" || a.TrackFiles[1].Name != "Track 10.bin" {
		t.Fatalf("expected natural track order, got %+v", a.TrackFiles)
	}
	if !a.Sheet.Valid() || a.SheetPath != filepath.Join(root, "Game A", "Game A.cue") {
		t.Fatalf("expected sheet to be loaded, got %q", a.SheetPath)
	}
	if got := a.PrimaryTrack(); got != filepath.Join(root, "Game A", "Track 2.bin") {
		t.Fatalf("primary track = %q", got)
	}
	if got := titles[1].PrimaryTrack(); got != titles[1].CanonicalTrackPath() {
		t.Fatalf("primary track for merged title = %q", got)
	}
}

func TestTrackFilesSkipsHiddenFiles(t *testing.T) {
	dir := testsupport.MakeTitleDir(t, t.TempDir(), "Game", map[string][]byte{
		"Track 1.bin":            make([]byte, 100),
		"Track 2.bin":            make([]byte, 50),
		".disckit-merge-123.bin": make([]byte, 30),
		".hidden.cue":            []byte("FILE \".disckit-merge-123.bin\" BINARY\n"),
	})

	files, err := TrackFiles(dir)
	if err != nil {
		t.Fatalf("TrackFiles: %v", err)
	}
	if len(files) != 2 || files[0].Name != "Track 1.bin" || files[1].Name != "Track 2.bin" {
		t.Fatalf("unexpected track files %+v", files)
	}
	if sheets := listByExtension(dir, SheetExtension); len(sheets) != 0 {
		t.Fatalf("hidden sheet listed: %v", sheets)
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestLoadDetectsCompanionsAndCover(t *testing.T) {
	root := t.TempDir()
	dir := testsupport.MakeTitleDir(t, root, "Game (Disc 2)", map[string][]byte{
		"Game (Disc 2).bin": {1},
		"Game (Disc 2).cu2": []byte("ntracks 1"),
		"Game (Disc 2).bmp": {0},
	})
	tt, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !tt.HasIndexFile || !tt.HasCoverArt {
		t.Fatalf("expected companion and cover flags, got %+v", tt)
	}
	if tt.DiscNumber != 2 {
		t.Fatalf("disc number = %d", tt.DiscNumber)
	}
	if problems := Verify(tt); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestVerifyReportsMissingFiles(t *testing.T) {
	root := t.TempDir()
	dir := testsupport.MakeTitleDir(t, root, "Game", map[string][]byte{
		"Game.bin": {1},
		"Game.cue": []byte("FILE \"Game.bin\" BINARY\nFILE \"Gone.bin\" BINARY\n"),
	})
	tt, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tt.HasCoverArt = true

	problems := Verify(tt)
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %v", problems)
	}
	if problems[0].Check != CheckSheet || problems[1].Check != CheckCover {
		t.Fatalf("unexpected checks %v", problems)
	}
	err = VerifyError(problems)
	if services.Kind(err) != services.KindNotFound || !services.NeedsReview(err) {
		t.Fatalf("expected NotFound review error, got %v", err)
	}
}

func TestVerifyRejectsBadName(t *testing.T) {
	root := t.TempDir()
	dir := testsupport.MakeTitleDir(t, root, "Game v1.1", map[string][]byte{"Game v1.1.bin": {1}})
	tt, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	problems := Verify(tt)
	if len(problems) == 0 || problems[0].Check != CheckName {
		t.Fatalf("expected name problem first, got %v", problems)
	}
	if services.Kind(problems[0]) != services.KindValidation {
		t.Fatalf("expected validation kind, got %v", problems[0])
	}
}

func TestVerifyCleanTitle(t *testing.T) {
	root := t.TempDir()
	dir := testsupport.MakeTitleDir(t, root, "Game", map[string][]byte{
		"Game.bin": {1},
		"Game.cue": []byte("FILE \"Game.bin\" BINARY\n  TRACK 01 MODE2/2352\n"),
	})
	tt, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := VerifyError(Verify(tt)); err != nil {
		t.Fatalf("unexpected problems: %v", err)
	}
}

func TestRename(t *testing.T) {
	root := t.TempDir()
	dir := testsupport.MakeTitleDir(t, root, "Game: Special", map[string][]byte{"x.bin": {1}})
	testsupport.MakeTitleDir(t, root, "Taken", nil)
	tt, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := tt.Rename("Taken"); services.Kind(err) != services.KindValidation {
		t.Fatalf("expected validation failure for existing target, got %v", err)
	}
	if err := tt.Rename("Game_ Special"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "Game_ Special", "x.bin")); err != nil {
		t.Fatalf("expected renamed directory: %v", err)
	}
	if tt.DirectoryName != "Game_ Special" || len(tt.TrackFiles) != 1 {
		t.Fatalf("model not refreshed: %+v", tt)
	}
}

func TestAddRelated(t *testing.T) {
	tt := &Title{DirectoryPath: "/lib/A"}
	tt.AddRelated("/lib/C")
	tt.AddRelated("/lib/B")
	tt.AddRelated("/lib/B")
	tt.AddRelated("/lib/A")
	if len(tt.RelatedDiscPaths) != 2 || tt.RelatedDiscPaths[0] != "/lib/B" {
		t.Fatalf("unexpected related paths %v", tt.RelatedDiscPaths)
	}
}

func TestCompareNatural(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Track 2.bin", "Track 10.bin", -1},
		{"track 02.bin", "Track 2.bin", 0},
		{"a", "b", -1},
		{"abc", "ab", 1},
		{"Disc 9", "Disc 09", 0},
	}
	for _, tt := range tests {
		if got := CompareNames(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareNames(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
