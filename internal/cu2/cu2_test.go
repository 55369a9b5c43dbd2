package cu2

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"disckit/internal/backup"
	"disckit/internal/cuesheet"
	"disckit/internal/fileutil"
	"disckit/internal/services"
)

func TestComputeAndRender(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		sizeTC  string
		endTC   string
		sectors int64
	}{
		{"empty", 0, "00:00:00", "00:02:00", 0},
		{"one second", 75 * 2352, "00:01:00", "00:03:00", 75},
		{"one minute plus", (60*75 + 10) * 2352, "01:00:10", "01:02:10", 60*75 + 10},
		{"partial sector ignored", 2352*3 + 100, "00:00:03", "00:02:03", 3},
		{"frame wrap", 74 * 2352, "00:00:74", "00:02:74", 74},
		{"seconds wrap", (58*75 + 74) * 2352, "00:58:74", "01:00:74", 58*75 + 74},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Compute(tt.size)
			if l.Sectors != tt.sectors {
				t.Fatalf("sectors = %d, want %d", l.Sectors, tt.sectors)
			}
			want := "ntracks 1\r\n" +
				"size\t   " + tt.sizeTC + "\r\n" +
				"data1\t   00:02:00\r\n" +
				"\r\n" +
				"trk end\t " + tt.endTC
			if got := Render(l); got != want {
				t.Fatalf("unexpected companion:\n%q\nwant\n%q", got, want)
			}
		})
	}
}

func TestCompanionPath(t *testing.T) {
	if got := CompanionPath("/lib/Game/Game Disc 1.bin"); got != "/lib/Game/Game Disc 1.cu2" {
		t.Fatalf("unexpected companion path %q", got)
	}
}

func TestWriteCompanionMissingTrack(t *testing.T) {
	_, _, err := WriteCompanion(filepath.Join(t.TempDir(), "missing.bin"))
	if services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestGenerateTitleRemovesSheetAfterCompanions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Game")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	track := filepath.Join(dir, "Game.bin")
	if err := os.WriteFile(track, make([]byte, 150*cuesheet.SectorSize), 0o644); err != nil {
		t.Fatal(err)
	}
	sheet := filepath.Join(dir, "Game.cue")
	if err := os.WriteFile(sheet, []byte("FILE \"Game.bin\" BINARY\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewGenerator(backup.Policy{Enabled: true}, nil)
	res, err := g.GenerateTitle(context.Background(), []string{track}, []string{sheet})
	if err != nil {
		t.Fatalf("GenerateTitle: %v", err)
	}
	if len(res.Companions) != 1 || res.Companions[0] != filepath.Join(dir, "Game.cu2") {
		t.Fatalf("unexpected companions %v", res.Companions)
	}
	data, err := os.ReadFile(res.Companions[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "size\t   00:02:00\r\n") || !strings.HasSuffix(string(data), "trk end\t 00:04:00") {
		t.Fatalf("unexpected companion content %q", data)
	}
	if fileutil.Exists(sheet) {
		t.Fatal("sheet should be removed once companions exist")
	}
	if !fileutil.Exists(sheet + backup.Suffix) {
		t.Fatal("sheet should be backed up before removal")
	}
}

func TestGenerateTitleKeepsSheetOnFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "Game Disc 1.bin")
	if err := os.WriteFile(good, make([]byte, cuesheet.SectorSize), 0o644); err != nil {
		t.Fatal(err)
	}
	sheet := filepath.Join(dir, "Game.cue")
	if err := os.WriteFile(sheet, []byte("FILE"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewGenerator(backup.Policy{}, nil)
	_, err := g.GenerateTitle(context.Background(), []string{good, filepath.Join(dir, "missing.bin")}, []string{sheet})
	if err == nil {
		t.Fatal("expected error for missing track")
	}
	if !fileutil.Exists(sheet) {
		t.Fatal("sheet must survive when a companion could not be written")
	}
}

func TestGenerateTitleWithoutTracks(t *testing.T) {
	g := NewGenerator(backup.Policy{}, nil)
	if _, err := g.GenerateTitle(context.Background(), nil, nil); services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
