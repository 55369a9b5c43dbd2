package multidisc

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"disckit/internal/backup"
	"disckit/internal/cu2"
	"disckit/internal/fileutil"
	"disckit/internal/services"
	"disckit/internal/testsupport"
	"disckit/internal/title"
)

func scan(t *testing.T, root string) []*title.Title {
	t.Helper()
	titles, err := title.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return titles
}

func find(titles []*title.Title, name string) *title.Title {
	for _, tt := range titles {
		if tt.DirectoryName == name {
			return tt
		}
	}
	return nil
}

func TestDetectSiblingDiscs(t *testing.T) {
	root := t.TempDir()
	testsupport.MakeTitleDir(t, root, "Foo (Disc 2)", map[string][]byte{"Foo (Disc 2).bin": {2}})
	testsupport.MakeTitleDir(t, root, "foo (Disc 1)", map[string][]byte{"foo (Disc 1).bin": {1}})
	testsupport.MakeTitleDir(t, root, "Bar (Disc 1)", map[string][]byte{"Bar (Disc 1).bin": {1}})
	testsupport.MakeTitleDir(t, root, "Baz", map[string][]byte{"Baz.bin": {1}})
	titles := scan(t, root)

	if !IsMultiDisc(find(titles, "Foo (Disc 2)"), titles) {
		t.Fatal("Foo (Disc 2) should be multi-disc")
	}
	if IsMultiDisc(find(titles, "Bar (Disc 1)"), titles) {
		t.Fatal("a lone (Disc 1) directory is not multi-disc")
	}
	if IsMultiDisc(find(titles, "Baz"), titles) {
		t.Fatal("Baz is not multi-disc")
	}
}

func TestPlanOrdersByDiscNumber(t *testing.T) {
	root := t.TempDir()
	testsupport.MakeTitleDir(t, root, "Foo (Disc 2)", map[string][]byte{"Foo (Disc 2).bin": {2}})
	testsupport.MakeTitleDir(t, root, "Foo (Disc 1)", map[string][]byte{"Foo (Disc 1).bin": {1}})
	testsupport.MakeTitleDir(t, root, "Baz", map[string][]byte{"Baz.bin": {1}})

	groups, singles := Plan(scan(t, root))
	if len(groups) != 1 || len(singles) != 1 || singles[0].DirectoryName != "Baz" {
		t.Fatalf("unexpected plan: %d groups, singles %v", len(groups), singles)
	}
	g := groups[0]
	if g.Kind != KindSiblings || g.BaseName != "Foo" || g.TargetName() != "Foo" {
		t.Fatalf("unexpected group %+v", g)
	}
	if g.Discs[0].SourceDir != filepath.Join(root, "Foo (Disc 1)") || g.Discs[1].Index != 2 {
		t.Fatalf("discs out of order: %+v", g.Discs)
	}
	if len(g.Members[0].RelatedDiscPaths) != 1 || g.Members[0].RelatedDiscPaths[0] != filepath.Join(root, "Foo (Disc 2)") {
		t.Fatalf("related paths not recorded: %v", g.Members[0].RelatedDiscPaths)
	}
}

func TestConsolidateSiblings(t *testing.T) {
	root := t.TempDir()
	disc2 := testsupport.WriteFile(t, filepath.Join(root, "Foo (Disc 2)", "Foo (Disc 2).bin"), 30, 2)
	disc1 := testsupport.WriteFile(t, filepath.Join(root, "Foo (Disc 1)", "Foo (Disc 1).bin"), 20, 1)
	testsupport.WriteBytes(t, filepath.Join(root, "Foo (Disc 1)", "Foo (Disc 1).cue"),
		[]byte("FILE \"Foo (Disc 1).bin\" BINARY\n  TRACK 01 MODE2/2352\n    INDEX 01 00:00:00\n"))
	testsupport.WriteBytes(t, filepath.Join(root, "Foo (Disc 2)", "Foo (Disc 2).cue"),
		[]byte("FILE \"Foo (Disc 2).bin\" BINARY\n  TRACK 01 MODE2/2352\n    INDEX 01 00:00:00\n"))

	groups, _ := Plan(scan(t, root))
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	c := NewConsolidator(backup.Policy{}, nil, nil)
	consolidated, res, err := c.Consolidate(context.Background(), groups[0])
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}

	target := filepath.Join(root, "Foo")
	if res.Target != target || consolidated.DirectoryPath != target {
		t.Fatalf("unexpected target %q", res.Target)
	}
	names, err := ReadManifest(filepath.Join(target, ManifestName))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if strings.Join(names, "|") != "Foo Disc 1.bin|Foo Disc 2.bin" {
		t.Fatalf("unexpected manifest %v", names)
	}
	raw := testsupport.ReadFile(t, filepath.Join(target, ManifestName))
	if string(raw) != "Foo Disc 1.bin\rFoo Disc 2.bin" {
		t.Fatalf("unexpected manifest bytes %q", raw)
	}
	if got := testsupport.ReadFile(t, filepath.Join(target, "Foo Disc 1.bin")); !bytes.Equal(got, disc1) {
		t.Fatal("disc 1 content changed")
	}
	if got := testsupport.ReadFile(t, filepath.Join(target, "Foo Disc 2.bin")); !bytes.Equal(got, disc2) {
		t.Fatal("disc 2 content changed")
	}
	sheet := string(testsupport.ReadFile(t, filepath.Join(target, "Foo Disc 2.cue")))
	if !strings.Contains(sheet, "FILE \"Foo Disc 2.bin\" BINARY") {
		t.Fatalf("sheet not rewritten: %q", sheet)
	}
	for _, dir := range []string{"Foo (Disc 1)", "Foo (Disc 2)"} {
		if fileutil.Exists(filepath.Join(root, dir)) {
			t.Fatalf("expected %s to be removed", dir)
		}
	}
	if len(res.RemovedDirs) != 2 || len(consolidated.TrackFiles) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	matches, _ := filepath.Glob(filepath.Join(root, StagingPrefix+"*"))
	if len(matches) != 0 {
		t.Fatalf("staging left behind: %v", matches)
	}

	groups, singles := Plan(scan(t, root))
	if len(groups) != 0 || len(singles) != 1 {
		t.Fatalf("consolidated title must not be detected again: %d groups", len(groups))
	}
	if IsMultiDisc(singles[0], singles) {
		t.Fatal("detection is not idempotent")
	}
}

func TestConsolidateTrackFilesInPlace(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Foo")
	testsupport.WriteFile(t, filepath.Join(dir, "Foo Disc 3.bin"), 10, 3)
	testsupport.WriteFile(t, filepath.Join(dir, "Foo Disc 2.bin"), 10, 2)
	testsupport.WriteBytes(t, filepath.Join(dir, "Foo Disc 2.cu2"), []byte("ntracks 1"))

	titles := scan(t, root)
	if !IsMultiDisc(titles[0], titles) {
		t.Fatal("expected track-file detection")
	}
	groups, _ := Plan(titles)
	if len(groups) != 1 || groups[0].Kind != KindTracks {
		t.Fatalf("unexpected groups %+v", groups)
	}

	_, res, err := NewConsolidator(backup.Policy{}, nil, nil).Consolidate(context.Background(), groups[0])
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if strings.Join(res.Tracks, "|") != "Foo Disc 1.bin|Foo Disc 2.bin" {
		t.Fatalf("discs 2 and 3 should be renumbered 1 and 2, got %v", res.Tracks)
	}
	if got := testsupport.ReadFile(t, filepath.Join(dir, "Foo Disc 1.bin")); got[0] != 2 {
		t.Fatal("old disc 2 should become disc 1")
	}
	if got := testsupport.ReadFile(t, filepath.Join(dir, "Foo Disc 2.bin")); got[0] != 3 {
		t.Fatal("old disc 3 should become disc 2")
	}
	if !fileutil.Exists(filepath.Join(dir, "Foo Disc 1.cu2")) {
		t.Fatal("companion should follow its track")
	}
	if fileutil.Exists(filepath.Join(dir, "Foo Disc 3.bin")) {
		t.Fatal("old name should be gone")
	}

	titles = scan(t, root)
	if IsMultiDisc(titles[0], titles) {
		t.Fatal("manifest should stop re-detection")
	}
}

func TestConsolidateInPlaceCollisionKeepsSources(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Foo")
	disc1 := testsupport.WriteFile(t, filepath.Join(dir, "Foo (Disc 1).bin"), 10, 1)
	disc2 := testsupport.WriteFile(t, filepath.Join(dir, "Foo (Disc 2).bin"), 10, 2)

	groups, _ := Plan(scan(t, root))
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %+v", groups)
	}
	// A directory squats on the name disc 2 is renamed to.
	if err := os.Mkdir(filepath.Join(dir, "Foo Disc 2.bin"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, _, err := NewConsolidator(backup.Policy{}, nil, nil).Consolidate(context.Background(), groups[0])
	if services.Kind(err) != services.KindInconsistent {
		t.Fatalf("expected Inconsistent, got %v", err)
	}
	if got := testsupport.ReadFile(t, filepath.Join(dir, "Foo (Disc 1).bin")); !bytes.Equal(got, disc1) {
		t.Fatal("disc 1 source changed")
	}
	if got := testsupport.ReadFile(t, filepath.Join(dir, "Foo (Disc 2).bin")); !bytes.Equal(got, disc2) {
		t.Fatal("disc 2 source changed")
	}
	if fileutil.Exists(filepath.Join(dir, "Foo Disc 1.bin")) || fileutil.Exists(filepath.Join(dir, ManifestName)) {
		t.Fatal("nothing should be promoted after a collision")
	}
	matches, _ := filepath.Glob(filepath.Join(root, StagingPrefix+"*"))
	if len(matches) != 0 {
		t.Fatalf("staging left behind: %v", matches)
	}
}

func TestConsolidateIgnoresHiddenLeftovers(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Foo")
	testsupport.WriteFile(t, filepath.Join(dir, "Foo Disc 2.bin"), 10, 2)
	testsupport.WriteFile(t, filepath.Join(dir, "Foo Disc 3.bin"), 10, 3)
	leftover := testsupport.WriteFile(t, filepath.Join(dir, ".disckit-merge-7.bin"), 30, 9)

	groups, _ := Plan(scan(t, root))
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %+v", groups)
	}
	_, res, err := NewConsolidator(backup.Policy{}, nil, nil).Consolidate(context.Background(), groups[0])
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if strings.Join(res.Tracks, "|") != "Foo Disc 1.bin|Foo Disc 2.bin" {
		t.Fatalf("hidden file must not become a disc, got %v", res.Tracks)
	}
	if got := testsupport.ReadFile(t, filepath.Join(dir, ".disckit-merge-7.bin")); !bytes.Equal(got, leftover) {
		t.Fatal("hidden leftover should be left alone")
	}
}

func TestConsolidateTargetConflict(t *testing.T) {
	root := t.TempDir()
	testsupport.MakeTitleDir(t, root, "Foo (Disc 1)", map[string][]byte{"a.bin": {1}})
	testsupport.MakeTitleDir(t, root, "Foo (Disc 2)", map[string][]byte{"b.bin": {2}})
	groups, _ := Plan(scan(t, root))
	testsupport.MakeTitleDir(t, root, "Foo", map[string][]byte{"other.txt": {1}})

	_, _, err := NewConsolidator(backup.Policy{}, nil, nil).Consolidate(context.Background(), groups[0])
	if services.Kind(err) != services.KindInconsistent {
		t.Fatalf("expected Inconsistent, got %v", err)
	}
	if !fileutil.Exists(filepath.Join(root, "Foo (Disc 1)", "a.bin")) {
		t.Fatal("sources must be untouched")
	}
}

func TestConsolidateMissingSourceLeavesSources(t *testing.T) {
	root := t.TempDir()
	testsupport.MakeTitleDir(t, root, "Foo (Disc 1)", map[string][]byte{"a.bin": {1}})
	testsupport.MakeTitleDir(t, root, "Foo (Disc 2)", map[string][]byte{"b.bin": {2}})
	groups, _ := Plan(scan(t, root))
	if err := os.Remove(filepath.Join(root, "Foo (Disc 2)", "b.bin")); err != nil {
		t.Fatal(err)
	}

	_, _, err := NewConsolidator(backup.Policy{}, nil, nil).Consolidate(context.Background(), groups[0])
	if services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if fileutil.Exists(filepath.Join(root, "Foo")) {
		t.Fatal("target must not exist after a failed consolidation")
	}
	if !fileutil.Exists(filepath.Join(root, "Foo (Disc 1)", "a.bin")) {
		t.Fatal("sources must be untouched")
	}
	matches, _ := filepath.Glob(filepath.Join(root, StagingPrefix+"*"))
	if len(matches) != 0 {
		t.Fatalf("staging left behind: %v", matches)
	}
}

func TestConsolidateWithCompanions(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "Foo (Disc 1)", "Foo (Disc 1).bin"), 2352, 1)
	testsupport.WriteFile(t, filepath.Join(root, "Foo (Disc 2)", "Foo (Disc 2).bin"), 2352, 2)
	testsupport.WriteBytes(t, filepath.Join(root, "Foo (Disc 1)", "Foo (Disc 1).cue"), []byte("FILE \"Foo (Disc 1).bin\" BINARY\n"))
	groups, _ := Plan(scan(t, root))

	policy := backup.Policy{}
	c := NewConsolidator(policy, cu2.NewGenerator(policy, nil), nil)
	consolidated, res, err := c.Consolidate(context.Background(), groups[0])
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(res.Companions) != 2 || !consolidated.HasIndexFile {
		t.Fatalf("expected companions for both discs, got %+v", res)
	}
	if fileutil.Exists(filepath.Join(root, "Foo", "Foo Disc 1.cue")) {
		t.Fatal("sheet should be removed once companions exist")
	}
}

func TestAssignNamesMultipleTracksFollowSheet(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Foo (Disc 1)")
	testsupport.WriteFile(t, filepath.Join(dir, "a.bin"), 1, 1)
	testsupport.WriteFile(t, filepath.Join(dir, "b.bin"), 1, 1)
	testsupport.WriteBytes(t, filepath.Join(dir, "x.cue"), []byte("FILE \"b.bin\" BINARY\nFILE \"a.bin\" BINARY\n"))
	g := Group{
		Kind:     KindSiblings,
		BaseName: "Foo",
		Members:  []*title.Title{{DirectoryPath: dir}},
		Discs:    []Disc{{Index: 1, SourceDir: dir, Files: discFiles(dir)}},
	}
	renames, tracks := assignNames(g)
	if strings.Join(tracks, "|") != "Foo Disc 1 (Track 1).bin|Foo Disc 1 (Track 2).bin" {
		t.Fatalf("unexpected tracks %v", tracks)
	}
	if renames[0].src != filepath.Join(dir, "b.bin") {
		t.Fatalf("sheet order not followed: %+v", renames)
	}
	if last := renames[len(renames)-1]; !last.sheet || last.dst != "Foo Disc 1.cue" {
		t.Fatalf("unexpected sheet rename %+v", last)
	}
}

func TestConsolidateBacksUpSheetsIntoTarget(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "Foo (Disc 1)", "Foo (Disc 1).bin"), 4, 1)
	testsupport.WriteFile(t, filepath.Join(root, "Foo (Disc 2)", "Foo (Disc 2).bin"), 4, 2)
	original := []byte("FILE \"Foo (Disc 1).bin\" BINARY\n")
	testsupport.WriteBytes(t, filepath.Join(root, "Foo (Disc 1)", "Foo (Disc 1).cue"), original)
	groups, _ := Plan(scan(t, root))

	_, _, err := NewConsolidator(backup.Policy{Enabled: true}, nil, nil).Consolidate(context.Background(), groups[0])
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	got := testsupport.ReadFile(t, filepath.Join(root, "Foo", "Foo Disc 1.cue"+backup.Suffix))
	if !bytes.Equal(got, original) {
		t.Fatalf("unexpected backup %q", got)
	}
	if fileutil.Exists(filepath.Join(root, "Foo (Disc 1)")) {
		t.Fatal("source directory should be removed")
	}
}
