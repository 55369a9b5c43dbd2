package catalog_test

import (
	"bytes"
	"context"
	"testing"

	"disckit/internal/catalog"
	"disckit/internal/cuesheet"
	"disckit/internal/services"
	"disckit/internal/testsupport"
	"disckit/internal/title"
)

func mustOpen(t *testing.T) *catalog.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithCatalog())
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveUpsertsByPath(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	tt := &title.Title{
		DirectoryName:    "Game",
		DirectoryPath:    "/lib/Game",
		ProductID:        "SLUS-01234",
		DiscNumber:       1,
		RelatedDiscPaths: []string{"/lib/Game (Disc 2)"},
		TrackFiles:       []cuesheet.TrackFile{{Name: "Game.bin", Path: "/lib/Game/Game.bin"}},
	}
	id, err := store.Save(ctx, catalog.EntryFromTitle(tt))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	tt.HasIndexFile = true
	tt.RelatedDiscPaths = nil
	again, err := store.Save(ctx, catalog.EntryFromTitle(tt))
	if err != nil {
		t.Fatalf("Save again: %v", err)
	}
	if again != id {
		t.Fatalf("expected upsert to keep id %d, got %d", id, again)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.HasIndexFile || got.ProductID != "SLUS-01234" || len(got.DiscPaths) != 0 {
		t.Fatalf("unexpected entry %+v", got)
	}
	if len(got.TrackFiles) != 1 || got.TrackFiles[0] != "Game.bin" {
		t.Fatalf("unexpected track files %v", got.TrackFiles)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
}

func TestDelete(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	id, err := store.Save(ctx, catalog.Entry{DirectoryName: "A", DirectoryPath: "/lib/A", TrackFiles: []string{"A.bin"}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, id); services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, id); services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected NotFound deleting twice, got %v", err)
	}
	if err := store.DeleteByPath(ctx, "/lib/missing"); err != nil {
		t.Fatalf("DeleteByPath on missing row: %v", err)
	}
}

func TestSaveRequiresPath(t *testing.T) {
	store := mustOpen(t)
	if _, err := store.Save(context.Background(), catalog.Entry{DirectoryName: "x"}); services.Kind(err) != services.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCoverCache(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	if _, err := store.Cover(ctx, "SLUS-00001"); services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if err := store.PutCover(ctx, "SLUS-00001", []byte{1, 2, 3}); err != nil {
		t.Fatalf("PutCover: %v", err)
	}
	if err := store.PutCover(ctx, "SLUS-00001", []byte{4, 5}); err != nil {
		t.Fatalf("PutCover replace: %v", err)
	}
	got, err := store.Cover(ctx, "SLUS-00001")
	if err != nil || !bytes.Equal(got, []byte{4, 5}) {
		t.Fatalf("Cover = %v, %v", got, err)
	}
}

func TestExportImport(t *testing.T) {
	src := mustOpen(t)
	ctx := context.Background()
	if _, err := src.Save(ctx, catalog.Entry{DirectoryName: "B", DirectoryPath: "/lib/B", ProductID: "SCES-00002", TrackFiles: []string{"B.bin"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Save(ctx, catalog.Entry{DirectoryName: "a", DirectoryPath: "/lib/a"}); err != nil {
		t.Fatal(err)
	}
	if err := src.PutCover(ctx, "SCES-00002", []byte{9}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := src.Export(ctx, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	dst := mustOpen(t)
	n, err := dst.Import(ctx, &buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d titles", n)
	}
	entries, err := dst.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].DirectoryName != "a" || entries[1].ProductID != "SCES-00002" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if img, err := dst.Cover(ctx, "SCES-00002"); err != nil || !bytes.Equal(img, []byte{9}) {
		t.Fatalf("cover not imported: %v %v", img, err)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	store := mustOpen(t)
	_, err := store.Import(context.Background(), bytes.NewBufferString("not json"))
	if services.Kind(err) != services.KindParse {
		t.Fatalf("expected ParseFailure, got %v", err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCatalog())
	first, err := catalog.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Save(context.Background(), catalog.Entry{DirectoryName: "A", DirectoryPath: "/lib/A"}); err != nil {
		t.Fatal(err)
	}
	_ = first.Close()

	second, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	entries, err := second.List(context.Background())
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %v %v", entries, err)
	}
}
