package index

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/sheaf/internal/apperr"
	"github.com/starford/sheaf/internal/checksum"
	"github.com/starford/sheaf/internal/document"
	"github.com/starford/sheaf/internal/folders"
	"github.com/starford/sheaf/internal/share"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "sheaf-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"notes", "folders", "note_folders", "shares", "share_views"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetNote(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		ID:        "hello",
		Path:      "hello.json",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		Pinned:    true,
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("hello")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	got, err := db.GetNote("hello")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Title != "Hello World" || !got.Pinned || len(got.Tags) != 2 || got.Path != "hello.json" {
		t.Errorf("GetNote = %+v", got)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetNote("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.UpsertNote(NoteRow{ID: "del", Path: "del.json", Checksum: "x"})
	_ = db.SetPlacement(ctx, "del", ptr("f1"))

	if err := db.DeleteNote("del"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	placement, _ := db.Placement(ctx)
	if _, ok := placement["del"]; ok {
		t.Error("placement should be removed with the note")
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "up", Path: "up.json", Title: "Old", Checksum: "1"})
	_ = db.UpsertNote(NoteRow{ID: "up", Path: "up.json", Title: "New", Checksum: "2", Tags: []string{"new"}})

	got, err := db.GetNote("up")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Checksum != "2" || got.Title != "New" {
		t.Errorf("GetNote = %+v, want updated row", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "new" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListNotes_OrderAndFilters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = db.UpsertNote(NoteRow{ID: "a", Path: "a.json", Title: "Alpha", Checksum: "1", Tags: []string{"go"}, UpdatedAt: base})
	_ = db.UpsertNote(NoteRow{ID: "b", Path: "b.json", Title: "beta", Checksum: "2", UpdatedAt: base.Add(time.Hour)})
	_ = db.UpsertNote(NoteRow{ID: "c", Path: "c.json", Title: "Gamma", Checksum: "3", Tags: []string{"go"}, Pinned: true, UpdatedAt: base})

	rows, total, err := db.ListNotes(ListQuery{})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("total=%d len=%d, want 3", total, len(rows))
	}
	if rows[0].ID != "c" || rows[1].ID != "b" || rows[2].ID != "a" {
		t.Errorf("order = %s,%s,%s; want pinned c then newest b", rows[0].ID, rows[1].ID, rows[2].ID)
	}

	rows, _, _ = db.ListNotes(ListQuery{Sort: "title"})
	if rows[1].ID != "a" || rows[2].ID != "b" {
		t.Errorf("title sort = %s,%s; want a,b", rows[1].ID, rows[2].ID)
	}

	rows, total, _ = db.ListNotes(ListQuery{Tag: "go"})
	if total != 2 || len(rows) != 2 {
		t.Errorf("tag filter total=%d len=%d, want 2", total, len(rows))
	}

	rows, total, _ = db.ListNotes(ListQuery{Limit: 1, Offset: 1})
	if total != 3 || len(rows) != 1 || rows[0].ID != "b" {
		t.Errorf("page = %+v total=%d", rows, total)
	}

	_ = db.UpsertFolder(ctx, folders.Folder{ID: "f1", Name: "Work"})
	_ = db.SetPlacement(ctx, "a", ptr("f1"))
	_ = db.SetPlacement(ctx, "b", ptr("deleted"))

	rows, _, _ = db.ListNotes(ListQuery{Folder: ptr("f1")})
	if len(rows) != 1 || rows[0].ID != "a" {
		t.Errorf("folder filter = %+v", rows)
	}
	rows, _, _ = db.ListNotes(ListQuery{Folder: ptr("")})
	if len(rows) != 2 {
		t.Errorf("root filter returned %d rows, want 2 (c and orphaned b)", len(rows))
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "a", Path: "a.json", Checksum: "1"})
	_ = db.UpsertNote(NoteRow{ID: "b", Path: "sub/b.md", Checksum: "2"})

	all, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(all) != 2 || all["a"] != "1" || all["b"] != "2" {
		t.Errorf("AllChecksums = %v", all)
	}
}

func TestFoldersAndPlacement(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.UpsertFolder(ctx, folders.Folder{ID: "top", Name: "Top"}); err != nil {
		t.Fatalf("UpsertFolder: %v", err)
	}
	if err := db.UpsertFolder(ctx, folders.Folder{ID: "sub", Name: "Sub", ParentID: ptr("top")}); err != nil {
		t.Fatalf("UpsertFolder: %v", err)
	}
	_ = db.SetPlacement(ctx, "n1", ptr("sub"))
	_ = db.SetPlacement(ctx, "n2", ptr("top"))
	_ = db.SetPlacement(ctx, "n2", nil)

	tree, err := folders.Load(ctx, db)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	crumbs := tree.Breadcrumb("sub")
	if len(crumbs) != 2 || crumbs[0].ID != "top" || crumbs[1].ID != "sub" {
		t.Errorf("breadcrumb = %+v", crumbs)
	}
	if f := tree.FolderOf("n1"); f == nil || f.ID != "sub" {
		t.Errorf("FolderOf(n1) = %+v", f)
	}
	if f := tree.FolderOf("n2"); f != nil {
		t.Errorf("FolderOf(n2) = %+v, want root", f)
	}

	if err := db.DeleteFolder(ctx, "sub"); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if err := db.DeleteFolder(ctx, "sub"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	tree, _ = folders.Load(ctx, db)
	if f := tree.FolderOf("n1"); f != nil {
		t.Errorf("note in deleted folder should fall back to root, got %+v", f)
	}
}

func TestPutShare_DedupByHash(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	hash := checksum.String("blob-1")

	id1, err := db.PutShare(ctx, hash, "T", "blob-1")
	if err != nil {
		t.Fatalf("PutShare: %v", err)
	}
	if len(id1) != shareIDLen {
		t.Errorf("id %q length = %d, want %d", id1, len(id1), shareIDLen)
	}
	id2, err := db.PutShare(ctx, hash, "T", "blob-1")
	if err != nil {
		t.Fatalf("PutShare again: %v", err)
	}
	if id1 != id2 {
		t.Errorf("same hash gave ids %q and %q", id1, id2)
	}

	other, _ := db.PutShare(ctx, checksum.String("blob-2"), "T", "blob-2")
	if other == id1 {
		t.Error("different hash should get a different id")
	}

	got, err := db.GetShare(ctx, id1)
	if err != nil {
		t.Fatalf("GetShare: %v", err)
	}
	if got.Blob != "blob-1" || got.Hash != hash || got.Title != "T" {
		t.Errorf("GetShare = %+v", got)
	}
	if _, err := db.GetShare(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing share err = %v", err)
	}
}

func TestRecordView(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		n, err := db.RecordView(ctx, "h", "Title")
		if err != nil {
			t.Fatalf("RecordView: %v", err)
		}
		if n != want {
			t.Errorf("views = %d, want %d", n, want)
		}
	}
}

func TestNewShareID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id := newShareID()
		if len(id) != shareIDLen {
			t.Fatalf("id %q has length %d", id, len(id))
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestLocalShares_PublishAndResolve(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	local := LocalShares{DB: db}

	pub := share.NewPublisher(local, "https://sheaf.test", nil)
	link := pub.Publish(ctx, "Local", document.FromText("hello"), "")
	if !strings.HasPrefix(link, "https://sheaf.test/n/") {
		t.Fatalf("link = %q, want short link", link)
	}

	p, ok := share.DefaultResolver(local, nil).Resolve(ctx, share.ParseLocation(link))
	if !ok || p.Title != "Local" || len(p.Doc) != 1 {
		t.Fatalf("Resolve = %+v, %v", p, ok)
	}

	if _, err := local.Get(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing id err = %v", err)
	}
}
