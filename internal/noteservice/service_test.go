package noteservice

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/sheaf/internal/apperr"
	"github.com/starford/sheaf/internal/folders"
	"github.com/starford/sheaf/internal/index"
	"github.com/starford/sheaf/internal/preview"
	"github.com/starford/sheaf/internal/share"
	"github.com/starford/sheaf/internal/testutil"
)

const origin = "https://sheaf.test"

func testService(t *testing.T) (*Service, string) {
	t.Helper()
	vaultDir, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	svc := NewService(store, db, share.NewPublisher(nil, origin, nil), nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC) }
	return svc, vaultDir
}

const helloDoc = `[{"type":"heading","props":{"level":1},"content":[{"type":"text","text":"Hello"}]},` +
	`{"type":"paragraph","content":[{"type":"text","text":"World #greeting"}]}]`

func TestCreateAndGetNote(t *testing.T) {
	svc, vaultDir := testService(t)
	ctx := context.Background()

	created, err := svc.CreateNote(ctx, NoteInput{ID: "hello", Doc: json.RawMessage(helloDoc)})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if created.Title != "Hello" {
		t.Errorf("title = %q, want first heading", created.Title)
	}
	if created.FolderID != nil || len(created.Breadcrumb) != 0 {
		t.Errorf("new note should sit at root, got %v %v", created.FolderID, created.Breadcrumb)
	}
	if len(created.Tags) != 1 || created.Tags[0] != "greeting" {
		t.Errorf("tags = %v", created.Tags)
	}
	if _, err := os.Stat(filepath.Join(vaultDir, "hello.json")); err != nil {
		t.Fatalf("note file not written: %v", err)
	}

	got, err := svc.GetNote(ctx, "hello")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Checksum != created.Checksum || len(got.Checksum) != 64 {
		t.Errorf("checksum = %q, want %q", got.Checksum, created.Checksum)
	}
}

func TestCreateNote_Validation(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	gen, err := svc.CreateNote(ctx, NoteInput{Title: "Generated"})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if gen.ID == "" || string(gen.Doc) != "[]" {
		t.Errorf("generated note = %+v", gen.Note)
	}

	if _, err := svc.CreateNote(ctx, NoteInput{ID: "../escape"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad id err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.CreateNote(ctx, NoteInput{ID: "obj", Doc: json.RawMessage(`{"type":"paragraph"}`)}); !errors.Is(err, apperr.ErrInvalidDocument) {
		t.Errorf("bare block err = %v, want ErrInvalidDocument", err)
	}
	if _, err := svc.CreateNote(ctx, NoteInput{ID: gen.ID}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateNote_PatchAndConflict(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	created, _ := svc.CreateNote(ctx, NoteInput{ID: "n", Title: "Old", Doc: json.RawMessage(helloDoc)})

	if _, err := svc.UpdateNote(ctx, "n", NotePatch{}, "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale If-Match err = %v, want ErrConflict", err)
	}

	title := "New"
	pinned := true
	updated, err := svc.UpdateNote(ctx, "n", NotePatch{Title: &title, Pinned: &pinned}, created.Checksum)
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.Title != "New" || !updated.Pinned {
		t.Errorf("updated = %+v", updated.Note)
	}
	if string(updated.Doc) != helloDoc {
		t.Errorf("doc changed by a title patch: %s", updated.Doc)
	}

	if _, err := svc.UpdateNote(ctx, "missing", NotePatch{}, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNote_LegacyMarkdownRewrittenAsJSON(t *testing.T) {
	svc, vaultDir := testService(t)
	ctx := context.Background()
	md := filepath.Join(vaultDir, "old.md")
	if err := os.WriteFile(md, []byte("---\npinned: true\n---\n# Old\n\nbody"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := svc.IndexFile("old.md", mustRead(t, md)); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	title := "Migrated"
	got, err := svc.UpdateNote(ctx, "old", NotePatch{Title: &title}, "")
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	var s string
	if err := json.Unmarshal(got.Doc, &s); err != nil || !strings.Contains(s, "body") {
		t.Errorf("legacy string doc not kept: %s", got.Doc)
	}
	if !got.Pinned {
		t.Error("pinned flag lost")
	}
	if _, err := os.Stat(md); !os.IsNotExist(err) {
		t.Error("legacy file should be removed")
	}
	if _, err := os.Stat(filepath.Join(vaultDir, "old.json")); err != nil {
		t.Errorf("json file missing: %v", err)
	}
}

func TestDeleteNote(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	_, _ = svc.CreateNote(ctx, NoteInput{ID: "gone"})

	if err := svc.DeleteNote(ctx, "gone"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := svc.GetNote(ctx, "gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetNote after delete err = %v", err)
	}
	if err := svc.DeleteNote(ctx, "gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestListNotes_PreviewAndPlacement(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	_, _ = svc.CreateNote(ctx, NoteInput{ID: "a", Doc: json.RawMessage(helloDoc)})
	_, _ = svc.CreateNote(ctx, NoteInput{ID: "b", Title: "Pinned", Pinned: true})

	work, err := svc.SaveFolder(ctx, folders.Folder{Name: "Work"})
	if err != nil {
		t.Fatalf("SaveFolder: %v", err)
	}
	sub, _ := svc.SaveFolder(ctx, folders.Folder{Name: "Sub", ParentID: &work.ID})
	if err := svc.MoveNote(ctx, "a", &sub.ID); err != nil {
		t.Fatalf("MoveNote: %v", err)
	}

	items, total, err := svc.ListNotes(ctx, ListParams{})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 2 || items[0].ID != "b" {
		t.Fatalf("items = %+v, want pinned b first", items)
	}
	if items[0].Preview.Text != preview.Placeholder {
		t.Errorf("empty note preview = %q", items[0].Preview.Text)
	}
	a := items[1]
	if a.Preview.Text != "Hello World #greeting" {
		t.Errorf("preview = %q", a.Preview.Text)
	}
	if a.FolderID == nil || *a.FolderID != sub.ID {
		t.Errorf("folder = %v, want %s", a.FolderID, sub.ID)
	}
	if len(a.Breadcrumb) != 2 || a.Breadcrumb[0].Name != "Work" || a.Breadcrumb[1].Name != "Sub" {
		t.Errorf("breadcrumb = %+v", a.Breadcrumb)
	}

	root := ""
	items, _, _ = svc.ListNotes(ctx, ListParams{Folder: &root})
	if len(items) != 1 || items[0].ID != "b" {
		t.Errorf("root listing = %+v", items)
	}

	missing := "nope"
	if err := svc.MoveNote(ctx, "a", &missing); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("move to missing folder err = %v", err)
	}
}

func TestPreview_InvalidatedOnUpdate(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	created, _ := svc.CreateNote(ctx, NoteInput{ID: "p", Doc: json.RawMessage(`"first"`)})

	if got := svc.Preview("p").Text; got != "first" {
		t.Fatalf("preview = %q", got)
	}
	_, err := svc.UpdateNote(ctx, "p", NotePatch{Doc: json.RawMessage(`"second"`)}, created.Checksum)
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if got := svc.Preview("p").Text; got != "second" {
		t.Errorf("preview after update = %q", got)
	}

	svc.previews.Get("p", func() (any, error) { return "stale", nil })
	svc.Invalidate("p")
	if _, ok := svc.previews.Lookup("p"); ok {
		t.Error("Invalidate should drop the cached preview")
	}
}

func TestPrint(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	_, _ = svc.CreateNote(ctx, NoteInput{ID: "doc", Title: "Report <1>", Doc: json.RawMessage(helloDoc)})

	html, err := svc.Print(ctx, "doc")
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	for _, want := range []string{"<title>Report &lt;1&gt;</title>", "<h1>Hello</h1>", "Exported 2026-03-04 05:06 UTC"} {
		if !strings.Contains(html, want) {
			t.Errorf("print output missing %q", want)
		}
	}
	if _, err := svc.Print(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestShareAndResolve(t *testing.T) {
	svc, vaultDir := testService(t)
	ctx := context.Background()
	_, _ = svc.CreateNote(ctx, NoteInput{ID: "s", Title: "Shared", Doc: json.RawMessage(helloDoc)})

	link, err := svc.Share(ctx, "s", "")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if !strings.HasPrefix(link, origin+"/n#") {
		t.Fatalf("link = %q, want self-contained link", link)
	}
	p, ok := svc.Resolve(ctx, link)
	if !ok || p.Title != "Shared" || len(p.Doc) != 2 {
		t.Fatalf("Resolve = %+v, %v", p, ok)
	}

	override, _ := svc.Share(ctx, "s", "https://other.test/")
	if !strings.HasPrefix(override, "https://other.test/n#") {
		t.Errorf("override link = %q", override)
	}

	if err := os.WriteFile(filepath.Join(vaultDir, "legacy.md"), []byte("# L\n\npara one\n\npara two"), 0o644); err != nil {
		t.Fatal(err)
	}
	_ = svc.IndexFile("legacy.md", mustRead(t, filepath.Join(vaultDir, "legacy.md")))
	link, _ = svc.Share(ctx, "legacy", "")
	p, ok = svc.Resolve(ctx, link)
	if !ok || len(p.Doc) != 3 {
		t.Fatalf("legacy share = %+v, %v", p, ok)
	}

	if _, ok := svc.Resolve(ctx, origin+"/n"); ok {
		t.Error("bare link should not resolve")
	}
}

func TestResolve_CountsViews(t *testing.T) {
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	local := index.LocalShares{DB: db}
	svc := NewService(store, db, share.NewPublisher(nil, origin, nil), share.DefaultResolver(local, nil), local)
	ctx := context.Background()
	_, _ = svc.CreateNote(ctx, NoteInput{ID: "v", Title: "Viewed", Doc: json.RawMessage(helloDoc)})

	link, err := svc.Share(ctx, "v", "")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	for range 2 {
		if _, ok := svc.Resolve(ctx, link); !ok {
			t.Fatalf("Resolve(%q) failed", link)
		}
	}
	if _, ok := svc.Resolve(ctx, origin+"/n#garbage"); ok {
		t.Fatal("garbage link resolved")
	}

	blob := strings.TrimPrefix(link, origin+"/n#")
	views, err := db.RecordView(ctx, share.Hash(blob), "")
	if err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if views != 3 {
		t.Errorf("views = %d, want 3 (two resolves plus this one)", views)
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
