package noteservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/starford/sheaf/internal/apperr"
	"github.com/starford/sheaf/internal/checksum"
	"github.com/starford/sheaf/internal/document"
	"github.com/starford/sheaf/internal/export"
	"github.com/starford/sheaf/internal/folders"
	"github.com/starford/sheaf/internal/index"
	"github.com/starford/sheaf/internal/models"
	"github.com/starford/sheaf/internal/parser"
	"github.com/starford/sheaf/internal/preview"
	"github.com/starford/sheaf/internal/render"
	"github.com/starford/sheaf/internal/share"
	"github.com/starford/sheaf/internal/storage"
)

var idRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.Note
	FolderID   *string          `json:"folder_id"`
	Breadcrumb []folders.Folder `json:"breadcrumb"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Checksum   string           `json:"checksum"`
	Tags       []string         `json:"tags"`
	Pinned     bool             `json:"pinned"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Preview    preview.Preview  `json:"preview"`
	FolderID   *string          `json:"folder_id"`
	Breadcrumb []folders.Folder `json:"breadcrumb"`
}

// NoteInput is the body of a new note. An empty ID is generated.
type NoteInput struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Doc    json.RawMessage `json:"doc"`
	Pinned bool            `json:"pinned"`
	Tags   []string        `json:"tags"`
}

// NotePatch updates the fields that are set.
type NotePatch struct {
	Title  *string         `json:"title"`
	Doc    json.RawMessage `json:"doc"`
	Pinned *bool           `json:"pinned"`
	Tags   *[]string       `json:"tags"`
}

// ListParams filters ListNotes. A nil Folder lists all notes; "" lists root.
type ListParams struct {
	Limit  int
	Offset int
	Tag    string
	Sort   string
	Folder *string
}

// Service coordinates storage, index, previews and sharing.
type Service struct {
	store     storage.Provider
	db        *index.DB
	previews  *preview.Cache
	publisher *share.Publisher
	resolver  *share.Resolver
	views     share.ViewCounter
	now       func() time.Time
}

// NewService creates a new note service. A nil publisher produces
// self-contained links only; a nil resolver resolves fragment and legacy
// links only; a nil view counter leaves resolved links uncounted.
func NewService(store storage.Provider, db *index.DB, pub *share.Publisher, res *share.Resolver, views share.ViewCounter) *Service {
	if pub == nil {
		pub = share.NewPublisher(nil, "", nil)
	}
	if res == nil {
		res = share.DefaultResolver(nil, nil)
	}
	return &Service{
		store:     store,
		db:        db,
		previews:  preview.NewCache(),
		publisher: pub,
		resolver:  res,
		views:     views,
		now:       time.Now,
	}
}

// GetNote reads a note from storage and attaches its folder placement.
func (s *Service) GetNote(ctx context.Context, id string) (*NoteDetail, error) {
	path, data, err := s.read(id)
	if err != nil {
		return nil, err
	}
	note, err := s.buildNote(id, path, data)
	if err != nil {
		return nil, err
	}
	tree, err := folders.Load(ctx, s.db)
	if err != nil {
		return nil, err
	}
	folderID, crumbs := placementOf(tree, id)
	return &NoteDetail{Note: *note, FolderID: folderID, Breadcrumb: crumbs}, nil
}

// CreateNote writes a new JSON note and indexes it.
func (s *Service) CreateNote(ctx context.Context, in NoteInput) (*NoteDetail, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	if !idRe.MatchString(id) {
		return nil, fmt.Errorf("noteservice: id %q: %w", id, apperr.ErrInvalidInput)
	}
	if _, _, err := s.read(id); err == nil {
		return nil, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	doc, err := parser.NormalizeDoc(in.Doc)
	if err != nil {
		return nil, err
	}
	file := models.NoteFile{Title: in.Title, Doc: doc, Pinned: in.Pinned, Tags: nonNilSlice(in.Tags)}
	if err := s.write(id, storage.NotePath(id), file); err != nil {
		return nil, err
	}
	return s.GetNote(ctx, id)
}

// UpdateNote applies patch with optimistic concurrency. A legacy Markdown
// note is rewritten as JSON on its first update.
func (s *Service) UpdateNote(ctx context.Context, id string, patch NotePatch, ifMatch string) (*NoteDetail, error) {
	path, existing, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}

	res, err := parser.Parse(path, existing)
	if err != nil {
		return nil, err
	}
	file := models.NoteFile{Title: res.Title, Doc: res.Doc, Pinned: res.Pinned, Tags: res.Tags}
	if patch.Title != nil {
		file.Title = *patch.Title
	}
	if patch.Doc != nil {
		if file.Doc, err = parser.NormalizeDoc(patch.Doc); err != nil {
			return nil, err
		}
	}
	if patch.Pinned != nil {
		file.Pinned = *patch.Pinned
	}
	if patch.Tags != nil {
		file.Tags = nonNilSlice(*patch.Tags)
	}

	target := storage.NotePath(id)
	if err := s.write(id, target, file); err != nil {
		return nil, err
	}
	if path != target {
		if err := s.store.Delete(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("noteservice: remove legacy file: %w", err)
		}
	}
	return s.GetNote(ctx, id)
}

// DeleteNote removes a note from storage and index.
func (s *Service) DeleteNote(_ context.Context, id string) error {
	path, _, err := s.read(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(path); err != nil {
		return err
	}
	s.previews.Forget(id)
	return s.db.DeleteNote(id)
}

// ListNotes returns a page of notes with previews and folder placement.
func (s *Service) ListNotes(ctx context.Context, p ListParams) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(index.ListQuery{
		Limit:  p.Limit,
		Offset: p.Offset,
		Tag:    p.Tag,
		Sort:   p.Sort,
		Folder: p.Folder,
	})
	if err != nil {
		return nil, 0, err
	}
	tree, err := folders.Load(ctx, s.db)
	if err != nil {
		return nil, 0, err
	}

	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		folderID, crumbs := placementOf(tree, r.ID)
		items[i] = NoteListItem{
			ID:         r.ID,
			Title:      r.Title,
			Checksum:   r.Checksum,
			Tags:       nonNilSlice(r.Tags),
			Pinned:     r.Pinned,
			UpdatedAt:  r.UpdatedAt,
			Preview:    s.Preview(r.ID),
			FolderID:   folderID,
			Breadcrumb: crumbs,
		}
	}
	return items, total, nil
}

// Preview returns the cached preview of a note, extracting it on first use.
// A note that cannot be read gets the placeholder preview.
func (s *Service) Preview(id string) preview.Preview {
	return s.previews.Get(id, func() (any, error) {
		doc, err := s.loadDoc(id)
		if err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// Invalidate drops cached derived state for a note after it changed on disk.
func (s *Service) Invalidate(id string) {
	s.previews.Forget(id)
}

// Fetch implements export.Fetcher.
func (s *Service) Fetch(_ context.Context, id string) (export.Document, error) {
	path, data, err := s.read(id)
	if err != nil {
		return export.Document{}, err
	}
	res, err := parser.Parse(path, data)
	if err != nil {
		return export.Document{}, err
	}
	return export.Document{Title: res.Title, Doc: res.Doc}, nil
}

// Print renders the print document of a note.
func (s *Service) Print(ctx context.Context, id string) (string, error) {
	d, err := s.Fetch(ctx, id)
	if err != nil {
		return "", err
	}
	return render.Print(d.Doc, d.Title, s.now()), nil
}

// Share publishes a note and returns its link. originOverride replaces the
// configured origin when set.
func (s *Service) Share(ctx context.Context, id, originOverride string) (string, error) {
	d, err := s.Fetch(ctx, id)
	if err != nil {
		return "", err
	}
	return s.publisher.Publish(ctx, d.Title, shareDoc(d.Doc), originOverride), nil
}

// NewViewer returns a viewer over the service's resolver that counts every
// view it applies.
func (s *Service) NewViewer() *share.Viewer {
	return share.NewViewer(s.resolver, s.views)
}

// Resolve turns a shared link back into its payload and counts the view. A
// resolution abandoned through ctx is neither returned nor counted.
func (s *Service) Resolve(ctx context.Context, rawURL string) (*share.Payload, bool) {
	state, applied := s.NewViewer().Open(ctx, share.ParseLocation(rawURL))
	if !applied || state.Invalid {
		return nil, false
	}
	return state.Payload, true
}

// MoveNote places a note in folderID, or at the root when folderID is nil.
// The note file is not touched.
func (s *Service) MoveNote(ctx context.Context, id string, folderID *string) error {
	if _, err := s.db.GetNote(id); err != nil {
		return err
	}
	if folderID != nil && *folderID != "" {
		tree, err := folders.Load(ctx, s.db)
		if err != nil {
			return err
		}
		if _, ok := tree.Folder(*folderID); !ok {
			return fmt.Errorf("noteservice: folder %q: %w", *folderID, apperr.ErrNotFound)
		}
	}
	return s.db.SetPlacement(ctx, id, folderID)
}

// Folders returns the folder tree as a flat list.
func (s *Service) Folders(ctx context.Context) ([]folders.Folder, error) {
	list, err := s.db.Folders(ctx)
	return nonNilSlice(list), err
}

// SaveFolder creates or renames a folder.
func (s *Service) SaveFolder(ctx context.Context, f folders.Folder) (folders.Folder, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if err := s.db.UpsertFolder(ctx, f); err != nil {
		return folders.Folder{}, err
	}
	tree, err := folders.Load(ctx, s.db)
	if err != nil {
		return folders.Folder{}, err
	}
	saved, _ := tree.Folder(f.ID)
	return saved, nil
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	s.previews.Forget(storage.NoteID(path))
	return index.IndexFile(s.db, path, data, s.now())
}

// read locates a note by id. The index knows the path; a note that is on
// disk but not yet indexed is found at its JSON path.
func (s *Service) read(id string) (string, []byte, error) {
	path := storage.NotePath(id)
	if row, err := s.db.GetNote(id); err == nil {
		path = row.Path
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return "", nil, err
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, apperr.ErrNotFound
		}
		return "", nil, err
	}
	return path, data, nil
}

func (s *Service) write(id, path string, file models.NoteFile) error {
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("noteservice: encode note %s: %w", id, err)
	}
	if err := s.store.Write(path, data); err != nil {
		return err
	}
	return s.IndexFile(path, data)
}

func (s *Service) loadDoc(id string) (json.RawMessage, error) {
	path, data, err := s.read(id)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	return res.Doc, nil
}

// buildNote constructs a Note from raw data without re-reading the file.
func (s *Service) buildNote(id, path string, data []byte) (*models.Note, error) {
	res, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	updated := s.now()
	if row, err := s.db.GetNote(id); err == nil {
		updated = row.UpdatedAt
	}
	return &models.Note{
		ID:        id,
		Path:      path,
		Title:     res.Title,
		Doc:       res.Doc,
		Pinned:    res.Pinned,
		Tags:      nonNilSlice(res.Tags),
		Checksum:  checksum.Sum(data),
		UpdatedAt: updated,
	}, nil
}

// shareDoc converts a stored document into the block form a share payload
// carries. Legacy string documents become plain paragraphs.
func shareDoc(doc any) document.Doc {
	raw, _ := doc.(json.RawMessage)
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return document.FromText(text)
	}
	if d, ok := document.FromValue(raw); ok {
		return d
	}
	return document.Doc{}
}

func placementOf(tree *folders.Tree, noteID string) (*string, []folders.Folder) {
	f := tree.FolderOf(noteID)
	if f == nil {
		return nil, []folders.Folder{}
	}
	id := f.ID
	return &id, tree.Breadcrumb(id)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
