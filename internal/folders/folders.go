// Package folders joins an externally owned folder tree with the sparse
// note-to-folder placement map. It only reads both; moving a note changes the
// placement map and never the note's document.
package folders

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Folder is one node of the folder tree. A nil ParentID is a top-level folder.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Placement maps note ids to folder ids. A missing entry or a nil value means
// the note sits at the root.
type Placement map[string]*string

// Source supplies the folder tree and placement map.
type Source interface {
	Folders(ctx context.Context) ([]Folder, error)
	Placement(ctx context.Context) (Placement, error)
}

// Tree is a read-only snapshot of folders and placements.
type Tree struct {
	byID      map[string]Folder
	placement Placement
}

// NewTree builds a snapshot. Later duplicates of a folder id win.
func NewTree(list []Folder, placement Placement) *Tree {
	byID := make(map[string]Folder, len(list))
	for _, f := range list {
		byID[f.ID] = f
	}
	if placement == nil {
		placement = Placement{}
	}
	return &Tree{byID: byID, placement: placement}
}

// Load reads a snapshot from src.
func Load(ctx context.Context, src Source) (*Tree, error) {
	list, err := src.Folders(ctx)
	if err != nil {
		return nil, fmt.Errorf("folders: load folders: %w", err)
	}
	placement, err := src.Placement(ctx)
	if err != nil {
		return nil, fmt.Errorf("folders: load placement: %w", err)
	}
	return NewTree(list, placement), nil
}

// Folder returns the folder with id.
func (t *Tree) Folder(id string) (Folder, bool) {
	f, ok := t.byID[id]
	return f, ok
}

// FolderOf returns the folder a note is placed in, or nil when the note is
// at the root. A placement that points at a folder which no longer exists is
// treated as root.
func (t *Tree) FolderOf(noteID string) *Folder {
	id := t.placement[noteID]
	if id == nil {
		return nil
	}
	f, ok := t.byID[*id]
	if !ok {
		return nil
	}
	return &f
}

// Breadcrumb returns the chain of folders from the top level down to
// folderID inclusive. The walk stops at a missing parent or a cycle.
func (t *Tree) Breadcrumb(folderID string) []Folder {
	var chain []Folder
	seen := make(map[string]struct{})
	current := &folderID
	for current != nil {
		if _, loop := seen[*current]; loop {
			break
		}
		seen[*current] = struct{}{}

		f, ok := t.byID[*current]
		if !ok {
			break
		}
		chain = append([]Folder{f}, chain...)
		current = f.ParentID
	}
	return chain
}

// Children returns the direct children of parentID ("" for top level),
// sorted by name.
func (t *Tree) Children(parentID string) []Folder {
	var out []Folder
	for _, f := range t.byID {
		switch {
		case parentID == "" && f.ParentID == nil:
		case f.ParentID != nil && *f.ParentID == parentID:
		default:
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// InFolder reports whether noteID is placed in folderID. An empty folderID
// matches notes at the root, including notes whose folder no longer exists.
func (t *Tree) InFolder(noteID, folderID string) bool {
	f := t.FolderOf(noteID)
	if folderID == "" {
		return f == nil
	}
	return f != nil && f.ID == folderID
}
