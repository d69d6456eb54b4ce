package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/sheaf/internal/apperr"
	"github.com/starford/sheaf/internal/folders"
)

// Folders returns every folder row.
func (db *DB) Folders(ctx context.Context) ([]folders.Folder, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, parent_id, created_at, updated_at
		FROM folders ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("index: list folders: %w", err)
	}
	defer rows.Close()

	var out []folders.Folder
	for rows.Next() {
		var f folders.Folder
		var parent sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &parent, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if parent.Valid && parent.String != "" {
			p := parent.String
			f.ParentID = &p
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Placement returns the note-to-folder map.
func (db *DB) Placement(ctx context.Context) (folders.Placement, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT note_id, folder_id FROM note_folders`)
	if err != nil {
		return nil, fmt.Errorf("index: list placement: %w", err)
	}
	defer rows.Close()

	out := folders.Placement{}
	for rows.Next() {
		var noteID string
		var folderID sql.NullString
		if err := rows.Scan(&noteID, &folderID); err != nil {
			return nil, err
		}
		if folderID.Valid && folderID.String != "" {
			id := folderID.String
			out[noteID] = &id
		} else {
			out[noteID] = nil
		}
	}
	return out, rows.Err()
}

// UpsertFolder creates or renames a folder.
func (db *DB) UpsertFolder(ctx context.Context, f folders.Folder) error {
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO folders (id, name, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name       = excluded.name,
			parent_id  = excluded.parent_id,
			updated_at = excluded.updated_at
	`, f.ID, f.Name, nullable(f.ParentID), f.CreatedAt.UTC(), now)
	if err != nil {
		return fmt.Errorf("index: upsert folder: %w", err)
	}
	return nil
}

// DeleteFolder removes a folder row. Notes placed in it fall back to root on
// read; their placement rows are left alone.
func (db *DB) DeleteFolder(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("index: delete folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SetPlacement moves a note into folderID, or to the root when folderID is nil.
func (db *DB) SetPlacement(ctx context.Context, noteID string, folderID *string) error {
	var err error
	if folderID == nil || *folderID == "" {
		_, err = db.conn.ExecContext(ctx, `DELETE FROM note_folders WHERE note_id = ?`, noteID)
	} else {
		_, err = db.conn.ExecContext(ctx, `
			INSERT INTO note_folders (note_id, folder_id) VALUES (?, ?)
			ON CONFLICT(note_id) DO UPDATE SET folder_id = excluded.folder_id
		`, noteID, *folderID)
	}
	if err != nil {
		return fmt.Errorf("index: set placement: %w", err)
	}
	return nil
}

func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
