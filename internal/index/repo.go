package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/sheaf/internal/apperr"
)

const defaultListLimit = 50

// NoteRow represents a row in the notes table.
type NoteRow struct {
	ID        string
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	Pinned    bool
	UpdatedAt time.Time
}

// ListQuery filters and pages ListNotes. A nil Folder lists every note; a
// pointer to "" lists notes at the root, including notes placed in a folder
// that no longer exists.
type ListQuery struct {
	Limit  int
	Offset int
	Tag    string
	Sort   string
	Folder *string
}

// UpsertNote inserts or replaces a note's metadata.
func (db *DB) UpsertNote(n NoteRow) error {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now()
	}

	_, err := db.conn.Exec(`
		INSERT INTO notes (id, path, title, checksum, tags, pinned, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path       = excluded.path,
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			pinned     = excluded.pinned,
			updated_at = excluded.updated_at
	`, n.ID, n.Path, n.Title, n.Checksum, string(tagsJSON), n.Pinned, n.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}
	return nil
}

// DeleteNote removes a note and its folder placement.
func (db *DB) DeleteNote(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, _ = tx.Exec(`DELETE FROM note_folders WHERE note_id = ?`, id)
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE id = ?`, id).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetNote returns one note row or apperr.ErrNotFound.
func (db *DB) GetNote(id string) (*NoteRow, error) {
	row := db.conn.QueryRow(`
		SELECT id, path, title, checksum, tags, pinned, updated_at
		FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return n, nil
}

// ListNotes returns a page of notes, pinned first, and the total match count.
func (db *DB) ListNotes(q ListQuery) ([]NoteRow, int, error) {
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	var where []string
	var args []any
	if q.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(notes.tags) WHERE json_each.value = ?)`)
		args = append(args, q.Tag)
	}
	if q.Folder != nil {
		const placed = `SELECT 1 FROM note_folders nf JOIN folders f ON f.id = nf.folder_id WHERE nf.note_id = notes.id`
		if *q.Folder == "" {
			where = append(where, `NOT EXISTS (`+placed+`)`)
		} else {
			where = append(where, `EXISTS (`+placed+` AND nf.folder_id = ?)`)
			args = append(args, *q.Folder)
		}
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	order := "updated_at DESC"
	if q.Sort == "title" {
		order = "title COLLATE NOCASE ASC"
	}
	rows, err := db.conn.Query(`
		SELECT id, path, title, checksum, tags, pinned, updated_at
		FROM notes`+clause+`
		ORDER BY pinned DESC, `+order+`, id ASC
		LIMIT ? OFFSET ?`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the checksum of every indexed note keyed by id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*NoteRow, error) {
	var n NoteRow
	var tags string
	if err := s.Scan(&n.ID, &n.Path, &n.Title, &n.Checksum, &tags, &n.Pinned, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil || n.Tags == nil {
		n.Tags = []string{}
	}
	return &n, nil
}
