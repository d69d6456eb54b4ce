// Package models defines the domain types for Sheaf.
package models

import (
	"encoding/json"
	"time"
)

// Note extensions recognised in the vault. New notes are always written as
// JSON; Markdown files are legacy notes whose document is a plain string.
const (
	ExtJSON     = ".json"
	ExtMarkdown = ".md"
)

// NoteFile is the on-disk form of a note. Doc is kept raw so that both block
// documents and legacy string documents survive a read-write cycle.
type NoteFile struct {
	Title  string          `json:"title"`
	Doc    json.RawMessage `json:"doc"`
	Pinned bool            `json:"pinned"`
	Tags   []string        `json:"tags"`
}

// Note is a stored note with its identity and revision.
type Note struct {
	ID        string          `json:"id"`
	Path      string          `json:"-"`
	Title     string          `json:"title"`
	Doc       json.RawMessage `json:"doc"`
	Pinned    bool            `json:"pinned"`
	Tags      []string        `json:"tags"`
	Checksum  string          `json:"checksum"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
