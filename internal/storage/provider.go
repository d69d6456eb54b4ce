// Package storage defines the vault file-system abstraction.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/starford/sheaf/internal/models"
)

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every note file under dir (relative to vault root).
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	// A missing file is reported as apperr.ErrNotFound.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	// A missing file is reported as apperr.ErrNotFound.
	Delete(path string) error
}

// IsNoteFile reports whether name has a note extension.
func IsNoteFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == models.ExtJSON || ext == models.ExtMarkdown
}

// NoteID returns the id of the note stored at path: the file name without
// directory or extension.
func NoteID(path string) string {
	base := filepath.Base(filepath.ToSlash(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NotePath returns the vault path a JSON note with id is written to.
func NotePath(id string) string {
	return id + models.ExtJSON
}
