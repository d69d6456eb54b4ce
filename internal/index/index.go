package index

import (
	"context"

	"github.com/starford/sheaf/internal/folders"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow) error
	DeleteNote(id string) error
	GetChecksum(id string) (string, error)
	GetNote(id string) (*NoteRow, error)
	ListNotes(q ListQuery) ([]NoteRow, int, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// ShareRepo is the server side of the share store.
type ShareRepo interface {
	PutShare(ctx context.Context, hash, title, blob string) (string, error)
	GetShare(ctx context.Context, id string) (*ShareRow, error)
	RecordView(ctx context.Context, hash, title string) (int, error)
}

// Verify *DB satisfies the interfaces at compile time.
var (
	_ NoteIndex      = (*DB)(nil)
	_ ShareRepo      = (*DB)(nil)
	_ folders.Source = (*DB)(nil)
)
