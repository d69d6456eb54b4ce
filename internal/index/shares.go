package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/starford/sheaf/internal/apperr"
)

// shareIDLen is the length of a stored share id.
const shareIDLen = 10

// ShareRow represents a stored share blob.
type ShareRow struct {
	ID        string
	Hash      string
	Title     string
	Blob      string
	CreatedAt time.Time
}

// PutShare stores blob under hash and returns its short id. Storing the same
// hash twice returns the id of the first insert.
func (db *DB) PutShare(ctx context.Context, hash, title, blob string) (string, error) {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO shares (id, hash, title, blob, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, newShareID(), hash, title, blob, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("index: put share: %w", err)
	}

	var id string
	if err := db.conn.QueryRowContext(ctx, `SELECT id FROM shares WHERE hash = ?`, hash).Scan(&id); err != nil {
		return "", fmt.Errorf("index: read share id: %w", err)
	}
	return id, nil
}

// GetShare returns the share stored under id or apperr.ErrNotFound.
func (db *DB) GetShare(ctx context.Context, id string) (*ShareRow, error) {
	var s ShareRow
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, hash, title, blob, created_at FROM shares WHERE id = ?`, id).
		Scan(&s.ID, &s.Hash, &s.Title, &s.Blob, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get share: %w", err)
	}
	return &s, nil
}

// RecordView increments the view counter for hash and returns the new count.
func (db *DB) RecordView(ctx context.Context, hash, title string) (int, error) {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO share_views (hash, title, views) VALUES (?, ?, 1)
		ON CONFLICT(hash) DO UPDATE SET
			views = share_views.views + 1,
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE share_views.title END
	`, hash, title)
	if err != nil {
		return 0, fmt.Errorf("index: record view: %w", err)
	}
	var views int
	if err := db.conn.QueryRowContext(ctx, `SELECT views FROM share_views WHERE hash = ?`, hash).Scan(&views); err != nil {
		return 0, fmt.Errorf("index: read views: %w", err)
	}
	return views, nil
}

// newShareID renders a random uuid in base62 and keeps the first shareIDLen
// characters.
func newShareID() string {
	u := uuid.New()
	s := new(big.Int).SetBytes(u[:]).Text(62)
	for len(s) < shareIDLen {
		s = "0" + s
	}
	return s[:shareIDLen]
}
