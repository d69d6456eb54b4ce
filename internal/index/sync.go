package index

import (
	"log/slog"
	"time"

	"github.com/starford/sheaf/internal/checksum"
	"github.com/starford/sheaf/internal/parser"
	"github.com/starford/sheaf/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed note files are parsed and upserted
//   - notes whose file is gone are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.ID] = struct{}{}

		if checksums[m.ID] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("id", m.ID))
		}
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteNote(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("id", id))
			}
		}
	}

	return nil
}

// IndexFile parses the note file at path and upserts its metadata.
func IndexFile(db *DB, path string, data []byte, updatedAt time.Time) error {
	res, err := parser.Parse(path, data)
	if err != nil {
		return err
	}
	return db.UpsertNote(NoteRow{
		ID:        storage.NoteID(path),
		Path:      path,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		Tags:      res.Tags,
		Pinned:    res.Pinned,
		UpdatedAt: updatedAt,
	})
}
