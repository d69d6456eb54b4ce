package index

import (
	"context"
	"encoding/json"

	"github.com/starford/sheaf/internal/share"
)

// LocalShares serves the publisher, the short-link tier and the view counter
// straight from the shares tables, for deployments without a remote share
// store.
type LocalShares struct {
	DB *DB
}

// Put implements share.Store.
func (l LocalShares) Put(ctx context.Context, req share.PutRequest) (string, error) {
	return l.DB.PutShare(ctx, req.Hash, req.Title, req.Blob)
}

// Get implements share.Lookup with the same body GET /shares/get/{id} returns.
func (l LocalShares) Get(ctx context.Context, id string) (json.RawMessage, error) {
	row, err := l.DB.GetShare(ctx, id)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"data": map[string]string{"blob": row.Blob, "title": row.Title},
	})
}

// View implements share.ViewCounter.
func (l LocalShares) View(ctx context.Context, req share.ViewRequest) (int, error) {
	return l.DB.RecordView(ctx, req.Hash, req.Title)
}

var (
	_ share.Store       = LocalShares{}
	_ share.Lookup      = LocalShares{}
	_ share.ViewCounter = LocalShares{}
)
