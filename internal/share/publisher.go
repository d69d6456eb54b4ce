package share

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/sheaf/internal/checksum"
	"github.com/starford/sheaf/internal/document"
)

// Store persists a blob under its hash and returns a short id.
type Store interface {
	Put(ctx context.Context, req PutRequest) (string, error)
}

// Publisher builds shareable links.
type Publisher struct {
	store  Store
	origin string
	log    *slog.Logger
}

// NewPublisher creates a publisher. A nil store always yields self-contained
// links.
func NewPublisher(store Store, origin string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{store: store, origin: origin, log: log}
}

// Publish returns a link for doc. It tries to persist the encoded blob and
// return origin/n/<id>; on any store failure it returns origin/n#<blob>,
// which resolves without the store. It never fails.
func (p *Publisher) Publish(ctx context.Context, title string, doc document.Doc, originOverride string) string {
	origin := p.origin
	if originOverride != "" {
		origin = originOverride
	}
	origin = strings.TrimRight(origin, "/")

	blob, err := Encode(NewPayload(title, doc))
	if err != nil {
		p.log.Warn("share encode failed, publishing empty document", slog.String("error", err.Error()))
		blob, _ = Encode(NewPayload(title, nil))
	}

	if p.store != nil {
		id, err := p.store.Put(ctx, PutRequest{Hash: Hash(blob), Title: title, Blob: blob})
		if err == nil {
			return origin + "/n/" + id
		}
		p.log.Warn("share store unavailable, using self-contained link", slog.String("error", err.Error()))
	}
	return origin + "/n#" + blob
}

// Hash is the content address of a blob: the hex SHA-256 of the compressed
// string, not of the payload it encodes.
func Hash(blob string) string {
	return checksum.String(blob)
}
