package export

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a blob stays readable after it is created.
const DefaultTTL = 60 * time.Second

type blob struct {
	contentType string
	body        []byte
}

// Blobs holds short-lived in-memory documents addressed by random ids.
// Each blob expires a fixed delay after creation whether or not it has
// been read yet; reads never extend it.
type Blobs struct {
	items  *cache.Cache
	prefix string
}

// NewBlobs creates a registry whose URLs start with prefix (e.g. "/blobs").
// A non-positive ttl uses DefaultTTL.
func NewBlobs(prefix string, ttl time.Duration) *Blobs {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Blobs{
		items:  cache.New(ttl, ttl),
		prefix: strings.TrimRight(prefix, "/"),
	}
}

// Create stores body and returns its URL. The blob expires after the ttl.
func (b *Blobs) Create(contentType string, body []byte) string {
	id := uuid.NewString()
	b.items.Set(id, blob{contentType: contentType, body: body}, cache.DefaultExpiration)
	return b.prefix + "/" + id
}

// Get returns the blob body and content type.
func (b *Blobs) Get(id string) ([]byte, string, bool) {
	v, ok := b.items.Get(id)
	if !ok {
		return nil, "", false
	}
	it := v.(blob)
	return it.body, it.contentType, true
}

// Revoke drops the blob. Revoking an unknown id is a no-op.
func (b *Blobs) Revoke(id string) {
	b.items.Delete(id)
}

// Len reports the number of live blobs. Expired blobs that the janitor has
// not swept yet are not counted.
func (b *Blobs) Len() int {
	return len(b.items.Items())
}

// ServeHTTP serves GET {prefix}/{id}. Revoked, expired or unknown ids are 404.
func (b *Blobs) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		id = r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	}
	body, ct, ok := b.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
