package preview

import (
	"github.com/patrickmn/go-cache"
)

// Cache holds previews keyed by document id for the lifetime of the view
// that owns it. Entries never expire; the first reader of an id populates it.
type Cache struct {
	c *cache.Cache
}

// NewCache returns an empty cache without a cleanup janitor.
func NewCache() *Cache {
	return &Cache{c: cache.New(cache.NoExpiration, 0)}
}

// Get returns the cached preview for id, loading and extracting the document
// on a miss. A load error yields the placeholder preview and is not cached.
func (c *Cache) Get(id string, load func() (any, error)) Preview {
	if p, ok := c.Lookup(id); ok {
		return p
	}
	doc, err := load()
	if err != nil {
		return Preview{Text: Placeholder}
	}
	p := Extract(doc)
	if err := c.c.Add(id, p, cache.NoExpiration); err != nil {
		// Another reader got there first; theirs wins.
		if existing, ok := c.Lookup(id); ok {
			return existing
		}
	}
	return p
}

// Lookup returns a cached preview without loading.
func (c *Cache) Lookup(id string) (Preview, bool) {
	v, ok := c.c.Get(id)
	if !ok {
		return Preview{}, false
	}
	p, ok := v.(Preview)
	return p, ok
}

// Forget drops the entry for id.
func (c *Cache) Forget(id string) {
	c.c.Delete(id)
}

// Len returns the number of cached previews.
func (c *Cache) Len() int {
	return c.c.ItemCount()
}

// Flush empties the cache.
func (c *Cache) Flush() {
	c.c.Flush()
}
