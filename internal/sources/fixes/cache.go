package fixes

import (
	"github.com/bakkerme/manifest-watch/internal/jsonfile"
)

// Cache is the last successful scripted scrape, kept on disk as a JSON array.
type Cache struct {
	path string
}

func NewCache(path string) *Cache {
	return &Cache{path: path}
}

func (c *Cache) Save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	return jsonfile.Save(c.path, entries)
}

// Load returns the cached entries. A missing cache is not an error.
func (c *Cache) Load() ([]Entry, error) {
	var entries []Entry
	if _, err := jsonfile.Load(c.path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
