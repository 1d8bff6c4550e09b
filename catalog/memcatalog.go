package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wkalt/tsjoin/table"
)

/*
memcatalog is an in-memory implementation of the catalog interface. It is only
suitable for usage in testing.
*/

////////////////////////////////////////////////////////////////////////////////

type memcatalog struct {
	mtx     *sync.RWMutex
	entries map[string][]Entry
}

// NewMemCatalog returns a new in-memory catalog.
func NewMemCatalog() Catalog {
	return &memcatalog{
		mtx:     &sync.RWMutex{},
		entries: make(map[string][]Entry),
	}
}

func (c *memcatalog) Put(
	_ context.Context, name string, objectID string, schema *table.Schema, rows int,
) (Entry, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	versions := c.entries[name]
	var version uint64 = 1
	if len(versions) > 0 {
		version = versions[len(versions)-1].Version + 1
	}
	entry := Entry{
		Name:     name,
		Version:  version,
		ObjectID: objectID,
		Columns:  slices.Clone(schema.Columns),
		Rows:     rows,
		Created:  time.Now().UTC(),
	}
	c.entries[name] = append(versions, entry)
	return entry, nil
}

func (c *memcatalog) Get(_ context.Context, name string) (Entry, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	versions := c.entries[name]
	if len(versions) == 0 {
		return Entry{}, TableNotFoundError{Name: name}
	}
	return versions[len(versions)-1], nil
}

func (c *memcatalog) GetVersion(_ context.Context, name string, version uint64) (Entry, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	for _, entry := range c.entries[name] {
		if entry.Version == version {
			return entry, nil
		}
	}
	return Entry{}, TableNotFoundError{Name: name, Version: version}
}

func (c *memcatalog) Versions(_ context.Context, name string) ([]Entry, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	versions := c.entries[name]
	if len(versions) == 0 {
		return nil, TableNotFoundError{Name: name}
	}
	return slices.Clone(versions), nil
}

func (c *memcatalog) List(_ context.Context) ([]Entry, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	result := make([]Entry, 0, len(c.entries))
	for _, versions := range c.entries {
		result = append(result, versions[len(versions)-1])
	}
	slices.SortFunc(result, func(a, b Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (c *memcatalog) Delete(_ context.Context, name string) ([]Entry, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	versions, ok := c.entries[name]
	if !ok {
		return nil, TableNotFoundError{Name: name}
	}
	delete(c.entries, name)
	return versions, nil
}
