package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/wkalt/tsjoin/table"
)

/*
The catalog is an association between table names and the storage objects
holding each version of the table. Every read of a stored table consults the
catalog to find the object for the latest version, and every write appends a
new version. Versions of a name are numbered from 1 and never reused while the
name exists.

Losing the catalog leaves the storage objects intact but unnamed.
*/

////////////////////////////////////////////////////////////////////////////////

// Entry is a catalog record for one version of a table.
type Entry struct {
	Name     string         `json:"name"`
	Version  uint64         `json:"version"`
	ObjectID string         `json:"objectId"`
	Columns  []table.Column `json:"columns"`
	Rows     int            `json:"rows"`
	Created  time.Time      `json:"created"`
}

// Catalog is the interface implemented by catalog backends.
type Catalog interface {
	// Put records a new version of a table and returns its entry.
	Put(ctx context.Context, name string, objectID string, schema *table.Schema, rows int) (Entry, error)
	// Get returns the latest version of a table.
	Get(ctx context.Context, name string) (Entry, error)
	// GetVersion returns a specific version of a table.
	GetVersion(ctx context.Context, name string, version uint64) (Entry, error)
	// Versions returns every version of a table, oldest first.
	Versions(ctx context.Context, name string) ([]Entry, error)
	// List returns the latest version of every table, ordered by name.
	List(ctx context.Context) ([]Entry, error)
	// Delete removes every version of a table and returns the removed entries.
	Delete(ctx context.Context, name string) ([]Entry, error)
}

// TableNotFoundError is returned when a table or table version does not exist.
type TableNotFoundError struct {
	Name    string
	Version uint64
}

func (e TableNotFoundError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("table %s version %d not found", e.Name, e.Version)
	}
	return fmt.Sprintf("table %s not found", e.Name)
}

// Is returns true if the target is a TableNotFoundError.
func (e TableNotFoundError) Is(target error) bool {
	_, ok := target.(TableNotFoundError)
	return ok
}
