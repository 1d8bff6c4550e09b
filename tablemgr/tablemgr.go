package tablemgr

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/wkalt/tsjoin/catalog"
	"github.com/wkalt/tsjoin/executor"
	"github.com/wkalt/tsjoin/plan"
	"github.com/wkalt/tsjoin/ql"
	"github.com/wkalt/tsjoin/storage"
	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/util"
	"github.com/wkalt/tsjoin/util/log"
	"golang.org/x/sync/errgroup"
)

/*
The table manager oversees the set of stored tables. Each version of a table
is serialized to JSON and written to the storage provider under a fresh uuid,
then recorded in the catalog. Reads consult the catalog for the object backing
the latest version and decode it, consulting an LRU cache of decoded tables
first. Because objects are immutable, the cache is keyed by object id and never
needs invalidation on write.

The table manager also resolves table names for the query executor, so queries
and joins run against the latest stored version of each table.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrInvalidTable is returned when an imported document cannot be read as a
// table.
var ErrInvalidTable = errors.New("invalid table")

// TableManager is the main interface to the tablemgr package.
type TableManager struct {
	store   storage.Provider
	catalog catalog.Catalog
	cache   *util.LRU[string, *table.Table]

	deleteWorkers int
}

// NewTableManager returns a new TableManager.
func NewTableManager(
	store storage.Provider,
	cat catalog.Catalog,
	opts ...Option,
) *TableManager {
	conf := config{
		cacheRows:     1_000_000,
		deleteWorkers: 8,
	}
	for _, opt := range opts {
		opt(&conf)
	}
	return &TableManager{
		store:   store,
		catalog: cat,
		cache: util.NewLRU[string, *table.Table](conf.cacheRows, func(t *table.Table) int64 {
			return int64(max(t.Len(), 1))
		}),
		deleteWorkers: max(conf.deleteWorkers, 1),
	}
}

// Put stores t as the next version of the named table.
func (tm *TableManager) Put(ctx context.Context, name string, t *table.Table) (catalog.Entry, error) {
	named := &table.Table{Name: name, Schema: t.Schema, Rows: t.Rows}
	data, err := json.Marshal(named)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("failed to encode table: %w", err)
	}
	objectID := uuid.NewString()
	if err := tm.store.Put(ctx, objectID, data); err != nil {
		return catalog.Entry{}, fmt.Errorf("failed to store table: %w", err)
	}
	entry, err := tm.catalog.Put(ctx, name, objectID, t.Schema, t.Len())
	if err != nil {
		// The object is unreachable without a catalog entry.
		return catalog.Entry{}, errors.Join(
			fmt.Errorf("failed to record table: %w", err),
			tm.store.Delete(ctx, objectID),
		)
	}
	tm.cacheTable(ctx, objectID, named)
	log.Infow(ctx, "stored table",
		"table", name,
		"version", entry.Version,
		"object", objectID,
		"rows", t.Len(),
		"bytes", util.HumanBytes(uint64(len(data))),
	)
	return entry, nil
}

// ImportCSV reads a CSV document and stores it as the next version of the
// named table.
func (tm *TableManager) ImportCSV(
	ctx context.Context, name string, r io.Reader, hints map[string]table.ColumnType,
) (catalog.Entry, error) {
	t, err := table.ReadCSV(name, r, hints)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	return tm.Put(ctx, name, t)
}

// ImportJSON decodes a JSON table and stores it as the next version of the
// named table. The name in the document is ignored.
func (tm *TableManager) ImportJSON(ctx context.Context, name string, data []byte) (catalog.Entry, error) {
	t, err := table.DecodeJSON(data)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	return tm.Put(ctx, name, t)
}

func (tm *TableManager) cacheTable(ctx context.Context, objectID string, t *table.Table) {
	if err := tm.cache.Put(objectID, t); err != nil {
		log.Debugw(ctx, "table not cached", "object", objectID, "rows", t.Len(), "error", err)
	}
}

func (tm *TableManager) load(ctx context.Context, entry catalog.Entry) (*table.Table, error) {
	if t, ok := tm.cache.Get(entry.ObjectID); ok {
		util.IncContextValue(ctx, "cache_hits", 1)
		return t, nil
	}
	util.IncContextValue(ctx, "cache_misses", 1)
	data, err := tm.store.Get(ctx, entry.ObjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get table %s version %d: %w", entry.Name, entry.Version, err)
	}
	t, err := table.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode table %s version %d: %w", entry.Name, entry.Version, err)
	}
	t.Name = entry.Name
	tm.cacheTable(ctx, entry.ObjectID, t)
	return t, nil
}

// Get returns the latest version of the named table.
func (tm *TableManager) Get(ctx context.Context, name string) (*table.Table, error) {
	entry, err := tm.catalog.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return tm.load(ctx, entry)
}

// GetVersion returns a specific version of the named table.
func (tm *TableManager) GetVersion(ctx context.Context, name string, version uint64) (*table.Table, error) {
	entry, err := tm.catalog.GetVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}
	return tm.load(ctx, entry)
}

// Resolve implements executor.TableResolver.
func (tm *TableManager) Resolve(ctx context.Context, name string) (*table.Table, error) {
	t, err := tm.Get(ctx, name)
	if err != nil {
		if errors.Is(err, catalog.TableNotFoundError{}) {
			return nil, executor.TableNotFoundError{Table: name}
		}
		return nil, err
	}
	return t, nil
}

// List returns the catalog entry for the latest version of every table.
func (tm *TableManager) List(ctx context.Context) ([]catalog.Entry, error) {
	entries, err := tm.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return entries, nil
}

// Versions returns the catalog entries for every version of the named table.
func (tm *TableManager) Versions(ctx context.Context, name string) ([]catalog.Entry, error) {
	return tm.catalog.Versions(ctx, name)
}

// Delete drops every version of the named table. The catalog entries are
// removed first, so a failure to delete an object leaves an orphan rather than
// a dangling entry.
func (tm *TableManager) Delete(ctx context.Context, name string) error {
	entries, err := tm.catalog.Delete(ctx, name)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tm.deleteWorkers)
	for _, entry := range entries {
		tm.cache.Delete(entry.ObjectID)
		g.Go(func() error {
			return tm.store.Delete(gctx, entry.ObjectID)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to delete objects of table %s: %w", name, err)
	}
	log.Infow(ctx, "deleted table", "table", name, "versions", len(entries))
	return nil
}

// Compile parses a query and compiles it against the stored tables.
func (tm *TableManager) Compile(ctx context.Context, query string) (executor.Node, error) {
	ast, err := ql.NewParser().ParseString("", query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	qp, err := plan.CompileQuery(*ast)
	if err != nil {
		return nil, fmt.Errorf("failed to compile query: %w", err)
	}
	node, err := executor.CompilePlan(ctx, qp, tm)
	if err != nil {
		return nil, fmt.Errorf("failed to compile plan: %w", err)
	}
	return node, nil
}

// Query executes a query to completion and returns the result.
func (tm *TableManager) Query(ctx context.Context, query string) (*table.Table, error) {
	node, err := tm.Compile(ctx, query)
	if err != nil {
		return nil, err
	}
	log.Debugw(ctx, "executing query", "plan", node.String())
	return executor.Collect(ctx, "result", node)
}

// Join runs an as-of join between the latest versions of two stored tables,
// partitioned across the requested number of shards.
func (tm *TableManager) Join(
	ctx context.Context,
	left, right string,
	shards int,
	opts ...executor.AsofOption,
) (*table.Table, error) {
	var lt, rt *table.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lt, err = tm.Resolve(gctx, left)
		return err
	})
	g.Go(func() (err error) {
		rt, err = tm.Resolve(gctx, right)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	util.SetContextData(ctx, "left", left)
	util.SetContextData(ctx, "right", right)
	return executor.ShardedAsofJoin(ctx, lt, rt, shards, opts...)
}
