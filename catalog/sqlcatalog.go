package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/relvacode/iso8601"
	"github.com/wkalt/tsjoin/table"
)

/*
sqlcatalog stores the catalog in a SQL database. It is developed against
sqlite3 (mattn/go-sqlite3); the caller is responsible for opening the database
and registering the driver.
*/

////////////////////////////////////////////////////////////////////////////////

type sqlCatalog struct {
	db *sql.DB
}

// NewSQLCatalog returns a catalog backed by db, migrating the schema if
// required.
func NewSQLCatalog(db *sql.DB) (Catalog, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &sqlCatalog{db: db}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry   Entry
		columns string
		created string
	)
	if err := row.Scan(&entry.Name, &entry.Version, &entry.ObjectID, &columns, &entry.Rows, &created); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(columns), &entry.Columns); err != nil {
		return Entry{}, fmt.Errorf("failed to decode columns: %w", err)
	}
	ts, err := iso8601.ParseString(created)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse creation time: %w", err)
	}
	entry.Created = ts.UTC()
	return entry, nil
}

func queryEntries(ctx context.Context, q querier, query string, args ...any) ([]Entry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return entries, nil
}

func (c *sqlCatalog) Put(
	ctx context.Context, name string, objectID string, schema *table.Schema, rows int,
) (entry Entry, err error) {
	columns, err := json.Marshal(schema.Columns)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode columns: %w", err)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()
	var version uint64
	if err := tx.QueryRowContext(ctx, `
	select coalesce(max(version), 0) + 1 from catalog where name = $1`, name,
	).Scan(&version); err != nil {
		return Entry{}, fmt.Errorf("failed to compute next version: %w", err)
	}
	created := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
	insert into catalog (name, version, object_id, columns, rows, created)
	values ($1, $2, $3, $4, $5, $6)`,
		name, version, objectID, string(columns), rows, created.Format(time.RFC3339Nano),
	); err != nil {
		return Entry{}, fmt.Errorf("failed to store to catalog: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return Entry{
		Name:     name,
		Version:  version,
		ObjectID: objectID,
		Columns:  schema.Columns,
		Rows:     rows,
		Created:  created,
	}, nil
}

func (c *sqlCatalog) Get(ctx context.Context, name string) (Entry, error) {
	entry, err := scanEntry(c.db.QueryRowContext(ctx, `
	select name, version, object_id, columns, rows, created from catalog
	where name = $1 order by version desc limit 1`, name,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, TableNotFoundError{Name: name}
		}
		return Entry{}, fmt.Errorf("failed to read from catalog: %w", err)
	}
	return entry, nil
}

func (c *sqlCatalog) GetVersion(ctx context.Context, name string, version uint64) (Entry, error) {
	entry, err := scanEntry(c.db.QueryRowContext(ctx, `
	select name, version, object_id, columns, rows, created from catalog
	where name = $1 and version = $2`, name, version,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, TableNotFoundError{Name: name, Version: version}
		}
		return Entry{}, fmt.Errorf("failed to read from catalog: %w", err)
	}
	return entry, nil
}

func versions(ctx context.Context, q querier, name string) ([]Entry, error) {
	entries, err := queryEntries(ctx, q, `
	select name, version, object_id, columns, rows, created from catalog
	where name = $1 order by version`, name,
	)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, TableNotFoundError{Name: name}
	}
	return entries, nil
}

func (c *sqlCatalog) Versions(ctx context.Context, name string) ([]Entry, error) {
	return versions(ctx, c.db, name)
}

func (c *sqlCatalog) List(ctx context.Context) ([]Entry, error) {
	return queryEntries(ctx, c.db, `
	select c.name, c.version, c.object_id, c.columns, c.rows, c.created
	from catalog c
	join (select name, max(version) as version from catalog group by name) latest
	on c.name = latest.name and c.version = latest.version
	order by c.name`)
}

func (c *sqlCatalog) Delete(ctx context.Context, name string) (entries []Entry, err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()
	entries, err = versions(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `delete from catalog where name = $1`, name); err != nil {
		return nil, fmt.Errorf("failed to delete from catalog: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entries, nil
}
