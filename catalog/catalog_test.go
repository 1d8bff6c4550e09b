package catalog_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/tsjoin/catalog"
	"github.com/wkalt/tsjoin/table"
)

var quotesSchema = table.MustSchema(
	table.Column{Name: "time", Type: table.TIMESTAMP},
	table.Column{Name: "id", Type: table.INT64},
	table.Column{Name: "v", Type: table.FLOAT64},
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func TestCatalogs(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		assertion string
		f         func(*testing.T) catalog.Catalog
	}{
		{
			"mem",
			func(t *testing.T) catalog.Catalog {
				t.Helper()
				return catalog.NewMemCatalog()
			},
		},
		{
			"sql",
			func(t *testing.T) catalog.Catalog {
				t.Helper()
				c, err := catalog.NewSQLCatalog(openDB(t))
				require.NoError(t, err)
				return c
			},
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			t.Run("put and get", func(t *testing.T) {
				cat := c.f(t)
				id := uuid.NewString()
				entry, err := cat.Put(ctx, "quotes", id, quotesSchema, 3)
				require.NoError(t, err)
				require.Equal(t, uint64(1), entry.Version)

				found, err := cat.Get(ctx, "quotes")
				require.NoError(t, err)
				require.Equal(t, id, found.ObjectID)
				require.Equal(t, quotesSchema.Columns, found.Columns)
				require.Equal(t, 3, found.Rows)
				require.True(t, entry.Created.Equal(found.Created))
			})
			t.Run("get latest", func(t *testing.T) {
				cat := c.f(t)
				_, err := cat.Put(ctx, "quotes", "a", quotesSchema, 1)
				require.NoError(t, err)
				entry, err := cat.Put(ctx, "quotes", "b", quotesSchema, 2)
				require.NoError(t, err)
				require.Equal(t, uint64(2), entry.Version)

				found, err := cat.Get(ctx, "quotes")
				require.NoError(t, err)
				require.Equal(t, "b", found.ObjectID)
				require.Equal(t, uint64(2), found.Version)
			})
			t.Run("get version", func(t *testing.T) {
				cat := c.f(t)
				_, err := cat.Put(ctx, "quotes", "a", quotesSchema, 1)
				require.NoError(t, err)
				_, err = cat.Put(ctx, "quotes", "b", quotesSchema, 2)
				require.NoError(t, err)

				found, err := cat.GetVersion(ctx, "quotes", 1)
				require.NoError(t, err)
				require.Equal(t, "a", found.ObjectID)

				_, err = cat.GetVersion(ctx, "quotes", 3)
				require.ErrorIs(t, err, catalog.TableNotFoundError{})
				require.Equal(t, "table quotes version 3 not found", err.Error())
			})
			t.Run("versions", func(t *testing.T) {
				cat := c.f(t)
				for _, id := range []string{"a", "b", "c"} {
					_, err := cat.Put(ctx, "quotes", id, quotesSchema, 1)
					require.NoError(t, err)
				}
				versions, err := cat.Versions(ctx, "quotes")
				require.NoError(t, err)
				ids := []string{}
				for _, v := range versions {
					ids = append(ids, v.ObjectID)
				}
				require.Equal(t, []string{"a", "b", "c"}, ids)
			})
			t.Run("list", func(t *testing.T) {
				cat := c.f(t)
				entries, err := cat.List(ctx)
				require.NoError(t, err)
				require.Empty(t, entries)

				for _, put := range [][2]string{{"trades", "a"}, {"quotes", "b"}, {"trades", "c"}} {
					_, err := cat.Put(ctx, put[0], put[1], quotesSchema, 1)
					require.NoError(t, err)
				}
				entries, err = cat.List(ctx)
				require.NoError(t, err)
				require.Len(t, entries, 2)
				require.Equal(t, "quotes", entries[0].Name)
				require.Equal(t, "b", entries[0].ObjectID)
				require.Equal(t, "trades", entries[1].Name)
				require.Equal(t, "c", entries[1].ObjectID)
				require.Equal(t, uint64(2), entries[1].Version)
			})
			t.Run("delete", func(t *testing.T) {
				cat := c.f(t)
				_, err := cat.Put(ctx, "quotes", "a", quotesSchema, 1)
				require.NoError(t, err)
				_, err = cat.Put(ctx, "quotes", "b", quotesSchema, 1)
				require.NoError(t, err)

				removed, err := cat.Delete(ctx, "quotes")
				require.NoError(t, err)
				require.Len(t, removed, 2)

				_, err = cat.Get(ctx, "quotes")
				require.ErrorIs(t, err, catalog.TableNotFoundError{})

				entry, err := cat.Put(ctx, "quotes", "c", quotesSchema, 1)
				require.NoError(t, err)
				require.Equal(t, uint64(1), entry.Version)
			})
			t.Run("missing tables", func(t *testing.T) {
				cat := c.f(t)
				_, err := cat.Get(ctx, "nope")
				require.ErrorIs(t, err, catalog.TableNotFoundError{})
				require.Equal(t, "table nope not found", err.Error())
				_, err = cat.Versions(ctx, "nope")
				require.ErrorIs(t, err, catalog.TableNotFoundError{})
				_, err = cat.Delete(ctx, "nope")
				require.ErrorIs(t, err, catalog.TableNotFoundError{})
			})
		})
	}
}

func TestSQLCatalogReopen(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	cat, err := catalog.NewSQLCatalog(db)
	require.NoError(t, err)
	_, err = cat.Put(ctx, "quotes", "a", quotesSchema, 1)
	require.NoError(t, err)

	reopened, err := catalog.NewSQLCatalog(db)
	require.NoError(t, err)
	entry, err := reopened.Get(ctx, "quotes")
	require.NoError(t, err)
	require.Equal(t, "a", entry.ObjectID)
}

func TestMigrate(t *testing.T) {
	db := openDB(t)
	require.NoError(t, catalog.Migrate(db))
	require.NoError(t, catalog.Migrate(db))
	var count int
	require.NoError(t, db.QueryRow("select count(*) from catalog").Scan(&count))
	require.Zero(t, count)
}
