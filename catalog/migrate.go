package catalog

import (
	"database/sql"
	"fmt"

	"github.com/wkalt/migrate"
)

func initialMigration(tx *sql.Tx) error {
	stmt := `
	create table if not exists catalog (
		name text not null,
		version bigint not null,
		object_id text not null,
		columns text not null,
		rows bigint not null,
		created text not null,
		primary key (name, version)
	);
	`
	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("failed to execute initial migration: %w", err)
	}
	return nil
}

// Migrate brings the catalog schema of db up to date.
func Migrate(db *sql.DB) error {
	migrations := map[int]migrate.Migration{
		1: initialMigration,
	}
	if err := migrate.Migrate(db, migrations); err != nil {
		return fmt.Errorf("migration failure: %w", err)
	}
	return nil
}
