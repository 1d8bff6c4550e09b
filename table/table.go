package table

import (
	"errors"
	"fmt"
)

/*
A Table is an immutable, named sequence of rows sharing a schema. Tables are
the unit of storage in the catalog and the input and output of joins. Nothing
in the repository mutates a table after construction; operators that produce
rows build new tables.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrSchemaMismatch is returned when tables with different schemas are
// combined.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Table is a named collection of rows.
type Table struct {
	Name   string
	Schema *Schema
	Rows   []Row
}

// New constructs a table, validating every row against the schema.
func New(name string, schema *Schema, rows []Row) (*Table, error) {
	if schema == nil {
		return nil, errors.New("missing schema")
	}
	for i, row := range rows {
		if len(row) != schema.Len() {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), schema.Len())
		}
		for j, v := range row {
			col := schema.Columns[j]
			if !CheckValue(col.Type, v) {
				return nil, ValueError{Row: i, Column: col.Name, Type: col.Type, Value: v}
			}
		}
	}
	return &Table{Name: name, Schema: schema, Rows: rows}, nil
}

// Must is New for statically known tables. It panics on error.
func Must(name string, schema *Schema, rows ...Row) *Table {
	t, err := New(name, schema, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Values returns the values of one column.
func (t *Table) Values(column string) ([]any, error) {
	idx, _, err := t.Schema.Lookup(column)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Concat appends the rows of several tables with identical schemas into a new
// table.
func Concat(name string, tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.New("no tables to concatenate")
	}
	schema := tables[0].Schema
	n := 0
	for _, t := range tables {
		if !t.Schema.Equal(schema) {
			return nil, fmt.Errorf("%w: %s %s vs %s %s", ErrSchemaMismatch,
				tables[0].Name, schema, t.Name, t.Schema)
		}
		n += t.Len()
	}
	rows := make([]Row, 0, n)
	for _, t := range tables {
		rows = append(rows, t.Rows...)
	}
	return &Table{Name: name, Schema: schema, Rows: rows}, nil
}

// Strings renders every row for display.
func (t *Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = FormatValue(v)
		}
		out[i] = cells
	}
	return out
}
