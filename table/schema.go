package table

import (
	"fmt"
	"strings"

	"github.com/wkalt/tsjoin/util"
)

// Column is a named, typed column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is an ordered list of columns.
type Schema struct {
	Columns []Column

	index map[string]int
}

// NewSchema builds a schema. Column names must be unique and non-empty.
func NewSchema(columns ...Column) (*Schema, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, ok := index[c.Name]; ok {
			return nil, fmt.Errorf("duplicate column name: %s", c.Name)
		}
		if c.Type < TIMESTAMP || c.Type > BOOL {
			return nil, fmt.Errorf("column %s has invalid type", c.Name)
		}
		index[c.Name] = i
	}
	return &Schema{Columns: columns, index: index}, nil
}

// MustSchema is NewSchema for statically known schemas. It panics on error.
func MustSchema(columns ...Column) *Schema {
	s, err := NewSchema(columns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.Columns)
}

// Lookup returns the position and definition of a column.
func (s *Schema) Lookup(name string) (int, Column, error) {
	i, ok := s.index[name]
	if !ok {
		return -1, Column{}, NewFieldNotFoundError(name, s.fields())
	}
	return i, s.Columns[i], nil
}

// Names returns the column names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Equal reports whether two schemas have the same columns in the same order.
func (s *Schema) Equal(other *Schema) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i, c := range s.Columns {
		if other.Columns[i] != c {
			return false
		}
	}
	return true
}

func (s *Schema) fields() []util.Named[ColumnType] {
	fields := make([]util.Named[ColumnType], len(s.Columns))
	for i, c := range s.Columns {
		fields[i] = util.NewNamed(c.Name, c.Type)
	}
	return fields
}

// String returns a string representation of the schema.
func (s *Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, f := range s.fields() {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Merge returns the schema of left columns followed by right columns. A right
// column whose name is already taken gets suffix appended until it is unique.
func Merge(left, right *Schema, suffix string) *Schema {
	columns := make([]Column, 0, left.Len()+right.Len())
	taken := make(map[string]bool, left.Len()+right.Len())
	for _, c := range left.Columns {
		columns = append(columns, c)
		taken[c.Name] = true
	}
	for _, c := range right.Columns {
		name := c.Name
		for taken[name] {
			name += suffix
		}
		taken[name] = true
		columns = append(columns, Column{Name: name, Type: c.Type})
	}
	return MustSchema(columns...)
}
