package table

import (
	"fmt"
	"strings"

	"github.com/wkalt/tsjoin/util"
)

// FieldNotFoundError is returned when a column is looked up by a name the
// schema does not contain.
type FieldNotFoundError struct {
	Field  string
	Fields []util.Named[ColumnType]
}

// NewFieldNotFoundError constructs a FieldNotFoundError.
func NewFieldNotFoundError(field string, fields []util.Named[ColumnType]) FieldNotFoundError {
	return FieldNotFoundError{
		Field:  field,
		Fields: fields,
	}
}

func (e FieldNotFoundError) Is(target error) bool {
	_, ok := target.(FieldNotFoundError)
	return ok
}

func (e FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %s not found", e.Field)
}

// Detail lists the available fields.
func (e FieldNotFoundError) Detail() string {
	if len(e.Fields) == 0 {
		return ""
	}
	sb := &strings.Builder{}
	sb.WriteString("Available fields: ")
	for i, f := range e.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.String())
	}
	sb.WriteString(".")
	return sb.String()
}

// ValueError is returned when a row value does not conform to its column.
type ValueError struct {
	Row    int
	Column string
	Type   ColumnType
	Value  any
}

func (e ValueError) Error() string {
	return fmt.Sprintf("row %d: column %s: value %v (%T) is not a valid %s", e.Row, e.Column, e.Value, e.Value, e.Type)
}
