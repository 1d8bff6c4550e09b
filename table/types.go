package table

import (
	"fmt"
	"strings"
)

/*
Column types supported by tables. Timestamps and the numeric types are ordered
and may serve as join time columns. Timestamps compare only with timestamps;
int64 and float64 compare with each other. Strings and bools support equality
only, which is enough for group keys.
*/

////////////////////////////////////////////////////////////////////////////////

// ColumnType is the type of a column.
type ColumnType int

const (
	TIMESTAMP ColumnType = iota + 1
	INT64
	FLOAT64
	STRING
	BOOL
)

// String returns the name of the type.
func (t ColumnType) String() string {
	switch t {
	case TIMESTAMP:
		return "timestamp"
	case INT64:
		return "int64"
	case FLOAT64:
		return "float64"
	case STRING:
		return "string"
	case BOOL:
		return "bool"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseColumnType parses a type name.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(s) {
	case "timestamp", "time", "datetime":
		return TIMESTAMP, nil
	case "int64", "int", "integer", "long":
		return INT64, nil
	case "float64", "float", "double":
		return FLOAT64, nil
	case "string", "text":
		return STRING, nil
	case "bool", "boolean":
		return BOOL, nil
	}
	return 0, fmt.Errorf("unknown column type: %s", s)
}

// ParseTypeHints parses a "col:type,col:type" list of column types, as used to
// override CSV type inference. An empty string yields no hints.
func ParseTypeHints(s string) (map[string]ColumnType, error) {
	if s == "" {
		return nil, nil
	}
	hints := make(map[string]ColumnType)
	for _, pair := range strings.Split(s, ",") {
		name, typ, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid type hint %q", pair)
		}
		t, err := ParseColumnType(strings.TrimSpace(typ))
		if err != nil {
			return nil, err
		}
		hints[strings.TrimSpace(name)] = t
	}
	return hints, nil
}

// MarshalText implements encoding.TextMarshaler.
func (t ColumnType) MarshalText() ([]byte, error) {
	if t < TIMESTAMP || t > BOOL {
		return nil, fmt.Errorf("invalid column type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ColumnType) UnmarshalText(data []byte) error {
	parsed, err := ParseColumnType(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Ordered reports whether values of the type are totally ordered.
func (t ColumnType) Ordered() bool {
	return t == TIMESTAMP || t.Numeric()
}

// Numeric reports whether the type is numeric.
func (t ColumnType) Numeric() bool {
	return t == INT64 || t == FLOAT64
}

// Comparable reports whether values of types a and b may be compared with each
// other.
func Comparable(a, b ColumnType) bool {
	if a == b {
		return true
	}
	return a.Numeric() && b.Numeric()
}
