package table

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/relvacode/iso8601"
)

/*
JSON representation of tables:

	{
	  "name": "quotes",
	  "columns": [{"name": "time", "type": "timestamp"}, {"name": "id", "type": "int64"}],
	  "rows": [["2001-01-01T00:00:00Z", 1]]
	}

Timestamps encode as RFC 3339 strings and decode from any ISO 8601 string or
from integer nanoseconds since the epoch.
*/

////////////////////////////////////////////////////////////////////////////////

type jsonTable struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON implements json.Marshaler.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Columns)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var columns []Column
	if err := json.Unmarshal(data, &columns); err != nil {
		return fmt.Errorf("failed to decode schema: %w", err)
	}
	parsed, err := NewSchema(columns...)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		out := make([]any, len(row))
		for j, v := range row {
			if ts, ok := v.(time.Time); ok {
				out[j] = ts.UTC().Format(time.RFC3339Nano)
				continue
			}
			out[j] = v
		}
		rows[i] = out
	}
	columns := t.Schema.Columns
	if columns == nil {
		columns = []Column{}
	}
	return json.Marshal(jsonTable{Name: t.Name, Columns: columns, Rows: rows})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Table) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw jsonTable
	if err := decoder.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode table: %w", err)
	}
	schema, err := NewSchema(raw.Columns...)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	rows := make([]Row, len(raw.Rows))
	for i, values := range raw.Rows {
		if len(values) != schema.Len() {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(values), schema.Len())
		}
		row := make(Row, len(values))
		for j, v := range values {
			col := schema.Columns[j]
			coerced, err := coerceJSON(col.Type, v)
			if err != nil {
				return ValueError{Row: i, Column: col.Name, Type: col.Type, Value: v}
			}
			row[j] = coerced
		}
		rows[i] = row
	}
	parsed, err := New(raw.Name, schema, rows)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// DecodeJSON decodes a table from JSON.
func DecodeJSON(data []byte) (*Table, error) {
	t := &Table{}
	if err := t.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return t, nil
}

func coerceJSON(t ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TIMESTAMP:
		switch v := v.(type) {
		case string:
			return iso8601.ParseString(v)
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, err
			}
			return time.Unix(0, n).UTC(), nil
		}
	case INT64:
		if n, ok := v.(json.Number); ok {
			return n.Int64()
		}
	case FLOAT64:
		if n, ok := v.(json.Number); ok {
			return n.Float64()
		}
	case STRING:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case BOOL:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("cannot convert %T to %s", v, t)
}
