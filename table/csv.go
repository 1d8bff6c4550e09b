package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/relvacode/iso8601"
)

/*
CSV input. The first record is the header. Column types are taken from the
hints when present and otherwise inferred from the data: the narrowest of bool,
int64, float64 and timestamp that parses every non-empty cell, falling back to
string. Empty cells are null.
*/

////////////////////////////////////////////////////////////////////////////////

// ReadCSV reads a table from CSV.
func ReadCSV(name string, r io.Reader, hints map[string]ColumnType) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv has no header")
	}
	header, body := records[0], records[1:]
	columns := make([]Column, len(header))
	for i, colname := range header {
		typ, ok := hints[colname]
		if !ok {
			typ = inferType(body, i)
		}
		columns[i] = Column{Name: colname, Type: typ}
	}
	schema, err := NewSchema(columns...)
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}
	rows := make([]Row, len(body))
	for i, record := range body {
		row := make(Row, len(record))
		for j, cell := range record {
			v, err := parseCell(columns[j].Type, cell)
			if err != nil {
				return nil, ValueError{Row: i, Column: columns[j].Name, Type: columns[j].Type, Value: cell}
			}
			row[j] = v
		}
		rows[i] = row
	}
	return New(name, schema, rows)
}

// WriteCSV writes a table as CSV with a header record.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Schema.Names()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				record[i] = FormatValue(v)
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func inferType(records [][]string, col int) ColumnType {
	candidates := []ColumnType{BOOL, INT64, FLOAT64, TIMESTAMP}
	seen := false
	for _, record := range records {
		cell := record[col]
		if cell == "" {
			continue
		}
		seen = true
		remaining := candidates[:0]
		for _, c := range candidates {
			if _, err := parseCell(c, cell); err == nil {
				remaining = append(remaining, c)
			}
		}
		candidates = remaining
		if len(candidates) == 0 {
			return STRING
		}
	}
	if !seen {
		return STRING
	}
	return candidates[0]
}

func parseCell(t ColumnType, cell string) (any, error) {
	if cell == "" {
		return nil, nil
	}
	switch t {
	case TIMESTAMP:
		return iso8601.ParseString(cell)
	case INT64:
		return strconv.ParseInt(cell, 10, 64)
	case FLOAT64:
		return strconv.ParseFloat(cell, 64)
	case BOOL:
		switch strings.ToLower(cell) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid bool: %s", cell)
	case STRING:
		return cell, nil
	}
	return nil, fmt.Errorf("unsupported column type %s", t)
}
