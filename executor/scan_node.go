package executor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/util"
)

/*
ScanNode emits the rows of a table in storage order, optionally restricted to a
half-open time range [start, end) on one column. Timestamp columns compare
directly; numeric columns are read as nanoseconds since the epoch. Rows with a
null in the range column are skipped.
*/

////////////////////////////////////////////////////////////////////////////////

// TimeRange restricts a scan to rows whose Column value lies in [Start, End).
// An empty Column selects the first timestamp column of the table.
type TimeRange struct {
	Column string
	Start  time.Time
	End    time.Time
}

// String returns a string representation of the range.
func (r TimeRange) String() string {
	return fmt.Sprintf("(%s %s %s)", r.Column,
		table.FormatValue(r.Start), table.FormatValue(r.End))
}

// ScanNode is a scan over an in-memory table.
type ScanNode struct {
	table *table.Table
	alias string

	rng *TimeRange
	col int

	pos int
}

// NewScanNode constructs a scan of every row of t.
func NewScanNode(t *table.Table, alias string) *ScanNode {
	return &ScanNode{table: t, alias: alias, col: -1}
}

// NewRangeScanNode constructs a scan restricted to a time range.
func NewRangeScanNode(t *table.Table, alias string, rng TimeRange) (*ScanNode, error) {
	if rng.Column == "" {
		for _, c := range t.Schema.Columns {
			if c.Type == table.TIMESTAMP {
				rng.Column = c.Name
				break
			}
		}
		if rng.Column == "" {
			return nil, newInvalidArgument("between", "table %s has no timestamp column", t.Name)
		}
	}
	idx, col, err := lookup(t.Schema, "between", rng.Column)
	if err != nil {
		return nil, err
	}
	if !col.Type.Ordered() {
		return nil, newInvalidArgument("between", "column %s of type %s is not ordered", col.Name, col.Type)
	}
	if rng.End.Before(rng.Start) {
		return nil, newInvalidArgument("between", "range end %s precedes start %s",
			table.FormatValue(rng.End), table.FormatValue(rng.Start))
	}
	return &ScanNode{table: t, alias: alias, rng: &rng, col: idx}, nil
}

func (n *ScanNode) inRange(v any) bool {
	if n.rng == nil {
		return true
	}
	switch v := v.(type) {
	case time.Time:
		return !v.Before(n.rng.Start) && v.Before(n.rng.End)
	case int64:
		return v >= n.rng.Start.UnixNano() && v < n.rng.End.UnixNano()
	case float64:
		return v >= float64(n.rng.Start.UnixNano()) && v < float64(n.rng.End.UnixNano())
	}
	return false
}

// Next returns the next tuple from the node.
func (n *ScanNode) Next(ctx context.Context) (*Tuple, error) {
	for n.pos < len(n.table.Rows) {
		ordinal := n.pos
		row := n.table.Rows[ordinal]
		n.pos++
		util.IncContextValue(ctx, "rows_scanned", 1)
		if n.col >= 0 && !n.inRange(row[n.col]) {
			continue
		}
		return NewTuple(row, ordinal), nil
	}
	return nil, io.EOF
}

// Schema returns the schema of the scanned table.
func (n *ScanNode) Schema() *table.Schema {
	return n.table.Schema
}

// Close the node.
func (n *ScanNode) Close(_ context.Context) error {
	return nil
}

// String returns a string representation of the node.
func (n *ScanNode) String() string {
	s := "[scan " + n.table.Name
	if n.alias != "" {
		s += " " + n.alias
	}
	if n.rng != nil {
		s += " " + n.rng.String()
	}
	return s + "]"
}
