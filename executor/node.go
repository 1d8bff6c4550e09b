package executor

import (
	"context"
	"errors"

	"github.com/wkalt/tsjoin/table"
)

/*
All operators in the execution plan implement the Node interface. A plan is a
tree of operators, and is executed by repeatedly calling Next() on the root,
until an io.EOF is received.

The String() method is used to recursively generate a human-readable
representation of the plan. We use it for tests.
*/

////////////////////////////////////////////////////////////////////////////////

// Tuple is one row flowing through the executor. Ordinal is the position of
// the originating row in its source table, and is carried through joins so
// that callers can restore source order after partitioned execution.
type Tuple struct {
	Row     table.Row
	Ordinal int
}

// NewTuple constructs a new tuple.
func NewTuple(row table.Row, ordinal int) *Tuple {
	return &Tuple{Row: row, Ordinal: ordinal}
}

// Node is the interface for all operators in the execution plan.
type Node interface {
	Next(ctx context.Context) (*Tuple, error)
	Schema() *table.Schema
	String() string
	Close(ctx context.Context) error
}

func closeAll(ctx context.Context, nodes ...Node) error {
	errs := make([]error, 0, len(nodes))
	for _, node := range nodes {
		if err := node.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
