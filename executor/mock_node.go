package executor

import (
	"context"
	"io"

	"github.com/wkalt/tsjoin/table"
)

/*
tuplesNode replays a fixed list of tuples. It feeds partitions of a table to
per-shard joins and buffered shard output to the merge, preserving the ordinals
the tuples were created with. MockNode builds one from plain integers to
simulate scans in tests.
*/

////////////////////////////////////////////////////////////////////////////////

type tuplesNode struct {
	label  string
	schema *table.Schema
	tuples []*Tuple
}

// NewTuplesNode constructs a node that emits the supplied tuples in order.
func NewTuplesNode(label string, schema *table.Schema, tuples []*Tuple) Node {
	return &tuplesNode{label: label, schema: schema, tuples: tuples}
}

// Next returns the next tuple from the node.
func (n *tuplesNode) Next(_ context.Context) (*Tuple, error) {
	if len(n.tuples) == 0 {
		return nil, io.EOF
	}
	t := n.tuples[0]
	n.tuples = n.tuples[1:]
	return t, nil
}

// Schema returns the schema of the tuples.
func (n *tuplesNode) Schema() *table.Schema {
	return n.schema
}

// String returns a string representation of the node.
func (n *tuplesNode) String() string {
	return "[" + n.label + "]"
}

// Close the node.
func (n *tuplesNode) Close(_ context.Context) error {
	n.tuples = nil
	return nil
}

// NewMockNode constructs a node emitting one int64 column "v" with the given
// values, ordinals counting from zero.
func NewMockNode(values ...int64) Node {
	schema := table.MustSchema(table.Column{Name: "v", Type: table.INT64})
	tuples := make([]*Tuple, 0, len(values))
	for i, v := range values {
		tuples = append(tuples, NewTuple(table.Row{v}, i))
	}
	return NewTuplesNode("mock", schema, tuples)
}
