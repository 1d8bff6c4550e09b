package executor

import (
	"context"
	"fmt"

	"github.com/wkalt/tsjoin/table"
)

/*
FilterNode implements a filter operator, which filters tuples based on a
predicate supplied at construction.
*/

////////////////////////////////////////////////////////////////////////////////

// filterNode represents the filter node.
type filterNode struct {
	child  Node
	filter func(*Tuple) (bool, error)
}

// NewFilterNode constructs a new filter node.
func NewFilterNode(filter func(*Tuple) (bool, error), child Node) Node {
	return &filterNode{child: child, filter: filter}
}

// Next returns the next tuple from the node.
func (n *filterNode) Next(ctx context.Context) (*Tuple, error) {
	for {
		t, err := n.child.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read next tuple: %w", err)
		}
		ok, err := n.filter(t)
		if err != nil {
			return nil, fmt.Errorf("failed to filter tuple: %w", err)
		}
		if ok {
			return t, nil
		}
	}
}

// Schema returns the schema of the child.
func (n *filterNode) Schema() *table.Schema {
	return n.child.Schema()
}

// Close the node.
func (n *filterNode) Close(ctx context.Context) error {
	if err := n.child.Close(ctx); err != nil {
		return fmt.Errorf("failed to close filter node: %w", err)
	}
	return nil
}

// String returns a string representation of the node.
func (n *filterNode) String() string {
	return fmt.Sprintf("[filter %s]", n.child.String())
}
