package executor

import (
	"context"
	"fmt"

	"github.com/wkalt/tsjoin/table"
)

/*
OffsetNode implements the usual offset operator.
*/

////////////////////////////////////////////////////////////////////////////////

// offsetNode represents the offset node.
type offsetNode struct {
	child   Node
	offset  int
	skipped bool
}

// NewOffsetNode constructs a new offset node.
func NewOffsetNode(offset int, child Node) Node {
	return &offsetNode{offset: offset, child: child}
}

// Next returns the next tuple from the node.
func (n *offsetNode) Next(ctx context.Context) (*Tuple, error) {
	if !n.skipped {
		for i := 0; i < n.offset; i++ {
			if _, err := n.child.Next(ctx); err != nil {
				return nil, fmt.Errorf("failed to read next tuple: %w", err)
			}
		}
		n.skipped = true
	}
	next, err := n.child.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read next tuple: %w", err)
	}
	return next, nil
}

// Schema returns the schema of the child.
func (n *offsetNode) Schema() *table.Schema {
	return n.child.Schema()
}

// Close the node.
func (n *offsetNode) Close(ctx context.Context) error {
	if err := n.child.Close(ctx); err != nil {
		return fmt.Errorf("failed to close offset node: %w", err)
	}
	return nil
}

// String returns a string representation of the node.
func (n *offsetNode) String() string {
	return fmt.Sprintf("[offset %d %s]", n.offset, n.child.String())
}
