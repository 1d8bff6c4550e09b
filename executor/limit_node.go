package executor

import (
	"context"
	"fmt"
	"io"

	"github.com/wkalt/tsjoin/table"
)

/*
LimitNode implements the usual limit operator.
*/

////////////////////////////////////////////////////////////////////////////////

// limitNode represents the limit node.
type limitNode struct {
	limit     int
	remaining int
	child     Node
}

// NewLimitNode constructs a new limit node.
func NewLimitNode(limit int, child Node) Node {
	return &limitNode{limit: limit, remaining: limit, child: child}
}

// Next returns the next tuple from the node.
func (n *limitNode) Next(ctx context.Context) (*Tuple, error) {
	if n.remaining <= 0 {
		return nil, io.EOF
	}
	n.remaining--
	next, err := n.child.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read next tuple: %w", err)
	}
	return next, nil
}

// Schema returns the schema of the child.
func (n *limitNode) Schema() *table.Schema {
	return n.child.Schema()
}

// Close the node.
func (n *limitNode) Close(ctx context.Context) error {
	if err := n.child.Close(ctx); err != nil {
		return fmt.Errorf("failed to close limit node: %w", err)
	}
	return nil
}

// String returns a string representation of the node.
func (n *limitNode) String() string {
	return fmt.Sprintf("[limit %d %s]", n.limit, n.child.String())
}
