package executor

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/util"
	"golang.org/x/sync/errgroup"
)

/*
MergeNode implements an n-ary ordinal-ordered streaming merge using a heap-based
priority queue. Each child must emit tuples in ascending ordinal order; the
merge then restores the order of the source the ordinals were assigned from.
The queue contains at most one element from each child at a time. When an
element is popped from the queue, a new element is pushed from the child that
originated the popped tuple, if available.

The sharded join uses it to reassemble per-shard output into left order.
*/

////////////////////////////////////////////////////////////////////////////////

type queueElement struct {
	tuple *Tuple
	index int
}

// mergeNode represents the merge node.
type mergeNode struct {
	children []Node
	pq       *util.PriorityQueue[queueElement]

	initialized bool

	mtx *sync.Mutex
}

// NewMergeNode returns a new merge node. All children must share a schema.
func NewMergeNode(children ...Node) (Node, error) {
	if len(children) == 0 {
		return nil, errors.New("merge requires at least one child")
	}
	schema := children[0].Schema()
	for _, child := range children[1:] {
		if !child.Schema().Equal(schema) {
			return nil, fmt.Errorf("%w: %s vs %s", table.ErrSchemaMismatch, schema, child.Schema())
		}
	}
	return &mergeNode{
		children: children,
		pq: util.NewPriorityQueue(func(a, b queueElement) bool {
			if a.tuple.Ordinal == b.tuple.Ordinal {
				return a.index < b.index
			}
			return a.tuple.Ordinal < b.tuple.Ordinal
		}),
		mtx: &sync.Mutex{},
	}, nil
}

// initialize pushes one tuple from each child into the priority queue,
// concurrently.
func (n *mergeNode) initialize(ctx context.Context) error {
	g := errgroup.Group{}
	g.SetLimit(len(n.children))
	for i, child := range n.children {
		i, child := i, child
		g.Go(func() error {
			tuple, err := child.Next(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("failed to get next tuple on child %d: %w", i, err)
			}
			n.mtx.Lock()
			heap.Push(n.pq, queueElement{tuple: tuple, index: i})
			n.mtx.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	n.initialized = true
	return nil
}

// Next returns the next tuple from the node.
func (n *mergeNode) Next(ctx context.Context) (*Tuple, error) {
	if !n.initialized {
		if err := n.initialize(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize merge node: %w", err)
		}
	}
	if n.pq.Len() == 0 {
		return nil, io.EOF
	}
	element := heap.Pop(n.pq).(queueElement)
	next, err := n.children[element.index].Next(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to get next tuple on child %d: %w", element.index, err)
	}
	if next != nil {
		heap.Push(n.pq, queueElement{tuple: next, index: element.index})
	}
	return element.tuple, nil
}

// Schema returns the shared schema of the children.
func (n *mergeNode) Schema() *table.Schema {
	return n.children[0].Schema()
}

// Close the node.
func (n *mergeNode) Close(ctx context.Context) error {
	if err := closeAll(ctx, n.children...); err != nil {
		return fmt.Errorf("failed to close children: %w", err)
	}
	return nil
}

// String returns a string representation of the node.
func (n *mergeNode) String() string {
	sb := strings.Builder{}
	sb.WriteString("[merge")
	for _, child := range n.children {
		sb.WriteString(" ")
		sb.WriteString(child.String())
	}
	sb.WriteString("]")
	return sb.String()
}
