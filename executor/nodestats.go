package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/util"
)

/*
nodestats wraps a node and records how many tuples it produced and how long it
took to produce the first and last of them. The figures are written to a child
of the execution context, named by the label, when the node is closed.
*/

////////////////////////////////////////////////////////////////////////////////

type nodestats struct {
	tuplesOut int

	startTime           time.Time
	elapsedToFirstTuple time.Duration
	elapsedToLastTuple  time.Duration

	initialized bool

	child Node

	label string

	firstTupleRecorded bool
	lastTupleRecorded  bool
}

// NewNodeStats wraps child with statistics collection.
func NewNodeStats(child Node, label string) Node {
	return &nodestats{
		child: child,
		label: label,
	}
}

func (n *nodestats) Next(ctx context.Context) (*Tuple, error) {
	if !n.initialized {
		n.startTime = time.Now()
		n.initialized = true
	}
	tup, err := n.child.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			n.recordLastTuple()
		}
		return tup, fmt.Errorf("failed to get next tuple: %w", err)
	}
	if !n.firstTupleRecorded {
		n.elapsedToFirstTuple = time.Since(n.startTime)
		n.firstTupleRecorded = true
	}
	n.tuplesOut++
	return tup, nil
}

func (n *nodestats) Schema() *table.Schema {
	return n.child.Schema()
}

func (n *nodestats) String() string {
	return n.child.String()
}

func (n *nodestats) Close(ctx context.Context) error {
	if !n.lastTupleRecorded {
		n.recordLastTuple()
	}
	ctx, _ = util.WithChildContext(ctx, n.label)
	util.SetContextValue(ctx, "tuples_out", float64(n.tuplesOut))
	util.SetContextValue(
		ctx, "elapsed_to_first_tuple", float64(n.elapsedToFirstTuple.Milliseconds()))
	util.SetContextValue(
		ctx, "elapsed_to_last_tuple", float64(n.elapsedToLastTuple.Milliseconds()))
	if err := n.child.Close(ctx); err != nil {
		return fmt.Errorf("failed to close child: %w", err)
	}
	return nil
}

func (n *nodestats) recordLastTuple() {
	if n.initialized {
		n.elapsedToLastTuple = time.Since(n.startTime)
	}
	n.lastTupleRecorded = true
}
