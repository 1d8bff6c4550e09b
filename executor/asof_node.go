package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/util"
	"golang.org/x/sync/errgroup"
)

/*
In an as-of join, two tables are related by time proximity rather than by an
equality condition. Each row of the left input is paired with the right row
whose time is the latest one not after the left row's time, optionally
restricted to right rows sharing the left row's group key and to a tolerance
window. Exact time matches may be excluded, in which case the right time must
be strictly earlier.

The right input is consumed in full on the first call to Next and indexed by
group, with each group stable-sorted by time. Left rows then stream through in
their original order, each resolved with a binary search over its group. Among
right rows with equal times, the one that appeared last in the right input
wins.

Under left semantics every left row produces exactly one output row, with the
right columns null when no match exists. Under inner semantics unmatched left
rows are dropped.
*/

////////////////////////////////////////////////////////////////////////////////

// JoinType selects how unmatched left rows are treated.
type JoinType int

const (
	// LeftJoin keeps unmatched left rows, with null right columns.
	LeftJoin JoinType = iota
	// InnerJoin drops unmatched left rows.
	InnerJoin
)

// String returns the name of the join type.
func (t JoinType) String() string {
	switch t {
	case LeftJoin:
		return "left"
	case InnerJoin:
		return "inner"
	default:
		return fmt.Sprintf("JoinType(%d)", int(t))
	}
}

// ParseJoinType parses a join type name. The empty string is a left join.
func ParseJoinType(s string) (JoinType, error) {
	switch strings.ToLower(s) {
	case "", "left":
		return LeftJoin, nil
	case "inner":
		return InnerJoin, nil
	default:
		return LeftJoin, newInvalidArgument("how", "unsupported join type %q", s)
	}
}

// AsofSpec describes an as-of join.
type AsofSpec struct {
	LeftOn  string
	RightOn string

	LeftBy  string
	RightBy string

	Tolerance         *time.Duration
	AllowExactMatches bool
	JoinType          JoinType

	// Workers bounds the concurrency used to sort right groups. Zero means
	// GOMAXPROCS.
	Workers int
}

// AsofOption configures an AsofSpec.
type AsofOption func(*AsofSpec)

// On sets the time columns.
func On(left, right string) AsofOption {
	return func(s *AsofSpec) {
		s.LeftOn = left
		s.RightOn = right
	}
}

// By sets the group key columns. Either both or neither must be non-empty.
func By(left, right string) AsofOption {
	return func(s *AsofSpec) {
		s.LeftBy = left
		s.RightBy = right
	}
}

// WithTolerance bounds how far before the left time a match may be.
func WithTolerance(d time.Duration) AsofOption {
	return func(s *AsofSpec) {
		s.Tolerance = &d
	}
}

// WithAllowExactMatches controls whether equal times match.
func WithAllowExactMatches(allow bool) AsofOption {
	return func(s *AsofSpec) {
		s.AllowExactMatches = allow
	}
}

// WithJoinType sets the join type.
func WithJoinType(t JoinType) AsofOption {
	return func(s *AsofSpec) {
		s.JoinType = t
	}
}

// WithWorkers bounds sort concurrency.
func WithWorkers(n int) AsofOption {
	return func(s *AsofSpec) {
		s.Workers = n
	}
}

// NewAsofSpec returns a spec with exact matches allowed and left semantics,
// modified by opts.
func NewAsofSpec(opts ...AsofOption) AsofSpec {
	spec := AsofSpec{AllowExactMatches: true, JoinType: LeftJoin}
	for _, opt := range opts {
		opt(&spec)
	}
	return spec
}

// binding holds the column positions a spec resolves to against a pair of
// schemas. Key positions are -1 when the join is ungrouped.
type binding struct {
	leftTime, rightTime int
	leftKey, rightKey   int
}

// bind validates the spec against the input schemas. Checks that need no
// schema come first, so that a malformed spec is reported the same way
// regardless of the inputs.
func (s AsofSpec) bind(left, right *table.Schema) (binding, error) {
	b := binding{leftKey: -1, rightKey: -1}
	if s.LeftOn == "" {
		return b, newInvalidArgument("left_on", "time column is required")
	}
	if s.RightOn == "" {
		return b, newInvalidArgument("right_on", "time column is required")
	}
	if (s.LeftBy == "") != (s.RightBy == "") {
		return b, newInvalidArgument("by", "left_by and right_by must be given together")
	}
	if s.Tolerance != nil && *s.Tolerance < 0 {
		return b, newInvalidArgument("tolerance", "must be non-negative, got %s", *s.Tolerance)
	}
	if s.JoinType != LeftJoin && s.JoinType != InnerJoin {
		return b, newInvalidArgument("how", "unsupported join type %s", s.JoinType)
	}

	var leftTime, rightTime table.Column
	var err error
	if b.leftTime, leftTime, err = lookup(left, "left_on", s.LeftOn); err != nil {
		return b, err
	}
	if b.rightTime, rightTime, err = lookup(right, "right_on", s.RightOn); err != nil {
		return b, err
	}
	if !leftTime.Type.Ordered() {
		return b, newInvalidArgument("left_on", "column %s of type %s is not ordered", leftTime.Name, leftTime.Type)
	}
	if !rightTime.Type.Ordered() {
		return b, newInvalidArgument("right_on", "column %s of type %s is not ordered", rightTime.Name, rightTime.Type)
	}
	if !table.Comparable(leftTime.Type, rightTime.Type) {
		return b, newInvalidArgument("right_on", "column %s of type %s is not comparable with %s column %s",
			rightTime.Name, rightTime.Type, leftTime.Type, leftTime.Name)
	}
	if s.LeftBy == "" {
		return b, nil
	}

	var leftKey, rightKey table.Column
	if b.leftKey, leftKey, err = lookup(left, "left_by", s.LeftBy); err != nil {
		return b, err
	}
	if b.rightKey, rightKey, err = lookup(right, "right_by", s.RightBy); err != nil {
		return b, err
	}
	if !table.Comparable(leftKey.Type, rightKey.Type) {
		return b, newInvalidArgument("right_by", "column %s of type %s is not comparable with %s column %s",
			rightKey.Name, rightKey.Type, leftKey.Type, leftKey.Name)
	}
	return b, nil
}

func lookup(schema *table.Schema, param string, name string) (int, table.Column, error) {
	idx, col, err := schema.Lookup(name)
	if err != nil {
		return idx, col, InvalidArgumentError{Param: param, Reason: err.Error(), Err: err}
	}
	return idx, col, nil
}

type asofEntry struct {
	time any
	row  table.Row
}

// AsofJoinNode is the executor node for an as-of join.
type AsofJoinNode struct {
	left  Node
	right Node

	spec    AsofSpec
	binding binding
	schema  *table.Schema

	groups      map[any][]asofEntry
	initialized bool
}

// NewAsofJoinNode validates spec against the children's schemas and constructs
// a new as-of join node. No rows are read until the first call to Next.
func NewAsofJoinNode(left, right Node, spec AsofSpec) (*AsofJoinNode, error) {
	b, err := spec.bind(left.Schema(), right.Schema())
	if err != nil {
		return nil, err
	}
	return &AsofJoinNode{
		left:    left,
		right:   right,
		spec:    spec,
		binding: b,
		schema:  table.Merge(left.Schema(), right.Schema(), "_right"),
	}, nil
}

// Schema returns the output schema: left columns followed by right columns.
func (n *AsofJoinNode) Schema() *table.Schema {
	return n.schema
}

func (n *AsofJoinNode) groupKey(row table.Row, idx int) (any, bool) {
	if idx < 0 {
		return nil, true
	}
	if table.Unordered(row[idx]) {
		return nil, false
	}
	return table.Key(row[idx]), true
}

// initialize drains the right child into per-group entries and sorts each
// group by time.
func (n *AsofJoinNode) initialize(ctx context.Context) error {
	n.groups = make(map[any][]asofEntry)
	for {
		tup, err := n.right.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read right input: %w", err)
		}
		util.IncContextValue(ctx, "right_rows", 1)
		t := tup.Row[n.binding.rightTime]
		if table.Unordered(t) {
			continue
		}
		key, ok := n.groupKey(tup.Row, n.binding.rightKey)
		if !ok {
			continue
		}
		n.groups[key] = append(n.groups[key], asofEntry{time: t, row: tup.Row})
	}
	util.SetContextValue(ctx, "groups", float64(len(n.groups)))

	workers := n.spec.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, entries := range n.groups {
		entries := entries
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slices.SortStableFunc(entries, func(a, b asofEntry) int {
				return table.Compare(a.time, b.time)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to sort right groups: %w", err)
	}
	n.initialized = true
	return nil
}

// match returns the right row for a left row, or nil.
func (n *AsofJoinNode) match(row table.Row) table.Row {
	t := row[n.binding.leftTime]
	if table.Unordered(t) {
		return nil
	}
	key, ok := n.groupKey(row, n.binding.leftKey)
	if !ok {
		return nil
	}
	entries := n.groups[key]
	i := sort.Search(len(entries), func(i int) bool {
		c := table.Compare(entries[i].time, t)
		if n.spec.AllowExactMatches {
			return c > 0
		}
		return c >= 0
	})
	if i == 0 {
		return nil
	}
	candidate := entries[i-1]
	if n.spec.Tolerance != nil && !table.Within(t, candidate.time, *n.spec.Tolerance) {
		return nil
	}
	return candidate.row
}

// Next returns the next joined tuple, or io.EOF when the left input is
// exhausted.
func (n *AsofJoinNode) Next(ctx context.Context) (*Tuple, error) {
	if !n.initialized {
		if err := n.initialize(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize asof join node: %w", err)
		}
	}
	rightWidth := n.right.Schema().Len()
	for {
		tup, err := n.left.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read left input: %w", err)
		}
		util.IncContextValue(ctx, "left_rows", 1)
		matched := n.match(tup.Row)
		if matched == nil && n.spec.JoinType == InnerJoin {
			continue
		}
		row := make(table.Row, 0, n.schema.Len())
		row = append(row, tup.Row...)
		if matched == nil {
			row = append(row, make(table.Row, rightWidth)...)
		} else {
			util.IncContextValue(ctx, "matched_rows", 1)
			row = append(row, matched...)
		}
		return NewTuple(row, tup.Ordinal), nil
	}
}

// Close the node.
func (n *AsofJoinNode) Close(ctx context.Context) error {
	n.groups = nil
	if err := closeAll(ctx, n.left, n.right); err != nil {
		return fmt.Errorf("failed to close children: %w", err)
	}
	return nil
}

// String returns the string representation of the node.
func (n *AsofJoinNode) String() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "[asof %s %s %s %s", n.spec.JoinType, n.spec.LeftOn,
		util.When(n.spec.AllowExactMatches, ">=", ">"), n.spec.RightOn)
	if n.spec.LeftBy != "" {
		fmt.Fprintf(sb, " by %s = %s", n.spec.LeftBy, n.spec.RightBy)
	}
	if n.spec.Tolerance != nil {
		fmt.Fprintf(sb, " within %s", util.FormatDuration(*n.spec.Tolerance))
	}
	fmt.Fprintf(sb, " %s %s]", n.left, n.right)
	return sb.String()
}

// AsofJoin joins two tables. The output table carries the left table's name.
func AsofJoin(ctx context.Context, left, right *table.Table, opts ...AsofOption) (*table.Table, error) {
	node, err := NewAsofJoinNode(NewScanNode(left, ""), NewScanNode(right, ""), NewAsofSpec(opts...))
	if err != nil {
		return nil, err
	}
	return Collect(ctx, left.Name, node)
}
