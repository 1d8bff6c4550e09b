package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wkalt/tsjoin/plan"
	"github.com/wkalt/tsjoin/table"
)

/*
The executor module implements an iterator-style query executor with a limited
set of operators:
  * scan: reads rows from a table, optionally within a time range
  * asof: joins two inputs based on time proximity
  * filter: filters tuples based on a predicate
  * limit: limits the number of tuples returned
  * offset: skips the first n tuples
  * merge: does an ordinal-ordered merge of children

Queries arrive as a tree of plan nodes, which are compiled to a tree of executor
nodes. The execution tree is executed by repeatedly calling Next on the root
node until an io.EOF occurs. Join arguments are validated as the tree is
compiled, so an invalid join fails before any table is scanned.
*/

////////////////////////////////////////////////////////////////////////////////

// TableResolver resolves table names for scans.
type TableResolver interface {
	Resolve(ctx context.Context, name string) (*table.Table, error)
}

// MapResolver resolves tables from a map.
type MapResolver map[string]*table.Table

// Resolve implements TableResolver.
func (m MapResolver) Resolve(_ context.Context, name string) (*table.Table, error) {
	t, ok := m[name]
	if !ok {
		return nil, TableNotFoundError{Table: name}
	}
	return t, nil
}

// Collect drains a node into a table and closes it.
func Collect(ctx context.Context, name string, node Node) (result *table.Table, err error) {
	defer func() {
		if cerr := node.Close(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close node: %w", cerr)
		}
	}()
	rows := []table.Row{}
	for {
		tup, err := node.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read next tuple: %w", err)
		}
		rows = append(rows, tup.Row)
	}
	return &table.Table{Name: name, Schema: node.Schema(), Rows: rows}, nil
}

// Run compiles a plan tree to an executor tree, and executes it to completion.
func Run(ctx context.Context, node *plan.Node, resolver TableResolver) (*table.Table, error) {
	root, err := CompilePlan(ctx, node, resolver)
	if err != nil {
		return nil, err
	}
	return Collect(ctx, "result", root)
}

// CompilePlan compiles a "plan tree" -- a tree of plan nodes -- to a tree of
// executor nodes.
func CompilePlan(ctx context.Context, node *plan.Node, resolver TableResolver) (Node, error) {
	root, _, err := compile(ctx, node, resolver)
	if err != nil {
		return nil, err
	}
	return root, nil
}

func compile(ctx context.Context, node *plan.Node, resolver TableResolver) (Node, scope, error) {
	var (
		compiled Node
		s        scope
		err      error
	)
	switch node.Type {
	case plan.AsofJoin:
		compiled, s, err = compileAsofJoin(ctx, node, resolver)
	case plan.Filter:
		compiled, s, err = compileFilter(ctx, node, resolver)
	case plan.Limit:
		compiled, s, err = compileLimit(ctx, node, resolver)
	case plan.Offset:
		compiled, s, err = compileOffset(ctx, node, resolver)
	case plan.Scan:
		compiled, s, err = compileScan(ctx, node, resolver)
	default:
		return nil, nil, fmt.Errorf("unrecognized node type %s", node.Type)
	}
	if err != nil {
		return nil, nil, err
	}
	return NewNodeStats(compiled, node.Type.String()), s, nil
}

func compileAsofJoin(ctx context.Context, node *plan.Node, resolver TableResolver) (Node, scope, error) {
	args := node.Join
	left, ls, err := compile(ctx, node.Children[0], resolver)
	if err != nil {
		return nil, nil, err
	}
	right, rs, err := compile(ctx, node.Children[1], resolver)
	if err != nil {
		return nil, nil, errors.Join(err, left.Close(ctx))
	}
	joinType, err := ParseJoinType(args.Type)
	if err != nil {
		return nil, nil, errors.Join(err, closeAll(ctx, left, right))
	}
	opts := []AsofOption{
		On(args.LeftOn.Column, args.RightOn.Column),
		WithAllowExactMatches(args.AllowExactMatches),
		WithJoinType(joinType),
	}
	if args.LeftBy != nil || args.RightBy != nil {
		var leftBy, rightBy string
		if args.LeftBy != nil {
			leftBy = args.LeftBy.Column
		}
		if args.RightBy != nil {
			rightBy = args.RightBy.Column
		}
		opts = append(opts, By(leftBy, rightBy))
	}
	if args.Tolerance != nil {
		opts = append(opts, WithTolerance(*args.Tolerance))
	}
	join, err := NewAsofJoinNode(left, right, NewAsofSpec(opts...))
	if err != nil {
		return nil, nil, errors.Join(err, closeAll(ctx, left, right))
	}
	s := scope{}
	for alias, src := range ls {
		s[alias] = src
	}
	width := left.Schema().Len()
	for alias, src := range rs {
		s[alias] = source{schema: src.schema, offset: src.offset + width}
	}
	return join, s, nil
}

func compileFilter(ctx context.Context, node *plan.Node, resolver TableResolver) (Node, scope, error) {
	child, s, err := compile(ctx, node.Children[1], resolver)
	if err != nil {
		return nil, nil, err
	}
	filter, err := compileExpression(s, node.Children[0])
	if err != nil {
		return nil, nil, errors.Join(err, child.Close(ctx))
	}
	return NewFilterNode(filter, child), s, nil
}

func compileLimit(ctx context.Context, node *plan.Node, resolver TableResolver) (Node, scope, error) {
	child, s, err := compile(ctx, node.Children[0], resolver)
	if err != nil {
		return nil, nil, err
	}
	return NewLimitNode(*node.Limit, child), s, nil
}

func compileOffset(ctx context.Context, node *plan.Node, resolver TableResolver) (Node, scope, error) {
	child, s, err := compile(ctx, node.Children[0], resolver)
	if err != nil {
		return nil, nil, err
	}
	return NewOffsetNode(*node.Offset, child), s, nil
}

func compileScan(ctx context.Context, node *plan.Node, resolver TableResolver) (Node, scope, error) {
	t, err := resolver.Resolve(ctx, node.Table)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve table %s: %w", node.Table, err)
	}
	alias := node.Alias
	if alias == "" {
		alias = node.Table
	}
	s := scope{alias: source{schema: t.Schema}}
	if node.Range == nil {
		return NewScanNode(t, node.Alias), s, nil
	}
	scan, err := NewRangeScanNode(t, node.Alias, TimeRange{
		Column: node.Range.Column,
		Start:  node.Range.Start,
		End:    node.Range.End,
	})
	if err != nil {
		return nil, nil, err
	}
	return scan, s, nil
}

// Explain renders a compiled node tree, one node per line.
func Explain(node Node) string {
	out := []byte{}
	depth := 0
	for _, b := range []byte(node.String()) {
		switch b {
		case '[':
			if depth > 0 {
				out = bytes.TrimRight(out, " ")
				out = append(out, '\n')
				out = append(out, strings.Repeat("  ", depth)...)
			}
			depth++
		case ']':
			depth--
		}
		out = append(out, b)
	}
	return string(out)
}
