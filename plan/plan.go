package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/wkalt/tsjoin/ql"
	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/util"
)

/*
The plan module is responsible for converting raw query AST into a tree of "plan
nodes". The plan nodes mirror the structure of the executor nodes in most
respects, but are a bit more amenable to generic manipulation without invoking
the executor's dependencies on the storage system.

Planning resolves aliases: every field in the plan is qualified with the alias
of the source it belongs to, and fields in the join condition are assigned to
the side of the join they reference. Validation that requires schemas or that
concerns join semantics, such as one-sided grouping, is left to the executor.
*/

////////////////////////////////////////////////////////////////////////////////

// NodeType is the type of a plan node.
type NodeType int

const (
	// AsofJoin is an as-of join node.
	AsofJoin NodeType = iota
	// Scan is a scan node.
	Scan
	// Limit is a limit node.
	Limit
	// Offset is an offset node.
	Offset
	// Filter is a filter node.
	Filter
	// And is an and node.
	And
	// Or is an or node.
	Or
	// BinaryExpression is a binary expression node.
	BinaryExpression
)

// String returns a string representation of the node type.
func (n NodeType) String() string {
	switch n {
	case AsofJoin:
		return "asof"
	case Scan:
		return "scan"
	case Limit:
		return "limit"
	case Offset:
		return "offset"
	case Filter:
		return "filter"
	case And:
		return "and"
	case Or:
		return "or"
	case BinaryExpression:
		return "binexp"
	default:
		panic("unknown")
	}
}

// Field is a column qualified by the alias of its source.
type Field struct {
	Alias  string
	Column string
}

// String returns a string representation of the field.
func (f Field) String() string {
	return f.Alias + "." + f.Column
}

// TimeRange restricts a scan. An empty column is resolved by the executor.
type TimeRange struct {
	Column string
	Start  time.Time
	End    time.Time
}

// JoinArgs holds the arguments of an as-of join. LeftBy and RightBy are set
// independently, so a one-sided grouping survives planning.
type JoinArgs struct {
	Type string

	LeftOn  Field
	RightOn Field

	LeftBy  *Field
	RightBy *Field

	AllowExactMatches bool
	Tolerance         *time.Duration
}

func (j JoinArgs) String() string {
	terms := []string{
		j.Type,
		j.LeftOn.String(),
		util.When(j.AllowExactMatches, ">=", ">"),
		j.RightOn.String(),
	}
	if j.LeftBy != nil || j.RightBy != nil {
		left, right := "_", "_"
		if j.LeftBy != nil {
			left = j.LeftBy.String()
		}
		if j.RightBy != nil {
			right = j.RightBy.String()
		}
		terms = append(terms, "by", left, "=", right)
	}
	if j.Tolerance != nil {
		terms = append(terms, "within", util.FormatDuration(*j.Tolerance))
	}
	return strings.Join(terms, " ")
}

// Node represents a plan node.
type Node struct {
	Type     NodeType
	Children []*Node

	Table string
	Alias string
	Range *TimeRange

	Join *JoinArgs

	BinaryOp      *string
	BinaryOpField *Field
	BinaryOpValue *ql.Value

	Offset *int
	Limit  *int
}

// Traverse a plan tree in pre-order, stopping at the first error.
func Traverse(n *Node, f func(n *Node) error) error {
	if err := f(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := Traverse(c, f); err != nil {
			return err
		}
	}
	return nil
}

// String returns a string representation of the node.
func (n Node) String() string {
	children := make([]string, len(n.Children))
	for i, c := range n.Children {
		children[i] = c.String()
	}
	childrenTerm := ""
	if len(children) > 0 {
		childrenTerm = " " + strings.Join(children, " ")
	}
	switch n.Type {
	case BinaryExpression:
		return fmt.Sprintf("[binexp [%s %s %s]]", *n.BinaryOp, *n.BinaryOpField, n.BinaryOpValue)
	case Limit:
		return fmt.Sprintf("[limit %d%s]", *n.Limit, childrenTerm)
	case Offset:
		return fmt.Sprintf("[offset %d%s]", *n.Offset, childrenTerm)
	case AsofJoin:
		return fmt.Sprintf("[asof (%s)%s]", n.Join, childrenTerm)
	case Scan:
		args := []string{n.Table}
		if n.Alias != "" {
			args = append(args, n.Alias)
		}
		if n.Range != nil {
			if n.Range.Column != "" {
				args = append(args, n.Range.Column)
			}
			args = append(args, table.FormatValue(n.Range.Start), table.FormatValue(n.Range.End))
		}
		return fmt.Sprintf("[scan (%s)%s]", strings.Join(args, " "), childrenTerm)
	}
	return fmt.Sprintf("[%s%s]", n.Type, childrenTerm)
}

// BadPlanError is returned when a query cannot be planned.
type BadPlanError struct {
	msg string
}

func (e BadPlanError) Error() string {
	return "bad plan: " + e.msg
}

func (e BadPlanError) Is(target error) bool {
	_, ok := target.(BadPlanError)
	return ok
}

func badPlan(format string, args ...any) error {
	return BadPlanError{msg: fmt.Sprintf(format, args...)}
}

// scope maps the aliases visible in a query to their tables.
type scope struct {
	aliases []string
}

// resolve qualifies a field reference. Unqualified references are allowed
// only when a single source is in scope.
func (s scope) resolve(ref string) (Field, error) {
	alias, column, found := strings.Cut(ref, ".")
	if !found {
		if len(s.aliases) != 1 {
			return Field{}, badPlan("field %s must be qualified with one of %s", ref, strings.Join(s.aliases, ", "))
		}
		return Field{Alias: s.aliases[0], Column: ref}, nil
	}
	if column == "" {
		return Field{}, badPlan("field %s has no column", ref)
	}
	for _, a := range s.aliases {
		if a == alias {
			return Field{Alias: alias, Column: column}, nil
		}
	}
	return Field{}, badPlan("unknown alias %s in field %s", alias, ref)
}

// resolveSide resolves a join field that must belong to a particular side.
// Unqualified fields are taken to belong to it.
func resolveSide(ref string, alias string, side string) (Field, error) {
	qualifier, column, found := strings.Cut(ref, ".")
	if !found {
		return Field{Alias: alias, Column: ref}, nil
	}
	if qualifier != alias {
		return Field{}, badPlan("%s side of join condition must reference %s, not %s", side, alias, qualifier)
	}
	return Field{Alias: alias, Column: column}, nil
}

func compileSource(src ql.Source) *Node {
	return &Node{Type: Scan, Table: src.Table, Alias: src.Alias}
}

func compileBy(by *ql.By, left, right string) (*Field, *Field, error) {
	if by.Right == nil {
		// "by id" groups both sides on id; "by a.id" names one side only.
		if !strings.Contains(by.Left, ".") {
			return &Field{Alias: left, Column: by.Left}, &Field{Alias: right, Column: by.Left}, nil
		}
		f, err := (scope{aliases: []string{left, right}}).resolve(by.Left)
		if err != nil {
			return nil, nil, err
		}
		if f.Alias == left {
			return &f, nil, nil
		}
		return nil, &f, nil
	}
	lf, err := resolveSide(by.Left, left, "left")
	if err != nil {
		// equality is symmetric, so accept the sides swapped.
		swappedLeft, lerr := resolveSide(*by.Right, left, "left")
		swappedRight, rerr := resolveSide(by.Left, right, "right")
		if lerr != nil || rerr != nil {
			return nil, nil, err
		}
		return &swappedLeft, &swappedRight, nil
	}
	rf, err := resolveSide(*by.Right, right, "right")
	if err != nil {
		return nil, nil, err
	}
	return &lf, &rf, nil
}

func compileAJ(left *Node, leftAlias string, ast ql.AsofJoin) (*Node, error) {
	right := compileSource(ast.Source)
	rightAlias := ast.Source.Name()
	if rightAlias == leftAlias {
		return nil, badPlan("ambiguous alias %s; alias one side of the join", leftAlias)
	}
	args := &JoinArgs{
		Type:              util.When(ast.Type == "", "left", strings.ToLower(ast.Type)),
		AllowExactMatches: ast.On.Op == ">=",
	}
	var err error
	if args.LeftOn, err = resolveSide(ast.On.Left, leftAlias, "left"); err != nil {
		return nil, err
	}
	if args.RightOn, err = resolveSide(ast.On.Right, rightAlias, "right"); err != nil {
		return nil, err
	}
	if ast.By != nil {
		if args.LeftBy, args.RightBy, err = compileBy(ast.By, leftAlias, rightAlias); err != nil {
			return nil, err
		}
	}
	if ast.Tolerance != nil {
		d, err := ast.Tolerance.Duration()
		if err != nil {
			return nil, badPlan("%s", err)
		}
		args.Tolerance = &d
	}
	return &Node{
		Type:     AsofJoin,
		Children: []*Node{left, right},
		Join:     args,
	}, nil
}

func compileComparison(s scope, ast *ql.Comparison) (*Node, error) {
	field, err := s.resolve(ast.Field)
	if err != nil {
		return nil, err
	}
	op := ast.Op
	value := ast.Value
	return &Node{
		Type:          BinaryExpression,
		BinaryOp:      &op,
		BinaryOpField: &field,
		BinaryOpValue: &value,
	}, nil
}

func compileAnd(s scope, ast *ql.OrCondition) (*Node, error) {
	children := make([]*Node, len(ast.And))
	for i, cond := range ast.And {
		var err error
		if cond.Subexpression != nil {
			children[i], err = compileOr(s, cond.Subexpression)
		} else {
			children[i], err = compileComparison(s, cond.Comparison)
		}
		if err != nil {
			return nil, err
		}
	}
	return &Node{Type: And, Children: children}, nil
}

func compileOr(s scope, ast *ql.Expression) (*Node, error) {
	children := make([]*Node, len(ast.Or))
	for i, clause := range ast.Or {
		var err error
		if children[i], err = compileAnd(s, clause); err != nil {
			return nil, err
		}
	}
	return &Node{Type: Or, Children: children}, nil
}

// wrapWithPaging wraps a plan node in limit and offset nodes according to the
// supplied list of clauses.
func wrapWithPaging(node *Node, paging []ql.PagingTerm) (*Node, error) {
	limit := -1
	offset := -1
	for _, clause := range paging {
		if clause.Value < 0 {
			return nil, badPlan("%s must be non-negative", clause.Keyword)
		}
		switch strings.ToLower(clause.Keyword) {
		case "limit":
			limit = clause.Value
		case "offset":
			offset = clause.Value
		}
	}
	if offset > -1 {
		node = &Node{
			Type:     Offset,
			Offset:   &offset,
			Children: []*Node{node},
		}
	}
	if limit > -1 {
		node = &Node{
			Type:     Limit,
			Limit:    &limit,
			Children: []*Node{node},
		}
	}
	return node, nil
}

// CompileQuery compiles an AST query to a plan node.
func CompileQuery(ast ql.Query) (*Node, error) {
	base := compileSource(ast.From)
	leftAlias := ast.From.Name()
	s := scope{aliases: []string{leftAlias}}
	if ast.Between != nil {
		start, err := ast.Between.From.Time()
		if err != nil {
			return nil, badPlan("invalid range start: %s", err)
		}
		end, err := ast.Between.To.Time()
		if err != nil {
			return nil, badPlan("invalid range end: %s", err)
		}
		base.Range = &TimeRange{Start: start, End: end}
	}
	root := base
	if ast.Join != nil {
		var err error
		if root, err = compileAJ(base, leftAlias, *ast.Join); err != nil {
			return nil, err
		}
		if base.Range != nil {
			base.Range.Column = root.Join.LeftOn.Column
		}
		s.aliases = append(s.aliases, ast.Join.Source.Name())
	}
	if ast.Where != nil {
		expr, err := compileOr(s, ast.Where)
		if err != nil {
			return nil, err
		}
		root = &Node{Type: Filter, Children: []*Node{expr, root}}
	}
	if len(ast.PagingClause) > 0 {
		return wrapWithPaging(root, ast.PagingClause)
	}
	return root, nil
}
