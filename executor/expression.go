package executor

import (
	"cmp"
	"fmt"
	"regexp"
	"time"

	"github.com/relvacode/iso8601"
	"github.com/wkalt/tsjoin/plan"
	"github.com/wkalt/tsjoin/table"
)

/*
This file is responsible for compiling where clauses into filter functions
over joined rows.

A filter has signature func(*Tuple) (bool, error), where the bool indicates
whether the evaluated tuple should be passed up the chain. A where condition
enters this infrastructure as either an "or", "and", or "binary expression".
Fields are resolved through a scope mapping each alias to its source schema and
the position of that schema's first column in the row. Literals are converted
to the type of the column they are compared with when the filter is compiled,
so a type mismatch is reported before any row is read.

Null values satisfy no comparison.
*/

////////////////////////////////////////////////////////////////////////////////

type source struct {
	schema *table.Schema
	offset int
}

// scope maps aliases to the sources visible above a node.
type scope map[string]source

func (s scope) resolve(f plan.Field) (int, table.Column, error) {
	src, ok := s[f.Alias]
	if !ok {
		return -1, table.Column{}, newInvalidArgument("where", "unknown alias %s", f.Alias)
	}
	idx, col, err := lookup(src.schema, "where", f.Column)
	if err != nil {
		return -1, col, err
	}
	return src.offset + idx, col, nil
}

func compileExpression(s scope, node *plan.Node) (func(*Tuple) (bool, error), error) {
	switch node.Type {
	case plan.Or, plan.And:
		terms := make([]func(*Tuple) (bool, error), len(node.Children))
		for i, child := range node.Children {
			var err error
			if terms[i], err = compileExpression(s, child); err != nil {
				return nil, err
			}
		}
		// or short-circuits on true, and on false.
		shortCircuit := node.Type == plan.Or
		return func(t *Tuple) (bool, error) {
			for _, term := range terms {
				ok, err := term(t)
				if err != nil {
					return false, err
				}
				if ok == shortCircuit {
					return shortCircuit, nil
				}
			}
			return !shortCircuit, nil
		}, nil
	case plan.BinaryExpression:
		return compileComparison(s, node)
	default:
		return nil, fmt.Errorf("unexpected expression node %s", node.Type)
	}
}

func coerceLiteral(col table.Column, node *plan.Node) (any, error) {
	v := node.BinaryOpValue
	mismatch := newInvalidArgument("where", "cannot compare %s column %s with %s",
		col.Type, node.BinaryOpField, v)
	switch col.Type {
	case table.TIMESTAMP:
		switch {
		case v.Text != nil:
			ts, err := iso8601.ParseString(*v.Text)
			if err != nil {
				return nil, newInvalidArgument("where", "invalid timestamp %q: %s", *v.Text, err)
			}
			return ts, nil
		case v.Integer != nil:
			return time.Unix(0, *v.Integer).UTC(), nil
		}
	case table.INT64, table.FLOAT64:
		switch {
		case v.Integer != nil:
			return *v.Integer, nil
		case v.Float != nil:
			return *v.Float, nil
		}
	case table.STRING:
		if v.Text != nil {
			return *v.Text, nil
		}
	case table.BOOL:
		if v.Bool != nil {
			return bool(*v.Bool), nil
		}
	}
	return nil, mismatch
}

func compare(a, b any) int {
	switch a := a.(type) {
	case string:
		return cmp.Compare(a, b.(string))
	case bool:
		if a == b.(bool) {
			return 0
		}
		return 1
	}
	return table.Compare(a, b)
}

func compileComparison(s scope, node *plan.Node) (func(*Tuple) (bool, error), error) {
	idx, col, err := s.resolve(*node.BinaryOpField)
	if err != nil {
		return nil, err
	}
	literal, err := coerceLiteral(col, node)
	if err != nil {
		return nil, err
	}
	op := *node.BinaryOp
	if op == "~" || op == "~*" {
		pattern, ok := literal.(string)
		if !ok {
			return nil, newInvalidArgument("where", "operator %s requires a string column, %s is %s",
				op, node.BinaryOpField, col.Type)
		}
		if op == "~*" {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, newInvalidArgument("where", "invalid pattern %q: %s", pattern, err)
		}
		return func(t *Tuple) (bool, error) {
			v, ok := t.Row[idx].(string)
			return ok && re.MatchString(v), nil
		}, nil
	}
	var test func(c int) bool
	switch op {
	case "=":
		test = func(c int) bool { return c == 0 }
	case "!=":
		test = func(c int) bool { return c != 0 }
	case "<":
		test = func(c int) bool { return c < 0 }
	case "<=":
		test = func(c int) bool { return c <= 0 }
	case ">":
		test = func(c int) bool { return c > 0 }
	case ">=":
		test = func(c int) bool { return c >= 0 }
	default:
		return nil, newInvalidArgument("where", "unsupported operator %s", op)
	}
	if col.Type == table.BOOL && op != "=" && op != "!=" {
		return nil, newInvalidArgument("where", "operator %s is not defined for bool column %s", op, node.BinaryOpField)
	}
	return func(t *Tuple) (bool, error) {
		v := t.Row[idx]
		if v == nil {
			return false, nil
		}
		return test(compare(v, literal)), nil
	}, nil
}
