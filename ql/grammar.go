package ql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/relvacode/iso8601"
	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/util"
)

/*
This file contains a participle grammar for the tsjoin query language. The
language is intended to provide a simple and ergonomic mechanism for executing
as-of joins over stored tables:

	from quotes as q between "2001-01-01" and "2003-01-01"
	asof left join trades as t on q.time >= t.time by q.id = t.id
	within "1d"
	where t.price > 4
	limit 10 offset 5;

A query without a join is a scan of one table.
*/

////////////////////////////////////////////////////////////////////////////////

var (
	Options = []participle.Option{ // nolint:gochecknoglobals
		participle.Lexer(
			lexer.MustSimple([]lexer.SimpleRule{
				{Name: "Word", Pattern: `[a-zA-Z_/][a-zA-Z0-9_/\.-]*`},
				{Name: "QuotedString", Pattern: `"(?:\\.|[^"])*"`},
				{Name: "whitespace", Pattern: `\s+`},
				{Name: "Operators", Pattern: `,|[()]|;`},
				{Name: "BinaryOperator", Pattern: `=|!=|<=|>=|<|>|~\*|~`},
				{Name: "Float", Pattern: `[-+]?\d*\.\d+([eE][-+]?\d+)?`},
				{Name: "Integer", Pattern: `[-+]?[0-9]+`},
			}),
		),
		participle.Unquote("QuotedString"),
		participle.CaseInsensitive("Word"),
	}
)

// Query represents a query in the tsjoin query language.
type Query struct {
	From         Source       `"from" @@`
	Between      *Between     `@@?`
	Join         *AsofJoin    `@@?`
	Where        *Expression  `("where" @@)?`
	PagingClause []PagingTerm `@@*`
	Terminator   string       `";"`
}

// Source is a table reference with an optional alias.
type Source struct {
	Table string `@Word`
	Alias string `("as" @Word)?`
}

// Name returns the alias if there is one, otherwise the table name.
func (s Source) Name() string {
	return util.When(s.Alias != "", s.Alias, s.Table)
}

// AsofJoin represents an as-of join clause.
type AsofJoin struct {
	Type      string     `"asof" @("left" | "inner")? "join"`
	Source    Source     `@@`
	On        On         `"on" @@`
	By        *By        `("by" @@)?`
	Tolerance *Tolerance `("within" @@)?`
}

// On is the time condition of an as-of join. ">=" admits exact matches and
// ">" excludes them.
type On struct {
	Left  string `@Word`
	Op    string `@(">=" | ">")`
	Right string `@Word`
}

// By is the grouping condition of an as-of join. The right side is optional
// in the grammar so that a one-sided grouping reaches validation.
type By struct {
	Left  string  `@Word`
	Right *string `("=" @Word)?`
}

// Tolerance is either a quantity with units or a duration string.
type Tolerance struct {
	Quantity *int64  `( @Integer`
	Units    string  `  @("nanoseconds" | "microseconds" | "milliseconds" | "seconds" | "minutes" | "hours" | "days")`
	Text     *string `| @QuotedString )`
}

var unitDurations = map[string]time.Duration{ // nolint:gochecknoglobals
	"nanoseconds":  time.Nanosecond,
	"microseconds": time.Microsecond,
	"milliseconds": time.Millisecond,
	"seconds":      time.Second,
	"minutes":      time.Minute,
	"hours":        time.Hour,
	"days":         24 * time.Hour,
}

// Duration returns the tolerance as a duration.
func (t Tolerance) Duration() (time.Duration, error) {
	if t.Text != nil {
		d, err := util.ParseDuration(*t.Text)
		if err != nil {
			return 0, fmt.Errorf("failed to parse tolerance: %w", err)
		}
		return d, nil
	}
	return time.Duration(*t.Quantity) * unitDurations[strings.ToLower(t.Units)], nil
}

// Between represents a time range.
type Between struct {
	From Timestamp `"between" @@ "and"`
	To   Timestamp `@@`
}

// Timestamp represents a timestamp.
type Timestamp struct {
	Nanoseconds *int64  `( @Integer`
	Datestring  *string `| @QuotedString )`
}

// Time returns the timestamp as a time.
func (t Timestamp) Time() (time.Time, error) {
	if t.Nanoseconds != nil {
		return time.Unix(0, *t.Nanoseconds).UTC(), nil
	}
	parsed, err := iso8601.ParseString(*t.Datestring)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return parsed.UTC(), nil
}

// Expression is a disjunction of conjunctions.
type Expression struct {
	Or []*OrCondition `@@ ( "or" @@ )*`
}

// OrCondition is a conjunction of conditions.
type OrCondition struct {
	And []*Condition `@@ ( "and" @@ )*`
}

// Condition is a parenthesized subexpression or a comparison.
type Condition struct {
	Subexpression *Expression `  "(" @@ ")"`
	Comparison    *Comparison `| @@`
}

// Comparison compares a field with a literal value.
type Comparison struct {
	Field string `@Word`
	Op    string `@BinaryOperator`
	Value Value  `@@`
}

// Boolean captures true and false literals.
type Boolean bool

// Capture implements participle.Capture.
func (b *Boolean) Capture(values []string) error {
	*b = Boolean(strings.EqualFold(values[0], "true"))
	return nil
}

// Value represents a literal value.
type Value struct {
	Text    *string  `  @QuotedString`
	Float   *float64 `| @Float`
	Integer *int64   `| @Integer`
	Bool    *Boolean `| @("true" | "false")`
}

// Value returns the literal as a Go value.
func (v Value) Value() any {
	switch {
	case v.Text != nil:
		return *v.Text
	case v.Integer != nil:
		return *v.Integer
	case v.Float != nil:
		return *v.Float
	case v.Bool != nil:
		return bool(*v.Bool)
	}
	panic("invalid value")
}

// String returns the string representation of the value.
func (v Value) String() string {
	switch {
	case v.Text != nil:
		return strconv.Quote(*v.Text)
	case v.Integer != nil:
		return strconv.FormatInt(*v.Integer, 10)
	case v.Float != nil:
		return table.FormatValue(*v.Float)
	case v.Bool != nil:
		return strconv.FormatBool(bool(*v.Bool))
	}
	panic("invalid value")
}

// PagingTerm represents a limit/offset term.
type PagingTerm struct {
	Keyword string `@("limit" | "offset")`
	Value   int    `@Integer`
}

// NewParser returns a new query parser.
func NewParser() *participle.Parser[Query] {
	return participle.MustBuild[Query](Options...)
}
