package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/tsjoin/executor"
	"github.com/wkalt/tsjoin/plan"
	"github.com/wkalt/tsjoin/ql"
	"github.com/wkalt/tsjoin/util"
	"github.com/wkalt/tsjoin/util/testutils"
)

func run(ctx context.Context, t *testing.T, query string) ([][]string, error) {
	t.Helper()
	parser := ql.NewParser()
	ast, err := parser.ParseString("", query)
	require.NoError(t, err)
	node, err := plan.CompileQuery(*ast)
	require.NoError(t, err)
	resolver := executor.MapResolver{"quotes": quotes(), "trades": trades()}
	result, err := executor.Run(ctx, node, resolver)
	if err != nil {
		return nil, err
	}
	return result.Strings(), nil
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		assertion string
		query     string
		expected  [][]string
	}{
		{
			"scan",
			"from quotes;",
			[][]string{
				{"2001-01-01T00:00:00Z", "1", "1"},
				{"2001-01-01T00:00:00Z", "2", "1.1"},
				{"2002-01-01T00:00:00Z", "1", "1.2"},
			},
		},
		{
			"scan with range",
			`from quotes between "2001-06-01" and "2003-01-01";`,
			[][]string{{"2002-01-01T00:00:00Z", "1", "1.2"}},
		},
		{
			"scan with where clause",
			"from quotes where v > 1 and id = 1;",
			[][]string{{"2002-01-01T00:00:00Z", "1", "1.2"}},
		},
		{
			"where clause with or",
			"from quotes as q where q.v < 1.05 or q.id = 2;",
			[][]string{
				{"2001-01-01T00:00:00Z", "1", "1"},
				{"2001-01-01T00:00:00Z", "2", "1.1"},
			},
		},
		{
			"where clause on a timestamp",
			`from quotes as q where q.time >= "2001-06-01";`,
			[][]string{{"2002-01-01T00:00:00Z", "1", "1.2"}},
		},
		{
			"grouped asof join",
			"from quotes as a asof join trades as b on a.time >= b.time by a.id = b.id;",
			[][]string{
				{"2001-01-01T00:00:00Z", "1", "1", "2001-01-01T00:00:00Z", "1", "4", "a"},
				{"2001-01-01T00:00:00Z", "2", "1.1", "2001-01-01T00:00:00Z", "2", "5", "b"},
				{"2002-01-01T00:00:00Z", "1", "1.2", "2001-01-01T00:00:00Z", "1", "4", "a"},
			},
		},
		{
			"grouped asof join with tolerance",
			`from quotes as a asof join trades as b on a.time >= b.time by id within "1d";`,
			[][]string{
				{"2001-01-01T00:00:00Z", "1", "1", "2001-01-01T00:00:00Z", "1", "4", "a"},
				{"2001-01-01T00:00:00Z", "2", "1.1", "2001-01-01T00:00:00Z", "2", "5", "b"},
				{"2002-01-01T00:00:00Z", "1", "1.2", "null", "null", "null", "null"},
			},
		},
		{
			"inner strict join",
			"from quotes as a asof inner join trades as b on a.time > b.time by id;",
			[][]string{
				{"2002-01-01T00:00:00Z", "1", "1.2", "2001-01-01T00:00:00Z", "1", "4", "a"},
			},
		},
		{
			"where clause on the right side",
			`from quotes as a asof join trades as b on a.time >= b.time by id where b.name ~ "^b";`,
			[][]string{
				{"2001-01-01T00:00:00Z", "2", "1.1", "2001-01-01T00:00:00Z", "2", "5", "b"},
			},
		},
		{
			"where clause on a null-filled right side",
			`from quotes as a asof join trades as b on a.time >= b.time by id within "1d" where b.v2 != 4;`,
			[][]string{
				{"2001-01-01T00:00:00Z", "2", "1.1", "2001-01-01T00:00:00Z", "2", "5", "b"},
			},
		},
		{
			"range restricts only the left side",
			`from quotes as a between "2001-06-01" and "2003-01-01" asof join trades as b on a.time >= b.time by id;`,
			[][]string{
				{"2002-01-01T00:00:00Z", "1", "1.2", "2001-01-01T00:00:00Z", "1", "4", "a"},
			},
		},
		{
			"limit and offset",
			"from quotes as a asof join trades as b on a.time >= b.time by id limit 1 offset 1;",
			[][]string{
				{"2001-01-01T00:00:00Z", "2", "1.1", "2001-01-01T00:00:00Z", "2", "5", "b"},
			},
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			actual, err := run(ctx, t, c.query)
			require.NoError(t, err)
			require.Equal(t, c.expected, actual)
		})
	}
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		assertion string
		query     string
		target    error
	}{
		{
			"one sided grouping",
			"from quotes as a asof join trades as b on a.time >= b.time by a.id;",
			executor.ErrInvalidArgument,
		},
		{
			"negative tolerance",
			"from quotes as a asof join trades as b on a.time >= b.time within -1 days;",
			executor.ErrInvalidArgument,
		},
		{
			"integer right time column",
			"from quotes as a asof join trades as b on a.time >= b.id;",
			executor.ErrInvalidArgument,
		},
		{
			"unknown column",
			"from quotes as a asof join trades as b on a.ts >= b.time;",
			executor.ErrInvalidArgument,
		},
		{
			"unknown table",
			"from quotes as a asof join orders as b on a.time >= b.time;",
			executor.TableNotFoundError{},
		},
		{
			"where clause type mismatch",
			`from quotes where id = "one";`,
			executor.ErrInvalidArgument,
		},
		{
			"where clause unknown column",
			`from quotes where foo = 1;`,
			executor.ErrInvalidArgument,
		},
		{
			"regex on a number",
			`from quotes where id ~ 1;`,
			executor.ErrInvalidArgument,
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := run(ctx, t, c.query)
			require.ErrorIs(t, err, c.target)
		})
	}
}

func TestRunRecordsStatistics(t *testing.T) {
	ctx := util.WithContext(context.Background(), "query")
	_, err := run(ctx, t, "from quotes as a asof join trades as b on a.time >= b.time by id;")
	require.NoError(t, err)
	stats := util.FromContext(ctx)
	require.InDelta(t, 5, stats.Values["rows_scanned"], 0)
	require.InDelta(t, 3, stats.Values["left_rows"], 0)
	require.InDelta(t, 2, stats.Values["right_rows"], 0)
	require.InDelta(t, 3, stats.Values["matched_rows"], 0)
	require.InDelta(t, 2, stats.Values["groups"], 0)
	require.Len(t, stats.Children, 1)
	require.Equal(t, "asof", stats.Children[0].Name)
	require.Len(t, stats.Children[0].Children, 2)
}

func TestExplain(t *testing.T) {
	parser := ql.NewParser()
	ast, err := parser.ParseString("", "from quotes as a asof join trades as b on a.time >= b.time limit 1;")
	require.NoError(t, err)
	node, err := plan.CompileQuery(*ast)
	require.NoError(t, err)
	root, err := executor.CompilePlan(context.Background(), node,
		executor.MapResolver{"quotes": quotes(), "trades": trades()})
	require.NoError(t, err)
	require.Equal(t,
		"[limit 1\n  [asof left time >= time\n    [scan quotes a]\n    [scan trades b]]]",
		executor.Explain(root),
	)
	require.Equal(t, testutils.StripSpace(executor.Explain(root)), root.String())
}
