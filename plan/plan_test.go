package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/tsjoin/plan"
	"github.com/wkalt/tsjoin/ql"
	"github.com/wkalt/tsjoin/util/testutils"
)

func compile(t *testing.T, query string) (*plan.Node, error) {
	t.Helper()
	parser := ql.NewParser()
	ast, err := parser.ParseString("", query)
	require.NoError(t, err)
	return plan.CompileQuery(*ast)
}

func TestCompileQuery(t *testing.T) {
	cases := []struct {
		assertion string
		query     string
		output    string
	}{
		{
			"single scan",
			"from quotes;",
			"[scan (quotes)]",
		},
		{
			"single scan with an alias",
			"from quotes as q;",
			"[scan (quotes q)]",
		},
		{
			"scan with a range",
			`from quotes between "2001-01-01" and "2002-01-01";`,
			"[scan (quotes 2001-01-01T00:00:00Z 2002-01-01T00:00:00Z)]",
		},
		{
			"single scan with a where clause",
			"from quotes as q where q.v = 10;",
			"[filter [or [and [binexp [= q.v 10]]]] [scan (quotes q)]]",
		},
		{
			"unqualified where clause on a single source",
			"from quotes where v > 1.5 and name = \"x\";",
			`[filter [or [and [binexp [> quotes.v 1.5]] [binexp [= quotes.name "x"]]]] [scan (quotes)]]`,
		},
		{
			"where clause with a subexpression",
			"from quotes as q where q.a = 1 and (q.b = 2 or q.c = 3);",
			`[filter [or [and [binexp [= q.a 1]] [or [and [binexp [= q.b 2]]] [and [binexp [= q.c 3]]]]]]
			  [scan (quotes q)]]`,
		},
		{
			"basic asof join",
			"from quotes as a asof join trades as b on a.time >= b.time;",
			"[asof (left a.time >= b.time) [scan (quotes a)] [scan (trades b)]]",
		},
		{
			"asof join without aliases",
			"from quotes asof join trades on quotes.time >= trades.time;",
			"[asof (left quotes.time >= trades.time) [scan (quotes)] [scan (trades)]]",
		},
		{
			"unqualified join columns bind by position",
			"from quotes asof join trades on time >= ts;",
			"[asof (left quotes.time >= trades.ts) [scan (quotes)] [scan (trades)]]",
		},
		{
			"strict inner join",
			"from quotes as a asof inner join trades as b on a.time > b.time;",
			"[asof (inner a.time > b.time) [scan (quotes a)] [scan (trades b)]]",
		},
		{
			"grouped join",
			"from quotes as a asof join trades as b on a.time >= b.time by a.id = b.sym;",
			"[asof (left a.time >= b.time by a.id = b.sym) [scan (quotes a)] [scan (trades b)]]",
		},
		{
			"grouped join with swapped sides",
			"from quotes as a asof join trades as b on a.time >= b.time by b.sym = a.id;",
			"[asof (left a.time >= b.time by a.id = b.sym) [scan (quotes a)] [scan (trades b)]]",
		},
		{
			"unqualified by groups both sides",
			"from quotes as a asof join trades as b on a.time >= b.time by id;",
			"[asof (left a.time >= b.time by a.id = b.id) [scan (quotes a)] [scan (trades b)]]",
		},
		{
			"one sided by is passed through",
			"from quotes as a asof join trades as b on a.time >= b.time by a.id;",
			"[asof (left a.time >= b.time by a.id = _) [scan (quotes a)] [scan (trades b)]]",
		},
		{
			"tolerance string",
			`from quotes as a asof join trades as b on a.time >= b.time within "1d";`,
			"[asof (left a.time >= b.time within 1d) [scan (quotes a)] [scan (trades b)]]",
		},
		{
			"tolerance with units",
			`from quotes as a asof join trades as b on a.time >= b.time within 90 minutes;`,
			"[asof (left a.time >= b.time within 1h30m0s) [scan (quotes a)] [scan (trades b)]]",
		},
		{
			"range applies to the left time column",
			`from quotes as a between 0 and 1000000000 asof join trades as b on a.time >= b.time;`,
			`[asof (left a.time >= b.time)
			  [scan (quotes a time 1970-01-01T00:00:00Z 1970-01-01T00:00:01Z)]
			  [scan (trades b)]]`,
		},
		{
			"join with where and paging",
			`from quotes as a asof join trades as b on a.time >= b.time where b.price > 4 limit 10 offset 5;`,
			`[limit 10 [offset 5 [filter [or [and [binexp [> b.price 4]]]]
			  [asof (left a.time >= b.time) [scan (quotes a)] [scan (trades b)]]]]]`,
		},
		{
			"scan with limit",
			"from quotes limit 10;",
			"[limit 10 [scan (quotes)]]",
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			node, err := compile(t, c.query)
			require.NoError(t, err)
			require.Equal(t, testutils.StripSpace(c.output), node.String())
		})
	}
}

func TestCompileQueryErrors(t *testing.T) {
	cases := []struct {
		assertion string
		query     string
		errmsg    string
	}{
		{
			"unknown alias in where clause",
			"from quotes as a where b.x = 1;",
			"bad plan: unknown alias b in field b.x",
		},
		{
			"unqualified where clause with two sources",
			"from quotes as a asof join trades as b on a.time >= b.time where x = 1;",
			"bad plan: field x must be qualified with one of a, b",
		},
		{
			"join condition on the wrong side",
			"from quotes as a asof join trades as b on b.time >= a.time;",
			"bad plan: left side of join condition must reference a, not b",
		},
		{
			"self join without aliases",
			"from quotes asof join quotes on time >= time;",
			"bad plan: ambiguous alias quotes; alias one side of the join",
		},
		{
			"bad tolerance string",
			`from quotes as a asof join trades as b on a.time >= b.time within "soon";`,
			`bad plan: failed to parse tolerance`,
		},
		{
			"bad range",
			`from quotes between "never" and "2001-01-01";`,
			"bad plan: invalid range start",
		},
		{
			"by references an unknown alias",
			"from quotes as a asof join trades as b on a.time >= b.time by c.id = b.id;",
			"bad plan: left side of join condition must reference a, not c",
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := compile(t, c.query)
			require.ErrorIs(t, err, plan.BadPlanError{})
			require.Contains(t, err.Error(), c.errmsg)
		})
	}
}
