package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/tsjoin/catalog"
	"github.com/wkalt/tsjoin/cli/client"
	"github.com/wkalt/tsjoin/routes"
	"github.com/wkalt/tsjoin/storage"
	"github.com/wkalt/tsjoin/tablemgr"
)

func newSession(t *testing.T) (*session, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	tmgr := tablemgr.NewTableManager(storage.NewMemStore(), catalog.NewMemCatalog())
	url, done := routes.MakeTestRoutes(t, tmgr, "")
	t.Cleanup(done)
	buf := &bytes.Buffer{}
	return &session{client: client.New(url, ""), out: buf}, buf
}

func TestSessionHandle(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		assertion string
		lines     []string
		query     string
		quit      bool
		output    string
	}{
		{
			"single line query",
			[]string{"from quotes;"},
			"from quotes;",
			false,
			"",
		},
		{
			"multiline query",
			[]string{"from quotes as q", "  asof join trades as t", "on q.time >= t.time;"},
			"from quotes as q asof join trades as t on q.time >= t.time;",
			false,
			"",
		},
		{
			"blank lines are ignored",
			[]string{"", "   "},
			"",
			false,
			"",
		},
		{
			"help",
			[]string{"help"},
			"",
			false,
			"interactive interpreter",
		},
		{
			"help topic",
			[]string{"\\h query"},
			"",
			false,
			"as-of join two",
		},
		{
			"toggle expanded",
			[]string{"\\x"},
			"",
			false,
			"Expanded display is on.",
		},
		{
			"toggle explain",
			[]string{"\\explain"},
			"",
			false,
			"Explain is on.",
		},
		{
			"unrecognized command",
			[]string{"\\foo"},
			"",
			false,
			"ERROR: unrecognized command: \\foo",
		},
		{
			"quit",
			[]string{"\\q"},
			"",
			true,
			"",
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			s, buf := newSession(t)
			var query string
			var quit bool
			for _, line := range c.lines {
				query, quit = s.handle(ctx, line)
			}
			require.Equal(t, c.query, query)
			require.Equal(t, c.quit, quit)
			require.False(t, s.pending())
			require.Contains(t, buf.String(), c.output)
		})
	}
}

func TestSessionPending(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)
	query, _ := s.handle(ctx, "from quotes")
	require.Empty(t, query)
	require.True(t, s.pending())
	s.reset()
	require.False(t, s.pending())
}

func TestSessionImportAndQuery(t *testing.T) {
	ctx := context.Background()
	s, buf := newSession(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"),
		[]byte("time,sym,bid\n2001-01-01T00:00:01Z,a,1.5\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"),
		[]byte("time,sym,bid\n2001-01-01T00:00:03Z,a,2.5\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trades.csv"),
		[]byte("time,sym,px\n2001-01-01T00:00:02Z,a,10\n"), 0600))

	_, _ = s.handle(ctx, "\\import quotes "+filepath.Join(dir, "?.csv"))
	require.Contains(t, buf.String(), "imported quotes version 1 (2 rows)")
	_, _ = s.handle(ctx, "\\import trades "+filepath.Join(dir, "trades.csv"))
	require.Contains(t, buf.String(), "imported trades version 1 (1 rows)")

	buf.Reset()
	_, _ = s.handle(ctx, "\\d")
	require.Contains(t, buf.String(), "quotes")
	require.Contains(t, buf.String(), "(2 rows)")

	buf.Reset()
	_, _ = s.handle(ctx, "\\import quotes")
	require.Contains(t, buf.String(), "ERROR: usage")

	buf.Reset()
	_, _ = s.handle(ctx, "\\d nope")
	require.Contains(t, buf.String(), "ERROR: ")
	require.Contains(t, buf.String(), "table nope not found")

	buf.Reset()
	s.format.csv = true
	query, _ := s.handle(ctx, "from quotes as q asof join trades as t on q.time >= t.time by sym;")
	require.NoError(t, s.execute(ctx, query))
	expected := `time,sym,bid,time_right,sym_right,px
2001-01-01T00:00:01Z,a,1.5,,,
2001-01-01T00:00:03Z,a,2.5,2001-01-01T00:00:02Z,a,10
`
	require.Equal(t, expected, buf.String())

	buf.Reset()
	err := s.execute(ctx, "from nope;")
	require.Error(t, err)
	printError(s.out, err)
	require.True(t, strings.HasPrefix(buf.String(), "ERROR: "))
}
