package util_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/tsjoin/cli/util"
	"github.com/wkalt/tsjoin/table"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2001/quotes.csv", "time,id,v\n2001-01-01,1,1.5\n")
	writeFile(t, dir, "2002/quotes.csv", "time,id,v\n2002-01-01,2,2.5\n")
	writeFile(t, dir, "other/quotes.csv", "time,name\n2003-01-01,x\n")
	writeFile(t, dir, "trades.json",
		`{"columns":[{"name":"time","type":"timestamp"},{"name":"px","type":"float64"}],`+
			`"rows":[["2001-01-01T00:00:00Z",4.5]]}`)

	cases := []struct {
		assertion string
		patterns  []string
		rows      int
		err       error
		errmsg    string
	}{
		{
			"glob concatenates matching files",
			[]string{filepath.Join(dir, "200*", "*.csv")},
			2,
			nil,
			"",
		},
		{
			"overlapping patterns are deduplicated",
			[]string{filepath.Join(dir, "2001", "*.csv"), filepath.Join(dir, "**", "2001", "quotes.csv")},
			1,
			nil,
			"",
		},
		{
			"json input",
			[]string{filepath.Join(dir, "*.json")},
			1,
			nil,
			"",
		},
		{
			"no matches",
			[]string{filepath.Join(dir, "*.parquet")},
			0,
			util.ErrNoFiles,
			"",
		},
		{
			"schema mismatch",
			[]string{filepath.Join(dir, "**", "quotes.csv")},
			0,
			table.ErrSchemaMismatch,
			"",
		},
		{
			"invalid pattern",
			[]string{filepath.Join(dir, "[")},
			0,
			nil,
			"invalid pattern",
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			result, err := util.LoadTables("quotes", nil, c.patterns...)
			if c.err != nil {
				require.ErrorIs(t, err, c.err)
				return
			}
			if c.errmsg != "" {
				require.ErrorContains(t, err, c.errmsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "quotes", result.Name)
			require.Equal(t, c.rows, result.Len())
		})
	}
}

func TestLoadTablesOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "id\n2\n")
	writeFile(t, dir, "a.csv", "id\n1\n")
	result, err := util.LoadTables("ids", nil, filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	require.Equal(t, [][]string{{"1"}, {"2"}}, result.Strings())

	hinted, err := util.LoadTables("ids", map[string]table.ColumnType{"id": table.STRING}, filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	require.Equal(t, "(id string)", hinted.Schema.String())
}

func TestContentType(t *testing.T) {
	cases := []struct {
		assertion string
		path      string
		expected  string
		ok        bool
	}{
		{"csv", "a/b.csv", "text/csv", true},
		{"uppercase extension", "b.CSV", "text/csv", true},
		{"json", "b.json", "application/json", true},
		{"unsupported", "b.txt", "", false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			ct, err := util.ContentType(c.path)
			if !c.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.expected, ct)
		})
	}
}

func TestPrintTable(t *testing.T) {
	tbl := table.Must("result", table.MustSchema(
		table.Column{Name: "id", Type: table.INT64},
		table.Column{Name: "name", Type: table.STRING},
	), table.Row{int64(1), "a"}, table.Row{int64(22), nil})

	t.Run("grid", func(t *testing.T) {
		buf := &bytes.Buffer{}
		util.PrintTable(buf, tbl, false)
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 6)
		require.Contains(t, lines[1], "id")
		require.Contains(t, lines[1], "name")
		require.Contains(t, lines[4], "null")
	})

	t.Run("expanded", func(t *testing.T) {
		buf := &bytes.Buffer{}
		util.PrintTable(buf, tbl, true)
		expected := `-[ RECORD 1 ]+------
id           | 1
name         | a
-[ RECORD 2 ]+------
id           | 22
name         | null
`
		require.Equal(t, expected, buf.String())
	})
}

func TestApplyConfig(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		assertion string
		config    string
		args      []string
		port      int
		dataDir   string
		errmsg    string
	}{
		{
			"config supplies defaults",
			"[server]\nport = 9000\ndata-dir = /var/lib/tsjoin\n",
			nil,
			9000,
			"/var/lib/tsjoin",
			"",
		},
		{
			"command line wins",
			"[server]\nport = 9000\n",
			[]string{"--port", "9001"},
			9001,
			"data",
			"",
		},
		{
			"other sections are ignored",
			"[client]\nport = 9000\n",
			nil,
			8089,
			"data",
			"",
		},
		{
			"unknown key",
			"[server]\nworkers = 2\n",
			nil,
			0,
			"",
			"unknown config key workers",
		},
		{
			"invalid value",
			"[server]\nport = many\n",
			nil,
			0,
			"",
			"invalid value for port",
		},
	}
	for i, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			path := writeFile(t, dir, strings.Repeat("c", i+1)+".ini", c.config)
			flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
			port := flags.Int("port", 8089, "")
			dataDir := flags.String("data-dir", "data", "")
			require.NoError(t, flags.Parse(c.args))
			err := util.ApplyConfig(flags, path, "server")
			if c.errmsg != "" {
				require.ErrorContains(t, err, c.errmsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.port, *port)
			require.Equal(t, c.dataDir, *dataDir)
		})
	}
}

func TestApplyConfigMissingFile(t *testing.T) {
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	err := util.ApplyConfig(flags, filepath.Join(t.TempDir(), "missing.ini"), "server")
	require.ErrorContains(t, err, "failed to load config")
}

func TestCheckResponse(t *testing.T) {
	cases := []struct {
		assertion string
		status    int
		body      string
		errmsg    string
		detail    string
	}{
		{"ok", http.StatusOK, "", "", ""},
		{"error with detail", http.StatusBadRequest, `{"error":"bad","detail":"more"}`, "bad", "more"},
		{"error without detail", http.StatusNotFound, `{"error":"table x not found"}`, "table x not found", ""},
		{"undecodable body", http.StatusBadGateway, "<html>", "unexpected status 502 Bad Gateway", ""},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: c.status,
				Status:     fmt.Sprintf("%d %s", c.status, http.StatusText(c.status)),
				Body:       io.NopCloser(strings.NewReader(c.body)),
			}
			err := util.CheckResponse(resp)
			if c.errmsg == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, c.errmsg)
			var apiErr util.APIError
			if c.detail != "" {
				require.ErrorAs(t, err, &apiErr)
				require.Equal(t, c.detail, apiErr.Detail())
				require.Equal(t, c.status, apiErr.Status)
			}
		})
	}
}
