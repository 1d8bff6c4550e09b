package table_test

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/util/testutils"
)

func quotes() *table.Table {
	schema := table.MustSchema(
		table.Column{Name: "time", Type: table.TIMESTAMP},
		table.Column{Name: "id", Type: table.INT64},
		table.Column{Name: "v", Type: table.FLOAT64},
	)
	return table.Must("quotes", schema,
		table.Row{testutils.Date("2001-01-01"), int64(1), 1.0},
		table.Row{testutils.Date("2001-01-01"), int64(2), 1.1},
		table.Row{testutils.Date("2002-01-01"), int64(1), nil},
	)
}

func TestNewSchema(t *testing.T) {
	cases := []struct {
		assertion string
		columns   []table.Column
		errmsg    string
	}{
		{
			"valid",
			[]table.Column{{Name: "a", Type: table.INT64}, {Name: "b", Type: table.STRING}},
			"",
		},
		{
			"duplicate",
			[]table.Column{{Name: "a", Type: table.INT64}, {Name: "a", Type: table.STRING}},
			"duplicate column name: a",
		},
		{
			"empty name",
			[]table.Column{{Name: "", Type: table.INT64}},
			"column 0 has no name",
		},
		{
			"invalid type",
			[]table.Column{{Name: "a"}},
			"column a has invalid type",
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := table.NewSchema(c.columns...)
			if c.errmsg == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, c.errmsg)
		})
	}
}

func TestSchemaLookup(t *testing.T) {
	schema := quotes().Schema
	idx, col, err := schema.Lookup("id")
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	require.Equal(t, table.INT64, col.Type)

	_, _, err = schema.Lookup("missing")
	require.ErrorIs(t, err, table.FieldNotFoundError{})
	fnf := table.FieldNotFoundError{}
	require.ErrorAs(t, err, &fnf)
	require.Equal(t, "Available fields: time timestamp, id int64, v float64.", fnf.Detail())
}

func TestMerge(t *testing.T) {
	left := table.MustSchema(
		table.Column{Name: "time", Type: table.TIMESTAMP},
		table.Column{Name: "id", Type: table.INT64},
	)
	right := table.MustSchema(
		table.Column{Name: "time", Type: table.TIMESTAMP},
		table.Column{Name: "time_right", Type: table.STRING},
		table.Column{Name: "v2", Type: table.INT64},
	)
	merged := table.Merge(left, right, "_right")
	require.Equal(t, []string{"time", "id", "time_right", "time_right_right", "v2"}, merged.Names())
}

func TestNewValidatesRows(t *testing.T) {
	schema := table.MustSchema(table.Column{Name: "a", Type: table.INT64})
	t.Run("wrong arity", func(t *testing.T) {
		_, err := table.New("t", schema, []table.Row{{int64(1), int64(2)}})
		require.EqualError(t, err, "row 0 has 2 values, expected 1")
	})
	t.Run("wrong type", func(t *testing.T) {
		_, err := table.New("t", schema, []table.Row{{1}})
		require.ErrorAs(t, err, &table.ValueError{})
	})
	t.Run("null is valid", func(t *testing.T) {
		_, err := table.New("t", schema, []table.Row{{nil}})
		require.NoError(t, err)
	})
}

func TestCompare(t *testing.T) {
	cases := []struct {
		assertion string
		a, b      any
		expected  int
	}{
		{"times", testutils.Date("2001-01-01"), testutils.Date("2002-01-01"), -1},
		{"equal times", testutils.Date("2001-01-01"), testutils.Date("2001-01-01"), 0},
		{"ints", int64(3), int64(2), 1},
		{"int and float", int64(2), 2.5, -1},
		{"float and int", 2.0, int64(2), 0},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			require.Equal(t, c.expected, table.Compare(c.a, c.b))
		})
	}
}

func TestWithin(t *testing.T) {
	day := 24 * time.Hour
	require.True(t, table.Within(testutils.Date("2001-01-02"), testutils.Date("2001-01-01"), day))
	require.False(t, table.Within(testutils.Date("2001-01-03"), testutils.Date("2001-01-01"), day))
	require.True(t, table.Within(int64(10), int64(8), 2))
	require.False(t, table.Within(int64(10), int64(7), 2))
	require.True(t, table.Within(10.5, int64(9), 2))
}

func TestKey(t *testing.T) {
	require.Equal(t, table.Key(int64(1)), table.Key(1.0))
	require.NotEqual(t, table.Key(int64(1)), table.Key(1.5))
	utc := testutils.Date("2001-01-01")
	require.Equal(t, table.Key(utc), table.Key(utc.In(time.FixedZone("x", 3600))))
}

// early and late differ by exactly 2^64 nanoseconds, so their nanosecond
// counts alias once wrapped into an int64.
func aliasedTimes() (time.Time, time.Time) {
	early := time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(math.MaxInt64).Add(math.MaxInt64).Add(2)
	return early, late
}

func TestKeyOutsideNanosecondRange(t *testing.T) {
	early, late := aliasedTimes()
	require.Equal(t, 2084, late.Year())
	require.NotEqual(t, table.Key(early), table.Key(late))
	require.NotEqual(t, table.AppendKey(nil, early), table.AppendKey(nil, late))
	require.Equal(t, table.Key(early), table.Key(early.In(time.FixedZone("x", -7200))))

	far := time.Date(2500, 6, 1, 12, 0, 0, 5, time.UTC)
	require.Equal(t, table.Key(far), table.Key(far.Add(0)))
	require.NotEqual(t, table.Key(far), table.Key(far.Add(1)))
}

func TestUnordered(t *testing.T) {
	cases := []struct {
		assertion string
		value     any
		expected  bool
	}{
		{"null", nil, true},
		{"nan", math.NaN(), true},
		{"float", 1.5, false},
		{"infinity", math.Inf(1), false},
		{"integer", int64(0), false},
		{"timestamp", testutils.Date("2001-01-01"), false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			require.Equal(t, c.expected, table.Unordered(c.value))
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	input := quotes()
	data, err := json.Marshal(input)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"name": "quotes",
		"columns": [
			{"name": "time", "type": "timestamp"},
			{"name": "id", "type": "int64"},
			{"name": "v", "type": "float64"}
		],
		"rows": [
			["2001-01-01T00:00:00Z", 1, 1],
			["2001-01-01T00:00:00Z", 2, 1.1],
			["2002-01-01T00:00:00Z", 1, null]
		]
	}`, string(data))

	output, err := table.DecodeJSON(data)
	require.NoError(t, err)
	require.Equal(t, input.Name, output.Name)
	require.True(t, input.Schema.Equal(output.Schema))
	require.Equal(t, input.Strings(), output.Strings())
}

func TestDecodeJSONErrors(t *testing.T) {
	cases := []struct {
		assertion string
		input     string
		errmsg    string
	}{
		{
			"unknown type",
			`{"name": "t", "columns": [{"name": "a", "type": "complex"}], "rows": []}`,
			"unknown column type: complex",
		},
		{
			"wrong arity",
			`{"name": "t", "columns": [{"name": "a", "type": "int64"}], "rows": [[1, 2]]}`,
			"row 0 has 2 values, expected 1",
		},
		{
			"bad value",
			`{"name": "t", "columns": [{"name": "a", "type": "int64"}], "rows": [["x"]]}`,
			"row 0: column a: value x (string) is not a valid int64",
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := table.DecodeJSON([]byte(c.input))
			require.Error(t, err)
			require.Contains(t, err.Error(), c.errmsg)
		})
	}
}

func TestTimestampFromNanos(t *testing.T) {
	tbl, err := table.DecodeJSON([]byte(
		`{"name": "t", "columns": [{"name": "time", "type": "timestamp"}], "rows": [[1000000000]]}`,
	))
	require.NoError(t, err)
	require.Equal(t, time.Unix(1, 0).UTC(), tbl.Rows[0][0])
}

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"time,id,v,name,flag",
		"2001-01-01T00:00:00Z,1,1.0,a,true",
		"2001-01-01T00:00:00Z,2,1.1,b,false",
		"2002-01-01T00:00:00Z,1,,c,",
	}, "\n")
	t.Run("inferred types", func(t *testing.T) {
		tbl, err := table.ReadCSV("quotes", strings.NewReader(input), nil)
		require.NoError(t, err)
		require.Equal(t, "(time timestamp, id int64, v float64, name string, flag bool)", tbl.Schema.String())
		require.Equal(t, 3, tbl.Len())
		require.Nil(t, tbl.Rows[2][2])
		require.True(t, testutils.Date("2002-01-01").Equal(tbl.Rows[2][0].(time.Time)))
	})
	t.Run("hints override inference", func(t *testing.T) {
		tbl, err := table.ReadCSV("quotes", strings.NewReader(input), map[string]table.ColumnType{
			"id": table.STRING,
		})
		require.NoError(t, err)
		require.Equal(t, "1", tbl.Rows[0][1])
	})
	t.Run("bad hint", func(t *testing.T) {
		_, err := table.ReadCSV("quotes", strings.NewReader(input), map[string]table.ColumnType{
			"name": table.INT64,
		})
		require.ErrorAs(t, err, &table.ValueError{})
	})
	t.Run("empty input", func(t *testing.T) {
		_, err := table.ReadCSV("quotes", strings.NewReader(""), nil)
		require.Error(t, err)
	})
	t.Run("write and read back", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, table.WriteCSV(buf, quotes()))
		tbl, err := table.ReadCSV("quotes", buf, nil)
		require.NoError(t, err)
		require.Equal(t, quotes().Strings(), tbl.Strings())
	})
}

func TestConcat(t *testing.T) {
	t.Run("same schema", func(t *testing.T) {
		out, err := table.Concat("all", quotes(), quotes())
		require.NoError(t, err)
		require.Equal(t, 6, out.Len())
	})
	t.Run("schema mismatch", func(t *testing.T) {
		other := table.Must("other", table.MustSchema(table.Column{Name: "a", Type: table.INT64}))
		_, err := table.Concat("all", quotes(), other)
		require.ErrorIs(t, err, table.ErrSchemaMismatch)
	})
}

func TestAppendKey(t *testing.T) {
	require.Equal(t, table.AppendKey(nil, int64(7)), table.AppendKey(nil, 7.0))
	require.NotEqual(t, table.AppendKey(nil, int64(7)), table.AppendKey(nil, 7.5))
	require.NotEqual(t, table.AppendKey(nil, "a"), table.AppendKey(nil, true))
	require.Equal(t, []byte{0}, table.AppendKey(nil, nil))
	utc := testutils.Date("2001-01-01")
	require.Equal(t, table.AppendKey(nil, utc), table.AppendKey(nil, utc.In(time.FixedZone("x", 3600))))
}

func TestParseTypeHints(t *testing.T) {
	cases := []struct {
		assertion string
		input     string
		expected  map[string]table.ColumnType
		errmsg    string
	}{
		{"empty", "", nil, ""},
		{"single", "id:string", map[string]table.ColumnType{"id": table.STRING}, ""},
		{
			"several with spaces",
			"id: string, time:timestamp",
			map[string]table.ColumnType{"id": table.STRING, "time": table.TIMESTAMP},
			"",
		},
		{"missing type", "id", nil, `invalid type hint "id"`},
		{"unknown type", "id:decimal", nil, "unknown column type: decimal"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			hints, err := table.ParseTypeHints(c.input)
			if c.errmsg != "" {
				require.EqualError(t, err, c.errmsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.expected, hints)
		})
	}
}
