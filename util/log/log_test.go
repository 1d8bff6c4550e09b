package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/tsjoin/util/log"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		assertion string
		input     string
		expected  slog.Level
		err       bool
	}{
		{"debug", "debug", slog.LevelDebug, false},
		{"default", "", slog.LevelInfo, false},
		{"mixed case", "WARN", slog.LevelWarn, false},
		{"error", "error", slog.LevelError, false},
		{"invalid", "loud", slog.LevelInfo, true},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			level, err := log.ParseLevel(c.input)
			if c.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.expected, level)
		})
	}
}

func TestTags(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	defer slog.SetDefault(prev)

	ctx := log.AddTags(context.Background(), "table", "quotes")
	ctx = log.AddTags(ctx, "request_id", "abc")
	log.Infow(ctx, "joined", "rows", 3)
	log.Debugf(ctx, "hidden")

	out := buf.String()
	require.Contains(t, out, "msg=joined")
	require.Contains(t, out, "rows=3")
	require.Contains(t, out, "table=quotes")
	require.Contains(t, out, "request_id=abc")
	require.NotContains(t, out, "hidden")
}
