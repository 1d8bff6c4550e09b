package util_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/tsjoin/util"
)

func TestGroupBy(t *testing.T) {
	arr := []int{1, 2, 3, 4, 5, 6, 7, 8, 9}
	groups := util.GroupBy(arr, func(x int) int { return x % 2 })
	assert.Equal(t, map[int][]int{0: {2, 4, 6, 8}, 1: {1, 3, 5, 7, 9}}, groups)
}

func TestOkeys(t *testing.T) {
	m := map[string]int{"c": 1, "a": 2, "b": 3}
	assert.Equal(t, []string{"a", "b", "c"}, util.Okeys(m))
}

func TestHumanBytes(t *testing.T) {
	cases := []struct {
		assertion string
		input     uint64
		expected  string
	}{
		{"zero", 0, "0 B"},
		{"bytes", 1023, "1023 B"},
		{"kilobytes", 1024, "1 KB"},
		{"megabytes", 5 * 1024 * 1024, "5 MB"},
		{"gigabytes", 1 << 30, "1 GB"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			assert.Equal(t, c.expected, util.HumanBytes(c.input))
		})
	}
}

func TestWhen(t *testing.T) {
	assert.Equal(t, "a", util.When(true, "a", "b"))
	assert.Equal(t, "b", util.When(false, "a", "b"))
}

func TestPointer(t *testing.T) {
	p := util.Pointer(5)
	assert.Equal(t, 5, *p)
}

func TestEnsureDirectoryExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, util.EnsureDirectoryExists(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	require.NoError(t, util.EnsureDirectoryExists(dir))
}
