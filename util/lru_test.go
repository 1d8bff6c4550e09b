package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/tsjoin/util"
)

func TestLRU(t *testing.T) {
	t.Run("simple inserts", func(t *testing.T) {
		lru := util.NewLRU[int, string](100, nil)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		require.NoError(t, lru.Put(3, "a"))
		assert.Equal(t, "(3/100) [3:a 2:a 1:a]", lru.String())
	})
	t.Run("eviction", func(t *testing.T) {
		lru := util.NewLRU[int, string](2, nil)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		require.NoError(t, lru.Put(3, "a"))
		assert.Equal(t, "(2/2) [3:a 2:a]", lru.String())
	})
	t.Run("weighted eviction", func(t *testing.T) {
		lru := util.NewLRU[int, string](5, func(s string) int64 { return int64(len(s)) })
		require.NoError(t, lru.Put(1, "aa"))
		require.NoError(t, lru.Put(2, "bb"))
		require.NoError(t, lru.Put(3, "ccc"))
		assert.Equal(t, "(5/5) [3:ccc 2:bb]", lru.String())
	})
	t.Run("value too large", func(t *testing.T) {
		lru := util.NewLRU[int, string](2, func(s string) int64 { return int64(len(s)) })
		require.ErrorIs(t, lru.Put(1, "abc"), util.ErrValueTooLarge)
		assert.Equal(t, "(0/2) []", lru.String())
	})
	t.Run("get key that does not exist", func(t *testing.T) {
		lru := util.NewLRU[int, string](100, nil)
		_, ok := lru.Get(1)
		assert.False(t, ok)
	})
	t.Run("reset the cache", func(t *testing.T) {
		lru := util.NewLRU[int, string](100, nil)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		lru.Reset()
		assert.Equal(t, "(0/100) []", lru.String())
	})
	t.Run("delete", func(t *testing.T) {
		lru := util.NewLRU[int, string](100, nil)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		lru.Delete(1)
		lru.Delete(7)
		assert.Equal(t, "(1/100) [2:a]", lru.String())
	})
	t.Run("get moves items to front", func(t *testing.T) {
		lru := util.NewLRU[int, string](100, nil)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		require.NoError(t, lru.Put(3, "a"))
		_, ok := lru.Get(1)
		assert.True(t, ok)
		assert.Equal(t, "(3/100) [1:a 3:a 2:a]", lru.String())
	})
	t.Run("overwrite moves item to the front", func(t *testing.T) {
		lru := util.NewLRU[int, string](100, nil)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		require.NoError(t, lru.Put(1, "ab"))
		v, ok := lru.Get(1)
		assert.True(t, ok)
		assert.Equal(t, "ab", v)
		assert.Equal(t, "(2/100) [1:ab 2:a]", lru.String())
	})
}
