package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewWithConfig[string, int](CacheConfig{Capacity: 2})
	require.NoError(t, err)

	c.Put("a", 1, 1)
	c.Put("b", 2, 1)
	_, _ = c.Get("a") // a 成为最近使用
	c.Put("c", 3, 1)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUWeightLimit(t *testing.T) {
	c, err := NewWithConfig[string, string](CacheConfig{MaxWeight: 10})
	require.NoError(t, err)

	c.Put("small", "x", 3)
	c.Put("big", "y", 9)

	assert.False(t, c.Contains("small"))
	assert.True(t, c.Contains("big"))
	assert.Equal(t, 9, c.Weight())
}

func TestLRUTTL(t *testing.T) {
	now := time.Unix(100, 0)
	c, err := NewWithConfig[string, int](CacheConfig{Capacity: 10, TTL: time.Minute, Now: func() time.Time { return now }})
	require.NoError(t, err)

	c.Put("k", 1, 1)
	assert.True(t, c.Contains("k"))

	now = now.Add(time.Minute)
	assert.False(t, c.Contains("k"))
	assert.Equal(t, 0, c.Len())
}

func TestPutIfAbsent(t *testing.T) {
	now := time.Unix(0, 0)
	c, err := NewWithConfig[string, bool](CacheConfig{Capacity: 10, TTL: time.Second, Now: func() time.Time { return now }})
	require.NoError(t, err)

	assert.True(t, c.PutIfAbsent("h", true, 1))
	assert.False(t, c.PutIfAbsent("h", true, 1))

	now = now.Add(2 * time.Second)
	assert.True(t, c.PutIfAbsent("h", true, 1), "expired entries can be claimed again")

	assert.True(t, c.Remove("h"))
	assert.False(t, c.Remove("h"))
}

func TestGetOrCreate(t *testing.T) {
	c, err := NewWithConfig[string, *int](CacheConfig{Capacity: 4})
	require.NoError(t, err)

	calls := 0
	create := func() *int { calls++; v := calls; return &v }

	first := c.GetOrCreate("u1", create)
	second := c.GetOrCreate("u1", create)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestNewWithConfigRequiresALimit(t *testing.T) {
	_, err := NewWithConfig[string, int](CacheConfig{})
	assert.Error(t, err)
}
