package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsOldestBeyondCapacity(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3) // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_GetPromotesToFront(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a") // promote "a" so "b" is now oldest
	c.Add("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was the least-recently-used entry and should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestLRU_GetOrCompute(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	calls := 0
	compute := func() interface{} {
		calls++
		return "computed"
	}

	assert.Equal(t, "computed", c.GetOrCompute("k", compute))
	assert.Equal(t, "computed", c.GetOrCompute("k", compute))
	assert.Equal(t, 1, calls, "a cache hit must not recompute")
}

func TestNew_RejectsNonPositiveSize(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}
