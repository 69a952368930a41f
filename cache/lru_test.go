package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(2)
	require.NoError(t, err)

	v, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, "User:a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "User:b", []byte("2"), 0))
	v, _ = c.Get(ctx, "User:a")
	assert.Equal(t, []byte("1"), v)

	// "User:b" is the least recently used entry.
	require.NoError(t, c.Set(ctx, "Post:c", []byte("3"), 0))
	v, _ = c.Get(ctx, "User:b")
	assert.Nil(t, v)
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.DeletePrefix(ctx, "User:"))
	v, _ = c.Get(ctx, "User:a")
	assert.Nil(t, v)
	v, _ = c.Get(ctx, "Post:c")
	assert.Equal(t, []byte("3"), v)

	require.NoError(t, c.Delete(ctx, "Post:c"))
	assert.Zero(t, c.Len())
}

func TestLRUExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(0)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 50*time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))
	v, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("v"), v)

	assert.Eventually(t, func() bool {
		v, _ := c.Get(ctx, "k")
		return v == nil
	}, time.Second, 10*time.Millisecond)
	v, _ = c.Get(ctx, "forever")
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Len())
}

func TestLRUTTLChange(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(4)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", []byte("old"), time.Minute))
	require.NoError(t, c.Set(ctx, "k", []byte("new"), 0))
	assert.Equal(t, 1, c.Len())
	v, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("new"), v)

	require.NoError(t, c.Set(ctx, "User:a", []byte("1"), time.Hour))
	require.NoError(t, c.DeletePrefix(ctx, "User:"))
	require.NoError(t, c.Delete(ctx, "k"))
	assert.Zero(t, c.Len())
}
