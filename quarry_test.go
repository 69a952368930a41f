package quarry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/quarry"
)

func TestPtr(t *testing.T) {
	t.Parallel()
	p := quarry.Ptr("a8m")
	assert.Equal(t, "a8m", *p)
	assert.Equal(t, "a8m", quarry.Deref(p))
	assert.Equal(t, 0, quarry.Deref[int](nil))
}

func TestCacheKey(t *testing.T) {
	t.Parallel()
	k := quarry.CacheKey{
		Model:      "User",
		Operation:  "findMany",
		Predicates: `email == "a"`,
		OrderBy:    "id",
		Limit:      quarry.Ptr(10),
	}
	assert.Equal(t, "User:", k.Prefix())
	assert.Equal(t, `User:findMany:email == "a"::id::10:0`, k.String())
	k.Select = "id,email"
	assert.Equal(t, `User:findMany:email == "a":id,email:id::10:0`, k.String())

	k.Limit = quarry.Ptr(0)
	zero := k.String()
	k.Limit = nil
	assert.NotEqual(t, zero, k.String())
	assert.Equal(t, `User:findMany:email == "a":id,email:id::-:0`, k.String())
}

func TestOpIsMutation(t *testing.T) {
	t.Parallel()
	for _, op := range []quarry.Op{quarry.OpFindMany, quarry.OpFindUnique, quarry.OpFindFirst, quarry.OpCount} {
		assert.False(t, op.IsMutation(), op)
	}
	for _, op := range []quarry.Op{quarry.OpCreate, quarry.OpCreateMany, quarry.OpUpdate, quarry.OpUpdateMany, quarry.OpUpsert, quarry.OpDelete, quarry.OpDeleteMany} {
		assert.True(t, op.IsMutation(), op)
	}
}
