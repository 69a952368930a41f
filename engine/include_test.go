package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/quarry"
)

func TestPaginate(t *testing.T) {
	group := func(titles ...string) []*Record {
		out := make([]*Record, len(titles))
		for i, s := range titles {
			out[i] = &Record{Values: map[string]any{"title": s}}
		}
		return out
	}
	titles := func(recs []*Record) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.Values["title"].(string)
		}
		return out
	}
	tests := []struct {
		name string
		q    *Query
		want []string
	}{
		{"all", &Query{}, []string{"a", "b", "c", "d"}},
		{"skip", &Query{Skip: 1}, []string{"b", "c", "d"}},
		{"take", &Query{Skip: 1, Take: quarry.Ptr(2)}, []string{"b", "c"}},
		{"take past end", &Query{Skip: 3, Take: quarry.Ptr(5)}, []string{"d"}},
		{"skip past end", &Query{Skip: 9}, []string{}},
		{"take last", &Query{Take: quarry.Ptr(-2)}, []string{"c", "d"}},
		{"skip from end", &Query{Skip: 1, Take: quarry.Ptr(-2)}, []string{"b", "c"}},
		{"take zero", &Query{Take: quarry.Ptr(0)}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := [][]*Record{group("a", "b", "c", "d"), nil}
			paginate(groups, tt.q)
			assert.Equal(t, tt.want, titles(groups[0]))
			assert.Empty(t, groups[1])
		})
	}
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, keyString([]any{1, "a"}), keyString([]any{1, "a"}))
	assert.NotEqual(t, keyString([]any{1}), keyString([]any{"1"}))
	assert.NotEqual(t, keyString([]any{int64(1)}), keyString([]any{1}))
	assert.True(t, hasNil([]any{1, nil}))
	assert.False(t, hasNil([]any{1, "x"}))
}

func TestNewCUID(t *testing.T) {
	a, b := newCUID(), newCUID()
	assert.Len(t, a, 27)
	assert.Equal(t, byte('c'), a[0])
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, strings.ToLower(a))
}
