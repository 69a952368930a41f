package dataloader

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/dialect/sql/sqlgraph"
	"github.com/syssam/quarry/engine"
	ql "github.com/syssam/quarry/querylanguage"
	"github.com/syssam/quarry/schema/field"
)

type item struct {
	ID    int
	Group string
}

func itemID(i item) int { return i.ID }

func TestOrderByKeys(t *testing.T) {
	t.Parallel()
	values := []item{{ID: 3}, {ID: 1}}
	got, errs := OrderByKeys([]int{1, 2, 3, 1}, values, itemID)
	assert.Equal(t, []item{{ID: 1}, {}, {ID: 3}, {ID: 1}}, got)
	assert.Equal(t, []error{nil, ErrNotFound, nil, nil}, errs)
}

func TestGroupByKey(t *testing.T) {
	t.Parallel()
	values := []item{{ID: 1, Group: "a"}, {ID: 2, Group: "b"}, {ID: 3, Group: "a"}}
	groups := GroupByKey(values, func(i item) string { return i.Group })
	assert.Equal(t, []item{{ID: 1, Group: "a"}, {ID: 3, Group: "a"}}, groups["a"])

	ordered := OrderGroupsByKeys([]string{"b", "c", "a"}, groups)
	require.Len(t, ordered, 3)
	assert.Len(t, ordered[0], 1)
	assert.Nil(t, ordered[1])
	assert.Len(t, ordered[2], 2)
}

func TestWithLoaders(t *testing.T) {
	t.Parallel()
	type loaders struct{ name string }
	ctx := WithLoaders(context.Background(), &loaders{name: "req"})
	assert.Equal(t, "req", For[*loaders](ctx).name)
	assert.Nil(t, For[*loaders](context.Background()))
}

const ddl = `
CREATE TABLE Author (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL);
CREATE TABLE Book (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  authorId INTEGER NOT NULL REFERENCES Author(id)
)`

func library(t *testing.T) *engine.Engine {
	t.Helper()
	drv, err := sql.Open(dialect.SQLite, "sqlite", "file:"+t.Name()+"?mode=memory")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })
	for _, stmt := range strings.Split(ddl, ";") {
		_, err := drv.DB().Exec(stmt)
		require.NoError(t, err)
	}
	s := &engine.Schema{Models: []*engine.Model{
		{
			Name:  "Author",
			Table: "Author",
			Fields: []*engine.Field{
				{Name: "id", Column: "id", Type: field.TypeInt, Default: engine.DefaultAutoincrement},
				{Name: "name", Column: "name", Type: field.TypeString},
			},
			PrimaryKey: []string{"id"},
			Relations: []*engine.RelationSpec{
				{Name: "books", Model: "Book", Kind: sqlgraph.O2M, List: true, Fields: []string{"id"}, References: []string{"authorId"}, Back: "author"},
			},
		},
		{
			Name:  "Book",
			Table: "Book",
			Fields: []*engine.Field{
				{Name: "id", Column: "id", Type: field.TypeInt, Default: engine.DefaultAutoincrement},
				{Name: "title", Column: "title", Type: field.TypeString},
				{Name: "authorId", Column: "authorId", Type: field.TypeInt},
			},
			PrimaryKey: []string{"id"},
			Relations: []*engine.RelationSpec{
				{Name: "author", Model: "Author", Kind: sqlgraph.M2O, Owner: true, Fields: []string{"authorId"}, References: []string{"id"}, Back: "books"},
			},
		},
	}}
	e, err := engine.New(drv, s)
	require.NoError(t, err)
	ctx := context.Background()
	for _, a := range []struct {
		name  string
		books []string
	}{
		{"Le Guin", []string{"The Dispossessed", "A Wizard of Earthsea"}},
		{"Calvino", []string{"Invisible Cities"}},
		{"Borges", nil},
	} {
		c := &engine.Create{Data: map[string]any{"name": a.name}}
		for _, title := range a.books {
			if c.Create == nil {
				c.Create = map[string][]*engine.Create{}
			}
			c.Create["books"] = append(c.Create["books"], &engine.Create{Data: map[string]any{"title": title}})
		}
		_, err := e.Create(ctx, "Author", c, nil)
		require.NoError(t, err)
	}
	return e
}

func TestLoader_Load(t *testing.T) {
	e := library(t)
	l := &Loader[int]{Engine: e, Model: "Author", Field: "id"}
	recs, errs := l.BatchFunc()(context.Background(), []int{2, 9, 1, 2})
	require.Len(t, recs, 4)
	assert.Equal(t, "Calvino", engine.Get[string](recs[0], "name"))
	assert.Nil(t, recs[1])
	assert.ErrorIs(t, errs[1], ErrNotFound)
	assert.Equal(t, "Le Guin", engine.Get[string](recs[2], "name"))
	assert.Same(t, recs[0], recs[3])
	assert.NoError(t, errs[0])
}

func TestLoader_LoadMany(t *testing.T) {
	e := library(t)
	l := &Loader[int]{
		Engine: e,
		Model:  "Book",
		Field:  "authorId",
		Query: &engine.Query{
			Where:   ql.FieldNEQ("title", "A Wizard of Earthsea"),
			OrderBy: []engine.Order{{Field: "title"}},
			Select:  []string{"title"},
		},
	}
	groups, err := l.LoadMany(context.Background(), []int{1, 3, 2})
	require.NoError(t, err)
	require.Len(t, groups, 3)
	require.Len(t, groups[0], 1)
	assert.Equal(t, "The Dispossessed", engine.Get[string](groups[0][0], "title"))
	assert.Empty(t, groups[1])
	require.Len(t, groups[2], 1)
	assert.Equal(t, 2, engine.Get[int](groups[2][0], "authorId"))
}

func TestLoader_Error(t *testing.T) {
	e := library(t)
	l := &Loader[int]{Engine: e, Model: "Publisher", Field: "id"}
	recs, errs := l.Load(context.Background(), []int{1, 2})
	assert.Equal(t, []*engine.Record{nil, nil}, recs)
	for _, err := range errs {
		assert.Error(t, err)
	}
	_, err := l.LoadMany(context.Background(), []int{1})
	assert.True(t, err != nil && !errors.Is(err, ErrNotFound))
}

func TestLoader_QueryDedup(t *testing.T) {
	t.Parallel()
	keys := make([]int, 0, 3000)
	for i := 0; i < 1000; i++ {
		keys = append(keys, 3, 1, 2)
	}
	l := &Loader[int]{Model: "Author", Field: "id"}
	assert.Equal(t, ql.FieldIn("id", 3, 1, 2), l.query(keys).Where)
}
