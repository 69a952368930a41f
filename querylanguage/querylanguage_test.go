package querylanguage_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/engine"
	ql "github.com/syssam/quarry/querylanguage"
)

// Record types of a generated blog client.
type (
	User  struct{}
	Post  struct{}
	Order struct{}
	Role  string
)

var (
	email     = engine.NewStringField[User]("email")
	name      = engine.NewStringField[User]("name")
	role      = engine.NewEnumField[User, Role]("role")
	createdAt = engine.NewTimeField[User]("createdAt")
	posts     = engine.NewListRelation[User, Post]("posts")
	published = engine.NewBoolField[Post]("published")
	views     = engine.NewIntField[Post]("views")
	author    = engine.NewRelation[Post, User]("author")
	total     = engine.NewDecimalField[Order]("total")
)

func TestGeneratedFilters(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		p    ql.P
		want string
	}{
		{"equals", email.Equals("ann@example.com").Expr(), `email == "ann@example.com"`},
		{"contains", email.Contains("@example").Expr(), `contains(email, "@example")`},
		{"contains fold", name.ContainsFold("ann").Expr(), `contains_fold(name, "ann")`},
		{"equal fold", email.EqualFold("ANN@EXAMPLE.COM").Expr(), `equal_fold(email, "ANN@EXAMPLE.COM")`},
		{"prefix", name.HasPrefix("A").Expr(), `has_prefix(name, "A")`},
		{"suffix", email.HasSuffix(".org").Expr(), `has_suffix(email, ".org")`},
		{"null", name.IsNull().Expr(), `name == nil`},
		{"not null", name.NotNull().Expr(), `name != nil`},
		{"enum in", role.In("USER", "ADMIN").Expr(), `role in ["USER","ADMIN"]`},
		{"enum not equal", role.NotEquals("ADMIN").Expr(), `role != "ADMIN"`},
		{"time", createdAt.GTE(at).Expr(), `createdAt >= "2024-01-02T03:04:05Z"`},
		{"int range", engine.And(views.GT(10), views.LTE(100)).Expr(), `views > 10 && views <= 100`},
		{"int not in", views.NotIn(1, 2).Expr(), `views not in [1,2]`},
		{"decimal", total.LT(decimal.RequireFromString("12.5")).Expr(), `total < "12.5"`},
		{"bool", published.Equals(true).Expr(), `published == true`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.String())
		})
	}
}

func TestRelationFilters(t *testing.T) {
	tests := []struct {
		name string
		p    ql.P
		want string
	}{
		{"some", posts.Some(published.Equals(true)).Expr(), `has_edge(posts, published == true)`},
		{"some of many", posts.Some(published.Equals(true), views.GT(5)).Expr(), `has_edge(posts, published == true, views > 5)`},
		{"none", posts.None(published.Equals(false)).Expr(), `!(has_edge(posts, published == false))`},
		{"every", posts.Every(published.Equals(true)).Expr(), `!(has_edge(posts, !(published == true)))`},
		{"is", author.Is(email.HasSuffix("@example.com")).Expr(), `has_edge(author, has_suffix(email, "@example.com"))`},
		{"is not", author.IsNot(role.Equals("ADMIN")).Expr(), `!(has_edge(author, role == "ADMIN"))`},
		{"exists", author.Exists().Expr(), `has_edge(author)`},
		{"missing", author.IsNull().Expr(), `!(has_edge(author))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.String())
		})
	}
}

func TestRelationFilterTree(t *testing.T) {
	p := posts.Some(published.Equals(true), author.Is(role.Equals("ADMIN"))).Expr()
	call, ok := p.(*ql.CallExpr)
	require.True(t, ok)
	assert.Equal(t, ql.FuncHasEdge, call.Func)
	require.Len(t, call.Args, 3)
	assert.Equal(t, &ql.Edge{Name: "posts"}, call.Args[0])
	nested, ok := call.Args[2].(*ql.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "author", nested.Args[0].String())
}

func TestComposedFilters(t *testing.T) {
	// Zero filters are dropped, so optional filters compose freely.
	var byName engine.P[User]
	p := engine.And(email.Contains("@example"), byName, role.Equals("USER")).Expr()
	assert.Equal(t, `contains(email, "@example") && role == "USER"`, p.String())

	p = engine.Or(role.Equals("ADMIN"), posts.Some(), name.IsNull()).Expr()
	assert.Equal(t, `(role == "ADMIN" || has_edge(posts) || name == nil)`, p.String())

	p = engine.Not(engine.Or(email.HasSuffix(".org"), email.HasSuffix(".net"))).Expr()
	assert.Equal(t, `!(has_suffix(email, ".org") || has_suffix(email, ".net"))`, p.String())
	assert.Equal(t, `!(!(has_suffix(email, ".org") || has_suffix(email, ".net")))`, p.Negate().String())

	assert.Nil(t, engine.And[User]().Expr())
	assert.Nil(t, engine.Not(byName).Expr())
	assert.Nil(t, posts.Every().Expr(), "every of nothing matches all records")
}

func TestFilterText(t *testing.T) {
	// Equal filters print equally; the text keys cached reads.
	a := engine.And(email.Equals("ann@example.com"), posts.Some(views.GTE(10))).Expr()
	b := engine.And(email.Equals("ann@example.com"), posts.Some(views.GTE(10))).Expr()
	assert.Equal(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), engine.And(email.Equals("ann@example.com"), posts.Some(views.GTE(11))).Expr().String())

	// Values of different types print differently.
	assert.NotEqual(t, ql.FieldEQ("id", 1).String(), ql.FieldEQ("id", "1").String())
	assert.Equal(t, "Op(42)", ql.Op(42).String())
	assert.Equal(t, "not in", ql.OpNotIn.String())
}
