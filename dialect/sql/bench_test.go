package sql_test

import (
	"fmt"
	"testing"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/dialect/sql/sqlgraph"
	ql "github.com/syssam/quarry/querylanguage"
	"github.com/syssam/quarry/schema/field"
)

var dialects = []string{dialect.SQLite, dialect.MySQL, dialect.Postgres}

// blogGraph returns the graph of a blog schema with users writing
// posts and posts carrying tags.
func blogGraph(b *testing.B) *sqlgraph.Schema {
	g := &sqlgraph.Schema{
		Nodes: []*sqlgraph.Node{
			{
				Type:     "User",
				NodeSpec: sqlgraph.NodeSpec{Table: "User", ID: &sqlgraph.FieldSpec{Column: "id", Type: field.TypeInt}},
				Fields: map[string]*sqlgraph.FieldSpec{
					"email": {Column: "email", Type: field.TypeString},
					"name":  {Column: "name", Type: field.TypeString},
					"role":  {Column: "role", Type: field.TypeEnum},
				},
			},
			{
				Type:     "Post",
				NodeSpec: sqlgraph.NodeSpec{Table: "Post", ID: &sqlgraph.FieldSpec{Column: "id", Type: field.TypeString}},
				Fields: map[string]*sqlgraph.FieldSpec{
					"title":     {Column: "title", Type: field.TypeString},
					"published": {Column: "published", Type: field.TypeBool},
					"views":     {Column: "views", Type: field.TypeInt},
					"authorId":  {Column: "authorId", Type: field.TypeInt},
				},
			},
			{
				Type:     "Tag",
				NodeSpec: sqlgraph.NodeSpec{Table: "Tag", ID: &sqlgraph.FieldSpec{Column: "id", Type: field.TypeInt}},
				Fields: map[string]*sqlgraph.FieldSpec{
					"name": {Column: "name", Type: field.TypeString},
				},
			},
		},
	}
	edges := []struct {
		name, from, to string
		spec           *sqlgraph.EdgeSpec
	}{
		{"posts", "User", "Post", &sqlgraph.EdgeSpec{Rel: sqlgraph.O2M, Table: "Post", Columns: []string{"authorId"}}},
		{"author", "Post", "User", &sqlgraph.EdgeSpec{Rel: sqlgraph.M2O, Inverse: true, Table: "Post", Columns: []string{"authorId"}}},
		{"tags", "Post", "Tag", &sqlgraph.EdgeSpec{Rel: sqlgraph.M2M, Table: "_PostToTag", Columns: []string{"A", "B"}}},
		{"posts", "Tag", "Post", &sqlgraph.EdgeSpec{Rel: sqlgraph.M2M, Inverse: true, Table: "_PostToTag", Columns: []string{"A", "B"}}},
	}
	for _, e := range edges {
		if err := g.AddE(e.name, e.spec, e.from, e.to); err != nil {
			b.Fatal(err)
		}
	}
	return g
}

func benchmarkEval(b *testing.B, model string, p ql.P) {
	g := blogGraph(b)
	for _, d := range dialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				s := sql.Dialect(d).Select().From(sql.Table(model))
				if err := g.EvalP(model, p, s); err != nil {
					b.Fatal(err)
				}
				s.Query()
			}
		})
	}
}

func BenchmarkEvalP_Fields(b *testing.B) {
	benchmarkEval(b, "User", ql.And(
		ql.FieldContains("email", "@example.com"),
		ql.FieldIn("role", "USER", "ADMIN"),
		ql.FieldNotNil("name"),
	))
}

func BenchmarkEvalP_ToManyRelation(b *testing.B) {
	benchmarkEval(b, "User", ql.HasEdgeWith("posts",
		ql.FieldEQ("published", true),
		ql.FieldGT("views", 100),
	))
}

func BenchmarkEvalP_EveryRelation(b *testing.B) {
	benchmarkEval(b, "User", ql.Not(ql.HasEdgeWith("posts", ql.Not(ql.FieldEQ("published", true)))))
}

func BenchmarkEvalP_ManyToMany(b *testing.B) {
	benchmarkEval(b, "Post", ql.And(
		ql.HasEdgeWith("tags", ql.FieldEQ("name", "go")),
		ql.HasEdgeWith("author", ql.FieldHasSuffix("email", ".org")),
	))
}

func BenchmarkEvalP_Nested(b *testing.B) {
	benchmarkEval(b, "Tag", ql.HasEdgeWith("posts",
		ql.HasEdgeWith("author", ql.HasEdgeWith("posts", ql.FieldGTE("views", 10))),
	))
}

// BenchmarkIncludeQuery measures the child query of an include over a
// batch of parent keys.
func BenchmarkIncludeQuery(b *testing.B) {
	for _, n := range []int{10, 1000} {
		rows := make([][]any, n)
		for i := range rows {
			rows[i] = []any{i + 1}
		}
		for _, d := range dialects {
			b.Run(fmt.Sprintf("%s/%d", d, n), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					t := sql.Table("Post")
					sql.Dialect(d).Select(t.C("id"), t.C("title"), t.C("authorId")).
						From(t).
						Where(sql.And(sql.InValues([]string{t.C("authorId")}, rows), sql.EQ(t.C("published"), true))).
						OrderBy(sql.Desc(t.C("views"))).
						Query()
				}
			})
		}
	}
}

func BenchmarkUpdateAtomic(b *testing.B) {
	for _, d := range dialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				sql.Dialect(d).Update("Post").
					Set("title", "Hello").
					Add("views", 1).
					Where(sql.EQ("id", "p1")).
					Query()
			}
		})
	}
}
