package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenPredicate(t *testing.T) {
	out := render(t, testGraph(t, blogSchema), "user_query.go")
	for _, want := range []string{
		"type UserPredicate = engine.P[User]",
		"var UserWhere = struct {",
		"ID engine.IntField[User]",
		"Email engine.StringField[User]",
		"Role engine.EnumField[User, Role]",
		"CreatedAt engine.TimeField[User]",
		"Posts engine.ListRelation[User, Post]",
		"Profile engine.Relation[User, Profile]",
		`Email: engine.NewStringField[User]("email")`,
		`Role: engine.NewEnumField[User, Role]("role")`,
		`Posts: engine.NewListRelation[User, Post]("posts")`,
		`Profile: engine.NewRelation[User, Profile]("profile")`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestGenFields(t *testing.T) {
	out := render(t, testGraph(t, blogSchema), "user_query.go")
	for _, want := range []string{
		"type UserField string",
		`UserFieldEmail UserField = "email"`,
		`UserFieldCreatedAt UserField = "createdAt"`,
		"type UserOrderBy struct { Field UserField Desc bool }",
		"func (f UserField) Asc() UserOrderBy {",
		"func (f UserField) Desc() UserOrderBy {",
	} {
		assert.Contains(t, out, want)
	}
}

func TestGenWhereUnique(t *testing.T) {
	g := testGraph(t, blogSchema)
	user := render(t, g, "user_query.go")
	assert.Contains(t, user, "type UserWhereUnique struct { ID *int Email *string }")
	assert.Contains(t, user, "func (w UserWhereUnique) unique() engine.Unique {")
	assert.Contains(t, user, `u["email"] = *w.Email`)

	post := render(t, g, "post_query.go")
	assert.Contains(t, post, "type PostAuthorIDTitleKey struct { AuthorID int Title string }")
	assert.Contains(t, post, "type PostWhereUnique struct { ID *string AuthorIDTitle *PostAuthorIDTitleKey }")
	assert.Contains(t, post, `u["authorId"] = k.AuthorID`)
	assert.Contains(t, post, `u["title"] = k.Title`)
}

func TestGenWhereUnique_Enum(t *testing.T) {
	g := testGraph(t, `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}

model Seat {
  id    Int   @id
  level Level
  num   Int

  @@unique([level, num])
}

enum Level {
  LOW
  HIGH
}
`)
	out := render(t, g, "seat_query.go")
	assert.Contains(t, out, `u["level"] = string(k.Level)`)
}

func TestGenQueryInput(t *testing.T) {
	out := render(t, testGraph(t, blogSchema), "user_query.go")
	for _, want := range []string{
		"type UserQuery struct {",
		"Where []UserPredicate",
		"OrderBy []UserOrderBy",
		"Cursor *UserWhereUnique",
		"Skip int",
		"Take *int",
		"Select []UserField",
		"Include *UserInclude",
		"func (q *UserQuery) query() *engine.Query {",
		"if q == nil { return nil }",
		"Where: engine.And(q.Where...).Expr()",
		"type UserInclude struct { Posts *PostQuery Profile *ProfileQuery }",
		`inc["posts"] = i.Posts.query()`,
	} {
		assert.Contains(t, out, want)
	}
}
