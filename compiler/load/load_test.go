package load

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/schema"
)

func TestParseFile(t *testing.T) {
	s, err := ParseFile("testdata/blog.quarry")
	require.NoError(t, err)

	ds := s.Datasource()
	require.NotNil(t, ds)
	assert.Equal(t, "db", ds.Name)
	assert.Equal(t, "postgresql", ds.Provider)
	assert.Equal(t, schema.Value{Env: "DATABASE_URL"}, ds.URL)

	require.Len(t, s.Generators, 1)
	g := s.Generators[0]
	assert.Equal(t, "quarry-client-go", g.Provider)
	assert.Equal(t, "./db", g.Output)
	assert.Equal(t, map[string]string{"package": "db"}, g.Config)

	require.Len(t, s.Models, 4)
	user := s.Model("User")
	require.NotNil(t, user)
	assert.Equal(t, "A registered user.", user.Doc)
	assert.Equal(t, "users", user.TableName())
	assert.Equal(t, "testdata/blog.quarry:13:1", user.Pos.String())
	require.Len(t, user.Fields, 8)

	id := user.Field("id")
	require.NotNil(t, id)
	assert.Equal(t, "Int", id.Type)
	require.Len(t, id.Attributes, 2)
	assert.Equal(t, "id", id.Attributes[0].Name)
	def := id.Attribute("default")
	require.NotNil(t, def)
	assert.Equal(t, &schema.FuncExpr{Name: "autoincrement"}, def.Arg("value", 0))

	name := user.Field("name")
	assert.True(t, name.Optional)
	assert.Equal(t, schema.Optional, name.Arity())
	posts := user.Field("posts")
	assert.True(t, posts.List)
	assert.Equal(t, "Post", posts.Type)
	assert.Equal(t, "created_at", user.Field("createdAt").ColumnName())
	role := user.Field("role").Attribute("default")
	assert.Equal(t, &schema.IdentExpr{Name: "USER"}, role.Arg("value", 0))

	idx := user.BlockAttribute("index")
	require.NotNil(t, idx)
	cols, ok := schema.Idents(idx.Arg("fields", 0))
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, cols)

	post := s.Model("Post")
	require.NotNil(t, post)
	assert.Equal(t, "Shown in listings.", post.Field("title").Doc)
	native := post.Field("title").NativeType()
	require.NotNil(t, native)
	assert.Equal(t, "db.VarChar", native.Name)
	n, ok := schema.IntValue(native.Arg("", 0))
	require.True(t, ok)
	assert.Equal(t, 200, n)

	rel := post.Field("author").Attribute("relation")
	require.NotNil(t, rel)
	fields, _ := schema.Idents(rel.Arg("fields", -1))
	refs, _ := schema.Idents(rel.Arg("references", -1))
	assert.Equal(t, []string{"authorId"}, fields)
	assert.Equal(t, []string{"id"}, refs)
	assert.Equal(t, &schema.IdentExpr{Name: "Cascade"}, rel.Arg("onDelete", -1))

	enum := s.Enum("Role")
	require.NotNil(t, enum)
	assert.Empty(t, enum.Doc, "plain comments are not documentation")
	require.Len(t, enum.Values, 2)
	assert.Equal(t, "USER", enum.Values[0].Stored())
	assert.Equal(t, "admin", enum.Values[1].Stored())
}

func TestParseDirectory(t *testing.T) {
	s, err := ParseFile("testdata/multi")
	require.NoError(t, err)
	require.NotNil(t, s.Datasource())
	assert.Equal(t, "sqlite", s.Datasource().Provider)
	assert.Equal(t, "file:dev.db", s.Datasource().URL.Literal)
	require.Len(t, s.Models, 1)
	assert.Equal(t, "Account", s.Models[0].Name)
	require.Len(t, s.Enums, 1)
	assert.Equal(t, "plans", s.Enums[0].DBName)
	assert.Equal(t, filepath.Join("testdata", "multi", "b_models.quarry"), s.Models[0].Pos.Filename)

	_, err = ParseFile(t.TempDir())
	assert.ErrorContains(t, err, "no .quarry files")
	_, err = ParseFile("testdata/missing.quarry")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFormatRoundTrip(t *testing.T) {
	s, err := ParseFile("testdata/blog.quarry")
	require.NoError(t, err)
	var first bytes.Buffer
	require.NoError(t, schema.Format(&first, s))

	s2, err := Parse("formatted.quarry", first.Bytes())
	require.NoError(t, err)
	var second bytes.Buffer
	require.NoError(t, schema.Format(&second, s2))
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, "A registered user.", s2.Model("User").Doc)
	assert.Contains(t, first.String(), "  title    String @db.VarChar(200)\n")
	assert.Contains(t, first.String(), "  ADMIN @map(\"admin\")\n")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{
			name: "unclosed arguments",
			src:  "model User {\n  id Int @id(\n}\n",
		},
		{
			name: "unknown block",
			src:  "table User {\n}\n",
		},
		{
			name: "unknown field attribute",
			src:  "model User {\n  id Int @id @primary\n}\n",
			line: 2,
			msg:  `unknown attribute @primary on field "id"`,
		},
		{
			name: "unknown block attribute",
			src:  "model User {\n  id Int @id\n  @@fulltext([id])\n}\n",
			line: 3,
			msg:  "unknown block attribute @@fulltext",
		},
		{
			name: "unknown datasource property",
			src:  "datasource db {\n  provider = \"sqlite\"\n  shadow = \"x\"\n}\n",
			line: 3,
			msg:  `unknown datasource property "shadow"`,
		},
		{
			name: "bad url",
			src:  "datasource db {\n  provider = \"sqlite\"\n  url = env(DB)\n}\n",
			line: 3,
			msg:  "datasource url must be",
		},
		{
			name: "enum value attribute",
			src:  "enum Role {\n  USER @default(\"x\")\n}\n",
			line: 2,
			msg:  "only supports @map",
		},
		{
			name: "escaped invalid utf-8",
			src:  "model User {\n  id Int @id\n  s String @default(\"a\\xff\")\n}\n",
			line: 3,
			msg:  "is not valid UTF-8",
		},
		{
			name: "invalid utf-8 source",
			src:  "model User {\n  id Int @id\n  s String @default(\"a\xffb\")\n}\n",
			line: 3,
			msg:  "invalid UTF-8 byte 0xff",
		},
		{
			name: "duplicate model",
			src:  "model A {\n  id Int @id\n}\nmodel A {\n  id Int @id\n}\n",
			line: 4,
			msg:  `model "A" is already defined at bad.quarry:1:1`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.quarry", []byte(tt.src))
			require.Error(t, err)
			var serr *SyntaxError
			require.True(t, errors.As(err, &serr), "got %T: %v", err, err)
			assert.Equal(t, "bad.quarry", serr.Pos.Filename)
			if tt.line > 0 {
				assert.Equal(t, tt.line, serr.Pos.Line)
			} else {
				assert.Positive(t, serr.Pos.Line)
			}
			if tt.msg != "" {
				assert.Contains(t, serr.Msg, tt.msg)
			}
			assert.Contains(t, err.Error(), "bad.quarry:")
		})
	}
}

func TestParseExpressions(t *testing.T) {
	src := `model Item {
  id     Int     @id
  price  Decimal @default(9.99) @db.Decimal(10, 2)
  active Boolean @default(true)
  tags   Json    @default(dbgenerated("'[]'::jsonb"))
  code   String  @default("a\"b")

  @@index(fields: [price, active], name: "item_price")
}
`
	s, err := Parse("item.quarry", []byte(src))
	require.NoError(t, err)
	m := s.Model("Item")
	require.NotNil(t, m)

	assert.Equal(t, &schema.NumberExpr{Value: "9.99"}, m.Field("price").Attribute("default").Arg("value", 0))
	assert.Equal(t, &schema.BoolExpr{Value: true}, m.Field("active").Attribute("default").Arg("value", 0))
	fn, ok := m.Field("tags").Attribute("default").Arg("value", 0).(*schema.FuncExpr)
	require.True(t, ok)
	assert.Equal(t, "dbgenerated", fn.Name)
	raw, _ := schema.StringValue(fn.Args[0].Value)
	assert.Equal(t, "'[]'::jsonb", raw)
	code, _ := schema.StringValue(m.Field("code").Attribute("default").Arg("value", 0))
	assert.Equal(t, `a"b`, code)

	dec := m.Field("price").NativeType()
	require.Len(t, dec.Args, 2)
	assert.Equal(t, "@db.Decimal(10, 2)", dec.Format("@"))

	idx := m.BlockAttribute("index")
	name, _ := schema.StringValue(idx.Arg("name", -1))
	assert.Equal(t, "item_price", name)
	assert.Equal(t, `@@index(fields: [price, active], name: "item_price")`, idx.Format("@@"))
}
