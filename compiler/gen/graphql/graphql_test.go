package graphql

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"gopkg.in/yaml.v3"

	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/compiler/load"
	"github.com/syssam/quarry/schema"
)

const blogSchema = `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}

/// A registered user.
model User {
  id        Int      @id @default(autoincrement())
  email     String   @unique
  name      String?
  role      Role     @default(USER)
  posts     Post[]
  profile   Profile?
  createdAt DateTime @default(now())
  meta      Json?
}

model Profile {
  id     Int    @id @default(autoincrement())
  bio    String
  user   User   @relation(fields: [userId], references: [id])
  userId Int    @unique
}

model Post {
  id       String @id @default(uuid())
  title    String
  views    BigInt @default(0)
  author   User   @relation(fields: [authorId], references: [id])
  authorId Int

  @@unique([authorId, title])
}

model Counter {
  id Int @id @default(autoincrement())
}

enum Role {
  USER
  ADMIN @map("admin")
}
`

func testGraph(t *testing.T, target string) *gen.Graph {
	t.Helper()
	s, err := load.Parse("schema.quarry", []byte(blogSchema))
	require.NoError(t, err)
	cfg, err := gen.NewConfig(gen.WithTarget(target))
	require.NoError(t, err)
	g, err := gen.NewGraph(cfg, s)
	require.NoError(t, err)
	return g
}

// loadSDL parses the generated SDL back into a schema.
func loadSDL(t *testing.T, sdl string) *ast.Schema {
	t.Helper()
	s, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	require.NoError(t, err)
	return s
}

func typeOf(t *testing.T, s *ast.Schema, typ, name string) string {
	t.Helper()
	def := s.Types[typ]
	require.NotNil(t, def, "missing type %s", typ)
	f := def.Fields.ForName(name)
	require.NotNil(t, f, "missing field %s.%s", typ, name)
	return f.Type.String()
}

func TestSDL(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	sdl, err := g.SDL(testGraph(t, t.TempDir()))
	require.NoError(t, err)
	assert.Contains(t, sdl, "# "+gen.DefaultHeader)
	s := loadSDL(t, sdl)

	t.Run("object types", func(t *testing.T) {
		assert.Equal(t, "A registered user.", s.Types["User"].Description)
		assert.Equal(t, "Int!", typeOf(t, s, "User", "id"))
		assert.Equal(t, "String!", typeOf(t, s, "User", "email"))
		assert.Equal(t, "String", typeOf(t, s, "User", "name"))
		assert.Equal(t, "Role!", typeOf(t, s, "User", "role"))
		assert.Equal(t, "Time!", typeOf(t, s, "User", "createdAt"))
		assert.Equal(t, "JSON", typeOf(t, s, "User", "meta"))
		assert.Equal(t, "[Post!]!", typeOf(t, s, "User", "posts"))
		assert.Equal(t, "Profile", typeOf(t, s, "User", "profile"))
		assert.Equal(t, "User!", typeOf(t, s, "Profile", "user"))
		assert.Equal(t, "BigInt!", typeOf(t, s, "Post", "views"))
	})

	t.Run("scalars and enums", func(t *testing.T) {
		for _, name := range []string{"BigInt", "JSON", "Time"} {
			require.NotNil(t, s.Types[name], name)
			assert.Equal(t, ast.Scalar, s.Types[name].Kind)
		}
		assert.Nil(t, s.Types["Decimal"], "unused scalars are not declared")
		role := s.Types["Role"]
		require.NotNil(t, role)
		assert.NotNil(t, role.EnumValues.ForName("USER"))
		assert.NotNil(t, role.EnumValues.ForName("ADMIN"))
		order := s.Types["UserOrderField"]
		require.NotNil(t, order)
		assert.NotNil(t, order.EnumValues.ForName("email"))
		assert.Nil(t, order.EnumValues.ForName("meta"), "JSON fields are not sortable")
	})

	t.Run("unique inputs", func(t *testing.T) {
		assert.Equal(t, "Int", typeOf(t, s, "UserWhereUniqueInput", "id"))
		assert.Equal(t, "String", typeOf(t, s, "UserWhereUniqueInput", "email"))
		assert.Equal(t, "PostAuthorIDTitleInput", typeOf(t, s, "PostWhereUniqueInput", "authorIDTitle"))
		assert.Equal(t, "Int!", typeOf(t, s, "PostAuthorIDTitleInput", "authorId"))
		assert.Equal(t, "Boolean!", typeOf(t, s, "UserOrder", "desc"))
	})

	t.Run("mutation inputs", func(t *testing.T) {
		assert.Equal(t, "String!", typeOf(t, s, "UserCreateInput", "email"))
		assert.Equal(t, "Role", typeOf(t, s, "UserCreateInput", "role"))
		assert.Equal(t, "String", typeOf(t, s, "UserUpdateInput", "email"))
		assert.Equal(t, "Int", typeOf(t, s, "PostCreateInput", "authorId"))
		assert.Nil(t, s.Types["UserCreateInput"].Fields.ForName("id"), "autoincrement ids are not settable")
		assert.Nil(t, s.Types["CounterCreateInput"])
	})

	t.Run("root types", func(t *testing.T) {
		require.NotNil(t, s.Query)
		assert.Equal(t, "User", typeOf(t, s, "Query", "user"))
		assert.Equal(t, "[User!]!", typeOf(t, s, "Query", "users"))
		users := s.Query.Fields.ForName("users")
		assert.Equal(t, "[UserOrder!]", users.Arguments.ForName("orderBy").Type.String())
		assert.Equal(t, "Int", users.Arguments.ForName("take").Type.String())

		require.NotNil(t, s.Mutation)
		assert.Equal(t, "User!", typeOf(t, s, "Mutation", "createUser"))
		update := s.Mutation.Fields.ForName("updateUser")
		require.NotNil(t, update)
		assert.Equal(t, "UserWhereUniqueInput!", update.Arguments.ForName("where").Type.String())
		assert.Equal(t, "UserUpdateInput!", update.Arguments.ForName("data").Type.String())
		assert.NotNil(t, s.Mutation.Fields.ForName("deleteCounter"))
		assert.Nil(t, s.Mutation.Fields.ForName("createCounter"))
	})
}

func TestSDL_WithoutMutations(t *testing.T) {
	g, err := New(WithMutations(false))
	require.NoError(t, err)
	sdl, err := g.SDL(testGraph(t, t.TempDir()))
	require.NoError(t, err)
	s := loadSDL(t, sdl)
	assert.Nil(t, s.Mutation)
	assert.Nil(t, s.Types["UserCreateInput"])
	assert.NotNil(t, s.Types["UserWhereUniqueInput"])
}

func TestGenerate(t *testing.T) {
	target := t.TempDir()
	g, err := New(WithClientPackage("example.com/app/db"))
	require.NoError(t, err)
	require.NoError(t, g.Generate(testGraph(t, target)))

	assert.FileExists(t, filepath.Join(target, "schema.graphql"))
	cfg, err := LoadGQLGenConfig(filepath.Join(target, "gqlgen.yml"))
	require.NoError(t, err)
	assert.Equal(t, StringList{"schema.graphql"}, cfg.SchemaFilename)
	assert.Equal(t, StringList{"example.com/app/db.User"}, cfg.Models["User"].Model)
	assert.True(t, cfg.Models["User"].Fields["posts"].Resolver)
	assert.Equal(t, StringList{"example.com/app/db.Role"}, cfg.Models["Role"].Model)
	assert.Equal(t, "example.com/app/db.RoleAdmin", cfg.Models["Role"].EnumValues["ADMIN"].Value)
	assert.Equal(t, StringList{"example.com/app/db.UserField"}, cfg.Models["UserOrderField"].Model)
	assert.Equal(t, "example.com/app/db.UserFieldCreatedAt", cfg.Models["UserOrderField"].EnumValues["createdAt"].Value)
	assert.Equal(t, StringList{"example.com/app/db.UserOrderBy"}, cfg.Models["UserOrder"].Model)
	assert.Equal(t, StringList{"example.com/app/db.PostAuthorIDTitleKey"}, cfg.Models["PostAuthorIDTitleInput"].Model)
	assert.Equal(t, StringList{"example.com/app/db.UserCreate"}, cfg.Models["UserCreateInput"].Model)
	assert.Equal(t, StringList{"github.com/99designs/gqlgen/graphql.Time"}, cfg.Models["Time"].Model)
}

func TestGenerate_KeepsConfig(t *testing.T) {
	target := t.TempDir()
	existing := "schema:\n  - extra.graphql\nexec:\n  filename: graph/generated.go\n  package: graph\n"
	require.NoError(t, os.WriteFile(filepath.Join(target, "gqlgen.yml"), []byte(existing), 0o644))

	g, err := New()
	require.NoError(t, err)
	require.NoError(t, g.Generate(testGraph(t, target)))

	cfg, err := LoadGQLGenConfig(filepath.Join(target, "gqlgen.yml"))
	require.NoError(t, err)
	assert.Equal(t, StringList{"extra.graphql", "schema.graphql"}, cfg.SchemaFilename)
	assert.Equal(t, "graph/generated.go", cfg.Exec.Filename)
	assert.NotContains(t, cfg.Models, "User", "models are not bound without a client package")
}

func TestGenerate_NoConfigFile(t *testing.T) {
	target := t.TempDir()
	g, err := New(WithConfigFile(""), WithSchemaFile("api/quarry.graphql"))
	require.NoError(t, err)
	require.NoError(t, g.Generate(testGraph(t, target)))
	assert.FileExists(t, filepath.Join(target, "api", "quarry.graphql"))
	assert.NoFileExists(t, filepath.Join(target, "gqlgen.yml"))
}

func TestGenerate_MissingTarget(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	graph := testGraph(t, t.TempDir())
	graph.Target = ""
	err = g.Generate(graph)
	require.Error(t, err)
	assert.True(t, gen.IsConfigError(err))
}

func TestBlockOptions(t *testing.T) {
	opts, err := BlockOptions(&schema.Generator{
		Provider: Provider,
		Config: map[string]string{
			"schema":    "api.graphql",
			"gqlgen":    "",
			"client":    "example.com/app/db",
			"mutations": "false",
		},
	})
	require.NoError(t, err)
	g, err := New(opts...)
	require.NoError(t, err)
	assert.Equal(t, "api.graphql", g.SchemaFile)
	assert.Empty(t, g.ConfigFile)
	assert.Equal(t, "example.com/app/db", g.ClientPackage)
	assert.False(t, g.Mutations)

	_, err = BlockOptions(&schema.Generator{Config: map[string]string{"mutations": "maybe"}})
	assert.True(t, gen.IsConfigError(err))

	opts, err = BlockOptions(&schema.Generator{Config: map[string]string{"schema": ""}})
	require.NoError(t, err)
	_, err = New(opts...)
	assert.Error(t, err)
}

func TestStringList(t *testing.T) {
	var v struct {
		A StringList `yaml:"a"`
		B StringList `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: one\nb: [one, two]\n"), &v))
	assert.Equal(t, StringList{"one"}, v.A)
	assert.Equal(t, StringList{"one", "two"}, v.B)

	out, err := yaml.Marshal(map[string]StringList{"a": {"one"}})
	require.NoError(t, err)
	assert.Equal(t, "a: one\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("a: {k: v}\n"), &v))
}

func TestLowerFirst(t *testing.T) {
	tests := map[string]string{
		"User":          "user",
		"HTTPLog":       "httpLog",
		"ID":            "id",
		"AuthorIDTitle": "authorIDTitle",
		"users":         "users",
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, lowerFirst(in), in)
	}
}
