package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/compiler/gen/graphql"
	"github.com/syssam/quarry/schema"
)

const header = `
datasource db {
  provider = "sqlite"
  url      = "file:dev.db"
}
`

const models = `
model User {
  id    Int    @id @default(autoincrement())
  email String @unique
  role  Role   @default(USER)
  notes Note[]
}

model Note {
  id       Int    @id @default(autoincrement())
  body     String
  author   User   @relation(fields: [authorId], references: [id])
  authorId Int
}

enum Role {
  USER
  ADMIN
}
`

func writeSchema(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.quarry")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestGenerate(t *testing.T) {
	path := writeSchema(t, header+`
generator client {
  provider = "quarry-client-go"
  output   = "./db"
  package  = "example.com/app/db"
  features = "schema/snapshot"
}

generator api {
  provider = "quarry-graphql"
  output   = "./graph"
}
`+models)
	require.NoError(t, Generate(path))

	dir := filepath.Dir(path)
	for _, name := range []string{"client.go", "user.go", "note_query.go", "enums.go", "internal/schema.go"} {
		assert.FileExists(t, filepath.Join(dir, "db", name))
	}
	assert.FileExists(t, filepath.Join(dir, "graph", "schema.graphql"))

	cfg, err := graphql.LoadGQLGenConfig(filepath.Join(dir, "graph", "gqlgen.yml"))
	require.NoError(t, err)
	assert.Equal(t, graphql.StringList{"example.com/app/db.User"}, cfg.Models["User"].Model,
		"graphql types are bound to the client package")
}

func TestGenerate_Only(t *testing.T) {
	path := writeSchema(t, header+`
generator client {
  provider = "quarry-client-go"
  output   = "./db"
}

generator api {
  provider = "quarry-graphql"
  output   = "./graph"
}
`+models)
	require.NoError(t, Generate(path, Only("api")))
	dir := filepath.Dir(path)
	assert.FileExists(t, filepath.Join(dir, "graph", "schema.graphql"))
	assert.NoDirExists(t, filepath.Join(dir, "db"))

	err := Generate(path, Only("web"))
	require.Error(t, err)
	assert.True(t, gen.IsConfigError(err))
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("no generators", func(t *testing.T) {
		err := Generate(writeSchema(t, header+models))
		assert.ErrorIs(t, err, ErrNoGenerators)
	})
	t.Run("unknown provider", func(t *testing.T) {
		err := Generate(writeSchema(t, header+`
generator client {
  provider = "quarry-client-rust"
  output   = "./db"
}
`+models))
		require.Error(t, err)
		assert.True(t, gen.IsConfigError(err))
		assert.Contains(t, err.Error(), "generator client")
	})
	t.Run("missing output", func(t *testing.T) {
		err := Generate(writeSchema(t, header+`
generator client {
  provider = "quarry-client-go"
}
`+models))
		require.Error(t, err)
		assert.True(t, gen.IsConfigError(err))
	})
	t.Run("unknown feature", func(t *testing.T) {
		err := Generate(writeSchema(t, header+`
generator client {
  provider = "quarry-client-go"
  output   = "./db"
  features = "teleport"
}
`+models))
		require.Error(t, err)
		assert.True(t, gen.IsConfigError(err))
	})
	t.Run("invalid schema", func(t *testing.T) {
		err := Generate(writeSchema(t, header+`
generator client {
  provider = "quarry-client-go"
  output   = "./db"
}

model User {
  email String
}
`))
		require.Error(t, err)
		var verr *gen.ValidationErrors
		assert.ErrorAs(t, err, &verr)
	})
	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, Generate(filepath.Join(t.TempDir(), "nope.quarry")))
	})
}

func TestGenerate_Provider(t *testing.T) {
	path := writeSchema(t, header+`
generator docs {
  provider = "acme-docs"
  output   = "./docs"
  title    = "Models"
}
`+models)
	var (
		title  string
		target string
		nodes  int
	)
	err := Generate(path, WithProvider("acme-docs", func(b *schema.Generator, _ *schema.Schema) ([]gen.Option, error) {
		title = b.Config["title"]
		return []gen.Option{gen.WithGenerator(gen.GenerateFunc(func(g *gen.Graph) error {
			target, nodes = g.Target, len(g.Nodes)
			return nil
		}))}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "Models", title)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "docs"), target)
	assert.Equal(t, 2, nodes)
}

func TestLoadGraph(t *testing.T) {
	g, err := LoadGraph(filepath.Join("load", "testdata", "blog.quarry"))
	require.NoError(t, err)
	assert.NotNil(t, g.Type("User"))
	assert.Empty(t, g.Target)

	_, err = LoadGraph(writeSchema(t, header+`
model User {
  email String
}
`))
	assert.Error(t, err)
}

func TestLoadGraph_Examples(t *testing.T) {
	for _, name := range []string{"blog", "shop"} {
		t.Run(name, func(t *testing.T) {
			g, err := LoadGraph(filepath.Join("..", "examples", name, "schema.quarry"))
			require.NoError(t, err)
			assert.NotEmpty(t, g.Nodes)
			_, err = g.Tables()
			require.NoError(t, err)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Empty(t, splitList(""))
}
