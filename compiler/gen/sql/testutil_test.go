package sql

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/compiler/load"
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
  updatedAt DateTime @updatedAt
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
  views    Int    @default(0)
  author   User   @relation(fields: [authorId], references: [id], onDelete: Cascade)
  authorId Int
  tags     Tag[]

  @@unique([authorId, title])
}

model Tag {
  name  String @id
  posts Post[]
}

enum Role {
  USER
  ADMIN @map("admin")
}
`

// testGraph compiles src into a graph that generates the
// example.com/app/db package.
func testGraph(t *testing.T, src string, opts ...gen.Option) *gen.Graph {
	t.Helper()
	s, err := load.Parse("schema.quarry", []byte(src))
	require.NoError(t, err)
	opts = append([]gen.Option{gen.WithTarget(t.TempDir()), gen.WithPackage("example.com/app/db")}, opts...)
	cfg, err := gen.NewConfig(opts...)
	require.NoError(t, err)
	g, err := gen.NewGraph(cfg, s)
	require.NoError(t, err)
	return g
}

// render returns the formatted source of a generated file with every run
// of white space collapsed into a single space.
func render(t *testing.T, g *gen.Graph, name string) string {
	t.Helper()
	files, err := Files(g)
	require.NoError(t, err)
	f, ok := files[name]
	require.True(t, ok, "missing file %s", name)
	return compact(fmt.Sprintf("%#v", f))
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
