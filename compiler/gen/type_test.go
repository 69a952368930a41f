package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/compiler/load"
	"github.com/syssam/quarry/dialect/sql/schema"
	"github.com/syssam/quarry/engine"
	"github.com/syssam/quarry/schema/field"
)

const datasource = `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}
`

const blogSchema = datasource + `
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
  title    String @db.VarChar(200)
  views    Int    @default(0)
  author   User   @relation(fields: [authorId], references: [id], onDelete: Cascade)
  authorId Int
  tags     Tag[]

  @@unique([authorId, title])
  @@index([title])
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

func buildGraph(t *testing.T, src string, opts ...Option) (*Graph, error) {
	t.Helper()
	s, err := load.Parse("schema.quarry", []byte(src))
	require.NoError(t, err)
	c, err := NewConfig(opts...)
	require.NoError(t, err)
	return NewGraph(c, s)
}

func mustGraph(t *testing.T, src string, opts ...Option) *Graph {
	t.Helper()
	g, err := buildGraph(t, src, opts...)
	require.NoError(t, err)
	return g
}

func TestNewGraph(t *testing.T) {
	g := mustGraph(t, blogSchema)
	require.Len(t, g.Nodes, 4)
	require.Len(t, g.Enums, 1)
	assert.Equal(t, "postgres", g.Dialect())
	assert.Equal(t, "db", g.Datasource.Name)

	user := g.Type("User")
	require.NotNil(t, user)
	assert.Equal(t, "A registered user.", user.Doc)
	assert.Equal(t, "User", user.Table)
	assert.Equal(t, "u", user.Receiver())
	require.Len(t, user.ID, 1)
	assert.Equal(t, "id", user.ID[0].Name)
	assert.True(t, user.ID[0].Default.Autoincrement())
	assert.Nil(t, g.Type("Comment"))

	role := g.Enum("Role")
	require.NotNil(t, role)
	assert.Equal(t, []string{"USER", "admin"}, role.Stored())
	assert.Equal(t, "RoleAdmin", role.Const(role.Value("ADMIN")))
	assert.Equal(t, "RoleUser", role.Const(role.Value("USER")))
	assert.Nil(t, role.Value("ROOT"))
}

func TestGraphFields(t *testing.T) {
	g := mustGraph(t, blogSchema)
	user := g.Type("User")

	email := user.Field("email")
	require.NotNil(t, email)
	assert.Equal(t, field.TypeString, email.Type)
	assert.True(t, email.Unique)
	assert.True(t, email.RequiredOnCreate())
	assert.Equal(t, "Email", email.StructField())

	name := user.Field("name")
	assert.True(t, name.Optional)
	assert.False(t, name.RequiredOnCreate())

	role := user.Field("role")
	assert.True(t, role.IsEnum())
	assert.Equal(t, field.TypeEnum, role.Type)
	require.NotNil(t, role.Default)
	assert.Equal(t, "USER", role.Default.Value)

	created := user.Field("createdAt")
	assert.Equal(t, engine.DefaultNow, created.Default.Kind)
	assert.Equal(t, "now()", created.Default.String())
	assert.True(t, user.Field("updatedAt").UpdatedAt)
	assert.True(t, user.Field("updatedAt").HasDefault())

	post := g.Type("Post")
	assert.Equal(t, engine.DefaultUUID, post.Field("id").Default.Kind)
	views := post.Field("views")
	assert.Equal(t, int64(0), views.Default.Value)
	assert.Equal(t, "0", views.Default.String())
	assert.True(t, views.Numeric())
	assert.True(t, post.Field("authorId").IsForeignKey())
	assert.False(t, post.Field("title").IsForeignKey())

	title := post.Field("title")
	require.NotNil(t, title.Native)
	assert.Equal(t, "varchar(200)", title.Native.SQL())

	assert.Nil(t, user.Field("posts"), "relation fields are edges")
}

func TestGraphKeys(t *testing.T) {
	g := mustGraph(t, blogSchema)

	user := g.Type("User")
	keys := user.UniqueKeys()
	require.Len(t, keys, 2)
	assert.Equal(t, []string{"id"}, names(keys[0]))
	assert.Equal(t, []string{"email"}, names(keys[1]))
	assert.Empty(t, user.CompoundKeys())
	assert.Len(t, user.MutableFields(), 5, "autoincrement ids are not mutable")

	post := g.Type("Post")
	require.Len(t, post.Uniques, 1)
	assert.Equal(t, "authorId_title", post.Uniques[0].Name)
	assert.Equal(t, "AuthorIDTitle", post.Uniques[0].StructName())
	assert.Equal(t, []string{"authorId", "title"}, post.Uniques[0].Columns())
	require.Len(t, post.CompoundKeys(), 1)
	require.Len(t, post.Indexes, 1)
	assert.False(t, post.Indexes[0].Unique)
	assert.True(t, post.IsUnique([]*Field{post.Field("title"), post.Field("authorId")}))
	assert.False(t, post.IsUnique([]*Field{post.Field("title")}))
	assert.Len(t, post.MutableFields(), 4)
}

func TestGraphCompositeID(t *testing.T) {
	g := mustGraph(t, datasource+`
model Membership {
  userId Int
  teamId Int
  role   String

  @@id([userId, teamId])
}
`)
	m := g.Type("Membership")
	assert.True(t, m.HasCompositeID())
	assert.Equal(t, []string{"userId", "teamId"}, names(m.ID))
	keys := m.CompoundKeys()
	require.Len(t, keys, 1)
	assert.Equal(t, "UserIDTeamID", keys[0].StructName())
}

func TestGraphRelations(t *testing.T) {
	g := mustGraph(t, blogSchema)
	user, post, profile, tag := g.Type("User"), g.Type("Post"), g.Type("Profile"), g.Type("Tag")

	t.Run("one to many", func(t *testing.T) {
		author := post.Edge("author")
		posts := user.Edge("posts")
		require.NotNil(t, author)
		require.NotNil(t, posts)

		assert.True(t, author.FK)
		assert.False(t, posts.FK)
		assert.Same(t, posts, author.Ref)
		assert.Same(t, author, posts.Ref)
		assert.Equal(t, "PostToUser", author.RelName)
		assert.Equal(t, M2O, author.Rel.Type)
		assert.Equal(t, O2M, posts.Rel.Type)
		assert.Equal(t, []string{"authorId"}, author.FieldNames())
		assert.Equal(t, []string{"id"}, author.ReferenceNames())
		assert.Equal(t, []string{"id"}, posts.FieldNames())
		assert.Equal(t, []string{"authorId"}, posts.ReferenceNames())
		assert.Equal(t, schema.Cascade, author.OnDelete)
		assert.Equal(t, schema.Cascade, author.OnUpdate)
		assert.Equal(t, "Post_authorId_fkey", author.ForeignKey())
		assert.True(t, posts.List())
		assert.False(t, author.List())
	})

	t.Run("one to one", func(t *testing.T) {
		u := profile.Edge("user")
		p := user.Edge("profile")
		assert.Equal(t, O2O, u.Rel.Type)
		assert.Equal(t, O2O, p.Rel.Type)
		assert.True(t, u.FK)
		assert.True(t, p.Optional)
		assert.Equal(t, schema.Restrict, u.OnDelete, "required relations restrict deletes by default")
	})

	t.Run("many to many", func(t *testing.T) {
		tags := post.Edge("tags")
		posts := tag.Edge("posts")
		assert.True(t, tags.M2M())
		assert.Equal(t, "PostToTag", tags.RelName)
		assert.Equal(t, "_PostToTag", tags.Rel.Table)
		assert.Equal(t, []string{"A", "B"}, tags.Rel.Columns)
		assert.Equal(t, []string{"B", "A"}, posts.Rel.Columns)
		assert.Equal(t, []string{"id", "name"}, tags.Rel.RefColumns)
		assert.False(t, tags.FK)
		assert.False(t, posts.FK)
	})
}

func TestGraphOptionalRelation(t *testing.T) {
	g := mustGraph(t, datasource+`
model User {
  id    Int    @id
  posts Post[]
}

model Post {
  id       Int   @id
  author   User? @relation(fields: [authorId], references: [id])
  authorId Int?
}
`)
	author := g.Type("Post").Edge("author")
	assert.True(t, author.Optional)
	assert.Equal(t, schema.SetNull, author.OnDelete)
	assert.Equal(t, schema.Cascade, author.OnUpdate)
}

func TestGraphSelfRelation(t *testing.T) {
	g := mustGraph(t, datasource+`
model Employee {
  id        Int        @id
  manager   Employee?  @relation("Reports", fields: [managerId], references: [id])
  managerId Int?
  reports   Employee[] @relation("Reports")
}
`)
	e := g.Type("Employee")
	manager, reports := e.Edge("manager"), e.Edge("reports")
	assert.True(t, manager.SelfRef())
	assert.Equal(t, "Reports", manager.RelName)
	assert.Same(t, reports, manager.Ref)
	assert.Equal(t, M2O, manager.Rel.Type)
	assert.Equal(t, O2M, reports.Rel.Type)
}

func TestGraphNamedRelations(t *testing.T) {
	g := mustGraph(t, datasource+`
model User {
  id       Int    @id
  written  Post[] @relation("Written")
  reviewed Post[] @relation("Reviewed")
}

model Post {
  id         Int  @id
  author     User @relation("Written", fields: [authorId], references: [id])
  authorId   Int
  reviewer   User @relation("Reviewed", fields: [reviewerId], references: [id])
  reviewerId Int
}
`)
	user := g.Type("User")
	post := g.Type("Post")
	assert.Same(t, post.Edge("author"), user.Edge("written").Ref)
	assert.Same(t, post.Edge("reviewer"), user.Edge("reviewed").Ref)
}

func TestGraphStorageOverride(t *testing.T) {
	st, err := NewStorage("mysql")
	require.NoError(t, err)
	g := mustGraph(t, blogSchema, WithStorage(st))
	assert.Equal(t, "mysql", g.Dialect())
}

func TestGraphGenerator(t *testing.T) {
	g := mustGraph(t, `
generator client {
  provider = "quarry-client-go"
  output   = "./db"
}
`+datasource+`
model User {
  id Int @id
}
`)
	gen := g.Generator("quarry-client-go")
	require.NotNil(t, gen)
	assert.Equal(t, "client", gen.Name)
	assert.Nil(t, g.Generator("quarry-graphql"))
}

func TestGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing datasource",
			src:  "model User {\n  id Int @id\n}\n",
			want: "a datasource block is required",
		},
		{
			name: "unknown provider",
			src: `
datasource db {
  provider = "mongodb"
  url      = "mongodb://localhost"
}
model User {
  id Int @id
}`,
			want: `unsupported datasource provider "mongodb"`,
		},
		{
			name: "missing identifier",
			src:  datasource + "model User {\n  email String\n}\n",
			want: "model has no identifier",
		},
		{
			name: "unknown type",
			src:  datasource + "model User {\n  id Int @id\n  avatar Image\n}\n",
			want: `unknown type "Image"`,
		},
		{
			name: "duplicate field",
			src:  datasource + "model User {\n  id Int @id\n  id Int\n}\n",
			want: "field is declared more than once",
		},
		{
			name: "reserved name",
			src:  datasource + "model Client {\n  id Int @id\n}\n",
			want: `generated identifier "Client" clashes with the generated client`,
		},
		{
			name: "generated name clash",
			src:  datasource + "model User {\n  id Int @id\n}\nmodel UserQuery {\n  id Int @id\n}\n",
			want: `generated identifier "UserQuery" clashes with model User`,
		},
		{
			name: "optional identifier",
			src:  datasource + "model User {\n  id Int? @id\n}\n",
			want: "identifier fields cannot be optional",
		},
		{
			name: "autoincrement on string",
			src:  datasource + "model User {\n  id String @id @default(autoincrement())\n}\n",
			want: "autoincrement() is only allowed on Int and BigInt fields",
		},
		{
			name: "now on int",
			src:  datasource + "model User {\n  id Int @id\n  at Int @default(now())\n}\n",
			want: "now() is only allowed on DateTime fields",
		},
		{
			name: "literal type mismatch",
			src:  datasource + "model User {\n  id Int @id\n  n Int @default(\"x\")\n}\n",
			want: `"x" does not match type Int`,
		},
		{
			name: "unknown enum value",
			src:  datasource + "model User {\n  id Int @id\n  role Role @default(ROOT)\n}\nenum Role {\n  USER\n}\n",
			want: "ROOT is not a value of enum Role",
		},
		{
			name: "updatedAt on string",
			src:  datasource + "model User {\n  id Int @id\n  v String @updatedAt\n}\n",
			want: "@updatedAt is only allowed on DateTime fields",
		},
		{
			name: "unknown attribute",
			src:  datasource + "model User {\n  id Int @id @primary\n}\n",
			want: "unknown attribute @primary",
		},
		{
			name: "map with a number",
			src:  datasource + "model User {\n  id Int @id\n  email String @map(3)\n}\n",
			want: `@map argument "name" must be a string, got 3`,
		},
		{
			name: "map with two names",
			src:  datasource + "model User {\n  id Int @id\n  email String @map(\"a\", \"b\")\n}\n",
			want: "@map accepts one unnamed argument",
		},
		{
			name: "map name given twice",
			src:  datasource + "model User {\n  id Int @id\n  email String @map(\"a\", name: \"b\")\n}\n",
			want: `@map has argument "name" more than once`,
		},
		{
			name: "unique with a number",
			src:  datasource + "model User {\n  id Int @id\n  email String @unique(3)\n}\n",
			want: "@unique does not accept unnamed arguments",
		},
		{
			name: "id with an unknown argument",
			src:  datasource + "model User {\n  id Int @id(sort: Desc)\n}\n",
			want: `@id has unknown argument "sort" (allowed: [map])`,
		},
		{
			name: "updatedAt with an argument",
			src:  datasource + "model User {\n  id Int @id\n  at DateTime @updatedAt(now())\n}\n",
			want: "@updatedAt does not accept unnamed arguments",
		},
		{
			name: "unique map with a number",
			src:  datasource + "model User {\n  id Int @id\n  email String @unique(map: 1)\n}\n",
			want: `@unique argument "map" must be a string, got 1`,
		},
		{
			name: "table map with a number",
			src:  datasource + "model User {\n  id Int @id\n\n  @@map(1)\n}\n",
			want: `@@map argument "name" must be a string, got 1`,
		},
		{
			name: "index without fields",
			src:  datasource + "model User {\n  id Int @id\n\n  @@index(name: \"by_id\")\n}\n",
			want: "@@index requires a list of fields",
		},
		{
			name: "index with a string field list",
			src:  datasource + "model User {\n  id Int @id\n\n  @@index(\"id\")\n}\n",
			want: `@@index argument "fields" must be a list of fields, got "id"`,
		},
		{
			name: "unique on unknown field",
			src:  datasource + "model User {\n  id Int @id\n\n  @@unique([nope])\n}\n",
			want: `@@unique references unknown field "nope"`,
		},
		{
			name: "empty enum",
			src:  datasource + "model User {\n  id Int @id\n}\nenum Role {\n}\n",
			want: "enum must have at least one value",
		},
		{
			name: "duplicate table",
			src:  datasource + "model A {\n  id Int @id\n\n  @@map(\"t\")\n}\nmodel B {\n  id Int @id\n\n  @@map(\"t\")\n}\n",
			want: `table "t" is already used by model A`,
		},
		{
			name: "native type on sqlite",
			src: `
datasource db {
  provider = "sqlite"
  url      = "file:dev.db"
}
model User {
  id   Int    @id
  name String @db.VarChar(10)
}`,
			want: "native types are not supported by provider sqlite",
		},
		{
			name: "unknown native type",
			src:  datasource + "model User {\n  id Int @id\n  name String @db.Varchar2\n}\n",
			want: "unknown native type @db.Varchar2",
		},
		{
			name: "decimal scale",
			src:  datasource + "model User {\n  id Int @id\n  amount Decimal @db.Decimal(4, 6)\n}\n",
			want: "decimal scale 6 exceeds precision 4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildGraph(t, tt.src)
			require.Error(t, err)
			assert.True(t, IsSchemaError(err), "%v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGraphAttributeArgs(t *testing.T) {
	_, err := buildGraph(t, datasource+"model User {\n  id Int @id\n  email String @map(3)\n}\n")
	require.Error(t, err)
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "User", serr.Type)
	assert.Equal(t, "email", serr.Field)
	assert.Equal(t, 8, serr.Pos.Line)

	g := mustGraph(t, datasource+"model User {\n  id Int @id(map: \"pk\")\n  email String @unique(map: \"email_key\") @map(name: \"mail\")\n\n  @@index(fields: [email], name: \"by_mail\")\n}\n")
	assert.Equal(t, "mail", g.Nodes[0].fields["email"].Column)
}

func TestGraphRelationErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing opposite",
			src: `
model User {
  id Int @id
}
model Post {
  id       Int  @id
  author   User @relation(fields: [authorId], references: [id])
  authorId Int
}`,
			want: "missing opposite relation field on model User",
		},
		{
			name: "missing keys",
			src: `
model User {
  id    Int    @id
  posts Post[]
}
model Post {
  id     Int  @id
  author User
}`,
			want: "the relation must define fields and references on one side",
		},
		{
			name: "keys on both sides",
			src: `
model User {
  id      Int      @id
  profile Profile? @relation(fields: [id], references: [userId])
}
model Profile {
  id     Int  @id
  user   User @relation(fields: [userId], references: [id])
  userId Int  @unique
}`,
			want: "only one side of the relation may define fields and references",
		},
		{
			name: "self relation without name",
			src: `
model Employee {
  id        Int        @id
  manager   Employee?  @relation(fields: [managerId], references: [id])
  managerId Int?
  reports   Employee[]
}`,
			want: "self relations require a name",
		},
		{
			name: "ambiguous relation",
			src: `
model User {
  id       Int    @id
  written  Post[]
  reviewed Post[]
}
model Post {
  id       Int  @id
  author   User @relation(fields: [authorId], references: [id])
  authorId Int
}`,
			want: "ambiguous relation",
		},
		{
			name: "one to one without unique",
			src: `
model User {
  id      Int      @id
  profile Profile?
}
model Profile {
  id     Int  @id
  user   User @relation(fields: [userId], references: [id])
  userId Int
}`,
			want: "one-to-one relations require unique fields; add @unique to userId",
		},
		{
			name: "required back side of one to one",
			src: `
model User {
  id      Int     @id
  profile Profile
}
model Profile {
  id     Int  @id
  user   User @relation(fields: [userId], references: [id])
  userId Int  @unique
}`,
			want: "the back side of a one-to-one relation must be optional",
		},
		{
			name: "set null on required fields",
			src: `
model User {
  id    Int    @id
  posts Post[]
}
model Post {
  id       Int  @id
  author   User @relation(fields: [authorId], references: [id], onDelete: SetNull)
  authorId Int
}`,
			want: "onDelete: SetNull requires optional fields",
		},
		{
			name: "unknown action",
			src: `
model User {
  id    Int    @id
  posts Post[]
}
model Post {
  id       Int  @id
  author   User @relation(fields: [authorId], references: [id], onDelete: Explode)
  authorId Int
}`,
			want: `onDelete: unknown referential action "Explode"`,
		},
		{
			name: "reference type mismatch",
			src: `
model User {
  id    Int    @id
  posts Post[]
}
model Post {
  id       Int    @id
  author   User   @relation(fields: [authorId], references: [id])
  authorId String
}`,
			want: "field authorId and its reference User.id have different types",
		},
		{
			name: "reference not unique",
			src: `
model User {
  id    Int    @id
  email String
  posts Post[]
}
model Post {
  id       Int    @id
  author   User   @relation(fields: [authorEmail], references: [email])
  authorEmail String
}`,
			want: "references must be the identifier or a unique constraint of User",
		},
		{
			name: "optional relation with required fields",
			src: `
model User {
  id    Int    @id
  posts Post[]
}
model Post {
  id       Int   @id
  author   User? @relation(fields: [authorId], references: [id])
  authorId Int
}`,
			want: "the relation is optional, but its fields are required",
		},
		{
			name: "many to many with keys",
			src: `
model Post {
  id   Int   @id
  tags Tag[] @relation(fields: [id], references: [id])
}
model Tag {
  id    Int    @id
  posts Post[]
}`,
			want: "many-to-many relations cannot define fields or references",
		},
		{
			name: "many to many with compound identifier",
			src: `
model Post {
  a    Int
  b    Int
  tags Tag[]

  @@id([a, b])
}
model Tag {
  id    Int    @id
  posts Post[]
}`,
			want: "implicit many-to-many relations require a single field identifier on Post",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildGraph(t, datasource+tt.src)
			require.Error(t, err)
			assert.True(t, IsEdgeError(err), "%v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGraphCollectsErrors(t *testing.T) {
	_, err := buildGraph(t, datasource+`
model A {
  name String
}
model B {
  name String
}
`)
	require.Error(t, err)
	var errs *ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs.Errors, 2)
	assert.Contains(t, err.Error(), "quarry: 2 schema errors")
}

func TestNewGraphNilSchema(t *testing.T) {
	_, err := NewGraph(nil, nil)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestRel(t *testing.T) {
	assert.Equal(t, "O2M", O2M.String())
	assert.Equal(t, "Unknown", Rel(42).String())
}
