package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/quarry/compiler/gen"
)

func TestGenClient(t *testing.T) {
	out := render(t, testGraph(t, blogSchema), "client.go")
	for _, want := range []string{
		"// Code generated by quarry. DO NOT EDIT.",
		"package db",
		"type Client struct {",
		"User *UserClient",
		"Post *PostClient",
		"func NewClient(drv dialect.Driver, opts ...Option) (*Client, error) {",
		"engine.New(drv, Schema, o.engine()...)",
		`datasourceEnv = "DATABASE_URL"`,
		"func Open(ctx context.Context, url string, opts ...Option) (*Client, error) {",
		"dsn.Open(ctx, url)",
		"func (c *Client) Tx(ctx context.Context) (*Tx, error) {",
		"func WithTx(ctx context.Context, c *Client, fn func(*Tx) error) (err error) {",
		"func (c *Client) Debug() *Client {",
		"sql.NewDebugDriver(",
		"func Log(l *slog.Logger) Option {",
		"func Cache(c quarry.Cache) Option {",
		"func CacheTTL(ttl time.Duration) Option {",
		"func IncludeWorkers(n int) Option {",
		"func Policy(p quarry.Policy) Option {",
		"func (c *Client) Engine() *engine.Engine {",
		"func (c *Client) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {",
		"func (c *Client) QueryRaw(ctx context.Context, query string, args ...any) ([]map[string]any, error) {",
		"func Ptr[T any](v T) *T {",
		"func And[M any](ps ...engine.P[M]) engine.P[M] {",
		"func Not[M any](p engine.P[M]) engine.P[M] {",
		"func enumPtr[E ~string](v *string) *E {",
	} {
		assert.Contains(t, out, want)
	}
}

func TestGenClient_DisabledFeatures(t *testing.T) {
	g := testGraph(t, blogSchema, gen.WithoutFeatures(gen.FeatureCache.Name, gen.FeatureExecQuery.Name))
	out := render(t, g, "client.go")
	assert.NotContains(t, out, "func Cache(")
	assert.NotContains(t, out, "func CacheTTL(")
	assert.NotContains(t, out, "ExecRaw")
	assert.Contains(t, out, "func IncludeWorkers(n int) Option {")
}

func TestGenClient_LiteralURL(t *testing.T) {
	g := testGraph(t, `
datasource db {
  provider = "sqlite"
  url      = "file:dev.db"
}

model Note {
  id Int @id
}
`)
	out := render(t, g, "client.go")
	assert.Contains(t, out, `datasourceURL = "file:dev.db"`)
	assert.Contains(t, out, `datasourceEnv = ""`)
}

func TestGenEnums(t *testing.T) {
	out := render(t, testGraph(t, blogSchema), "enums.go")
	for _, want := range []string{
		"type Role string",
		`RoleUser Role = "USER"`,
		`RoleAdmin Role = "admin"`,
		"func (Role) Values() []Role { return []Role{RoleUser, RoleAdmin} }",
		"case RoleUser, RoleAdmin: return true",
		"func (e Role) String() string {",
	} {
		assert.Contains(t, out, want)
	}
}

func TestGenRuntime(t *testing.T) {
	out := render(t, testGraph(t, blogSchema), "runtime.go")
	for _, want := range []string{
		"var Schema = &engine.Schema{",
		`Name: "User"`,
		`Table: "User"`,
		`PrimaryKey: []string{"id"}`,
		"Default: engine.DefaultAutoincrement",
		"Default: engine.DefaultUUID",
		"Default: engine.DefaultNow",
		"UpdatedAt: true",
		`Enum: []string{"USER", "admin"}`,
		`Uniques: [][]string{{"email"}}`,
		`Uniques: [][]string{{"authorId", "title"}}`,
		"Type: field.TypeString",
		"Kind: sqlgraph.M2M",
		"Kind: sqlgraph.O2M",
		"Kind: sqlgraph.M2O",
		"Kind: sqlgraph.O2O",
		`JoinTable: "_PostToTag"`,
		`Back: "author"`,
	} {
		assert.Contains(t, out, want)
	}
}
