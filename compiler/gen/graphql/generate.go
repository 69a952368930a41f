package graphql

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/schema"
)

// Provider is the generator provider handled by this package.
const Provider = "quarry-graphql"

// Generator writes the GraphQL schema of a graph and a gqlgen.yml that
// binds the GraphQL types to the generated client.
type Generator struct {
	// SchemaFile is the path of the SDL file, relative to the target.
	SchemaFile string
	// ConfigFile is the path of the gqlgen config, relative to the
	// target. Empty skips it.
	ConfigFile string
	// ClientPackage is the import path of the generated Go client. The
	// config file has no model bindings without it.
	ClientPackage string
	// Mutations adds the inputs and the Mutation type.
	Mutations bool
}

// Option configures the Generator.
type Option func(*Generator) error

// WithSchemaFile sets the name of the generated SDL file.
func WithSchemaFile(name string) Option {
	return func(g *Generator) error {
		if name == "" {
			return gen.NewConfigError("SchemaFile", nil, "schema file cannot be empty")
		}
		g.SchemaFile = name
		return nil
	}
}

// WithConfigFile sets the name of the gqlgen config file. An empty name
// disables it.
func WithConfigFile(name string) Option {
	return func(g *Generator) error {
		g.ConfigFile = name
		return nil
	}
}

// WithClientPackage sets the import path the GraphQL types are bound to.
func WithClientPackage(pkg string) Option {
	return func(g *Generator) error {
		g.ClientPackage = pkg
		return nil
	}
}

// WithMutations enables or disables the mutations.
func WithMutations(enabled bool) Option {
	return func(g *Generator) error {
		g.Mutations = enabled
		return nil
	}
}

// New returns a generator writing schema.graphql and gqlgen.yml, with
// mutations.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{
		SchemaFile: "schema.graphql",
		ConfigFile: "gqlgen.yml",
		Mutations:  true,
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// BlockOptions returns the options set in a generator block:
//
//	generator graphql {
//	  provider  = "quarry-graphql"
//	  output    = "./graph"
//	  schema    = "quarry.graphql"
//	  gqlgen    = "gqlgen.yml"
//	  client    = "github.com/acme/app/db"
//	  mutations = "false"
//	}
func BlockOptions(b *schema.Generator) ([]Option, error) {
	var opts []Option
	if v, ok := b.Config["schema"]; ok {
		opts = append(opts, WithSchemaFile(v))
	}
	if v, ok := b.Config["gqlgen"]; ok {
		opts = append(opts, WithConfigFile(v))
	}
	if v, ok := b.Config["client"]; ok {
		opts = append(opts, WithClientPackage(v))
	}
	if v, ok := b.Config["mutations"]; ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, gen.NewConfigError("mutations", v, "expect a boolean")
		}
		opts = append(opts, WithMutations(enabled))
	}
	return opts, nil
}

// Generate implements gen.Generator.
func (g *Generator) Generate(graph *gen.Graph) error {
	if graph.Target == "" {
		return gen.NewConfigError("Target", nil, "missing target directory in config")
	}
	sdl, err := g.SDL(graph)
	if err != nil {
		return gen.NewGenerationError("validate", g.SchemaFile, "generated GraphQL schema", err)
	}
	path := filepath.Join(graph.Target, g.SchemaFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return gen.NewGenerationError("write", g.SchemaFile, "create directory", err)
	}
	if err := os.WriteFile(path, []byte(sdl), 0o644); err != nil {
		return gen.NewGenerationError("write", g.SchemaFile, "write file", err)
	}
	if g.ConfigFile != "" {
		if err := g.writeConfig(graph); err != nil {
			return gen.NewGenerationError("write", g.ConfigFile, "update gqlgen config", err)
		}
	}
	if g.ClientPackage == "" && g.ConfigFile != "" {
		graph.Log().Warn("no client package configured, gqlgen types are not bound", "config", g.ConfigFile)
	}
	graph.Log().Info("generated graphql schema", "target", graph.Target, "file", g.SchemaFile)
	return nil
}

func (g *Generator) writeConfig(graph *gen.Graph) error {
	path := filepath.Join(graph.Target, g.ConfigFile)
	cfg, err := LoadGQLGenConfig(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(filepath.Dir(path), filepath.Join(graph.Target, g.SchemaFile))
	if err != nil {
		return fmt.Errorf("schema path: %w", err)
	}
	cfg.AddSchemaPath(filepath.ToSlash(rel))
	g.Bind(cfg, graph)
	return SaveGQLGenConfig(path, cfg)
}

// Bind adds the model bindings of the graph to cfg: models, enums, order
// fields and inputs are bound to the types of the generated client.
func (g *Generator) Bind(cfg *GQLGenConfig, graph *gen.Graph) {
	for scalar, model := range scalarModels {
		cfg.SetModel(scalar, model)
	}
	pkg := g.ClientPackage
	if pkg == "" {
		return
	}
	qual := func(name string) string { return pkg + "." + name }
	for _, e := range graph.Enums {
		cfg.SetModel(e.TypeName(), qual(e.TypeName()))
		for _, v := range e.Values {
			cfg.SetEnumValue(e.TypeName(), v.Name, qual(e.Const(v)))
		}
	}
	for _, t := range graph.Nodes {
		n := names(t)
		cfg.SetModel(n.Node, qual(t.Name))
		for _, e := range t.Edges {
			cfg.SetResolver(n.Node, e.Name)
		}
		cfg.SetModel(n.OrderField, qual(t.FieldName()))
		for _, f := range t.Fields {
			if f.Sortable() {
				cfg.SetEnumValue(n.OrderField, f.Name, qual(t.FieldName()+f.StructField()))
			}
		}
		cfg.SetModel(n.Order, qual(t.OrderByName()))
		cfg.SetModel(n.WhereUnique, qual(t.WhereUniqueName()))
		for _, k := range t.CompoundKeys() {
			cfg.SetModel(keyInput(t, k), qual(t.Name+k.StructName()+"Key"))
		}
		if g.Mutations && len(t.MutableFields()) > 0 {
			cfg.SetModel(n.Create, qual(t.CreateName()))
			cfg.SetModel(n.Update, qual(t.UpdateName()))
		}
	}
}
