// Package compiler loads quarry schema files and runs the generators they
// declare. It is the entry point used by the quarry command and by
// go:generate directives:
//
//	//go:generate go run github.com/syssam/quarry/cmd/quarry generate --schema ./schema.quarry
//
// or, programmatically:
//
//	err := compiler.Generate("./schema.quarry",
//		compiler.WithConfig(gen.WithLogger(logger)),
//	)
package compiler

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/compiler/gen/graphql"
	"github.com/syssam/quarry/compiler/gen/sql"
	"github.com/syssam/quarry/compiler/load"
	"github.com/syssam/quarry/schema"
)

// ProviderClient is the provider of the Go client generator.
const ProviderClient = "quarry-client-go"

// ErrNoGenerators is returned by Generate for schemas without generator
// blocks.
var ErrNoGenerators = errors.New("compiler: schema has no generator blocks")

// A Provider returns the options configuring the generation of one
// generator block. The options must set the generator with
// gen.WithGenerator.
type Provider func(b *schema.Generator, s *schema.Schema) ([]gen.Option, error)

type options struct {
	cfg       []gen.Option
	providers map[string]Provider
	only      []string
}

// Option configures Generate and LoadGraph.
type Option func(*options)

// WithConfig adds options applied to the configuration of every
// generator block.
func WithConfig(opts ...gen.Option) Option {
	return func(o *options) {
		o.cfg = append(o.cfg, opts...)
	}
}

// WithProvider registers a provider, replacing a built-in one of the
// same name.
func WithProvider(name string, p Provider) Option {
	return func(o *options) {
		o.providers[name] = p
	}
}

// Only restricts Generate to the generator blocks with the given names.
func Only(names ...string) Option {
	return func(o *options) {
		o.only = append(o.only, names...)
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		providers: map[string]Provider{
			ProviderClient:   clientProvider,
			graphql.Provider: graphqlProvider,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LoadGraph loads the schema at path, a file or a directory of schema
// files, and compiles it into a graph. The graph has no target and no
// generator unless set with WithConfig.
func LoadGraph(path string, opts ...Option) (*gen.Graph, error) {
	s, err := load.ParseFile(path)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	cfg, err := gen.NewConfig(o.cfg...)
	if err != nil {
		return nil, err
	}
	return gen.NewGraph(cfg, s)
}

// Generate loads the schema at path and runs its generator blocks in
// declaration order. Relative outputs are resolved against the directory
// of the schema.
func Generate(path string, opts ...Option) error {
	s, err := load.ParseFile(path)
	if err != nil {
		return err
	}
	if len(s.Generators) == 0 {
		return ErrNoGenerators
	}
	o := newOptions(opts)
	for _, name := range o.only {
		if !slices.ContainsFunc(s.Generators, func(b *schema.Generator) bool { return b.Name == name }) {
			return gen.NewConfigError("Generator", name, "no generator block with this name")
		}
	}
	base := baseDir(path)
	for _, b := range s.Generators {
		if len(o.only) > 0 && !slices.Contains(o.only, b.Name) {
			continue
		}
		if err := o.generate(s, b, base); err != nil {
			return fmt.Errorf("generator %s: %w", b.Name, err)
		}
	}
	return nil
}

func (o *options) generate(s *schema.Schema, b *schema.Generator, base string) error {
	provide, ok := o.providers[b.Provider]
	if !ok {
		return gen.NewConfigError("Provider", b.Provider, fmt.Sprintf("unknown generator provider at %s", b.Pos))
	}
	if b.Output == "" {
		return gen.NewConfigError("Output", nil, fmt.Sprintf("missing output of generator block at %s", b.Pos))
	}
	target := b.Output
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	bopts, err := provide(b, s)
	if err != nil {
		return err
	}
	cfg, err := gen.NewConfig(append(slices.Clone(o.cfg), append([]gen.Option{gen.WithTarget(target)}, bopts...)...)...)
	if err != nil {
		return err
	}
	g, err := gen.NewGraph(cfg, s)
	if err != nil {
		return err
	}
	return g.Gen()
}

func baseDir(path string) string {
	if filepath.Ext(path) == load.Ext {
		return filepath.Dir(path)
	}
	return path
}

// clientProvider configures the Go client generator from the keys of
// its block:
//
//	generator client {
//	  provider = "quarry-client-go"
//	  output   = "./db"
//	  package  = "github.com/acme/app/db"
//	  features = "schema/snapshot"
//	  disable  = "cache"
//	}
func clientProvider(b *schema.Generator, _ *schema.Schema) ([]gen.Option, error) {
	opts := []gen.Option{gen.WithGenerator(sql.Generator)}
	if pkg := b.Config["package"]; pkg != "" {
		opts = append(opts, gen.WithPackage(pkg))
	}
	if list := b.Config["features"]; list != "" {
		fs, err := gen.ParseFeatures(list)
		if err != nil {
			return nil, gen.NewConfigError("features", list, err.Error())
		}
		opts = append(opts, gen.WithFeatures(fs...))
	}
	if list := b.Config["disable"]; list != "" {
		opts = append(opts, gen.WithoutFeatures(splitList(list)...))
	}
	return opts, nil
}

// graphqlProvider configures the GraphQL generator. Without a "client"
// key, the types are bound to the package of the Go client generator.
func graphqlProvider(b *schema.Generator, s *schema.Schema) ([]gen.Option, error) {
	gopts, err := graphql.BlockOptions(b)
	if err != nil {
		return nil, err
	}
	if _, ok := b.Config["client"]; !ok {
		for _, c := range s.Generators {
			if c.Provider == ProviderClient && c.Config["package"] != "" {
				gopts = append(gopts, graphql.WithClientPackage(c.Config["package"]))
				break
			}
		}
	}
	g, err := graphql.New(gopts...)
	if err != nil {
		return nil, err
	}
	return []gen.Option{gen.WithGenerator(g)}, nil
}

func splitList(list string) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
