package gen

import (
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultHeader is the comment written at the top of generated files.
const DefaultHeader = "Code generated by quarry. DO NOT EDIT."

// Config holds the code generation configuration.
type Config struct {
	// Target is the output directory of the generated package.
	Target string

	// Package is the import path of the generated package. The last
	// element names the package; it defaults to the base of Target.
	Package string

	// Header is the comment written at the top of every file.
	Header string

	// Features enables optional features on top of the default ones.
	Features []Feature

	// Disabled lists default features turned off by name.
	Disabled []string

	// Hooks wrap the generator.
	Hooks []Hook

	// Workers bounds the number of files written in parallel.
	// Zero uses GOMAXPROCS.
	Workers int

	// Storage overrides the storage derived from the datasource.
	Storage *Storage

	// Generator generates the client package. It is set by the caller,
	// usually to the SQL client generator.
	Generator Generator

	// Logger receives progress messages. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Generator is the interface that wraps the Generate method.
type Generator interface {
	// Generate generates the code for the given graph.
	Generate(*Graph) error
}

// The GenerateFunc type is an adapter to allow the use of ordinary
// function as Generator.
type GenerateFunc func(*Graph) error

// Generate calls f(g).
func (f GenerateFunc) Generate(g *Graph) error {
	return f(g)
}

// Hook defines the "generate middleware". A function that gets a Generator
// and returns a Generator.
//
//	hook := func(next gen.Generator) gen.Generator {
//		return gen.GenerateFunc(func(g *gen.Graph) error {
//			fmt.Println("Graph:", g)
//			return next.Generate(g)
//		})
//	}
type Hook func(Generator) Generator

// FeatureEnabled reports whether the named feature is enabled.
func (c *Config) FeatureEnabled(name string) bool {
	if slices.Contains(c.Disabled, name) {
		return false
	}
	for _, f := range c.Features {
		if f.Name == name {
			return true
		}
	}
	for _, f := range AllFeatures {
		if f.Name == name {
			return f.Default
		}
	}
	return false
}

// PackageName returns the name of the generated package.
func (c *Config) PackageName() string {
	name := path.Base(c.Package)
	if c.Package == "" || name == "." || name == "/" {
		name = filepath.Base(c.Target)
	}
	if c.Target == "" && c.Package == "" {
		return "db"
	}
	name = strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return '_'
		}
		return r
	}, strings.ToLower(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "db"
	}
	return name
}

// header returns the configured or the default file header.
func (c *Config) header() string {
	if c.Header != "" {
		return c.Header
	}
	return DefaultHeader
}

// Log returns the configured logger, or one that discards everything.
func (c *Config) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
