package gen

import (
	"time"
)

// Gen generates the client package of the graph with the configured
// generator, wrapped by the configured hooks in reverse order, and
// removes the files of disabled features afterwards.
func (g *Graph) Gen() error {
	if g.Config == nil || g.Config.Generator == nil {
		return NewConfigError("Generator", nil, "no generator configured")
	}
	if g.Target == "" {
		return NewConfigError("Target", nil, "missing target directory in config")
	}
	var next Generator = g.Config.Generator
	for i := len(g.Hooks) - 1; i >= 0; i-- {
		next = g.Hooks[i](next)
	}
	start := time.Now()
	if err := next.Generate(g); err != nil {
		return err
	}
	if err := g.Cleanup(); err != nil {
		return NewGenerationError("cleanup", g.Target, "removing disabled feature files", err)
	}
	g.Log().Info("generated client",
		"target", g.Target,
		"package", g.PackageName(),
		"models", len(g.Nodes),
		"enums", len(g.Enums),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// GoImportPath returns the import path of the generated package, or an
// empty string when it is not configured.
func (g *Graph) GoImportPath() string {
	return g.Package
}

// ModelFile returns the base file name of the generated files of t,
// e.g. "post_tag" for the model PostTag.
func (t *Type) ModelFile() string {
	return snake(t.Name)
}
