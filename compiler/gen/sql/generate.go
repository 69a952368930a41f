package sql

import (
	"context"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/quarry/compiler/gen"
)

// Generator generates the Go client of a graph. It is the default
// generator of the "quarry-client-go" provider.
var Generator gen.Generator = gen.GenerateFunc(Generate)

// Generate writes the client package of g into its target directory.
func Generate(g *gen.Graph) error {
	return GenerateContext(context.Background(), g)
}

// GenerateContext is like Generate with a context that cancels the
// file writes.
func GenerateContext(ctx context.Context, g *gen.Graph) error {
	if g.Config == nil || g.Target == "" {
		return gen.NewConfigError("Target", nil, "missing target directory in config")
	}
	w := gen.NewWriter(g)
	if err := build(ctx, g, w); err != nil {
		return err
	}
	return w.Write(ctx)
}

// Files renders the files of the client package without writing them.
// The keys are paths relative to the target directory.
func Files(g *gen.Graph) (map[string]*jen.File, error) {
	w := gen.NewWriter(g)
	if err := build(context.Background(), g, w); err != nil {
		return nil, err
	}
	files := make(map[string]*jen.File)
	for _, name := range w.Files() {
		files[name] = w.File(name)
	}
	return files, nil
}

// build generates every file of the package into w. Model files are built
// in parallel.
func build(ctx context.Context, g *gen.Graph, w *gen.Writer) error {
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.Workers, 1) * 2)
	eg.Go(func() error {
		w.Add("client.go", genClient(g, w.NewFile("")))
		return nil
	})
	eg.Go(func() error {
		w.Add("runtime.go", genRuntime(g, w.NewFile("")))
		return nil
	})
	if len(g.Enums) > 0 {
		eg.Go(func() error {
			w.Add("enums.go", genEnums(g, w.NewFile("")))
			return nil
		})
	}
	if g.FeatureEnabled(gen.FeatureSnapshot.Name) {
		eg.Go(func() error {
			f, err := genSnapshot(g, w.NewFile("internal"))
			if err != nil {
				return err
			}
			w.Add("internal/schema.go", f)
			return nil
		})
	}
	for _, t := range g.Nodes {
		eg.Go(func() error {
			w.Add(t.ModelFile()+".go", genModel(g, t, w.NewFile("")))
			return nil
		})
		eg.Go(func() error {
			w.Add(t.ModelFile()+"_query.go", genQuery(g, t, w.NewFile("")))
			return nil
		})
		eg.Go(func() error {
			w.Add(t.ModelFile()+"_mutation.go", genMutation(g, t, w.NewFile("")))
			return nil
		})
	}
	return eg.Wait()
}
