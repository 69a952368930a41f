// Package gen compiles a parsed quarry schema into a validated graph of
// models, enums and relations, and drives the code generators that turn
// the graph into a Go client package.
//
// # Pipeline
//
//	schema.quarry
//	     ↓  compiler/load
//	*schema.Schema
//	     ↓  gen.NewGraph
//	*gen.Graph  ──→ Tables()   migration tables (dialect/sql/schema)
//	     │      ──→ Runtime()  engine description
//	     ↓  Generator (compiler/gen/sql, compiler/gen/graphql)
//	generated package
//
// # Validation
//
// NewGraph reports every violation it finds, not only the first one. The
// returned error is a *ValidationErrors holding *SchemaError and
// *EdgeError values with the position of the offending declaration:
//
//	g, err := gen.NewGraph(cfg, s)
//	if err != nil {
//		if gen.IsEdgeError(err) {
//			// at least one relation is invalid
//		}
//		return err
//	}
//
// # Configuration
//
// Configuration uses functional options:
//
//	cfg, err := gen.NewConfig(
//		gen.WithTarget("./db"),
//		gen.WithPackage("github.com/acme/app/db"),
//		gen.WithFeatures(gen.FeatureSnapshot),
//		gen.WithGenerator(sql.Generator),
//	)
//
// Hooks wrap the generator, the first hook being the outermost one:
//
//	gen.WithHooks(func(next gen.Generator) gen.Generator {
//		return gen.GenerateFunc(func(g *gen.Graph) error {
//			log.Println("models:", len(g.Nodes))
//			return next.Generate(g)
//		})
//	})
//
// Generated files are rendered with jennifer and written in parallel by a
// Writer, which runs goimports on every file before writing it.
package gen
