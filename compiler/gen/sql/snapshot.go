package sql

import (
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/schema"
)

// genSnapshot generates internal/schema.go holding the canonical text of
// the schema the client was generated from.
func genSnapshot(g *gen.Graph, f *jen.File) (*jen.File, error) {
	var b strings.Builder
	if err := schema.Format(&b, g.Schema); err != nil {
		return nil, gen.NewGenerationError("snapshot", "internal/schema.go", "formatting schema", err)
	}
	f.Comment("Schema is the schema snapshot of the generated client.")
	f.Const().Id("Schema").Op("=").Lit(b.String())
	return f, nil
}
