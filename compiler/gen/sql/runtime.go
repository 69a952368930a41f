package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/engine"
)

var defaultKinds = map[engine.DefaultKind]string{
	engine.DefaultValue:         "DefaultValue",
	engine.DefaultAutoincrement: "DefaultAutoincrement",
	engine.DefaultNow:           "DefaultNow",
	engine.DefaultUUID:          "DefaultUUID",
	engine.DefaultCUID:          "DefaultCUID",
	engine.DefaultDBGenerated:   "DefaultDBGenerated",
}

// genRuntime generates runtime.go: the engine description of the models
// the client is created with.
func genRuntime(g *gen.Graph, f *jen.File) *jen.File {
	s := g.Runtime()
	f.Comment("Schema is the runtime description of the models.")
	f.Var().Id("Schema").Op("=").Op("&").Qual(enginePkg, "Schema").Values(jen.Dict{
		jen.Id("Models"): jen.Index().Op("*").Qual(enginePkg, "Model").ValuesFunc(func(group *jen.Group) {
			for _, m := range s.Models {
				group.Line().Add(runtimeModel(m))
			}
			group.Line()
		}),
	})
	return f
}

func runtimeModel(m *engine.Model) jen.Code {
	d := jen.Dict{
		jen.Id("Name"):       jen.Lit(m.Name),
		jen.Id("Table"):      jen.Lit(m.Table),
		jen.Id("PrimaryKey"): stringSlice(m.PrimaryKey),
		jen.Id("Fields"): jen.Index().Op("*").Qual(enginePkg, "Field").ValuesFunc(func(group *jen.Group) {
			for _, fd := range m.Fields {
				group.Line().Add(runtimeField(fd))
			}
			group.Line()
		}),
	}
	if len(m.Uniques) > 0 {
		d[jen.Id("Uniques")] = jen.Index().Index().String().ValuesFunc(func(group *jen.Group) {
			for _, u := range m.Uniques {
				group.Values(stringLits(u)...)
			}
		})
	}
	if len(m.Relations) > 0 {
		d[jen.Id("Relations")] = jen.Index().Op("*").Qual(enginePkg, "RelationSpec").ValuesFunc(func(group *jen.Group) {
			for _, r := range m.Relations {
				group.Line().Add(runtimeRelation(r))
			}
			group.Line()
		})
	}
	return jen.Values(d)
}

func runtimeField(fd *engine.Field) jen.Code {
	d := jen.Dict{
		jen.Id("Name"):   jen.Lit(fd.Name),
		jen.Id("Column"): jen.Lit(fd.Column),
		jen.Id("Type"):   jen.Qual(fieldPkg, fd.Type.ConstName()),
	}
	if fd.Optional {
		d[jen.Id("Optional")] = jen.True()
	}
	if fd.UpdatedAt {
		d[jen.Id("UpdatedAt")] = jen.True()
	}
	if name, ok := defaultKinds[fd.Default]; ok {
		d[jen.Id("Default")] = jen.Qual(enginePkg, name)
	}
	if fd.DefaultValue != nil {
		d[jen.Id("DefaultValue")] = jen.Lit(fd.DefaultValue)
	}
	if len(fd.Enum) > 0 {
		d[jen.Id("Enum")] = stringSlice(fd.Enum)
	}
	return jen.Values(d)
}

func runtimeRelation(r *engine.RelationSpec) jen.Code {
	d := jen.Dict{
		jen.Id("Name"):  jen.Lit(r.Name),
		jen.Id("Model"): jen.Lit(r.Model),
		jen.Id("Kind"):  jen.Qual(sqlgraphPkg, r.Kind.String()),
	}
	if r.Owner {
		d[jen.Id("Owner")] = jen.True()
	}
	if r.List {
		d[jen.Id("List")] = jen.True()
	}
	if r.Optional {
		d[jen.Id("Optional")] = jen.True()
	}
	if len(r.Fields) > 0 {
		d[jen.Id("Fields")] = stringSlice(r.Fields)
	}
	if len(r.References) > 0 {
		d[jen.Id("References")] = stringSlice(r.References)
	}
	if r.JoinTable != "" {
		d[jen.Id("JoinTable")] = jen.Lit(r.JoinTable)
		d[jen.Id("JoinColumns")] = stringSlice(r.JoinColumns)
	}
	if r.Back != "" {
		d[jen.Id("Back")] = jen.Lit(r.Back)
	}
	return jen.Values(d)
}

func stringSlice(vs []string) jen.Code {
	return jen.Index().String().Values(stringLits(vs)...)
}

func stringLits(vs []string) []jen.Code {
	lits := make([]jen.Code, len(vs))
	for i, v := range vs {
		lits[i] = jen.Lit(v)
	}
	return lits
}
