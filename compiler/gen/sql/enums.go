package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/quarry/compiler/gen"
)

// genEnums generates enums.go: a string type per enum with its values.
func genEnums(g *gen.Graph, f *jen.File) *jen.File {
	for _, e := range g.Enums {
		name := e.TypeName()
		if e.Doc != "" {
			f.Comment(e.Doc)
		} else {
			f.Commentf("%s is the %s enum.", name, e.Name)
		}
		f.Type().Id(name).String()

		f.Commentf("Values of %s.", name)
		f.Const().DefsFunc(func(group *jen.Group) {
			for _, v := range e.Values {
				group.Id(e.Const(v)).Id(name).Op("=").Lit(v.Value)
			}
		})

		f.Commentf("Values returns the values of %s in declaration order.", name)
		f.Func().Params(jen.Id(name)).Id("Values").Params().Index().Id(name).Block(
			jen.Return(jen.Index().Id(name).ValuesFunc(func(group *jen.Group) {
				for _, v := range e.Values {
					group.Id(e.Const(v))
				}
			})),
		)

		f.Comment("IsValid reports whether the value is one of the enum values.")
		f.Func().Params(jen.Id("e").Id(name)).Id("IsValid").Params().Bool().Block(
			jen.Switch(jen.Id("e")).Block(
				jen.CaseFunc(func(group *jen.Group) {
					for _, v := range e.Values {
						group.Id(e.Const(v))
					}
				}).Block(jen.Return(jen.True())),
			),
			jen.Return(jen.False()),
		)

		f.Func().Params(jen.Id("e").Id(name)).Id("String").Params().String().Block(
			jen.Return(jen.String().Call(jen.Id("e"))),
		)
	}
	return f
}
