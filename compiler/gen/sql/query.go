package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/quarry/compiler/gen"
)

// genQuery generates <model>_query.go: filters, selection, ordering,
// unique selectors and the query input of a model.
func genQuery(g *gen.Graph, t *gen.Type, f *jen.File) *jen.File {
	genPredicate(t, f)
	genFields(t, f)
	genWhereUnique(t, f)
	genQueryInput(t, f)
	genInclude(t, f)
	return f
}

func genPredicate(t *gen.Type, f *jen.File) {
	f.Commentf("%s filters %s records.", t.PredicateName(), t.Name)
	f.Type().Id(t.PredicateName()).Op("=").Qual(enginePkg, "P").Types(jen.Id(t.Name))

	f.Commentf("%s holds the filters of the %s fields and relations.", t.WhereName(), t.Name)
	f.Var().Id(t.WhereName()).Op("=").StructFunc(func(group *jen.Group) {
		for _, fd := range t.Fields {
			group.Id(fd.StructField()).Add(filterType(fd, t.Name))
		}
		for _, e := range t.Edges {
			if e.List() {
				group.Id(e.StructField()).Qual(enginePkg, "ListRelation").Types(jen.Id(t.Name), jen.Id(e.Type.Name))
			} else {
				group.Id(e.StructField()).Qual(enginePkg, "Relation").Types(jen.Id(t.Name), jen.Id(e.Type.Name))
			}
		}
	}).Values(jen.DictFunc(func(d jen.Dict) {
		for _, fd := range t.Fields {
			d[jen.Id(fd.StructField())] = newFilter(fd, t.Name)
		}
		for _, e := range t.Edges {
			ctor := "NewRelation"
			if e.List() {
				ctor = "NewListRelation"
			}
			d[jen.Id(e.StructField())] = jen.Qual(enginePkg, ctor).Types(jen.Id(t.Name), jen.Id(e.Type.Name)).Call(jen.Lit(e.Name))
		}
	}))
}

func genFields(t *gen.Type, f *jen.File) {
	field := t.FieldName()
	f.Commentf("%s is a field of %s, used to select and order records.", field, t.Name)
	f.Type().Id(field).String()
	f.Const().DefsFunc(func(group *jen.Group) {
		for _, fd := range t.Fields {
			group.Id(field + fd.StructField()).Id(field).Op("=").Lit(fd.Name)
		}
	})

	f.Commentf("%s orders %s records by a field.", t.OrderByName(), t.Name)
	f.Type().Id(t.OrderByName()).Struct(
		jen.Id("Field").Id(field),
		jen.Id("Desc").Bool(),
	)
	f.Comment("Asc orders by the field in ascending order.")
	f.Func().Params(jen.Id("f").Id(field)).Id("Asc").Params().Id(t.OrderByName()).Block(
		jen.Return(jen.Id(t.OrderByName()).Values(jen.Dict{jen.Id("Field"): jen.Id("f")})),
	)
	f.Comment("Desc orders by the field in descending order.")
	f.Func().Params(jen.Id("f").Id(field)).Id("Desc").Params().Id(t.OrderByName()).Block(
		jen.Return(jen.Id(t.OrderByName()).Values(jen.Dict{jen.Id("Field"): jen.Id("f"), jen.Id("Desc"): jen.True()})),
	)
}

// keyName returns the name of the struct of a compound unique key.
func keyName(t *gen.Type, idx *gen.Index) string {
	return t.Name + idx.StructName() + "Key"
}

func genWhereUnique(t *gen.Type, f *jen.File) {
	var single []*gen.Field
	for _, key := range t.UniqueKeys() {
		if len(key) == 1 {
			single = append(single, key[0])
		}
	}
	compound := t.CompoundKeys()

	for _, idx := range compound {
		f.Commentf("%s selects a %s by its %s fields.", keyName(t, idx), t.Name, idx.Name)
		f.Type().Id(keyName(t, idx)).StructFunc(func(group *jen.Group) {
			for _, fd := range idx.Fields {
				group.Id(fd.StructField()).Add(baseType(fd))
			}
		})
	}

	f.Commentf("%s selects a single %s. Exactly one of its fields must be set.", t.WhereUniqueName(), t.Name)
	f.Type().Id(t.WhereUniqueName()).StructFunc(func(group *jen.Group) {
		for _, fd := range single {
			group.Id(fd.StructField()).Add(ptrType(fd))
		}
		for _, idx := range compound {
			group.Id(idx.StructName()).Op("*").Id(keyName(t, idx))
		}
	})

	f.Func().Params(jen.Id("w").Id(t.WhereUniqueName())).Id("unique").Params().Qual(enginePkg, "Unique").BlockFunc(func(group *jen.Group) {
		group.Id("u").Op(":=").Make(jen.Qual(enginePkg, "Unique"))
		for _, fd := range single {
			group.If(jen.Id("w").Dot(fd.StructField()).Op("!=").Nil()).Block(
				jen.Id("u").Index(jen.Lit(fd.Name)).Op("=").Add(inputValue(fd, jen.Id("w").Dot(fd.StructField()), true)),
			)
		}
		for _, idx := range compound {
			group.If(jen.Id("k").Op(":=").Id("w").Dot(idx.StructName()), jen.Id("k").Op("!=").Nil()).BlockFunc(func(b *jen.Group) {
				for _, fd := range idx.Fields {
					b.Id("u").Index(jen.Lit(fd.Name)).Op("=").Add(inputValue(fd, jen.Id("k").Dot(fd.StructField()), false))
				}
			})
		}
		group.Return(jen.Id("u"))
	})
}

func genQueryInput(t *gen.Type, f *jen.File) {
	f.Commentf("%s describes a read of %s records.", t.QueryName(), t.Name)
	f.Type().Id(t.QueryName()).Struct(
		jen.Comment("Where filters the records; all filters must match."),
		jen.Id("Where").Index().Add(predicateType(t)),
		jen.Id("OrderBy").Index().Id(t.OrderByName()),
		jen.Comment("Cursor starts the page at the selected record."),
		jen.Id("Cursor").Op("*").Id(t.WhereUniqueName()),
		jen.Id("Skip").Int(),
		jen.Comment("Take limits the number of records. Negative values read backwards."),
		jen.Id("Take").Op("*").Int(),
		jen.Id("Select").Index().Id(t.FieldName()),
		jen.Id("Include").Op("*").Id(t.IncludeName()),
	)

	f.Func().Params(jen.Id("q").Op("*").Id(t.QueryName())).Id("query").Params().Op("*").Qual(enginePkg, "Query").Block(
		jen.If(jen.Id("q").Op("==").Nil()).Block(jen.Return(jen.Nil())),
		jen.Id("eq").Op(":=").Op("&").Qual(enginePkg, "Query").Values(jen.Dict{
			jen.Id("Where"): jen.Qual(enginePkg, "And").Call(jen.Id("q").Dot("Where").Op("...")).Dot("Expr").Call(),
			jen.Id("Skip"):  jen.Id("q").Dot("Skip"),
			jen.Id("Take"):  jen.Id("q").Dot("Take"),
		}),
		jen.For(jen.List(jen.Id("_"), jen.Id("o")).Op(":=").Range().Id("q").Dot("OrderBy")).Block(
			jen.Id("eq").Dot("OrderBy").Op("=").Append(jen.Id("eq").Dot("OrderBy"), jen.Qual(enginePkg, "Order").Values(jen.Dict{
				jen.Id("Field"): jen.String().Call(jen.Id("o").Dot("Field")),
				jen.Id("Desc"):  jen.Id("o").Dot("Desc"),
			})),
		),
		jen.If(jen.Id("q").Dot("Cursor").Op("!=").Nil()).Block(
			jen.Id("eq").Dot("Cursor").Op("=").Id("q").Dot("Cursor").Dot("unique").Call(),
		),
		jen.For(jen.List(jen.Id("_"), jen.Id("f")).Op(":=").Range().Id("q").Dot("Select")).Block(
			jen.Id("eq").Dot("Select").Op("=").Append(jen.Id("eq").Dot("Select"), jen.String().Call(jen.Id("f"))),
		),
		jen.If(jen.Id("q").Dot("Include").Op("!=").Nil()).Block(
			jen.Id("eq").Dot("Include").Op("=").Id("q").Dot("Include").Dot("include").Call(),
		),
		jen.Return(jen.Id("eq")),
	)
}

func genInclude(t *gen.Type, f *jen.File) {
	f.Commentf("%s selects the relations of %s to load. A non-nil query loads the", t.IncludeName(), t.Name)
	f.Comment("relation; an empty one loads all related records.")
	f.Type().Id(t.IncludeName()).StructFunc(func(group *jen.Group) {
		for _, e := range t.Edges {
			group.Id(e.StructField()).Op("*").Id(e.Type.QueryName())
		}
	})
	f.Func().Params(jen.Id("i").Op("*").Id(t.IncludeName())).Id("include").Params().Map(jen.String()).Op("*").Qual(enginePkg, "Query").BlockFunc(func(group *jen.Group) {
		group.Id("inc").Op(":=").Make(jen.Map(jen.String()).Op("*").Qual(enginePkg, "Query"))
		for _, e := range t.Edges {
			group.If(jen.Id("i").Dot(e.StructField()).Op("!=").Nil()).Block(
				jen.Id("inc").Index(jen.Lit(e.Name)).Op("=").Id("i").Dot(e.StructField()).Dot("query").Call(),
			)
		}
		group.Return(jen.Id("inc"))
	})
}
