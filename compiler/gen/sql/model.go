package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/quarry/compiler/gen"
)

// genModel generates <model>.go: the record struct, its relations and the
// model client.
func genModel(g *gen.Graph, t *gen.Type, f *jen.File) *jen.File {
	genRecord(t, f)
	genEdges(t, f)
	genModelClient(t, f)
	return f
}

func genRecord(t *gen.Type, f *jen.File) {
	if t.Doc != "" {
		f.Comment(t.Doc)
	} else {
		f.Commentf("%s is the model entity for the %s schema.", t.Name, t.Name)
	}
	f.Type().Id(t.Name).StructFunc(func(group *jen.Group) {
		for _, fd := range t.Fields {
			if fd.Doc != "" {
				group.Comment(fd.Doc)
			}
			group.Id(fd.StructField()).Add(goType(fd)).Tag(jsonTag(fd.Name, fd.Optional))
		}
		group.Commentf("Edges holds the relations loaded by the query.")
		group.Id("Edges").Id(t.EdgesName()).Tag(jsonTag("edges", false))
	})

	recv := t.Receiver()
	f.Commentf("new%s converts an engine record into a %s.", t.Name, t.Name)
	f.Func().Id("new"+t.Name).Params(jen.Id("r").Op("*").Qual(enginePkg, "Record")).Op("*").Id(t.Name).BlockFunc(func(group *jen.Group) {
		group.If(jen.Id("r").Op("==").Nil()).Block(jen.Return(jen.Nil()))
		group.Id("v").Op(":=").Op("&").Id(t.Name).Values(jen.DictFunc(func(d jen.Dict) {
			for _, fd := range t.Fields {
				d[jen.Id(fd.StructField())] = recordValue(fd, jen.Id("r"))
			}
		}))
		for i, e := range t.Edges {
			load := jen.Id("v").Dot("Edges").Dot("loadedTypes").Index(jen.Lit(i)).Op("=").True()
			if e.List() {
				group.If(jen.Id("r").Dot("Loaded").Call(jen.Lit(e.Name))).Block(
					load,
					jen.Id("v").Dot("Edges").Dot(e.StructField()).Op("=").Id("new"+e.Type.Name+"List").Call(
						jen.Id("r").Dot("Edge").Call(jen.Lit(e.Name)),
					),
				)
				continue
			}
			group.If(jen.Id("r").Dot("Loaded").Call(jen.Lit(e.Name))).Block(
				load,
				jen.If(jen.Id("recs").Op(":=").Id("r").Dot("Edge").Call(jen.Lit(e.Name)), jen.Len(jen.Id("recs")).Op(">").Lit(0)).Block(
					jen.Id("v").Dot("Edges").Dot(e.StructField()).Op("=").Id("new"+e.Type.Name).Call(jen.Id("recs").Index(jen.Lit(0))),
				),
			)
		}
		group.Return(jen.Id("v"))
	})

	f.Func().Id("new"+t.Name+"List").Params(jen.Id("recs").Index().Op("*").Qual(enginePkg, "Record")).Add(recordsType(t)).Block(
		jen.Id("out").Op(":=").Make(recordsType(t), jen.Len(jen.Id("recs"))),
		jen.For(jen.List(jen.Id("i"), jen.Id("r")).Op(":=").Range().Id("recs")).Block(
			jen.Id("out").Index(jen.Id("i")).Op("=").Id("new"+t.Name).Call(jen.Id("r")),
		),
		jen.Return(jen.Id("out")),
	)

	f.Comment("String implements the fmt.Stringer interface.")
	f.Func().Params(jen.Id(recv).Op("*").Id(t.Name)).Id("String").Params().String().BlockFunc(func(group *jen.Group) {
		group.Var().Id("builder").Qual("strings", "Builder")
		group.Id("builder").Dot("WriteString").Call(jen.Lit(t.Name + "("))
		for i, fd := range t.Fields {
			sep := ", "
			if i == 0 {
				sep = ""
			}
			value := jen.Id(recv).Dot(fd.StructField())
			if fd.Optional {
				group.If(jen.Id(recv).Dot(fd.StructField()).Op("!=").Nil()).Block(
					jen.Id("builder").Dot("WriteString").Call(jen.Qual("fmt", "Sprintf").Call(jen.Lit(sep+fd.Name+"=%v"), jen.Op("*").Add(value))),
				)
				continue
			}
			group.Id("builder").Dot("WriteString").Call(jen.Qual("fmt", "Sprintf").Call(jen.Lit(sep+fd.Name+"=%v"), value))
		}
		group.Id("builder").Dot("WriteByte").Call(jen.LitRune(')'))
		group.Return(jen.Id("builder").Dot("String").Call())
	})
}

func genEdges(t *gen.Type, f *jen.File) {
	f.Commentf("%s holds the relations of %s loaded with Include.", t.EdgesName(), t.Name)
	f.Type().Id(t.EdgesName()).StructFunc(func(group *jen.Group) {
		for _, e := range t.Edges {
			if e.List() {
				group.Id(e.StructField()).Add(recordsType(e.Type)).Tag(jsonTag(e.Name, true))
			} else {
				group.Id(e.StructField()).Op("*").Id(e.Type.Name).Tag(jsonTag(e.Name, true))
			}
		}
		group.Id("loadedTypes").Index(jen.Lit(len(t.Edges))).Bool()
	})
	for i, e := range t.Edges {
		name := e.StructField() + "OrErr"
		if e.List() {
			f.Commentf("%s returns the %s relation, or an error if it was not loaded.", name, e.Name)
			f.Func().Params(jen.Id("e").Id(t.EdgesName())).Id(name).Params().Params(recordsType(e.Type), jen.Error()).Block(
				jen.If(jen.Id("e").Dot("loadedTypes").Index(jen.Lit(i))).Block(
					jen.Return(jen.Id("e").Dot(e.StructField()), jen.Nil()),
				),
				jen.Return(jen.Nil(), jen.Qual(quarryPkg, "NewNotLoadedError").Call(jen.Lit(e.Name))),
			)
			continue
		}
		f.Commentf("%s returns the %s relation, or an error if it was not loaded or", name, e.Name)
		f.Comment("no record is related.")
		f.Func().Params(jen.Id("e").Id(t.EdgesName())).Id(name).Params().Params(jen.Op("*").Id(e.Type.Name), jen.Error()).Block(
			jen.If(jen.Id("e").Dot(e.StructField()).Op("!=").Nil()).Block(
				jen.Return(jen.Id("e").Dot(e.StructField()), jen.Nil()),
			).Else().If(jen.Id("e").Dot("loadedTypes").Index(jen.Lit(i))).Block(
				jen.Return(jen.Nil(), jen.Qual(quarryPkg, "NewNotFoundError").Call(jen.Lit(e.Type.Name))),
			),
			jen.Return(jen.Nil(), jen.Qual(quarryPkg, "NewNotLoadedError").Call(jen.Lit(e.Name))),
		)
	}
}

func genModelClient(t *gen.Type, f *jen.File) {
	client := t.ClientName()
	model := jen.Lit(t.Name)
	recv := func() *jen.Statement { return jen.Id("c").Op("*").Id(client) }
	call := func(method string, args ...jen.Code) *jen.Statement {
		return jen.Id("c").Dot("engine").Dot(method).Call(args...)
	}
	one := func(method string, args ...jen.Code) []jen.Code {
		return []jen.Code{
			jen.List(jen.Id("r"), jen.Err()).Op(":=").Add(call(method, args...)),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.Return(jen.Id("new"+t.Name).Call(jen.Id("r")), jen.Nil()),
		}
	}
	where := func() jen.Code {
		return jen.Qual(enginePkg, "And").Call(jen.Id("where").Op("...")).Dot("Expr").Call()
	}
	result := jen.Params(jen.Op("*").Id(t.Name), jen.Error())

	f.Commentf("%s is the client of the %s model.", client, t.Name)
	f.Type().Id(client).Struct(
		jen.Id("engine").Op("*").Qual(enginePkg, "Engine"),
	)

	f.Commentf("FindMany returns the %s records matching the query.", t.Name)
	f.Func().Params(recv()).Id("FindMany").Params(ctx(), jen.Id("q").Op("*").Id(t.QueryName())).Params(recordsType(t), jen.Error()).Block(
		jen.List(jen.Id("recs"), jen.Err()).Op(":=").Add(call("FindMany", jen.Id("ctx"), model, jen.Id("q").Dot("query").Call())),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Id("new"+t.Name+"List").Call(jen.Id("recs")), jen.Nil()),
	)

	f.Commentf("FindUnique returns the %s selected by where. The query contributes its", t.Name)
	f.Comment("Select and Include only. A *quarry.NotFoundError is returned if no record matches.")
	f.Func().Params(recv()).Id("FindUnique").Params(ctx(), jen.Id("where").Id(t.WhereUniqueName()), jen.Id("q").Op("*").Id(t.QueryName())).Add(result).Block(
		one("FindUnique", jen.Id("ctx"), model, jen.Id("where").Dot("unique").Call(), jen.Id("q").Dot("query").Call())...,
	)

	f.Commentf("FindFirst returns the first %s matching the query.", t.Name)
	f.Func().Params(recv()).Id("FindFirst").Params(ctx(), jen.Id("q").Op("*").Id(t.QueryName())).Add(result).Block(
		one("FindFirst", jen.Id("ctx"), model, jen.Id("q").Dot("query").Call())...,
	)

	f.Commentf("Count returns the number of %s records matching all filters.", t.Name)
	f.Func().Params(recv()).Id("Count").Params(ctx(), jen.Id("where").Op("...").Add(predicateType(t))).Params(jen.Int(), jen.Error()).Block(
		jen.Return(call("Count", jen.Id("ctx"), model, where())),
	)

	f.Commentf("Create creates a %s with its nested writes and returns it read with q.", t.Name)
	f.Func().Params(recv()).Id("Create").Params(ctx(), jen.Id("data").Op("*").Id(t.CreateName()), jen.Id("q").Op("*").Id(t.QueryName())).Add(result).Block(
		one("Create", jen.Id("ctx"), model, jen.Id("data").Dot("create").Call(), jen.Id("q").Dot("query").Call())...,
	)

	f.Commentf("CreateMany creates %s records without nested writes and returns their number.", t.Name)
	f.Func().Params(recv()).Id("CreateMany").Params(ctx(), jen.Id("data").Index().Op("*").Id(t.CreateName())).Params(jen.Int(), jen.Error()).Block(
		jen.Id("cs").Op(":=").Make(jen.Index().Op("*").Qual(enginePkg, "Create"), jen.Len(jen.Id("data"))),
		jen.For(jen.List(jen.Id("i"), jen.Id("d")).Op(":=").Range().Id("data")).Block(
			jen.Id("cs").Index(jen.Id("i")).Op("=").Id("d").Dot("create").Call(),
		),
		jen.Return(call("CreateMany", jen.Id("ctx"), model, jen.Id("cs"))),
	)

	f.Commentf("Update updates the %s selected by where and returns it read with q.", t.Name)
	f.Func().Params(recv()).Id("Update").Params(ctx(), jen.Id("where").Id(t.WhereUniqueName()), jen.Id("data").Op("*").Id(t.UpdateName()), jen.Id("q").Op("*").Id(t.QueryName())).Add(result).Block(
		one("Update", jen.Id("ctx"), model, jen.Id("where").Dot("unique").Call(), jen.Id("data").Dot("update").Call(), jen.Id("q").Dot("query").Call())...,
	)

	f.Commentf("UpdateMany updates the %s records matching all filters and returns their number.", t.Name)
	f.Comment("Nested writes are not supported.")
	f.Func().Params(recv()).Id("UpdateMany").Params(ctx(), jen.Id("data").Op("*").Id(t.UpdateName()), jen.Id("where").Op("...").Add(predicateType(t))).Params(jen.Int(), jen.Error()).Block(
		jen.Return(call("UpdateMany", jen.Id("ctx"), model, where(), jen.Id("data").Dot("update").Call())),
	)

	f.Commentf("Upsert updates the %s selected by where, or creates it if it does not exist.", t.Name)
	f.Func().Params(recv()).Id("Upsert").Params(ctx(), jen.Id("where").Id(t.WhereUniqueName()), jen.Id("create").Op("*").Id(t.CreateName()), jen.Id("update").Op("*").Id(t.UpdateName()), jen.Id("q").Op("*").Id(t.QueryName())).Add(result).Block(
		one("Upsert", jen.Id("ctx"), model, jen.Id("where").Dot("unique").Call(), jen.Id("create").Dot("create").Call(), jen.Id("update").Dot("update").Call(), jen.Id("q").Dot("query").Call())...,
	)

	f.Commentf("Delete deletes the %s selected by where and returns it as it was before.", t.Name)
	f.Func().Params(recv()).Id("Delete").Params(ctx(), jen.Id("where").Id(t.WhereUniqueName()), jen.Id("q").Op("*").Id(t.QueryName())).Add(result).Block(
		one("Delete", jen.Id("ctx"), model, jen.Id("where").Dot("unique").Call(), jen.Id("q").Dot("query").Call())...,
	)

	f.Commentf("DeleteMany deletes the %s records matching all filters and returns their number.", t.Name)
	f.Func().Params(recv()).Id("DeleteMany").Params(ctx(), jen.Id("where").Op("...").Add(predicateType(t))).Params(jen.Int(), jen.Error()).Block(
		jen.Return(call("DeleteMany", jen.Id("ctx"), model, where())),
	)

	for _, e := range t.Edges {
		genQueryEdge(t, e, f)
	}
}

// genQueryEdge generates the traversal of a relation from a loaded record:
// the related records are filtered by the back relation of the edge.
func genQueryEdge(t *gen.Type, e *gen.Edge, f *jen.File) {
	client := t.ClientName()
	recv := "parent"
	key := make([]jen.Code, len(t.ID))
	for i, id := range t.ID {
		key[i] = jen.Qual(qlPkg, "FieldEQ").Call(jen.Lit(id.Name), inputValue(id, jen.Id(recv).Dot(id.StructField()), false))
	}
	name := "Query" + e.StructField()
	body := []jen.Code{
		jen.If(jen.Id(recv).Op("==").Nil()).Block(
			jen.Return(jen.Nil(), jen.Qual("errors", "New").Call(jen.Lit(client+"."+name+": nil "+t.Name))),
		),
		jen.Id("eq").Op(":=").Id("q").Dot("query").Call(),
		jen.If(jen.Id("eq").Op("==").Nil()).Block(
			jen.Id("eq").Op("=").Op("&").Qual(enginePkg, "Query").Values(),
		),
		jen.Id("eq").Dot("Where").Op("=").Qual(qlPkg, "And").Call(
			jen.Id("eq").Dot("Where"),
			jen.Qual(qlPkg, "HasEdgeWith").Call(append([]jen.Code{jen.Lit(e.Ref.Name)}, key...)...),
		),
	}
	if e.List() {
		f.Commentf("%s returns the %s records related to %s through %s.", name, e.Type.Name, t.Name, e.Name)
		f.Func().Params(jen.Id("c").Op("*").Id(client)).Id(name).Params(ctx(), jen.Id(recv).Op("*").Id(t.Name), jen.Id("q").Op("*").Id(e.Type.QueryName())).Params(recordsType(e.Type), jen.Error()).Block(
			append(body,
				jen.List(jen.Id("recs"), jen.Err()).Op(":=").Id("c").Dot("engine").Dot("FindMany").Call(jen.Id("ctx"), jen.Lit(e.Type.Name), jen.Id("eq")),
				jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
				jen.Return(jen.Id("new"+e.Type.Name+"List").Call(jen.Id("recs")), jen.Nil()),
			)...,
		)
		return
	}
	f.Commentf("%s returns the %s related to %s through %s.", name, e.Type.Name, t.Name, e.Name)
	f.Func().Params(jen.Id("c").Op("*").Id(client)).Id(name).Params(ctx(), jen.Id(recv).Op("*").Id(t.Name), jen.Id("q").Op("*").Id(e.Type.QueryName())).Params(jen.Op("*").Id(e.Type.Name), jen.Error()).Block(
		append(body,
			jen.List(jen.Id("r"), jen.Err()).Op(":=").Id("c").Dot("engine").Dot("FindFirst").Call(jen.Id("ctx"), jen.Lit(e.Type.Name), jen.Id("eq")),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.Return(jen.Id("new"+e.Type.Name).Call(jen.Id("r")), jen.Nil()),
		)...,
	)
}
