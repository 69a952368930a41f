package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/quarry/compiler/gen"
)

// genMutation generates <model>_mutation.go: the create and update inputs
// of a model and their conversion into engine writes.
func genMutation(g *gen.Graph, t *gen.Type, f *jen.File) *jen.File {
	genCreate(t, f)
	genUpdate(t, f)
	return f
}

func uniqueList() *jen.Statement {
	return jen.Index().Qual(enginePkg, "Unique")
}

func createList() *jen.Statement {
	return jen.Index().Op("*").Qual(enginePkg, "Create")
}

func genCreate(t *gen.Type, f *jen.File) {
	name := t.CreateName()
	f.Commentf("%s is the input of a %s create. Fields with a default, optional", name, t.Name)
	f.Comment("fields and foreign keys are pointers; nil leaves them unset.")
	f.Type().Id(name).StructFunc(func(group *jen.Group) {
		for _, fd := range t.MutableFields() {
			if createByValue(fd) {
				group.Id(fd.StructField()).Add(baseType(fd))
			} else {
				group.Id(fd.StructField()).Add(ptrType(fd))
			}
		}
		for _, e := range t.Edges {
			field := e.StructField()
			if e.List() {
				group.Id("Connect" + field).Index().Id(e.Type.WhereUniqueName())
				group.Id("Create" + field).Index().Op("*").Id(e.Type.CreateName())
			} else {
				group.Id("Connect" + field).Op("*").Id(e.Type.WhereUniqueName())
				group.Id("Create" + field).Op("*").Id(e.Type.CreateName())
			}
		}
	})

	f.Func().Params(jen.Id("c").Op("*").Id(name)).Id("create").Params().Op("*").Qual(enginePkg, "Create").BlockFunc(func(group *jen.Group) {
		group.Id("ec").Op(":=").Op("&").Qual(enginePkg, "Create").Values(jen.Dict{
			jen.Id("Data"):    jen.Make(jen.Map(jen.String()).Any()),
			jen.Id("Connect"): jen.Make(jen.Map(jen.String()).Add(uniqueList())),
			jen.Id("Create"):  jen.Make(jen.Map(jen.String()).Add(createList())),
		})
		group.If(jen.Id("c").Op("==").Nil()).Block(jen.Return(jen.Id("ec")))
		for _, fd := range t.MutableFields() {
			key := jen.Id("ec").Dot("Data").Index(jen.Lit(fd.Name))
			value := jen.Id("c").Dot(fd.StructField())
			if createByValue(fd) {
				group.Add(key.Op("=").Add(inputValue(fd, value, false)))
				continue
			}
			group.If(jen.Id("c").Dot(fd.StructField()).Op("!=").Nil()).Block(
				key.Op("=").Add(inputValue(fd, value, true)),
			)
		}
		for _, e := range t.Edges {
			genNestedConnect(group, "c", "ec", "Connect", e)
			genNestedCreate(group, "c", "ec", e)
		}
		group.Return(jen.Id("ec"))
	})
}

// genNestedConnect appends the unique selectors of input field
// <prefix><Edge> to <out>.<prefix>[edge].
func genNestedConnect(group *jen.Group, in, out, prefix string, e *gen.Edge) {
	field := jen.Id(in).Dot(prefix + e.StructField())
	target := jen.Id(out).Dot(prefix).Index(jen.Lit(e.Name))
	if e.List() {
		group.For(jen.List(jen.Id("_"), jen.Id("w")).Op(":=").Range().Add(field)).Block(
			target.Clone().Op("=").Append(target.Clone(), jen.Id("w").Dot("unique").Call()),
		)
		return
	}
	group.If(jen.Id(in).Dot(prefix + e.StructField()).Op("!=").Nil()).Block(
		target.Op("=").Add(uniqueList()).Values(jen.Id(in).Dot(prefix + e.StructField()).Dot("unique").Call()),
	)
}

func genNestedCreate(group *jen.Group, in, out string, e *gen.Edge) {
	field := jen.Id(in).Dot("Create" + e.StructField())
	target := jen.Id(out).Dot("Create").Index(jen.Lit(e.Name))
	if e.List() {
		group.For(jen.List(jen.Id("_"), jen.Id("d")).Op(":=").Range().Add(field)).Block(
			target.Clone().Op("=").Append(target.Clone(), jen.Id("d").Dot("create").Call()),
		)
		return
	}
	group.If(jen.Id(in).Dot("Create" + e.StructField()).Op("!=").Nil()).Block(
		target.Op("=").Add(createList()).Values(jen.Id(in).Dot("Create" + e.StructField()).Dot("create").Call()),
	)
}

func genUpdate(t *gen.Type, f *jen.File) {
	name := t.UpdateName()
	f.Commentf("%s is the input of a %s update. Nil fields are left unchanged.", name, t.Name)
	f.Type().Id(name).StructFunc(func(group *jen.Group) {
		for _, fd := range t.MutableFields() {
			group.Id(fd.StructField()).Add(ptrType(fd))
			if fd.Optional {
				group.Id("Clear" + fd.StructField()).Bool()
			}
			if fd.Numeric() {
				group.Id("Add" + fd.StructField()).Add(ptrType(fd))
			}
		}
		for _, e := range t.Edges {
			field := e.StructField()
			switch {
			case e.List():
				group.Id("Connect" + field).Index().Id(e.Type.WhereUniqueName())
				group.Id("Disconnect" + field).Index().Id(e.Type.WhereUniqueName())
				group.Id("Create" + field).Index().Op("*").Id(e.Type.CreateName())
			default:
				group.Id("Connect" + field).Op("*").Id(e.Type.WhereUniqueName())
				if e.Optional {
					group.Id("Disconnect" + field).Bool()
				}
				group.Id("Create" + field).Op("*").Id(e.Type.CreateName())
			}
		}
	})

	f.Func().Params(jen.Id("u").Op("*").Id(name)).Id("update").Params().Op("*").Qual(enginePkg, "Update").BlockFunc(func(group *jen.Group) {
		group.Id("eu").Op(":=").Op("&").Qual(enginePkg, "Update").Values(jen.Dict{
			jen.Id("Set"):        jen.Make(jen.Map(jen.String()).Any()),
			jen.Id("Add"):        jen.Make(jen.Map(jen.String()).Any()),
			jen.Id("Connect"):    jen.Make(jen.Map(jen.String()).Add(uniqueList())),
			jen.Id("Disconnect"): jen.Make(jen.Map(jen.String()).Add(uniqueList())),
			jen.Id("Create"):     jen.Make(jen.Map(jen.String()).Add(createList())),
		})
		group.If(jen.Id("u").Op("==").Nil()).Block(jen.Return(jen.Id("eu")))
		for _, fd := range t.MutableFields() {
			group.If(jen.Id("u").Dot(fd.StructField()).Op("!=").Nil()).Block(
				jen.Id("eu").Dot("Set").Index(jen.Lit(fd.Name)).Op("=").Add(inputValue(fd, jen.Id("u").Dot(fd.StructField()), true)),
			)
			if fd.Optional {
				group.If(jen.Id("u").Dot("Clear" + fd.StructField())).Block(
					jen.Id("eu").Dot("Set").Index(jen.Lit(fd.Name)).Op("=").Nil(),
				)
			}
			if fd.Numeric() {
				group.If(jen.Id("u").Dot("Add" + fd.StructField()).Op("!=").Nil()).Block(
					jen.Id("eu").Dot("Add").Index(jen.Lit(fd.Name)).Op("=").Op("*").Id("u").Dot("Add" + fd.StructField()),
				)
			}
		}
		for _, e := range t.Edges {
			genNestedConnect(group, "u", "eu", "Connect", e)
			switch {
			case e.List():
				genNestedConnect(group, "u", "eu", "Disconnect", e)
			case e.Optional:
				group.If(jen.Id("u").Dot("Disconnect" + e.StructField())).Block(
					jen.Id("eu").Dot("Disconnect").Index(jen.Lit(e.Name)).Op("=").Nil(),
				)
			}
			genNestedCreate(group, "u", "eu", e)
		}
		group.Return(jen.Id("eu"))
	})
}
