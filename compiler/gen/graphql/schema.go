package graphql

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/syssam/quarry/compiler/gen"
)

// Document returns the GraphQL schema document of the graph: one object
// type per model, its inputs and order types, the enums, the custom
// scalars and the Query and Mutation types.
func (g *Generator) Document(graph *gen.Graph) *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}
	scalars := make(map[string]bool)
	for _, e := range graph.Enums {
		doc.Definitions = append(doc.Definitions, enumDef(e))
	}
	for _, t := range graph.Nodes {
		for _, f := range t.Fields {
			if s := typeName(f); !f.IsEnum() && !builtin(s) {
				scalars[s] = true
			}
		}
		doc.Definitions = append(doc.Definitions, objectDef(t))
		doc.Definitions = append(doc.Definitions, orderDefs(t)...)
		doc.Definitions = append(doc.Definitions, whereUniqueDefs(t)...)
		if g.Mutations {
			doc.Definitions = append(doc.Definitions, inputDefs(t)...)
		}
	}
	if len(graph.Nodes) > 0 {
		doc.Definitions = append(doc.Definitions, queryDef(graph))
		if g.Mutations {
			doc.Definitions = append(doc.Definitions, mutationDef(graph))
		}
	}
	custom := make([]string, 0, len(scalars))
	for s := range scalars {
		custom = append(custom, s)
	}
	sort.Strings(custom)
	defs := make(ast.DefinitionList, 0, len(custom)+len(doc.Definitions))
	for _, s := range custom {
		defs = append(defs, &ast.Definition{Kind: ast.Scalar, Name: s})
	}
	doc.Definitions = append(defs, doc.Definitions...)
	return doc
}

// SDL formats the schema document of the graph and checks that it is a
// valid GraphQL schema.
func (g *Generator) SDL(graph *gen.Graph) (string, error) {
	var buf bytes.Buffer
	header := graph.Header
	if header == "" {
		header = gen.DefaultHeader
	}
	fmt.Fprintf(&buf, "# %s\n\n", header)
	formatter.NewFormatter(&buf).FormatSchemaDocument(g.Document(graph))
	sdl := buf.String()
	if _, err := gqlparser.LoadSchema(&ast.Source{Name: g.SchemaFile, Input: sdl}); err != nil {
		return "", fmt.Errorf("graphql: invalid schema: %w", err)
	}
	return sdl, nil
}

func enumDef(e *gen.Enum) *ast.Definition {
	d := &ast.Definition{Kind: ast.Enum, Name: e.TypeName(), Description: e.Doc}
	for _, v := range e.Values {
		d.EnumValues = append(d.EnumValues, &ast.EnumValueDefinition{Name: v.Name})
	}
	return d
}

func objectDef(t *gen.Type) *ast.Definition {
	d := &ast.Definition{Kind: ast.Object, Name: t.Name, Description: t.Doc}
	for _, f := range t.Fields {
		d.Fields = append(d.Fields, &ast.FieldDefinition{
			Name:        f.Name,
			Description: f.Doc,
			Type:        fieldType(typeName(f), !f.Optional),
		})
	}
	for _, e := range t.Edges {
		typ := fieldType(e.Type.Name, !e.Optional)
		if e.List() {
			typ = ast.NonNullListType(ast.NonNullNamedType(e.Type.Name, nil), nil)
		}
		d.Fields = append(d.Fields, &ast.FieldDefinition{Name: e.Name, Description: e.Doc, Type: typ})
	}
	return d
}

// orderDefs returns the <Model>OrderField enum and the <Model>Order input.
func orderDefs(t *gen.Type) ast.DefinitionList {
	n := names(t)
	fields := &ast.Definition{Kind: ast.Enum, Name: n.OrderField}
	for _, f := range t.Fields {
		if f.Sortable() {
			fields.EnumValues = append(fields.EnumValues, &ast.EnumValueDefinition{Name: f.Name})
		}
	}
	order := &ast.Definition{
		Kind: ast.InputObject,
		Name: n.Order,
		Fields: ast.FieldList{
			{Name: "field", Type: ast.NonNullNamedType(n.OrderField, nil)},
			{
				Name:         "desc",
				Type:         ast.NonNullNamedType("Boolean", nil),
				DefaultValue: &ast.Value{Kind: ast.BooleanValue, Raw: "false"},
			},
		},
	}
	return ast.DefinitionList{fields, order}
}

// whereUniqueDefs returns the <Model>WhereUniqueInput and the inputs of
// its compound keys.
func whereUniqueDefs(t *gen.Type) ast.DefinitionList {
	var (
		defs  ast.DefinitionList
		where = &ast.Definition{Kind: ast.InputObject, Name: names(t).WhereUnique}
	)
	for _, key := range t.UniqueKeys() {
		if len(key) == 1 {
			where.Fields = append(where.Fields, &ast.FieldDefinition{
				Name: key[0].Name,
				Type: fieldType(typeName(key[0]), false),
			})
		}
	}
	for _, k := range t.CompoundKeys() {
		in := &ast.Definition{Kind: ast.InputObject, Name: keyInput(t, k)}
		for _, f := range k.Fields {
			in.Fields = append(in.Fields, &ast.FieldDefinition{Name: f.Name, Type: fieldType(typeName(f), true)})
		}
		defs = append(defs, in)
		where.Fields = append(where.Fields, &ast.FieldDefinition{
			Name: lowerFirst(k.StructName()),
			Type: ast.NamedType(in.Name, nil),
		})
	}
	return append(ast.DefinitionList{where}, defs...)
}

// inputDefs returns the create and update inputs. Models without
// settable fields have none.
func inputDefs(t *gen.Type) ast.DefinitionList {
	fields := t.MutableFields()
	if len(fields) == 0 {
		return nil
	}
	n := names(t)
	create := &ast.Definition{Kind: ast.InputObject, Name: n.Create}
	update := &ast.Definition{Kind: ast.InputObject, Name: n.Update}
	for _, f := range fields {
		// Foreign keys may be set through the relation on create.
		required := f.RequiredOnCreate() && !f.IsForeignKey()
		create.Fields = append(create.Fields, &ast.FieldDefinition{Name: f.Name, Type: fieldType(typeName(f), required)})
		update.Fields = append(update.Fields, &ast.FieldDefinition{Name: f.Name, Type: fieldType(typeName(f), false)})
	}
	return ast.DefinitionList{create, update}
}

func queryDef(graph *gen.Graph) *ast.Definition {
	d := &ast.Definition{Kind: ast.Object, Name: "Query"}
	for _, t := range graph.Nodes {
		n := names(t)
		d.Fields = append(d.Fields,
			&ast.FieldDefinition{
				Name:      n.Single,
				Arguments: ast.ArgumentDefinitionList{whereArg(n)},
				Type:      ast.NamedType(t.Name, nil),
			},
			&ast.FieldDefinition{
				Name: n.List,
				Arguments: ast.ArgumentDefinitionList{
					{Name: "orderBy", Type: ast.ListType(ast.NonNullNamedType(n.Order, nil), nil)},
					{Name: "skip", Type: ast.NamedType("Int", nil)},
					{Name: "take", Type: ast.NamedType("Int", nil)},
				},
				Type: ast.NonNullListType(ast.NonNullNamedType(t.Name, nil), nil),
			},
		)
	}
	return d
}

func mutationDef(graph *gen.Graph) *ast.Definition {
	d := &ast.Definition{Kind: ast.Object, Name: "Mutation"}
	for _, t := range graph.Nodes {
		n := names(t)
		if len(t.MutableFields()) > 0 {
			d.Fields = append(d.Fields,
				&ast.FieldDefinition{
					Name:      "create" + t.Name,
					Arguments: ast.ArgumentDefinitionList{dataArg(n.Create)},
					Type:      ast.NonNullNamedType(t.Name, nil),
				},
				&ast.FieldDefinition{
					Name:      "update" + t.Name,
					Arguments: ast.ArgumentDefinitionList{whereArg(n), dataArg(n.Update)},
					Type:      ast.NonNullNamedType(t.Name, nil),
				},
			)
		}
		d.Fields = append(d.Fields, &ast.FieldDefinition{
			Name:      "delete" + t.Name,
			Arguments: ast.ArgumentDefinitionList{whereArg(n)},
			Type:      ast.NonNullNamedType(t.Name, nil),
		})
	}
	return d
}

func whereArg(n *Names) *ast.ArgumentDefinition {
	return &ast.ArgumentDefinition{Name: "where", Type: ast.NonNullNamedType(n.WhereUnique, nil)}
}

func dataArg(input string) *ast.ArgumentDefinition {
	return &ast.ArgumentDefinition{Name: "data", Type: ast.NonNullNamedType(input, nil)}
}

func fieldType(name string, nonNull bool) *ast.Type {
	if nonNull {
		return ast.NonNullNamedType(name, nil)
	}
	return ast.NamedType(name, nil)
}
