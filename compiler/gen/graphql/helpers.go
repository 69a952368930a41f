package graphql

import (
	"strings"
	"unicode"

	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/schema/field"
)

// Names holds the names of the GraphQL types generated for a model.
type Names struct {
	Node        string
	Order       string
	OrderField  string
	WhereUnique string
	Create      string
	Update      string
	// Single and List are the fields of the model on the Query type.
	Single string
	List   string
}

// names returns the GraphQL names of the types generated for t.
func names(t *gen.Type) *Names {
	n := &Names{
		Node:        t.Name,
		Order:       t.Name + "Order",
		OrderField:  t.Name + "OrderField",
		WhereUnique: t.Name + "WhereUniqueInput",
		Create:      t.Name + "CreateInput",
		Update:      t.Name + "UpdateInput",
		Single:      lowerFirst(t.Name),
		List:        lowerFirst(t.Plural()),
	}
	return n
}

// keyInput returns the input type name of a compound unique key.
func keyInput(t *gen.Type, k *gen.Index) string {
	return t.Name + k.StructName() + "Input"
}

// scalarNames maps field types to GraphQL scalars. The builtin scalars
// are not declared in the generated schema.
var scalarNames = map[field.Type]string{
	field.TypeString:  "String",
	field.TypeBool:    "Boolean",
	field.TypeInt:     "Int",
	field.TypeFloat64: "Float",
	field.TypeInt64:   "BigInt",
	field.TypeDecimal: "Decimal",
	field.TypeTime:    "Time",
	field.TypeJSON:    "JSON",
	field.TypeBytes:   "Bytes",
}

// scalarModels binds the custom scalars that gqlgen implements. Decimal,
// JSON and Bytes need user provided marshalers.
var scalarModels = map[string]string{
	"BigInt": "github.com/99designs/gqlgen/graphql.Int64",
	"Time":   "github.com/99designs/gqlgen/graphql.Time",
}

func builtin(scalar string) bool {
	switch scalar {
	case "String", "Boolean", "Int", "Float", "ID":
		return true
	}
	return false
}

// typeName returns the GraphQL type name of a field.
func typeName(f *gen.Field) string {
	if f.IsEnum() {
		return f.Enum.TypeName()
	}
	return scalarNames[f.Type]
}

// lowerFirst lower-cases the leading word of a Go identifier, keeping
// initialisms together (HTTPLog -> httpLog, ID -> id).
func lowerFirst(s string) string {
	r := []rune(s)
	i := 0
	for i < len(r) && unicode.IsUpper(r[i]) {
		i++
	}
	switch {
	case i == 0:
		return s
	case i > 1 && i < len(r):
		i--
	}
	return strings.ToLower(string(r[:i])) + string(r[i:])
}
