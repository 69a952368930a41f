package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/schema/field"
)

// Import paths of the packages the generated code depends on.
const (
	quarryPkg   = "github.com/syssam/quarry"
	enginePkg   = "github.com/syssam/quarry/engine"
	dialectPkg  = "github.com/syssam/quarry/dialect"
	sqlPkg      = "github.com/syssam/quarry/dialect/sql"
	sqlgraphPkg = "github.com/syssam/quarry/dialect/sql/sqlgraph"
	dsnPkg      = "github.com/syssam/quarry/dialect/dsn"
	fieldPkg    = "github.com/syssam/quarry/schema/field"
	qlPkg       = "github.com/syssam/quarry/querylanguage"
	decimalPkg  = "github.com/shopspring/decimal"
)

// baseType returns the Go type of a field value.
func baseType(f *gen.Field) jen.Code {
	if f.IsEnum() {
		return jen.Id(f.Enum.TypeName())
	}
	switch f.Type {
	case field.TypeBool:
		return jen.Bool()
	case field.TypeInt:
		return jen.Int()
	case field.TypeInt64:
		return jen.Int64()
	case field.TypeFloat64:
		return jen.Float64()
	case field.TypeDecimal:
		return jen.Qual(decimalPkg, "Decimal")
	case field.TypeTime:
		return jen.Qual("time", "Time")
	case field.TypeJSON:
		return jen.Qual("encoding/json", "RawMessage")
	case field.TypeBytes:
		return jen.Index().Byte()
	default:
		return jen.String()
	}
}

// storedType returns the Go type the engine keeps for a field value.
// Enum values are kept as strings.
func storedType(f *gen.Field) jen.Code {
	if f.IsEnum() {
		return jen.String()
	}
	return baseType(f)
}

// goType returns the type of the field in the record struct.
func goType(f *gen.Field) jen.Code {
	if f.Optional {
		return jen.Op("*").Add(baseType(f))
	}
	return baseType(f)
}

// ptrType returns the pointer type of a field value.
func ptrType(f *gen.Field) jen.Code {
	return jen.Op("*").Add(baseType(f))
}

// filterType returns the engine filter type of a field for the record
// type m.
func filterType(f *gen.Field, m string) jen.Code {
	var name string
	switch f.Type {
	case field.TypeEnum:
		return jen.Qual(enginePkg, "EnumField").Types(jen.Id(m), jen.Id(f.Enum.TypeName()))
	case field.TypeBool:
		name = "BoolField"
	case field.TypeInt:
		name = "IntField"
	case field.TypeInt64:
		name = "Int64Field"
	case field.TypeFloat64:
		name = "FloatField"
	case field.TypeDecimal:
		name = "DecimalField"
	case field.TypeTime:
		name = "TimeField"
	case field.TypeJSON:
		name = "JSONField"
	case field.TypeBytes:
		name = "BytesField"
	default:
		name = "StringField"
	}
	return jen.Qual(enginePkg, name).Types(jen.Id(m))
}

// newFilter returns the constructor call of a field filter.
func newFilter(f *gen.Field, m string) jen.Code {
	var name string
	switch f.Type {
	case field.TypeEnum:
		return jen.Qual(enginePkg, "NewEnumField").Types(jen.Id(m), jen.Id(f.Enum.TypeName())).Call(jen.Lit(f.Name))
	case field.TypeBool:
		name = "NewBoolField"
	case field.TypeInt:
		name = "NewIntField"
	case field.TypeInt64:
		name = "NewInt64Field"
	case field.TypeFloat64:
		name = "NewFloatField"
	case field.TypeDecimal:
		name = "NewDecimalField"
	case field.TypeTime:
		name = "NewTimeField"
	case field.TypeJSON:
		name = "NewJSONField"
	case field.TypeBytes:
		name = "NewBytesField"
	default:
		name = "NewStringField"
	}
	return jen.Qual(enginePkg, name).Types(jen.Id(m)).Call(jen.Lit(f.Name))
}

// recordValue returns the expression reading f from the record r.
func recordValue(f *gen.Field, r jen.Code) jen.Code {
	switch {
	case f.IsEnum() && f.Optional:
		return jen.Id("enumPtr").Types(jen.Id(f.Enum.TypeName())).Call(
			jen.Qual(enginePkg, "GetPtr").Types(jen.String()).Call(r, jen.Lit(f.Name)),
		)
	case f.IsEnum():
		return jen.Id(f.Enum.TypeName()).Call(
			jen.Qual(enginePkg, "Get").Types(jen.String()).Call(r, jen.Lit(f.Name)),
		)
	case f.Optional:
		return jen.Qual(enginePkg, "GetPtr").Types(baseType(f)).Call(r, jen.Lit(f.Name))
	default:
		return jen.Qual(enginePkg, "Get").Types(baseType(f)).Call(r, jen.Lit(f.Name))
	}
}

// inputValue converts a value of the Go type of f into the form passed
// to the engine. deref dereferences a pointer first.
func inputValue(f *gen.Field, v jen.Code, deref bool) jen.Code {
	if deref {
		v = jen.Op("*").Add(v)
	}
	if f.IsEnum() {
		return jen.String().Call(v)
	}
	return v
}

// createByValue reports whether a create input takes the field by value.
// Foreign key fields are pointers, since the relation may be connected
// instead.
func createByValue(f *gen.Field) bool {
	return f.RequiredOnCreate() && !f.IsForeignKey()
}

// recordsType returns []*T.
func recordsType(t *gen.Type) jen.Code {
	return jen.Index().Op("*").Id(t.Name)
}

// predicateType returns the filter type of the model.
func predicateType(t *gen.Type) jen.Code {
	return jen.Id(t.PredicateName())
}

// jsonTag returns the struct tag of a record field.
func jsonTag(name string, omitempty bool) map[string]string {
	if omitempty {
		return map[string]string{"json": name + ",omitempty"}
	}
	return map[string]string{"json": name}
}

// ctx is the context parameter of every generated operation.
func ctx() jen.Code {
	return jen.Id("ctx").Qual("context", "Context")
}
