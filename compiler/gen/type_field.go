package gen

import (
	"fmt"

	"github.com/syssam/quarry/engine"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

type (
	// Field is a scalar or enum field of a model.
	Field struct {
		Name string
		// Column is the @map name of the field, or its name.
		Column string
		Doc    string
		Type   field.Type
		// Enum is set for enum fields.
		Enum *Enum
		// Optional fields are nullable.
		Optional bool
		// Unique is set by @unique.
		Unique bool
		// ID is set for the identifier fields.
		ID bool
		// UpdatedAt fields are set to the current time on every write.
		UpdatedAt bool
		Default   *Default
		Native    *NativeType
		Pos       schema.Pos

		typ *Type
		src *schema.Field
		fk  []*Edge
	}

	// Default is the @default of a field.
	Default struct {
		Kind engine.DefaultKind
		// Value holds the literal of DefaultValue defaults: a bool, an
		// int64, a float64 or a string (decimals, JSON, times and enum
		// values are kept in their stored text form).
		Value any
		// Expr is the SQL expression of dbgenerated defaults.
		Expr string
	}
)

// StructField returns the name of the field in the generated structs.
func (f *Field) StructField() string {
	return exported(f.Name)
}

// Var returns an unexported variable name for the field.
func (f *Field) Var() string {
	return unexported(f.Name)
}

// Owner returns the model of the field.
func (f *Field) Owner() *Type {
	return f.typ
}

// IsEnum reports whether the field is an enum field.
func (f *Field) IsEnum() bool {
	return f.Enum != nil
}

// IsForeignKey reports whether the field is part of a foreign key.
func (f *Field) IsForeignKey() bool {
	return len(f.fk) > 0
}

// HasDefault reports whether the field gets a value when it is not set
// on create.
func (f *Field) HasDefault() bool {
	return f.Default != nil || f.UpdatedAt
}

// RequiredOnCreate reports whether a create input must set the field.
func (f *Field) RequiredOnCreate() bool {
	return !f.Optional && !f.HasDefault()
}

// Numeric reports whether the field can be incremented.
func (f *Field) Numeric() bool {
	return f.Type.Numeric()
}

// Comparable reports whether the field can be ordered.
func (f *Field) Comparable() bool {
	return f.Type.Comparable() || f.Type == field.TypeBool
}

// Sortable reports whether the field can be used in an order by.
func (f *Field) Sortable() bool {
	return f.Type != field.TypeJSON && f.Type != field.TypeBytes
}

// Autoincrement reports whether the value is generated by a sequence.
func (d *Default) Autoincrement() bool {
	return d.Kind == engine.DefaultAutoincrement
}

// String returns the schema form of the default.
func (d *Default) String() string {
	if d.Kind == engine.DefaultDBGenerated {
		return "dbgenerated(" + (&schema.StringExpr{Value: d.Expr}).String() + ")"
	}
	if d.Kind != engine.DefaultValue {
		return d.Kind.String()
	}
	switch v := d.Value.(type) {
	case string:
		return (&schema.StringExpr{Value: v}).String()
	default:
		return fmt.Sprint(v)
	}
}
