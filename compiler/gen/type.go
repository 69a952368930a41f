package gen

import (
	"strings"

	"github.com/syssam/quarry/schema"
)

type (
	// Graph holds the nodes/models of the compiled schema, the enums
	// and the configuration of the code generation.
	Graph struct {
		*Config
		// Schema is the source schema of the graph.
		Schema *schema.Schema
		// Datasource is the single datasource block of the schema.
		Datasource *schema.Datasource
		// Storage describes the provider of the datasource.
		Storage *Storage
		// Generators are the generator blocks of the schema.
		Generators []*schema.Generator
		// Nodes are the models in declaration order.
		Nodes []*Type
		// Enums are the enums in declaration order.
		Enums []*Enum

		nodes map[string]*Type
		enums map[string]*Enum
	}

	// Type represents one model of the graph.
	Type struct {
		Name string
		// Table is the @@map name of the model, or its name.
		Table string
		Doc   string
		Pos   schema.Pos
		// Fields holds the scalar and enum fields in declaration order,
		// including the identifier fields.
		Fields []*Field
		// ID holds the identifier fields: one for @id, more for @@id.
		ID []*Field
		// Edges holds the relation fields in declaration order.
		Edges []*Edge
		// Uniques holds the compound @@unique constraints.
		Uniques []*Index
		// Indexes holds the @@index definitions.
		Indexes []*Index

		src    *schema.Model
		fields map[string]*Field
		edges  map[string]*Edge
	}

	// Index is a compound unique constraint, an index or an @@id.
	Index struct {
		// Name is the client name of a compound unique, e.g. "email_tenant".
		Name string
		// Map is the database name of the constraint, if set.
		Map    string
		Fields []*Field
		Unique bool
		Pos    schema.Pos
	}

	// Enum is an enum of the graph.
	Enum struct {
		Name string
		// DBName is the @@map name of the enum.
		DBName string
		Doc    string
		Values []*EnumValue
		Pos    schema.Pos
	}

	// EnumValue is a single value of an enum.
	EnumValue struct {
		Name string
		// Value is the value stored in the database.
		Value string
	}
)

// Type returns the node with the given name, or nil.
func (g *Graph) Type(name string) *Type {
	return g.nodes[name]
}

// Enum returns the enum with the given name, or nil.
func (g *Graph) Enum(name string) *Enum {
	return g.enums[name]
}

// Dialect returns the dialect of the datasource.
func (g *Graph) Dialect() string {
	return g.Storage.Dialect
}

// Generator returns the first generator block with the given provider.
func (g *Graph) Generator(provider string) *schema.Generator {
	for _, gen := range g.Generators {
		if gen.Provider == provider {
			return gen
		}
	}
	return nil
}

// Field returns the scalar field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	return t.fields[name]
}

// Edge returns the relation field with the given name, or nil.
func (t *Type) Edge(name string) *Edge {
	return t.edges[name]
}

// HasCompositeID reports whether the model is identified by @@id.
func (t *Type) HasCompositeID() bool {
	return len(t.ID) > 1
}

// Receiver returns the receiver name of the model methods.
func (t *Type) Receiver() string {
	return receiver(t.Name)
}

// Plural returns the plural name of the model.
func (t *Type) Plural() string {
	return plural(t.Name)
}

// Package returns the unexported name used for model level variables.
func (t *Type) Package() string {
	return unexported(t.Name)
}

// ClientName returns the name of the model client.
func (t *Type) ClientName() string { return t.Name + "Client" }

// QueryName returns the name of the query input.
func (t *Type) QueryName() string { return t.Name + "Query" }

// WhereName returns the name of the predicate fields struct.
func (t *Type) WhereName() string { return t.Name + "Where" }

// WhereUniqueName returns the name of the unique selector.
func (t *Type) WhereUniqueName() string { return t.Name + "WhereUnique" }

// OrderByName returns the name of the order type.
func (t *Type) OrderByName() string { return t.Name + "OrderBy" }

// IncludeName returns the name of the include input.
func (t *Type) IncludeName() string { return t.Name + "Include" }

// FieldName returns the name of the field selection type.
func (t *Type) FieldName() string { return t.Name + "Field" }

// CreateName returns the name of the create input.
func (t *Type) CreateName() string { return t.Name + "Create" }

// UpdateName returns the name of the update input.
func (t *Type) UpdateName() string { return t.Name + "Update" }

// EdgesName returns the name of the loaded relations struct.
func (t *Type) EdgesName() string { return t.Name + "Edges" }

// PredicateName returns the name of the predicate type.
func (t *Type) PredicateName() string { return t.Name + "Predicate" }

// UniqueKeys returns every set of fields that identifies a record: the
// identifier, the @unique fields and the compound uniques.
func (t *Type) UniqueKeys() [][]*Field {
	keys := [][]*Field{t.ID}
	for _, f := range t.Fields {
		if f.Unique && !(len(t.ID) == 1 && t.ID[0] == f) {
			keys = append(keys, []*Field{f})
		}
	}
	for _, u := range t.Uniques {
		keys = append(keys, u.Fields)
	}
	return keys
}

// IsUnique reports whether the given fields match the identifier or one
// of the unique constraints of the model, in any order.
func (t *Type) IsUnique(fields []*Field) bool {
	for _, key := range t.UniqueKeys() {
		if sameFields(key, fields) {
			return true
		}
	}
	return false
}

// CompoundKeys returns the unique keys made of more than one field.
func (t *Type) CompoundKeys() []*Index {
	var keys []*Index
	if t.HasCompositeID() {
		keys = append(keys, &Index{Name: fieldNames(t.ID, "_"), Fields: t.ID, Unique: true})
	}
	for _, u := range t.Uniques {
		if len(u.Fields) > 1 {
			keys = append(keys, u)
		}
	}
	return keys
}

// MutableFields returns the fields that can be set on create, excluding
// autoincrement identifiers.
func (t *Type) MutableFields() []*Field {
	fields := make([]*Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.Default != nil && f.Default.Autoincrement() {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// StructName returns the exported Go name of the compound key.
func (i *Index) StructName() string {
	return exported(i.Name)
}

// Columns returns the column names of the index fields.
func (i *Index) Columns() []string {
	columns := make([]string, len(i.Fields))
	for j, f := range i.Fields {
		columns[j] = f.Column
	}
	return columns
}

// TypeName returns the Go type name of the enum.
func (e *Enum) TypeName() string {
	return exported(e.Name)
}

// StoredName returns the name of the database enum type.
func (e *Enum) StoredName() string {
	if e.DBName != "" {
		return e.DBName
	}
	return e.Name
}

// Stored returns the stored values in declaration order.
func (e *Enum) Stored() []string {
	vs := make([]string, len(e.Values))
	for i, v := range e.Values {
		vs[i] = v.Value
	}
	return vs
}

// Value returns the value with the given name, or nil.
func (e *Enum) Value(name string) *EnumValue {
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Const returns the Go constant name of an enum value, e.g. "RoleAdmin".
func (e *Enum) Const(v *EnumValue) string {
	name := v.Name
	if strings.ToUpper(name) == name {
		name = strings.ToLower(name)
	}
	return e.TypeName() + pascal(name)
}

func sameFields(a, b []*Field) bool {
	if len(a) != len(b) {
		return false
	}
	for _, f := range a {
		found := false
		for _, g := range b {
			if f == g {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func fieldNames(fs []*Field, sep string) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return strings.Join(names, sep)
}
