package gen

import (
	"github.com/syssam/quarry/dialect/sql/schema"
	"github.com/syssam/quarry/dialect/sql/sqlgraph"
	qschema "github.com/syssam/quarry/schema"
)

// Rel is a relation type of an edge.
type Rel int

// Relation types.
const (
	Unk Rel = iota // Unknown.
	O2O            // One to one / has one.
	O2M            // One to many / has many.
	M2O            // Many to one (inverse of O2M).
	M2M            // Many to many.
)

var relNames = [...]string{
	Unk: "Unknown",
	O2O: "O2O",
	O2M: "O2M",
	M2O: "M2O",
	M2M: "M2M",
}

// String returns the relation name.
func (r Rel) String() string {
	if r >= Unk && r <= M2M {
		return relNames[r]
	}
	return relNames[Unk]
}

// Graph returns the sqlgraph relation of r.
func (r Rel) Graph() sqlgraph.Rel {
	switch r {
	case O2O:
		return sqlgraph.O2O
	case O2M:
		return sqlgraph.O2M
	case M2O:
		return sqlgraph.M2O
	case M2M:
		return sqlgraph.M2M
	default:
		return sqlgraph.Unk
	}
}

type (
	// Edge is a relation field of a model.
	Edge struct {
		Name string
		Doc  string
		// Type is the related model.
		Type *Type
		// Owner is the model that declares the field.
		Owner *Type
		// Ref is the opposite relation field on Type.
		Ref *Edge
		// Unique is set for to-one relations.
		Unique   bool
		Optional bool
		// RelName is the relation name given in @relation, or the derived
		// "<A>To<B>" name.
		RelName string
		// FK is set on the side that holds the foreign key, i.e. the side
		// that declares @relation(fields: ..., references: ...).
		FK bool
		// Fields are the foreign key fields of Owner on the FK side, or
		// the referenced fields of Owner on the other side.
		Fields []*Field
		// References are the referenced fields of Type on the FK side, or
		// the foreign key fields of Type on the other side.
		References []*Field
		OnDelete   schema.ReferenceOption
		OnUpdate   schema.ReferenceOption
		Rel        Relation
		Pos        qschema.Pos

		attr *relationAttr
	}

	// Relation holds the storage of an edge.
	Relation struct {
		Type Rel
		// Table holds the foreign key or, for M2M, the join table.
		Table string
		// Columns are the foreign key columns, or the join table columns
		// with the column of Owner first.
		Columns []string
		// RefColumns are the referenced columns.
		RefColumns []string
	}
)

// StructField returns the name of the edge in the generated structs.
func (e *Edge) StructField() string {
	return exported(e.Name)
}

// List reports whether the edge holds many records.
func (e *Edge) List() bool {
	return !e.Unique
}

// M2M indicates if this edge is M2M edge.
func (e *Edge) M2M() bool { return e.Rel.Type == M2M }

// M2O indicates if this edge is M2O edge.
func (e *Edge) M2O() bool { return e.Rel.Type == M2O }

// O2M indicates if this edge is O2M edge.
func (e *Edge) O2M() bool { return e.Rel.Type == O2M }

// O2O indicates if this edge is O2O edge.
func (e *Edge) O2O() bool { return e.Rel.Type == O2O }

// SelfRef reports whether the edge relates a model to itself.
func (e *Edge) SelfRef() bool {
	return e.Type == e.Owner
}

// FieldNames returns the names of Fields.
func (e *Edge) FieldNames() []string {
	return names(e.Fields)
}

// ReferenceNames returns the names of References.
func (e *Edge) ReferenceNames() []string {
	return names(e.References)
}

// ForeignKey returns the foreign key constraint name of an FK edge.
func (e *Edge) ForeignKey() string {
	cols := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		cols[i] = f.Column
	}
	return schema.ForeignKeyName(e.Owner.Table, cols...)
}

func names(fs []*Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}
