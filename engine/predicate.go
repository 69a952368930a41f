package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/dialect/sql/sqlgraph"
	ql "github.com/syssam/quarry/querylanguage"
)

// P is a filter over the records of the model M. M is the record type of
// a generated client and only serves to keep filters of different models
// apart at compile time.
type P[M any] struct {
	p ql.P
}

// Where wraps a query language predicate.
func Where[M any](p ql.P) P[M] {
	return P[M]{p: p}
}

// SQL returns a filter that modifies the selector directly. The selector
// is scoped to the table of M.
func SQL[M any](fn func(*sql.Selector)) P[M] {
	return P[M]{p: sqlgraph.WrapFunc(fn)}
}

// Expr returns the query language predicate. A zero P matches everything
// and returns nil.
func (p P[M]) Expr() ql.P {
	return p.p
}

// And returns a filter that matches when all filters match.
func And[M any](ps ...P[M]) P[M] {
	return P[M]{p: ql.And(exprs(ps)...)}
}

// Or returns a filter that matches when any filter matches.
func Or[M any](ps ...P[M]) P[M] {
	return P[M]{p: ql.Or(exprs(ps)...)}
}

// Not negates the filter.
func Not[M any](p P[M]) P[M] {
	if p.p == nil {
		return p
	}
	return P[M]{p: ql.Not(p.p)}
}

// Exprs converts typed filters into query language predicates.
func Exprs[M any](ps []P[M]) []ql.P {
	return exprs(ps)
}

func exprs[M any](ps []P[M]) []ql.P {
	xs := make([]ql.P, 0, len(ps))
	for _, p := range ps {
		if p.p != nil {
			xs = append(xs, p.p)
		}
	}
	return xs
}

type scalar[M any] struct {
	name string
}

// Name returns the field name.
func (f scalar[M]) Name() string { return f.name }

// IsNull matches records where the field is NULL.
func (f scalar[M]) IsNull() P[M] { return P[M]{p: ql.FieldNil(f.name)} }

// NotNull matches records where the field is not NULL.
func (f scalar[M]) NotNull() P[M] { return P[M]{p: ql.FieldNotNil(f.name)} }

type ordered[M, V any] struct {
	scalar[M]
}

// Equals matches records where the field equals v.
func (f ordered[M, V]) Equals(v V) P[M] { return P[M]{p: ql.FieldEQ(f.name, v)} }

// NotEquals matches records where the field does not equal v.
func (f ordered[M, V]) NotEquals(v V) P[M] { return P[M]{p: ql.FieldNEQ(f.name, v)} }

// In matches records where the field is one of vs.
func (f ordered[M, V]) In(vs ...V) P[M] { return P[M]{p: ql.FieldIn(f.name, vs...)} }

// NotIn matches records where the field is none of vs.
func (f ordered[M, V]) NotIn(vs ...V) P[M] { return P[M]{p: ql.FieldNotIn(f.name, vs...)} }

// GT matches records where the field is greater than v.
func (f ordered[M, V]) GT(v V) P[M] { return P[M]{p: ql.FieldGT(f.name, v)} }

// GTE matches records where the field is greater than or equal to v.
func (f ordered[M, V]) GTE(v V) P[M] { return P[M]{p: ql.FieldGTE(f.name, v)} }

// LT matches records where the field is less than v.
func (f ordered[M, V]) LT(v V) P[M] { return P[M]{p: ql.FieldLT(f.name, v)} }

// LTE matches records where the field is less than or equal to v.
func (f ordered[M, V]) LTE(v V) P[M] { return P[M]{p: ql.FieldLTE(f.name, v)} }

type (
	// IntField filters Int fields.
	IntField[M any] struct{ ordered[M, int] }
	// Int64Field filters BigInt fields.
	Int64Field[M any] struct{ ordered[M, int64] }
	// FloatField filters Float fields.
	FloatField[M any] struct{ ordered[M, float64] }
	// DecimalField filters Decimal fields.
	DecimalField[M any] struct{ ordered[M, decimal.Decimal] }
	// TimeField filters DateTime fields.
	TimeField[M any] struct{ ordered[M, time.Time] }
	// StringField filters String fields.
	StringField[M any] struct{ ordered[M, string] }
	// BoolField filters Boolean fields.
	BoolField[M any] struct{ scalar[M] }
	// BytesField filters Bytes fields.
	BytesField[M any] struct{ scalar[M] }
	// JSONField filters Json fields. Only nullness can be tested.
	JSONField[M any] struct{ scalar[M] }
	// EnumField filters enum fields of the enum type E.
	EnumField[M any, E ~string] struct{ scalar[M] }
)

// NewIntField returns the filter of the named Int field.
func NewIntField[M any](name string) IntField[M] {
	return IntField[M]{ordered[M, int]{scalar[M]{name}}}
}

// NewInt64Field returns the filter of the named BigInt field.
func NewInt64Field[M any](name string) Int64Field[M] {
	return Int64Field[M]{ordered[M, int64]{scalar[M]{name}}}
}

// NewFloatField returns the filter of the named Float field.
func NewFloatField[M any](name string) FloatField[M] {
	return FloatField[M]{ordered[M, float64]{scalar[M]{name}}}
}

// NewDecimalField returns the filter of the named Decimal field.
func NewDecimalField[M any](name string) DecimalField[M] {
	return DecimalField[M]{ordered[M, decimal.Decimal]{scalar[M]{name}}}
}

// NewTimeField returns the filter of the named DateTime field.
func NewTimeField[M any](name string) TimeField[M] {
	return TimeField[M]{ordered[M, time.Time]{scalar[M]{name}}}
}

// NewStringField returns the filter of the named String field.
func NewStringField[M any](name string) StringField[M] {
	return StringField[M]{ordered[M, string]{scalar[M]{name}}}
}

// NewBoolField returns the filter of the named Boolean field.
func NewBoolField[M any](name string) BoolField[M] {
	return BoolField[M]{scalar[M]{name}}
}

// NewBytesField returns the filter of the named Bytes field.
func NewBytesField[M any](name string) BytesField[M] {
	return BytesField[M]{scalar[M]{name}}
}

// NewJSONField returns the filter of the named Json field.
func NewJSONField[M any](name string) JSONField[M] {
	return JSONField[M]{scalar[M]{name}}
}

// NewEnumField returns the filter of the named enum field.
func NewEnumField[M any, E ~string](name string) EnumField[M, E] {
	return EnumField[M, E]{scalar[M]{name}}
}

// Contains matches records where the field contains substr.
func (f StringField[M]) Contains(substr string) P[M] {
	return P[M]{p: ql.FieldContains(f.name, substr)}
}

// ContainsFold matches records where the field contains substr, ignoring case.
func (f StringField[M]) ContainsFold(substr string) P[M] {
	return P[M]{p: ql.FieldContainsFold(f.name, substr)}
}

// HasPrefix matches records where the field starts with prefix.
func (f StringField[M]) HasPrefix(prefix string) P[M] {
	return P[M]{p: ql.FieldHasPrefix(f.name, prefix)}
}

// HasSuffix matches records where the field ends with suffix.
func (f StringField[M]) HasSuffix(suffix string) P[M] {
	return P[M]{p: ql.FieldHasSuffix(f.name, suffix)}
}

// EqualFold matches records where the field equals v, ignoring case.
func (f StringField[M]) EqualFold(v string) P[M] {
	return P[M]{p: ql.FieldEqualFold(f.name, v)}
}

// Equals matches records where the field equals v.
func (f BoolField[M]) Equals(v bool) P[M] { return P[M]{p: ql.FieldEQ(f.name, v)} }

// NotEquals matches records where the field does not equal v.
func (f BoolField[M]) NotEquals(v bool) P[M] { return P[M]{p: ql.FieldNEQ(f.name, v)} }

// Equals matches records where the field equals v.
func (f BytesField[M]) Equals(v []byte) P[M] { return P[M]{p: ql.FieldEQ(f.name, v)} }

// NotEquals matches records where the field does not equal v.
func (f BytesField[M]) NotEquals(v []byte) P[M] { return P[M]{p: ql.FieldNEQ(f.name, v)} }

// Equals matches records where the field equals v.
func (f EnumField[M, E]) Equals(v E) P[M] { return P[M]{p: ql.FieldEQ(f.name, string(v))} }

// NotEquals matches records where the field does not equal v.
func (f EnumField[M, E]) NotEquals(v E) P[M] { return P[M]{p: ql.FieldNEQ(f.name, string(v))} }

// In matches records where the field is one of vs.
func (f EnumField[M, E]) In(vs ...E) P[M] { return P[M]{p: ql.FieldIn(f.name, enumStrings(vs)...)} }

// NotIn matches records where the field is none of vs.
func (f EnumField[M, E]) NotIn(vs ...E) P[M] {
	return P[M]{p: ql.FieldNotIn(f.name, enumStrings(vs)...)}
}

func enumStrings[E ~string](vs []E) []string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = string(v)
	}
	return s
}

// Relation filters a to-one relation of M to T.
type Relation[M, T any] struct {
	name string
}

// NewRelation returns the filter of the named to-one relation.
func NewRelation[M, T any](name string) Relation[M, T] {
	return Relation[M, T]{name: name}
}

// Is matches records whose related record exists and matches all filters.
func (r Relation[M, T]) Is(ps ...P[T]) P[M] {
	return P[M]{p: ql.HasEdgeWith(r.name, exprs(ps)...)}
}

// IsNot matches records without a related record matching all filters.
func (r Relation[M, T]) IsNot(ps ...P[T]) P[M] {
	return P[M]{p: ql.Not(ql.HasEdgeWith(r.name, exprs(ps)...))}
}

// Exists matches records that have a related record.
func (r Relation[M, T]) Exists() P[M] {
	return P[M]{p: ql.HasEdge(r.name)}
}

// IsNull matches records that have no related record.
func (r Relation[M, T]) IsNull() P[M] {
	return P[M]{p: ql.Not(ql.HasEdge(r.name))}
}

// ListRelation filters a to-many relation of M to T.
type ListRelation[M, T any] struct {
	name string
}

// NewListRelation returns the filter of the named to-many relation.
func NewListRelation[M, T any](name string) ListRelation[M, T] {
	return ListRelation[M, T]{name: name}
}

// Some matches records with at least one related record matching all filters.
func (r ListRelation[M, T]) Some(ps ...P[T]) P[M] {
	return P[M]{p: ql.HasEdgeWith(r.name, exprs(ps)...)}
}

// None matches records without related records matching all filters.
func (r ListRelation[M, T]) None(ps ...P[T]) P[M] {
	return P[M]{p: ql.Not(ql.HasEdgeWith(r.name, exprs(ps)...))}
}

// Every matches records whose related records all match the filters.
// Records without related records match as well.
func (r ListRelation[M, T]) Every(ps ...P[T]) P[M] {
	all := ql.And(exprs(ps)...)
	if all == nil {
		return P[M]{}
	}
	return P[M]{p: ql.Not(ql.HasEdgeWith(r.name, ql.Not(all)))}
}
