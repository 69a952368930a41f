// Package querylanguage provides an AST for expressing filters over models.
// Predicates are plain values: they can be printed, compared, used as cache
// keys and evaluated into SQL by the sqlgraph package.
package querylanguage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// An Op represents an operator.
type Op int

// Operators.
const (
	OpAnd   Op = iota // logical and.
	OpOr              // logical or.
	OpNot             // logical negation.
	OpEQ              // ==
	OpNEQ             // !=
	OpGT              // >
	OpGTE             // >=
	OpLT              // <
	OpLTE             // <=
	OpIn              // in
	OpNotIn           // not in
)

var ops = [...]string{
	OpAnd:   "&&",
	OpOr:    "||",
	OpNot:   "!",
	OpEQ:    "==",
	OpNEQ:   "!=",
	OpGT:    ">",
	OpGTE:   ">=",
	OpLT:    "<",
	OpLTE:   "<=",
	OpIn:    "in",
	OpNotIn: "not in",
}

// String returns the text representation of an operator.
func (o Op) String() string {
	if o >= 0 && int(o) < len(ops) {
		return ops[o]
	}
	return "Op(" + strconv.Itoa(int(o)) + ")"
}

// A Func represents a function expression.
type Func string

// Functions.
const (
	FuncEqualFold    Func = "equal_fold"    // equals case-insensitive
	FuncContains     Func = "contains"      // containing
	FuncContainsFold Func = "contains_fold" // containing case-insensitive
	FuncHasPrefix    Func = "has_prefix"    // startingWith
	FuncHasSuffix    Func = "has_suffix"    // endingWith
	FuncHasEdge      Func = "has_edge"      // HasEdge
)

type (
	// Expr represents a query expression.
	Expr interface {
		fmt.Stringer
		expr()
	}

	// P represents an expression that returns a boolean value depending on its variables.
	P interface {
		Expr
		Negate() P
	}
)

type (
	// A UnaryExpr represents a unary expression.
	UnaryExpr struct {
		Op Op
		X  Expr
	}

	// A BinaryExpr represents a binary expression.
	BinaryExpr struct {
		Op   Op
		X, Y Expr
	}

	// A NaryExpr represents a n-ary expression.
	NaryExpr struct {
		Op Op
		Xs []Expr
	}

	// A CallExpr represents a function call with its arguments.
	CallExpr struct {
		Func Func
		Args []Expr
	}

	// A Field represents a model field.
	Field struct {
		Name string
	}

	// An Edge represents a relation to another model.
	Edge struct {
		Name string
	}

	// A Value represents an arbitrary value encoded as JSON in the text form.
	Value struct {
		V any
	}
)

// Not returns a predicate that represents the logical negation of the given predicate.
func Not(x P) P {
	return &UnaryExpr{Op: OpNot, X: x}
}

// And returns a composed predicate that represents the logical AND predicate.
// Nil predicates are skipped; And of nothing returns nil.
func And(ps ...P) P {
	return join(OpAnd, ps)
}

// Or returns a composed predicate that represents the logical OR predicate.
// Nil predicates are skipped; Or of nothing returns nil.
func Or(ps ...P) P {
	return join(OpOr, ps)
}

func join(op Op, ps []P) P {
	xs := make([]Expr, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			xs = append(xs, p)
		}
	}
	switch len(xs) {
	case 0:
		return nil
	case 1:
		return xs[0].(P)
	case 2:
		return &BinaryExpr{Op: op, X: xs[0], Y: xs[1]}
	default:
		return &NaryExpr{Op: op, Xs: xs}
	}
}

// F returns a field expression for the given name.
func F(name string) *Field {
	return &Field{Name: name}
}

// EQ returns a predicate to check if the expressions are equal.
func EQ(x, y Expr) P {
	return &BinaryExpr{Op: OpEQ, X: x, Y: y}
}

// NEQ returns a predicate to check if the expressions are not equal.
func NEQ(x, y Expr) P {
	return &BinaryExpr{Op: OpNEQ, X: x, Y: y}
}

// GT returns a predicate to check if the expression x > than expression y.
func GT(x, y Expr) P {
	return &BinaryExpr{Op: OpGT, X: x, Y: y}
}

// GTE returns a predicate to check if the expression x >= than expression y.
func GTE(x, y Expr) P {
	return &BinaryExpr{Op: OpGTE, X: x, Y: y}
}

// LT returns a predicate to check if the expression x < than expression y.
func LT(x, y Expr) P {
	return &BinaryExpr{Op: OpLT, X: x, Y: y}
}

// LTE returns a predicate to check if the expression x <= than expression y.
func LTE(x, y Expr) P {
	return &BinaryExpr{Op: OpLTE, X: x, Y: y}
}

// FieldEQ returns a predicate to check if a field is equivalent to a given value.
func FieldEQ(name string, v any) P {
	return &BinaryExpr{Op: OpEQ, X: &Field{Name: name}, Y: &Value{V: v}}
}

// FieldNEQ returns a predicate to check if a field is not equivalent to a given value.
func FieldNEQ(name string, v any) P {
	return &BinaryExpr{Op: OpNEQ, X: &Field{Name: name}, Y: &Value{V: v}}
}

// FieldGT returns a predicate to check if a field is > than the given value.
func FieldGT(name string, v any) P {
	return &BinaryExpr{Op: OpGT, X: &Field{Name: name}, Y: &Value{V: v}}
}

// FieldGTE returns a predicate to check if a field is >= than the given value.
func FieldGTE(name string, v any) P {
	return &BinaryExpr{Op: OpGTE, X: &Field{Name: name}, Y: &Value{V: v}}
}

// FieldLT returns a predicate to check if a field is < than the given value.
func FieldLT(name string, v any) P {
	return &BinaryExpr{Op: OpLT, X: &Field{Name: name}, Y: &Value{V: v}}
}

// FieldLTE returns a predicate to check if a field is <= than the given value.
func FieldLTE(name string, v any) P {
	return &BinaryExpr{Op: OpLTE, X: &Field{Name: name}, Y: &Value{V: v}}
}

// FieldIn returns a predicate to check if the field value matches any value in the given list.
func FieldIn[T any](name string, vs ...T) P {
	return &BinaryExpr{Op: OpIn, X: &Field{Name: name}, Y: &Value{V: vs}}
}

// FieldNotIn returns a predicate to check if the field value doesn't match any value in the given list.
func FieldNotIn[T any](name string, vs ...T) P {
	return &BinaryExpr{Op: OpNotIn, X: &Field{Name: name}, Y: &Value{V: vs}}
}

// FieldNil returns a predicate to check if a field is nil (null in databases).
func FieldNil(name string) P {
	return &BinaryExpr{Op: OpEQ, X: &Field{Name: name}, Y: (*Value)(nil)}
}

// FieldNotNil returns a predicate to check if a field is not nil (not null in databases).
func FieldNotNil(name string) P {
	return &BinaryExpr{Op: OpNEQ, X: &Field{Name: name}, Y: (*Value)(nil)}
}

// FieldContains returns a predicate to check if the field value contains a substr.
func FieldContains(name, substr string) P {
	return &CallExpr{Func: FuncContains, Args: []Expr{&Field{Name: name}, &Value{V: substr}}}
}

// FieldContainsFold returns a predicate to check if the field value contains a substr under case-folding.
func FieldContainsFold(name, substr string) P {
	return &CallExpr{Func: FuncContainsFold, Args: []Expr{&Field{Name: name}, &Value{V: substr}}}
}

// FieldEqualFold returns a predicate to check if the field is equal to the given string under case-folding.
func FieldEqualFold(name, v string) P {
	return &CallExpr{Func: FuncEqualFold, Args: []Expr{&Field{Name: name}, &Value{V: v}}}
}

// FieldHasPrefix returns a predicate to check if the field starts with the given prefix.
func FieldHasPrefix(name, prefix string) P {
	return &CallExpr{Func: FuncHasPrefix, Args: []Expr{&Field{Name: name}, &Value{V: prefix}}}
}

// FieldHasSuffix returns a predicate to check if the field ends with the given suffix.
func FieldHasSuffix(name, suffix string) P {
	return &CallExpr{Func: FuncHasSuffix, Args: []Expr{&Field{Name: name}, &Value{V: suffix}}}
}

// HasEdge returns a predicate to check if a record has at least one related record.
func HasEdge(name string) P {
	return &CallExpr{Func: FuncHasEdge, Args: []Expr{&Edge{Name: name}}}
}

// HasEdgeWith returns a predicate to check if a record has a related record
// that matches all given predicates.
func HasEdgeWith(name string, ps ...P) P {
	args := make([]Expr, 0, len(ps)+1)
	args = append(args, &Edge{Name: name})
	for _, p := range ps {
		if p != nil {
			args = append(args, p)
		}
	}
	return &CallExpr{Func: FuncHasEdge, Args: args}
}

// Negate negates the predicate.
func (e *BinaryExpr) Negate() P {
	return Not(e)
}

// Negate negates the predicate.
func (e *NaryExpr) Negate() P {
	return Not(e)
}

// Negate negates the predicate.
func (e *CallExpr) Negate() P {
	return Not(e)
}

// Negate negates the predicate.
func (e *UnaryExpr) Negate() P {
	return Not(e)
}

// String implements the fmt.Stringer interface.
func (e *UnaryExpr) String() string {
	return fmt.Sprintf("%s(%s)", e.Op, e.X)
}

// String implements the fmt.Stringer interface.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.X, e.Op, e.Y)
}

// String implements the fmt.Stringer interface.
func (e *NaryExpr) String() string {
	var s strings.Builder
	s.WriteByte('(')
	for i, x := range e.Xs {
		if i > 0 {
			s.WriteByte(' ')
			s.WriteString(e.Op.String())
			s.WriteByte(' ')
		}
		s.WriteString(x.String())
	}
	s.WriteByte(')')
	return s.String()
}

// String implements the fmt.Stringer interface.
func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Func, strings.Join(args, ", "))
}

// String implements the fmt.Stringer interface.
func (f *Field) String() string {
	return f.Name
}

// String implements the fmt.Stringer interface.
func (e *Edge) String() string {
	return e.Name
}

// String implements the fmt.Stringer interface.
func (v *Value) String() string {
	if v == nil {
		return "nil"
	}
	buf, err := json.Marshal(v.V)
	if err != nil {
		return fmt.Sprint(v.V)
	}
	return string(buf)
}

func (*UnaryExpr) expr()  {}
func (*BinaryExpr) expr() {}
func (*NaryExpr) expr()   {}
func (*CallExpr) expr()   {}
func (*Field) expr()      {}
func (*Edge) expr()       {}
func (*Value) expr()      {}
