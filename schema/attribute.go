package schema

import (
	"strconv"
	"strings"
)

// Attribute is a field attribute (@name) or a block attribute (@@name).
// The name is stored without the @ prefix.
type Attribute struct {
	Name string
	Args []*Arg
	Pos  Pos
}

// Arg returns the argument with the given name. Unnamed arguments
// are matched by their position among the unnamed arguments.
//
//	@relation("Author", fields: [authorId], references: [id])
//	a.Arg("name", 0)   // "Author"
//	a.Arg("fields", -1) // [authorId]
func (a *Attribute) Arg(name string, pos int) Expr {
	i := 0
	for _, arg := range a.Args {
		if arg.Name == name {
			return arg.Value
		}
		if arg.Name == "" {
			if i == pos {
				return arg.Value
			}
			i++
		}
	}
	return nil
}

// Format returns the schema text of the attribute with the given prefix
// ("@" or "@@").
func (a *Attribute) Format(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(a.Name)
	if len(a.Args) > 0 {
		b.WriteString(formatArgs(a.Args))
	}
	return b.String()
}

// Arg is an attribute or function argument.
type Arg struct {
	Name  string
	Value Expr
}

// String returns the schema text of the argument.
func (a *Arg) String() string {
	if a.Name != "" {
		return a.Name + ": " + a.Value.String()
	}
	return a.Value.String()
}

func formatArgs(args []*Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Expr is an attribute argument expression.
type Expr interface {
	String() string
	expr()
}

type (
	// StringExpr is a string literal.
	StringExpr struct{ Value string }
	// NumberExpr is a number literal kept in its source form.
	NumberExpr struct{ Value string }
	// BoolExpr is true or false.
	BoolExpr struct{ Value bool }
	// IdentExpr is a bare identifier: a field reference, an enum value
	// or a referential action.
	IdentExpr struct{ Name string }
	// ArrayExpr is a list of expressions.
	ArrayExpr struct{ Elems []Expr }
	// FuncExpr is a function call such as now() or env("URL").
	FuncExpr struct {
		Name string
		Args []*Arg
	}
)

func (e *StringExpr) String() string { return strconv.Quote(e.Value) }
func (e *NumberExpr) String() string { return e.Value }
func (e *BoolExpr) String() string   { return strconv.FormatBool(e.Value) }
func (e *IdentExpr) String() string  { return e.Name }
func (e *FuncExpr) String() string   { return e.Name + formatArgs(e.Args) }

func (e *ArrayExpr) String() string {
	parts := make([]string, len(e.Elems))
	for i, x := range e.Elems {
		parts[i] = x.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (*StringExpr) expr() {}
func (*NumberExpr) expr() {}
func (*BoolExpr) expr()   {}
func (*IdentExpr) expr()  {}
func (*ArrayExpr) expr()  {}
func (*FuncExpr) expr()   {}

// StringValue returns the value of a string literal expression.
func StringValue(e Expr) (string, bool) {
	s, ok := e.(*StringExpr)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// IntValue returns the value of an integer literal expression.
func IntValue(e Expr) (int, bool) {
	n, ok := e.(*NumberExpr)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(n.Value)
	return v, err == nil
}

// Idents returns the identifiers of an array expression such as [a, b].
// A single identifier is returned as a list of one.
func Idents(e Expr) ([]string, bool) {
	switch e := e.(type) {
	case *IdentExpr:
		return []string{e.Name}, true
	case *ArrayExpr:
		names := make([]string, 0, len(e.Elems))
		for _, x := range e.Elems {
			id, ok := x.(*IdentExpr)
			if !ok {
				return nil, false
			}
			names = append(names, id.Name)
		}
		return names, true
	default:
		return nil, false
	}
}

// NewAttribute is a helper for building attributes programmatically,
// e.g. during introspection.
func NewAttribute(name string, args ...*Arg) *Attribute {
	return &Attribute{Name: name, Args: args}
}

// PosArg returns an unnamed argument.
func PosArg(v Expr) *Arg {
	return &Arg{Value: v}
}

// NamedArg returns a named argument.
func NamedArg(name string, v Expr) *Arg {
	return &Arg{Name: name, Value: v}
}

// IdentList returns an array expression of identifiers.
func IdentList(names ...string) *ArrayExpr {
	elems := make([]Expr, len(names))
	for i, n := range names {
		elems[i] = &IdentExpr{Name: n}
	}
	return &ArrayExpr{Elems: elems}
}
