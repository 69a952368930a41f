package sql

import (
	"strings"

	"github.com/syssam/quarry/dialect"
)

// Predicate is a where predicate. Leaf predicates render a single
// condition; composite predicates join their children with AND or OR.
// Nested composites are wrapped with parentheses.
type Predicate struct {
	op    string
	preds []*Predicate
	fn    func(*Builder)
}

// P creates a new leaf predicate from the given render function.
//
//	P(func(b *Builder) {
//		b.Ident("name").WriteString(" = ").Arg("a8m")
//	})
func P(fn func(*Builder)) *Predicate {
	return &Predicate{fn: fn}
}

// ExprP creates a new predicate from the given raw expression and arguments.
// The expression uses `?` for argument placeholders.
func ExprP(expr string, args ...any) *Predicate {
	return P(func(b *Builder) {
		parts := strings.Split(expr, "?")
		for i, p := range parts {
			b.WriteString(p)
			if i < len(parts)-1 && i < len(args) {
				b.Arg(args[i])
			}
		}
	})
}

// Query returns the query representation of the predicate.
func (p *Predicate) Query() (string, []any) {
	b := NewBuilder("")
	p.render(b, false)
	return b.Query()
}

// QueryDialect returns the query representation of the predicate for the given dialect.
func (p *Predicate) QueryDialect(d string) (string, []any) {
	b := NewBuilder(d)
	p.render(b, false)
	return b.Query()
}

func (p *Predicate) render(b *Builder, nested bool) {
	if p.fn != nil {
		p.fn(b)
		return
	}
	if nested {
		b.Byte('(')
	}
	for i, c := range p.preds {
		if i > 0 {
			b.Byte(' ').WriteString(p.op).Byte(' ')
		}
		c.render(b, true)
	}
	if nested {
		b.Byte(')')
	}
}

func compose(op string, preds []*Predicate) *Predicate {
	ps := make([]*Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			ps = append(ps, p)
		}
	}
	switch len(ps) {
	case 0:
		return nil
	case 1:
		return ps[0]
	default:
		return &Predicate{op: op, preds: ps}
	}
}

// And combines all given predicates with AND between them.
// Nil predicates are skipped.
func And(preds ...*Predicate) *Predicate {
	return compose("AND", preds)
}

// Or combines all given predicates with OR between them.
// Nil predicates are skipped.
func Or(preds ...*Predicate) *Predicate {
	return compose("OR", preds)
}

// Not wraps the given predicate with the NOT operator.
func Not(pred *Predicate) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT (")
		pred.render(b, false)
		b.Byte(')')
	})
}

func binary(col, op string, arg any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).Byte(' ').WriteString(op).Byte(' ').Arg(arg)
	})
}

// EQ returns a "=" predicate. Boolean values are rendered without
// an argument: the column itself, or its negation.
func EQ(col string, value any) *Predicate {
	if v, ok := value.(bool); ok {
		return P(func(b *Builder) {
			if !v {
				b.WriteString("NOT ")
			}
			b.Ident(col)
		})
	}
	return binary(col, "=", value)
}

// NEQ returns a "<>" predicate.
func NEQ(col string, value any) *Predicate {
	return binary(col, "<>", value)
}

// LT returns a "<" predicate.
func LT(col string, value any) *Predicate {
	return binary(col, "<", value)
}

// LTE returns a "<=" predicate.
func LTE(col string, value any) *Predicate {
	return binary(col, "<=", value)
}

// GT returns a ">" predicate.
func GT(col string, value any) *Predicate {
	return binary(col, ">", value)
}

// GTE returns a ">=" predicate.
func GTE(col string, value any) *Predicate {
	return binary(col, ">=", value)
}

// ColumnsOp returns a predicate comparing two columns with the given operator.
func ColumnsOp(col1, op, col2 string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col1).Byte(' ').WriteString(op).Byte(' ').Ident(col2)
	})
}

// ColumnsEQ appends a "=" predicate between 2 columns.
func ColumnsEQ(col1, col2 string) *Predicate {
	return ColumnsOp(col1, "=", col2)
}

// ColumnsNEQ appends a "<>" predicate between 2 columns.
func ColumnsNEQ(col1, col2 string) *Predicate {
	return ColumnsOp(col1, "<>", col2)
}

// IsNull returns the `IS NULL` predicate.
func IsNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NULL")
	})
}

// NotNull returns the `IS NOT NULL` predicate.
func NotNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NOT NULL")
	})
}

// In returns the `IN` predicate. An empty list never matches.
func In(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Ident(col).WriteString(" IN ").Wrap(func(b *Builder) { b.Args(args...) })
	})
}

// NotIn returns the `NOT IN` predicate. An empty list always matches.
func NotIn(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString("TRUE")
			return
		}
		b.Ident(col).WriteString(" NOT IN ").Wrap(func(b *Builder) { b.Args(args...) })
	})
}

// InValues returns a row-value `IN` predicate over one or more columns.
//
//	InValues([]string{"a", "b"}, [][]any{{1, 2}, {3, 4}})
//	// ("a", "b") IN (($1, $2), ($3, $4))
func InValues(columns []string, rows [][]any) *Predicate {
	if len(columns) == 1 {
		args := make([]any, len(rows))
		for i := range rows {
			args[i] = rows[i][0]
		}
		return In(columns[0], args...)
	}
	return P(func(b *Builder) {
		if len(rows) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Wrap(func(b *Builder) { b.IdentComma(columns...) }).WriteString(" IN (")
		for i, r := range rows {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Wrap(func(b *Builder) { b.Args(r...) })
		}
		b.Byte(')')
	})
}

// InSelect returns the `IN` predicate over the result of a sub-query.
// Multiple columns are compared as a row value.
func InSelect(columns []string, s *Selector) *Predicate {
	return P(func(b *Builder) {
		if len(columns) == 1 {
			b.Ident(columns[0])
		} else {
			b.Wrap(func(b *Builder) { b.IdentComma(columns...) })
		}
		b.WriteString(" IN ").Wrap(func(b *Builder) { s.writeTo(b) })
	})
}

// Exists returns the `Exists` predicate.
func Exists(s *Selector) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("EXISTS ").Wrap(func(b *Builder) { s.writeTo(b) })
	})
}

// NotExists returns the `NotExists` predicate.
func NotExists(s *Selector) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT EXISTS ").Wrap(func(b *Builder) { s.writeTo(b) })
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func like(col, pattern string, escaped bool) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" LIKE ").Arg(pattern)
		if escaped && b.dialect == dialect.SQLite {
			b.WriteString(` ESCAPE '\'`)
		}
	})
}

func escape(s string) (string, bool) {
	e := likeEscaper.Replace(s)
	return e, e != s
}

// Like returns the `LIKE` predicate with the given pattern as-is.
func Like(col, pattern string) *Predicate {
	return like(col, pattern, false)
}

// HasPrefix is a helper predicate that checks prefix using the LIKE predicate.
func HasPrefix(col, prefix string) *Predicate {
	e, ok := escape(prefix)
	return like(col, e+"%", ok)
}

// HasSuffix is a helper predicate that checks suffix using the LIKE predicate.
func HasSuffix(col, suffix string) *Predicate {
	e, ok := escape(suffix)
	return like(col, "%"+e, ok)
}

// Contains is a helper predicate that checks substring using the LIKE predicate.
func Contains(col, substr string) *Predicate {
	e, ok := escape(substr)
	return like(col, "%"+e+"%", ok)
}

// ContainsFold is a helper predicate that checks substring using the LIKE
// predicate under case-folding. Postgres uses ILIKE.
func ContainsFold(col, substr string) *Predicate {
	e, ok := escape(substr)
	return P(func(b *Builder) {
		if b.dialect == dialect.Postgres {
			b.Ident(col).WriteString(" ILIKE ").Arg("%" + e + "%")
			return
		}
		b.WriteString("LOWER(").Ident(col).WriteString(") LIKE ").Arg("%" + strings.ToLower(e) + "%")
		if ok && b.dialect == dialect.SQLite {
			b.WriteString(` ESCAPE '\'`)
		}
	})
}

// EqualFold is a helper predicate that applies the "=" predicate with case-folding.
func EqualFold(col, value string) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("LOWER(").Ident(col).WriteString(") = ").Arg(strings.ToLower(value))
	})
}
