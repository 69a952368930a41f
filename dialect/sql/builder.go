package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/quarry/dialect"
)

// Querier wraps the basic Query method that is implemented
// by the different builders in this file.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// Builder is the base query builder for the sql dsl. All statements of
// one query are rendered into a single Builder so that placeholders of
// nested sub-queries are numbered in order.
type Builder struct {
	sb      strings.Builder
	args    []any
	dialect string
}

// NewBuilder returns a Builder for the given dialect.
func NewBuilder(dialect string) *Builder {
	return &Builder{dialect: normalize(dialect)}
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string {
	return b.dialect
}

// String returns the accumulated string.
func (b *Builder) String() string {
	return b.sb.String()
}

// Query implements the Querier interface.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}

// WriteString writes the given string as-is.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Byte writes the given byte.
func (b *Builder) Byte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Quote quotes the given identifier with the characters based
// on the configured dialect. It defaults to backticks.
func (b *Builder) Quote(ident string) string {
	return quote(b.dialect, ident)
}

func quote(d, ident string) string {
	switch d {
	case dialect.Postgres, dialect.SQLite:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	default:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
}

// Ident appends the given string as an identifier. Expressions that are
// already quoted, qualified with a direction, or function calls are
// written as-is.
func (b *Builder) Ident(s string) *Builder {
	switch {
	case s == "", s == "*":
		b.WriteString(s)
	case isRawExpr(s):
		b.WriteString(s)
	default:
		b.WriteString(b.Quote(s))
	}
	return b
}

func isRawExpr(s string) bool {
	return strings.ContainsAny(s, "\"`( ") || strings.HasSuffix(s, "*")
}

// IdentComma calls Ident on all arguments and adds a comma between them.
func (b *Builder) IdentComma(s ...string) *Builder {
	for i := range s {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(s[i])
	}
	return b
}

// Arg appends an input argument to the builder and writes its placeholder.
func (b *Builder) Arg(a any) *Builder {
	b.args = append(b.args, a)
	if b.dialect == dialect.Postgres {
		b.Byte('$').WriteString(strconv.Itoa(len(b.args)))
	} else {
		b.Byte('?')
	}
	return b
}

// Args appends a list of arguments to the builder, separated by commas.
func (b *Builder) Args(a ...any) *Builder {
	for i := range a {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Arg(a[i])
	}
	return b
}

// Wrap gets a callback, and wraps its result with parentheses.
func (b *Builder) Wrap(f func(*Builder)) *Builder {
	b.Byte('(')
	f(b)
	b.Byte(')')
	return b
}

// Join renders the given querier into the builder.
func (b *Builder) Join(q interface{ writeTo(*Builder) }) *Builder {
	q.writeTo(b)
	return b
}

// DialectBuilder prefixes all root builders with the given dialect.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a new DialectBuilder with the given dialect name.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: normalize(name)}
}

// Select creates a Selector for the configured dialect.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	s := Select(columns...)
	s.dialect = d.dialect
	return s
}

// Insert creates an InsertBuilder for the configured dialect.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	i := Insert(table)
	i.dialect = d.dialect
	return i
}

// Update creates an UpdateBuilder for the configured dialect.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	u := Update(table)
	u.dialect = d.dialect
	return u
}

// Delete creates a DeleteBuilder for the configured dialect.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	del := Delete(table)
	del.dialect = d.dialect
	return del
}

// SelectTable is a table reference in a FROM or JOIN clause.
type SelectTable struct {
	name    string
	as      string
	dialect string
}

// Table returns a new table selector.
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// As adds the AS clause to the table selector.
func (t *SelectTable) As(alias string) *SelectTable {
	t.as = alias
	return t
}

// Name returns the table name.
func (t *SelectTable) Name() string {
	return t.name
}

// Alias returns the name the table is referenced by in the query.
func (t *SelectTable) Alias() string {
	if t.as != "" {
		return t.as
	}
	return t.name
}

// C returns a formatted string for the table column.
func (t *SelectTable) C(column string) string {
	return quote(t.dialect, t.Alias()) + "." + quote(t.dialect, column)
}

func (t *SelectTable) writeTo(b *Builder) {
	b.Ident(t.name)
	if t.as != "" {
		b.WriteString(" AS ").Ident(t.as)
	}
}

type join struct {
	kind  string
	table *SelectTable
	on    *Predicate
}

// Selector is a builder for the `SELECT` statement.
type Selector struct {
	dialect  string
	columns  []string
	distinct bool
	from     *SelectTable
	joins    []join
	where    *Predicate
	order    []string
	limit    *int
	offset   *int
}

// Select returns a new selector for the `SELECT` statement.
func Select(columns ...string) *Selector {
	return &Selector{columns: columns}
}

// Dialect returns the dialect of the selector.
func (s *Selector) Dialect() string {
	return s.dialect
}

// Select changes the columns selection of the SELECT statement.
func (s *Selector) Select(columns ...string) *Selector {
	s.columns = columns
	return s
}

// AppendSelect appends additional columns to the SELECT statement.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	s.columns = append(s.columns, columns...)
	return s
}

// SelectedColumns returns the selected columns in the Selector.
func (s *Selector) SelectedColumns() []string {
	return s.columns
}

// Distinct adds the DISTINCT keyword to the `SELECT` statement.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// From sets the source of `FROM` clause.
func (s *Selector) From(t *SelectTable) *Selector {
	t.dialect = s.dialect
	s.from = t
	return s
}

// Table returns the selected table.
func (s *Selector) Table() *SelectTable {
	return s.from
}

// TableName returns the name of the selected table.
func (s *Selector) TableName() string {
	if s.from == nil {
		return ""
	}
	return s.from.name
}

// C returns a formatted string for a selected column from this statement.
func (s *Selector) C(column string) string {
	if s.from == nil {
		return quote(s.dialect, column)
	}
	return s.from.C(column)
}

// Columns returns a list of formatted strings for a selected columns from this statement.
func (s *Selector) Columns(columns ...string) []string {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, s.C(c))
	}
	return names
}

// Join appends a `JOIN` clause to the statement.
func (s *Selector) Join(t *SelectTable) *Selector {
	return s.join("JOIN", t)
}

// LeftJoin appends a `LEFT JOIN` clause to the statement.
func (s *Selector) LeftJoin(t *SelectTable) *Selector {
	return s.join("LEFT JOIN", t)
}

func (s *Selector) join(kind string, t *SelectTable) *Selector {
	t.dialect = s.dialect
	s.joins = append(s.joins, join{kind: kind, table: t})
	return s
}

// On sets the `ON` clause for the last `JOIN` operation.
func (s *Selector) On(c1, c2 string) *Selector {
	return s.OnP(ColumnsEQ(c1, c2))
}

// OnP sets or appends the given predicate for the `ON` clause of the last `JOIN` operation.
func (s *Selector) OnP(p *Predicate) *Selector {
	if len(s.joins) > 0 {
		j := &s.joins[len(s.joins)-1]
		j.on = And(j.on, p)
	}
	return s
}

// Where sets or appends the given predicate to the statement.
func (s *Selector) Where(p *Predicate) *Selector {
	s.where = And(s.where, p)
	return s
}

// P returns the predicate of a selector.
func (s *Selector) P() *Predicate {
	return s.where
}

// SetP sets explicitly the predicate function for the selector and clear its previous state.
func (s *Selector) SetP(p *Predicate) *Selector {
	s.where = p
	return s
}

// OrderBy appends the `ORDER BY` clause to the `SELECT` statement.
func (s *Selector) OrderBy(columns ...string) *Selector {
	s.order = append(s.order, columns...)
	return s
}

// ClearOrder clears the ORDER BY clause to be empty.
func (s *Selector) ClearOrder() *Selector {
	s.order = nil
	return s
}

// Limit adds the `LIMIT` clause to the `SELECT` statement.
func (s *Selector) Limit(limit int) *Selector {
	s.limit = &limit
	return s
}

// Offset adds the `OFFSET` clause to the `SELECT` statement.
func (s *Selector) Offset(offset int) *Selector {
	s.offset = &offset
	return s
}

// Count sets the Select statement to be a `SELECT COUNT(*)`.
func (s *Selector) Count() *Selector {
	s.columns = []string{"COUNT(*)"}
	return s
}

// Clone returns a duplicate of the selector, including all associated steps.
func (s *Selector) Clone() *Selector {
	c := *s
	c.columns = append([]string(nil), s.columns...)
	c.joins = append([]join(nil), s.joins...)
	c.order = append([]string(nil), s.order...)
	if s.from != nil {
		t := *s.from
		c.from = &t
	}
	return &c
}

// Query returns query representation of a `SELECT` statement.
func (s *Selector) Query() (string, []any) {
	b := NewBuilder(s.dialect)
	s.writeTo(b)
	return b.Query()
}

func (s *Selector) writeTo(b *Builder) {
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.columns) > 0 {
		b.IdentComma(s.columns...)
	} else {
		b.Byte('*')
	}
	if s.from != nil {
		b.WriteString(" FROM ")
		s.from.writeTo(b)
	}
	for _, j := range s.joins {
		b.Byte(' ').WriteString(j.kind).Byte(' ')
		j.table.writeTo(b)
		if j.on != nil {
			b.WriteString(" ON ")
			j.on.render(b, false)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.render(b, false)
	}
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		b.IdentComma(s.order...)
	}
	s.writeLimit(b)
}

func (s *Selector) writeLimit(b *Builder) {
	switch {
	case s.limit != nil:
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*s.limit))
	case s.offset != nil && b.dialect == dialect.MySQL:
		// MySQL does not accept OFFSET without LIMIT.
		b.WriteString(" LIMIT 18446744073709551615")
	case s.offset != nil && b.dialect == dialect.SQLite:
		b.WriteString(" LIMIT -1")
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*s.offset))
	}
}

// Asc adds the ASC suffix for the given column.
func Asc(column string) string {
	return column + " ASC"
}

// Desc adds the DESC suffix for the given column.
func Desc(column string) string {
	return column + " DESC"
}

// InsertBuilder is a builder for `INSERT INTO` statement.
type InsertBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    [][]any
	returning []string
}

// Insert creates a builder for the `INSERT INTO` statement.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Columns sets the columns of the insert statement.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = append(i.columns, columns...)
	return i
}

// Values append a value tuple for the insert statement.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values)
	return i
}

// Returning adds the `RETURNING` clause to the insert statement.
// It is rendered only by dialects that support it (Postgres and SQLite).
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// SupportsReturning reports if the dialect renders the RETURNING clause.
func SupportsReturning(d string) bool {
	d = normalize(d)
	return d == dialect.Postgres || d == dialect.SQLite
}

// Query returns query representation of an `INSERT INTO` statement.
func (i *InsertBuilder) Query() (string, []any) {
	b := NewBuilder(i.dialect)
	b.WriteString("INSERT INTO ").Ident(i.table)
	switch {
	case len(i.columns) == 0 && b.dialect == dialect.MySQL:
		b.WriteString(" () VALUES ()")
	case len(i.columns) == 0:
		b.WriteString(" DEFAULT VALUES")
	default:
		b.WriteString(" (").IdentComma(i.columns...).WriteString(") VALUES ")
		for j, v := range i.values {
			if j > 0 {
				b.WriteString(", ")
			}
			b.Wrap(func(b *Builder) { b.Args(v...) })
		}
	}
	if len(i.returning) > 0 && SupportsReturning(b.dialect) {
		b.WriteString(" RETURNING ").IdentComma(i.returning...)
	}
	return b.Query()
}

type assignment struct {
	column string
	kind   int // 0 set, 1 add, 2 null
	value  any
}

// UpdateBuilder is a builder for `UPDATE` statement.
type UpdateBuilder struct {
	dialect string
	table   string
	sets    []assignment
	where   *Predicate
}

// Update creates a builder for the `UPDATE` statement.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set sets a column to a given value.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, value: v})
	return u
}

// Add adds a numeric value to the given column.
func (u *UpdateBuilder) Add(column string, v any) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, kind: 1, value: v})
	return u
}

// SetNull sets a column as null value.
func (u *UpdateBuilder) SetNull(column string) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, kind: 2})
	return u
}

// Empty reports whether this builder does not contain update changes.
func (u *UpdateBuilder) Empty() bool {
	return len(u.sets) == 0
}

// Where adds a where predicate for update statement.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	u.where = And(u.where, p)
	return u
}

// Query returns query representation of an `UPDATE` statement.
func (u *UpdateBuilder) Query() (string, []any) {
	b := NewBuilder(u.dialect)
	b.WriteString("UPDATE ").Ident(u.table).WriteString(" SET ")
	for i, a := range u.sets {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(a.column).WriteString(" = ")
		switch a.kind {
		case 1:
			b.WriteString("COALESCE(").Ident(a.column).WriteString(", 0) + ").Arg(a.value)
		case 2:
			b.WriteString("NULL")
		default:
			b.Arg(a.value)
		}
	}
	if u.where != nil {
		b.WriteString(" WHERE ")
		u.where.render(b, false)
	}
	return b.Query()
}

// DeleteBuilder is a builder for `DELETE` statement.
type DeleteBuilder struct {
	dialect string
	table   string
	where   *Predicate
}

// Delete creates a builder for the `DELETE` statement.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where appends a where predicate to the `DELETE` statement.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	d.where = And(d.where, p)
	return d
}

// Query returns query representation of a `DELETE` statement.
func (d *DeleteBuilder) Query() (string, []any) {
	b := NewBuilder(d.dialect)
	b.WriteString("DELETE FROM ").Ident(d.table)
	if d.where != nil {
		b.WriteString(" WHERE ")
		d.where.render(b, false)
	}
	return b.Query()
}
