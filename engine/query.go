package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/dialect/sql/sqlgraph"
	ql "github.com/syssam/quarry/querylanguage"
)

// Order orders the records of a query by a scalar field.
type Order struct {
	Field string
	Desc  bool
}

// String returns the field name with a direction suffix.
func (o Order) String() string {
	if o.Desc {
		return o.Field + " DESC"
	}
	return o.Field + " ASC"
}

// Query describes a read.
type Query struct {
	Where   ql.P
	OrderBy []Order
	// Cursor selects the record the page starts at, by a unique set of
	// fields. The cursor record is part of the page.
	Cursor Unique
	Skip   int
	// Take limits the number of records. A negative value reads backwards
	// from the cursor (or from the end) and keeps the requested order.
	Take *int
	// Select limits the fields of the returned records. Empty selects all.
	Select []string
	// Include loads the named relations. Cursors are not supported in
	// included queries.
	Include map[string]*Query
}

// Unique selects a single record by field values that cover the primary
// key or a unique constraint.
type Unique map[string]any

// Fields returns the field names in lexical order.
func (u Unique) Fields() []string {
	fields := make([]string, 0, len(u))
	for f := range u {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// P returns the predicate matching the unique values.
func (u Unique) P() ql.P {
	ps := make([]ql.P, 0, len(u))
	for _, f := range u.Fields() {
		if v := u[f]; v == nil {
			ps = append(ps, ql.FieldNil(f))
		} else {
			ps = append(ps, ql.FieldEQ(f, v))
		}
	}
	return ql.And(ps...)
}

// String returns a stable representation of the values.
func (u Unique) String() string {
	var b strings.Builder
	for i, f := range u.Fields() {
		if i > 0 {
			b.WriteByte(',')
		}
		v, err := json.Marshal(u[f])
		if err != nil {
			v = []byte(fmt.Sprint(u[f]))
		}
		b.WriteString(f + "=" + string(v))
	}
	return b.String()
}

func invalid(name, format string, args ...any) error {
	return quarry.NewValidationError(name, fmt.Errorf(format, args...))
}

// checkUnique validates that u identifies at most one record of m.
func (m *Model) checkUnique(u Unique) error {
	if len(u) == 0 {
		return quarry.ErrEmptyUnique
	}
	fields := u.Fields()
	for _, f := range fields {
		if m.fields[f] == nil {
			return invalid(m.Name+"."+f, "unknown field")
		}
	}
	if !m.IsUnique(fields) {
		return invalid(m.Name, "fields %s do not cover a unique constraint", strings.Join(fields, ", "))
	}
	return nil
}

// checkQuery validates the field and relation names of a query.
func (s *Schema) checkQuery(m *Model, q *Query, nested bool) error {
	for _, o := range q.OrderBy {
		if m.fields[o.Field] == nil {
			return invalid(m.Name+"."+o.Field, "cannot order by unknown field")
		}
	}
	for _, f := range q.Select {
		if m.fields[f] == nil {
			return invalid(m.Name+"."+f, "cannot select unknown field")
		}
	}
	if q.Skip < 0 {
		return invalid(m.Name, "skip must not be negative")
	}
	if len(q.Cursor) > 0 {
		if nested {
			return invalid(m.Name, "cursor is not supported in included relations")
		}
		if err := m.checkUnique(q.Cursor); err != nil {
			return err
		}
	}
	for name, iq := range q.Include {
		r := m.relations[name]
		if r == nil {
			return invalid(m.Name+"."+name, "cannot include unknown relation")
		}
		if iq == nil {
			continue
		}
		if err := s.checkQuery(s.models[r.Model], iq, true); err != nil {
			return err
		}
	}
	return nil
}

// includeKey renders the include tree for cache keys.
func includeKey(inc map[string]*Query) (string, bool) {
	if len(inc) == 0 {
		return "", true
	}
	names := make([]string, 0, len(inc))
	for name := range inc {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		q := inc[name]
		if q == nil {
			continue
		}
		var parts []string
		if q.Where != nil {
			w := q.Where.String()
			if !cacheable(w) {
				return "", false
			}
			parts = append(parts, w)
		}
		for _, o := range q.OrderBy {
			parts = append(parts, o.String())
		}
		if q.Skip > 0 {
			parts = append(parts, fmt.Sprintf("skip=%d", q.Skip))
		}
		if q.Take != nil {
			parts = append(parts, fmt.Sprintf("take=%d", *q.Take))
		}
		if len(q.Select) > 0 {
			parts = append(parts, "select="+strings.Join(q.Select, "|"))
		}
		nested, ok := includeKey(q.Include)
		if !ok {
			return "", false
		}
		if nested != "" {
			parts = append(parts, nested)
		}
		b.WriteString("{" + strings.Join(parts, ";") + "}")
	}
	return b.String(), true
}

// FindMany returns the records of the model matching the query.
func (e *Engine) FindMany(ctx context.Context, model string, q *Query) ([]*Record, error) {
	m, err := e.model(ctx, model, quarry.OpFindMany)
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = &Query{}
	}
	recs, err := e.findMany(ctx, m, q, "findMany")
	return recs, queryError(model, "findMany", err)
}

// FindUnique returns the record matching the unique values. The query
// only contributes its Select and Include.
func (e *Engine) FindUnique(ctx context.Context, model string, where Unique, q *Query) (*Record, error) {
	m, err := e.model(ctx, model, quarry.OpFindUnique)
	if err != nil {
		return nil, err
	}
	if err := m.checkUnique(where); err != nil {
		return nil, err
	}
	return e.findUnique(ctx, m, where, q)
}

// findUnique reads the record of a write without checking the policy.
func (e *Engine) findUnique(ctx context.Context, m *Model, where Unique, q *Query) (*Record, error) {
	uq := &Query{Where: where.P(), Take: quarry.Ptr(1)}
	if q != nil {
		uq.Select, uq.Include = q.Select, q.Include
	}
	recs, err := e.findMany(ctx, m, uq, "findUnique")
	if err != nil {
		return nil, queryError(m.Name, "findUnique", err)
	}
	if len(recs) == 0 {
		return nil, quarry.NewNotFoundErrorWithID(m.Name, where.String())
	}
	return recs[0], nil
}

// FindFirst returns the first record matching the query.
func (e *Engine) FindFirst(ctx context.Context, model string, q *Query) (*Record, error) {
	m, err := e.model(ctx, model, quarry.OpFindFirst)
	if err != nil {
		return nil, err
	}
	fq := &Query{}
	if q != nil {
		c := *q
		fq = &c
	}
	switch {
	case fq.Take != nil && *fq.Take < 0:
		fq.Take = quarry.Ptr(-1)
	default:
		fq.Take = quarry.Ptr(1)
	}
	recs, err := e.findMany(ctx, m, fq, "findFirst")
	if err != nil {
		return nil, queryError(model, "findFirst", err)
	}
	if len(recs) == 0 {
		return nil, quarry.NewNotFoundError(model)
	}
	return recs[0], nil
}

// Count returns the number of records matching the predicate.
func (e *Engine) Count(ctx context.Context, model string, where ql.P) (int, error) {
	m, err := e.model(ctx, model, quarry.OpCount)
	if err != nil {
		return 0, err
	}
	n, err := e.count(ctx, m, where)
	return n, queryError(model, "count", err)
}

func (e *Engine) count(ctx context.Context, m *Model, where ql.P) (int, error) {
	key, cached := e.cacheKey(m, "count", &Query{Where: where})
	if cached {
		if data, err := e.cfg.cache.Get(ctx, key); err == nil && data != nil {
			var n int
			if err := msgpack.Unmarshal(data, &n); err == nil {
				e.cfg.logger.DebugContext(ctx, "cache hit", "key", key)
				return n, nil
			}
		}
	}
	sel := e.builder().Select()
	sel.From(sql.Table(m.Table))
	if err := e.schema.graph.EvalP(m.Name, where, sel); err != nil {
		return 0, err
	}
	sel.Count()
	rows, err := e.query(ctx, sel)
	if err != nil {
		return 0, err
	}
	n, err := sql.ScanInt64(rows)
	if err != nil {
		return 0, err
	}
	if cached {
		if data, err := msgpack.Marshal(int(n)); err == nil {
			if err := e.cfg.cache.Set(ctx, key, data, e.cfg.cacheTTL); err != nil {
				e.cfg.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
			}
		}
	}
	return int(n), nil
}

func (e *Engine) findMany(ctx context.Context, m *Model, q *Query, op string) ([]*Record, error) {
	if err := e.schema.checkQuery(m, q, false); err != nil {
		return nil, err
	}
	key, cached := e.cacheKey(m, op, q)
	if cached {
		if recs, ok := e.cacheGet(ctx, m, key); ok {
			return recs, nil
		}
	}
	recs, err := e.fetch(ctx, m, q, fetchScope{page: true})
	if err != nil {
		return nil, err
	}
	trim(recs, q.Select)
	if cached {
		e.cacheSet(ctx, key, recs)
	}
	return recs, nil
}

// fetchScope restricts a fetch to the records related to a set of parents.
type fetchScope struct {
	// page applies cursor, skip and take in SQL.
	page bool
	// where is added to the filter of the query.
	where func(*sql.Selector) *sql.Predicate
	// join adds a join to the selector and returns extra selected columns
	// with the fields they are scanned as.
	join func(*sql.Selector) ([]string, []*Field)
	// keep lists fields that are selected in addition to the query selection.
	keep []string
}

// fetch runs the query and loads its includes. Records hold the selected
// fields, the fields required by includes and the fields kept by the scope.
func (e *Engine) fetch(ctx context.Context, m *Model, q *Query, scope fetchScope) ([]*Record, error) {
	sel := e.builder().Select()
	sel.From(sql.Table(m.Table))
	var (
		extraCols   []string
		extraFields []*Field
	)
	if scope.join != nil {
		extraCols, extraFields = scope.join(sel)
	}
	if err := e.schema.graph.EvalP(m.Name, q.Where, sel); err != nil {
		return nil, err
	}
	if scope.where != nil {
		sel.Where(scope.where(sel))
	}
	backwards := scope.page && q.Take != nil && *q.Take < 0
	orders := q.OrderBy
	if len(q.Cursor) > 0 || backwards || (!scope.page && (q.Take != nil || q.Skip > 0)) {
		orders = withTieBreakers(m, orders)
	}
	if scope.page && len(q.Cursor) > 0 {
		p, found, err := e.cursor(ctx, m, sel, q.Cursor, orders, backwards)
		if err != nil {
			return nil, err
		}
		if !found {
			return []*Record{}, nil
		}
		sel.Where(p)
	}
	for _, o := range orders {
		c := sel.C(m.fields[o.Field].Column)
		if o.Desc != backwards {
			sel.OrderBy(sql.Desc(c))
		} else {
			sel.OrderBy(sql.Asc(c))
		}
	}
	if scope.page {
		if q.Skip > 0 {
			sel.Offset(q.Skip)
		}
		if q.Take != nil {
			n := *q.Take
			if n < 0 {
				n = -n
			}
			sel.Limit(n)
		}
	}
	fields := m.selectFields(q, scope.keep)
	columns := make([]string, 0, len(fields)+len(extraCols))
	for _, f := range fields {
		columns = append(columns, sel.C(f.Column))
	}
	sel.Select(append(columns, extraCols...)...)
	rows, err := e.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	recs, err := scanRecords(rows, append(fields, extraFields...))
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []*Record{}
	}
	if backwards {
		slices.Reverse(recs)
	}
	if err := e.include(ctx, m, recs, q.Include); err != nil {
		return nil, err
	}
	return recs, nil
}

// withTieBreakers appends the primary key fields missing from the order.
func withTieBreakers(m *Model, orders []Order) []Order {
	out := slices.Clone(orders)
	for _, k := range m.PrimaryKey {
		if !slices.ContainsFunc(out, func(o Order) bool { return o.Field == k }) {
			out = append(out, Order{Field: k})
		}
	}
	return out
}

// cursor returns the predicate selecting the records at or after the
// cursor record in the given order. It reports false if the cursor record
// does not exist.
func (e *Engine) cursor(ctx context.Context, m *Model, sel *sql.Selector, cur Unique, orders []Order, backwards bool) (*sql.Predicate, bool, error) {
	fields := make([]*Field, len(orders))
	columns := make([]string, len(orders))
	for i, o := range orders {
		fields[i] = m.fields[o.Field]
		columns[i] = fields[i].Column
	}
	lookup := e.builder().Select()
	lookup.From(sql.Table(m.Table))
	if err := e.schema.graph.EvalP(m.Name, cur.P(), lookup); err != nil {
		return nil, false, err
	}
	lookup.Select(lookup.Columns(columns...)...).Limit(1)
	rows, err := e.query(ctx, lookup)
	if err != nil {
		return nil, false, err
	}
	recs, err := scanRecords(rows, fields)
	if err != nil {
		return nil, false, err
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	vals := recs[0].key(names)
	var after func(i int) *sql.Predicate
	after = func(i int) *sql.Predicate {
		col, v := sel.C(columns[i]), vals[i]
		desc := orders[i].Desc != backwards
		if i == len(orders)-1 {
			switch {
			case v == nil:
				return sql.IsNull(col)
			case desc:
				return sql.LTE(col, v)
			default:
				return sql.GTE(col, v)
			}
		}
		if v == nil {
			return sql.And(sql.IsNull(col), after(i+1))
		}
		strict := sql.GT(col, v)
		if desc {
			strict = sql.LT(col, v)
		}
		return sql.Or(strict, sql.And(sql.EQ(col, v), after(i+1)))
	}
	return after(0), true, nil
}

// selectFields returns the fields to read: the selection (or all fields),
// the keys needed by includes and the kept fields.
func (m *Model) selectFields(q *Query, keep []string) []*Field {
	if len(q.Select) == 0 {
		return m.Fields
	}
	want := make(map[string]bool)
	for _, f := range q.Select {
		want[f] = true
	}
	for _, f := range keep {
		want[f] = true
	}
	for name := range q.Include {
		r := m.relations[name]
		if r.Kind == sqlgraph.M2M {
			for _, k := range m.PrimaryKey {
				want[k] = true
			}
			continue
		}
		for _, f := range r.Fields {
			want[f] = true
		}
	}
	fields := make([]*Field, 0, len(want))
	for _, f := range m.Fields {
		if want[f.Name] {
			fields = append(fields, f)
		}
	}
	return fields
}

// trim removes the fields that were read but not selected.
func trim(recs []*Record, selected []string) {
	if len(selected) == 0 {
		return
	}
	for _, r := range recs {
		for name := range r.Values {
			if !slices.Contains(selected, name) {
				delete(r.Values, name)
			}
		}
	}
}
