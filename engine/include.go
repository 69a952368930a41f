package engine

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/dialect/sql/sqlgraph"
)

// parentKey is the pseudo field carrying the parent key of records loaded
// through a join table.
const parentKey = "\x00parent"

// include loads the relations of recs. Each relation costs one query per
// level, whatever the number of parents.
func (e *Engine) include(ctx context.Context, m *Model, recs []*Record, inc map[string]*Query) error {
	if len(inc) == 0 || len(recs) == 0 {
		return nil
	}
	names := make([]string, 0, len(inc))
	for name := range inc {
		names = append(names, name)
	}
	sort.Strings(names)
	groups := make([][][]*Record, len(names))
	load := func(ctx context.Context, i int) error {
		q := inc[names[i]]
		if q == nil {
			q = &Query{}
		}
		g, err := e.loadRelation(ctx, m, m.relations[names[i]], recs, q)
		if err != nil {
			return fmt.Errorf("include %s.%s: %w", m.Name, names[i], err)
		}
		groups[i] = g
		return nil
	}
	if e.tx != nil || e.cfg.workers < 1 || len(names) == 1 {
		for i := range names {
			if err := load(ctx, i); err != nil {
				return err
			}
		}
	} else {
		eg, gctx := errgroup.WithContext(ctx)
		eg.SetLimit(e.cfg.workers)
		for i := range names {
			eg.Go(func() error { return load(gctx, i) })
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	for i, name := range names {
		for j, r := range recs {
			r.setEdge(name, groups[i][j])
		}
	}
	return nil
}

// loadRelation returns the related records of every parent, in the order
// of recs.
func (e *Engine) loadRelation(ctx context.Context, m *Model, r *RelationSpec, recs []*Record, q *Query) ([][]*Record, error) {
	target := e.schema.models[r.Model]
	out := make([][]*Record, len(recs))
	if r.Kind == sqlgraph.M2M {
		return out, e.loadJoined(ctx, m, r, target, recs, q, out)
	}
	var (
		keys  [][]any
		index = make(map[string][]int)
	)
	for i, rec := range recs {
		k := rec.key(r.Fields)
		if hasNil(k) {
			continue
		}
		ks := keyString(k)
		if _, ok := index[ks]; !ok {
			keys = append(keys, k)
		}
		index[ks] = append(index[ks], i)
	}
	if len(keys) == 0 {
		return out, nil
	}
	refColumns := target.Columns(r.References...)
	var children []*Record
	for chunk := range slices.Chunk(keys, max(1, e.cfg.batch/len(refColumns))) {
		recs, err := e.fetch(ctx, target, q, fetchScope{
			keep: r.References,
			where: func(sel *sql.Selector) *sql.Predicate {
				return sql.InValues(sel.Columns(refColumns...), chunk)
			},
		})
		if err != nil {
			return nil, err
		}
		children = append(children, recs...)
	}
	for _, c := range children {
		for _, i := range index[keyString(c.key(r.References))] {
			out[i] = append(out[i], c)
		}
	}
	paginate(out, q)
	for _, g := range out {
		trim(g, q.Select)
	}
	return out, nil
}

// loadJoined loads a many to many relation through its join table.
func (e *Engine) loadJoined(ctx context.Context, m *Model, r *RelationSpec, target *Model, recs []*Record, q *Query, out [][]*Record) error {
	pk := m.PrimaryKey[0]
	var (
		keys  []any
		index = make(map[string][]int)
	)
	for i, rec := range recs {
		v := rec.Values[pk]
		if v == nil {
			continue
		}
		ks := keyString([]any{v})
		if _, ok := index[ks]; !ok {
			keys = append(keys, v)
		}
		index[ks] = append(index[ks], i)
	}
	if len(keys) == 0 {
		return nil
	}
	jt := sql.Table(r.JoinTable)
	var children []*Record
	for chunk := range slices.Chunk(keys, e.cfg.batch) {
		recs, err := e.fetch(ctx, target, q, fetchScope{
			join: func(sel *sql.Selector) ([]string, []*Field) {
				sel.Join(jt).On(jt.C(r.JoinColumns[1]), sel.C(target.fields[target.PrimaryKey[0]].Column))
				f := *m.fields[pk]
				f.Name = parentKey
				return []string{jt.C(r.JoinColumns[0])}, []*Field{&f}
			},
			where: func(*sql.Selector) *sql.Predicate {
				return sql.In(jt.C(r.JoinColumns[0]), chunk...)
			},
		})
		if err != nil {
			return err
		}
		children = append(children, recs...)
	}
	for _, c := range children {
		owner := c.Values[parentKey]
		delete(c.Values, parentKey)
		for _, i := range index[keyString([]any{owner})] {
			out[i] = append(out[i], c)
		}
	}
	paginate(out, q)
	for _, g := range out {
		trim(g, q.Select)
	}
	return nil
}

// paginate applies skip and take to every group. With a negative take
// both count from the end of the group.
func paginate(groups [][]*Record, q *Query) {
	backwards := q.Take != nil && *q.Take < 0
	for i, g := range groups {
		skip := min(q.Skip, len(g))
		if backwards {
			g = g[:len(g)-skip]
		} else {
			g = g[skip:]
		}
		if q.Take != nil {
			n := *q.Take
			switch {
			case n >= 0 && n < len(g):
				g = g[:n]
			case n < 0 && -n < len(g):
				g = g[len(g)+n:]
			}
		}
		groups[i] = g
	}
}

func hasNil(vs []any) bool {
	for _, v := range vs {
		if v == nil {
			return true
		}
	}
	return false
}

// keyString renders key values for grouping. Values of one key field share
// the Go type of the field on both sides of a relation.
func keyString(vs []any) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%T:%v", v, v)
	}
	return strings.Join(parts, "\x00")
}
