package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/dialect/sql/sqlgraph"
	"github.com/syssam/quarry/schema/field"
	ql "github.com/syssam/quarry/querylanguage"
)

// Create describes the creation of a record and its nested writes.
type Create struct {
	// Data holds the scalar values by field name.
	Data map[string]any
	// Connect links existing records by relation name.
	Connect map[string][]Unique
	// Create creates related records by relation name.
	Create map[string][]*Create
}

func (c *Create) nested() bool {
	return len(c.Connect) > 0 || len(c.Create) > 0
}

// Update describes the update of records and its nested writes.
type Update struct {
	// Set assigns scalar values by field name. A nil value sets NULL.
	Set map[string]any
	// Add increments numeric fields.
	Add map[string]any
	// Connect links existing records by relation name.
	Connect map[string][]Unique
	// Disconnect unlinks records by relation name. For to-one relations
	// the presence of the key unlinks the current record.
	Disconnect map[string][]Unique
	// Create creates related records by relation name.
	Create map[string][]*Create
}

func (u *Update) nested() bool {
	return len(u.Connect) > 0 || len(u.Disconnect) > 0 || len(u.Create) > 0
}

// Create inserts a record with its nested writes and returns it read with
// the selection and includes of q.
func (e *Engine) Create(ctx context.Context, model string, c *Create, q *Query) (*Record, error) {
	m, err := e.model(ctx, model, quarry.OpCreate)
	if err != nil {
		return nil, err
	}
	var rec *Record
	run := func(e *Engine) (err error) {
		rec, err = e.create(ctx, m, c)
		return err
	}
	if c.nested() {
		err = e.withTx(ctx, run)
	} else {
		err = run(e)
	}
	if err != nil {
		return nil, mutationError(model, "create", err)
	}
	return e.reread(ctx, m, rec, q, "create")
}

// CreateMany inserts records without nested writes. Records with the same
// set of fields are inserted by one statement.
func (e *Engine) CreateMany(ctx context.Context, model string, cs []*Create) (int, error) {
	m, err := e.model(ctx, model, quarry.OpCreateMany)
	if err != nil {
		return 0, err
	}
	type group struct {
		columns []string
		rows    [][]any
	}
	var (
		now    = timestamp()
		order  []string
		groups = make(map[string]*group)
	)
	for _, c := range cs {
		if c.nested() {
			return 0, invalid(m.Name, "createMany does not support nested writes")
		}
		values, err := m.values(c.Data)
		if err != nil {
			return 0, err
		}
		m.applyDefaults(values, now)
		if err := m.checkRequired(values); err != nil {
			return 0, err
		}
		columns, args := m.row(values)
		key := strings.Join(columns, ",")
		g, ok := groups[key]
		if !ok {
			g = &group{columns: columns}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, args)
	}
	if len(order) == 0 {
		return 0, nil
	}
	var n int64
	err = e.withTx(ctx, func(e *Engine) error {
		for _, key := range order {
			g := groups[key]
			ins := e.builder().Insert(m.Table).Columns(g.columns...)
			for _, r := range g.rows {
				ins.Values(r...)
			}
			res, err := e.exec(ctx, ins)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			n += affected
		}
		e.touch(ctx, m.Name)
		return nil
	})
	if err != nil {
		return 0, mutationError(model, "createMany", err)
	}
	return int(n), nil
}

// Update updates the record selected by where and returns it read with
// the selection and includes of q.
func (e *Engine) Update(ctx context.Context, model string, where Unique, u *Update, q *Query) (*Record, error) {
	m, err := e.model(ctx, model, quarry.OpUpdate)
	if err != nil {
		return nil, err
	}
	if err := m.checkUnique(where); err != nil {
		return nil, err
	}
	var key Unique
	run := func(e *Engine) (err error) {
		key, err = e.update(ctx, m, where, u)
		return err
	}
	if u.nested() {
		err = e.withTx(ctx, run)
	} else {
		err = run(e)
	}
	if err != nil {
		return nil, mutationError(model, "update", err)
	}
	rec, err := e.findUnique(ctx, m, key, q)
	if err != nil {
		return nil, mutationError(model, "update", err)
	}
	return rec, nil
}

// UpdateMany applies Set and Add to every record matching the predicate
// and returns the number of updated records.
func (e *Engine) UpdateMany(ctx context.Context, model string, where ql.P, u *Update) (int, error) {
	m, err := e.model(ctx, model, quarry.OpUpdateMany)
	if err != nil {
		return 0, err
	}
	if u.nested() {
		return 0, invalid(m.Name, "updateMany does not support nested writes")
	}
	set, err := m.values(u.Set)
	if err != nil {
		return 0, err
	}
	upd, err := e.updateBuilder(m, set, u.Add)
	if err != nil {
		return 0, err
	}
	if upd.Empty() {
		return 0, nil
	}
	pred, err := e.predicate(m, where)
	if err != nil {
		return 0, err
	}
	res, err := e.exec(ctx, upd.Where(pred))
	if err != nil {
		return 0, mutationError(model, "updateMany", err)
	}
	e.touch(ctx, m.Name)
	n, err := res.RowsAffected()
	return int(n), mutationError(model, "updateMany", err)
}

// Upsert updates the record selected by where, or creates it if it does
// not exist. Both steps run in one transaction but are not atomic against
// concurrent inserts of the same key; such a race fails with a
// constraint error.
func (e *Engine) Upsert(ctx context.Context, model string, where Unique, c *Create, u *Update, q *Query) (*Record, error) {
	m, err := e.model(ctx, model, quarry.OpUpsert)
	if err != nil {
		return nil, err
	}
	if err := m.checkUnique(where); err != nil {
		return nil, err
	}
	var key Unique
	err = e.withTx(ctx, func(e *Engine) error {
		_, err := e.lookup(ctx, m, where, m.PrimaryKey)
		switch {
		case quarry.IsNotFound(err):
			rec, err := e.create(ctx, m, c)
			if err != nil {
				return err
			}
			key = m.key(rec)
			return nil
		case err != nil:
			return err
		default:
			key, err = e.update(ctx, m, where, u)
			return err
		}
	})
	if err != nil {
		return nil, mutationError(model, "upsert", err)
	}
	rec, err := e.findUnique(ctx, m, key, q)
	if err != nil {
		return nil, mutationError(model, "upsert", err)
	}
	return rec, nil
}

// Delete deletes the record selected by where and returns it as it was
// before the deletion, read with the selection and includes of q.
func (e *Engine) Delete(ctx context.Context, model string, where Unique, q *Query) (*Record, error) {
	m, err := e.model(ctx, model, quarry.OpDelete)
	if err != nil {
		return nil, err
	}
	if err := m.checkUnique(where); err != nil {
		return nil, err
	}
	rq := &Query{}
	if q != nil {
		rq.Include = q.Include
		if len(q.Select) > 0 {
			rq.Select = append(slices.Clone(q.Select), m.PrimaryKey...)
		}
	}
	var rec *Record
	err = e.withTx(ctx, func(e *Engine) error {
		var err error
		rec, err = e.findUnique(ctx, m, where, rq)
		if err != nil {
			return err
		}
		pred, err := e.predicate(m, m.key(rec).P())
		if err != nil {
			return err
		}
		if _, err := e.exec(ctx, e.builder().Delete(m.Table).Where(pred)); err != nil {
			return err
		}
		e.touch(ctx, m.Name)
		return nil
	})
	if err != nil {
		return nil, mutationError(model, "delete", err)
	}
	if q != nil {
		trim([]*Record{rec}, q.Select)
	}
	return rec, nil
}

// DeleteMany deletes the records matching the predicate and returns their
// number.
func (e *Engine) DeleteMany(ctx context.Context, model string, where ql.P) (int, error) {
	m, err := e.model(ctx, model, quarry.OpDeleteMany)
	if err != nil {
		return 0, err
	}
	pred, err := e.predicate(m, where)
	if err != nil {
		return 0, err
	}
	res, err := e.exec(ctx, e.builder().Delete(m.Table).Where(pred))
	if err != nil {
		return 0, mutationError(model, "deleteMany", err)
	}
	e.touch(ctx, m.Name)
	n, err := res.RowsAffected()
	return int(n), mutationError(model, "deleteMany", err)
}

// reread returns rec read with q. Records are returned as inserted when q
// selects and includes nothing.
func (e *Engine) reread(ctx context.Context, m *Model, rec *Record, q *Query, op string) (*Record, error) {
	if q == nil || (len(q.Select) == 0 && len(q.Include) == 0) {
		return rec, nil
	}
	out, err := e.findUnique(ctx, m, m.key(rec), q)
	if err != nil {
		return nil, mutationError(m.Name, op, err)
	}
	return out, nil
}

func (e *Engine) create(ctx context.Context, m *Model, c *Create) (*Record, error) {
	if err := e.schema.checkWrites(m, c.Connect, c.Create, nil); err != nil {
		return nil, err
	}
	values, err := m.values(c.Data)
	if err != nil {
		return nil, err
	}
	names := relationNames(c.Create, c.Connect)
	for _, name := range names {
		r := m.relations[name]
		if !r.Owner || r.Kind == sqlgraph.M2M {
			continue
		}
		target, err := e.related(ctx, r, c.Connect[name], c.Create[name])
		if err != nil {
			return nil, err
		}
		for i, f := range r.Fields {
			values[f] = target.Values[r.References[i]]
		}
	}
	m.applyDefaults(values, timestamp())
	if err := m.checkRequired(values); err != nil {
		return nil, err
	}
	rec, err := e.insert(ctx, m, values)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		r := m.relations[name]
		if r.Owner && r.Kind != sqlgraph.M2M {
			continue
		}
		if err := e.writeChildren(ctx, m, r, rec, c.Connect[name], c.Create[name], false); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// related creates or looks up the target of an owner side relation.
func (e *Engine) related(ctx context.Context, r *RelationSpec, connect []Unique, create []*Create) (*Record, error) {
	target := e.schema.models[r.Model]
	switch {
	case len(create) > 0:
		return e.create(ctx, target, create[0])
	case len(connect) > 0:
		return e.lookup(ctx, target, connect[0], r.References)
	default:
		return nil, invalid(target.Name, "nested write without a record")
	}
}

// writeChildren runs the nested writes of a relation whose foreign key is
// on the target side or in a join table. With replace, the current target
// of a to-one relation is unlinked first.
func (e *Engine) writeChildren(ctx context.Context, m *Model, r *RelationSpec, parent *Record, connect []Unique, create []*Create, replace bool) error {
	target := e.schema.models[r.Model]
	if r.Kind == sqlgraph.M2M {
		for _, c := range create {
			child, err := e.create(ctx, target, c)
			if err != nil {
				return err
			}
			if err := e.link(ctx, m, r, parent, child); err != nil {
				return err
			}
		}
		for _, u := range connect {
			child, err := e.lookup(ctx, target, u, target.PrimaryKey)
			if err != nil {
				return err
			}
			if err := e.link(ctx, m, r, parent, child); err != nil {
				return err
			}
		}
		return nil
	}
	if replace && !r.List && len(connect)+len(create) > 0 {
		if err := e.detachAll(ctx, r, target, parent); err != nil {
			return err
		}
	}
	for _, c := range create {
		child := &Create{Data: maps.Clone(c.Data), Connect: maps.Clone(c.Connect), Create: maps.Clone(c.Create)}
		if child.Data == nil {
			child.Data = make(map[string]any, len(r.References))
		}
		for i, f := range r.References {
			child.Data[f] = parent.Values[r.Fields[i]]
		}
		if back := r.Back; back != "" {
			delete(child.Connect, back)
			delete(child.Create, back)
		}
		if _, err := e.create(ctx, target, child); err != nil {
			return err
		}
	}
	for _, u := range connect {
		if err := e.attach(ctx, r, target, parent, u); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) update(ctx context.Context, m *Model, where Unique, u *Update) (Unique, error) {
	if err := e.schema.checkWrites(m, u.Connect, u.Create, u.Disconnect); err != nil {
		return nil, err
	}
	cur, err := e.lookup(ctx, m, where, nil)
	if err != nil {
		return nil, err
	}
	set, err := m.values(u.Set)
	if err != nil {
		return nil, err
	}
	names := relationNames(u.Create, u.Connect, u.Disconnect)
	for _, name := range names {
		r := m.relations[name]
		if !r.Owner || r.Kind == sqlgraph.M2M {
			continue
		}
		if _, ok := u.Disconnect[name]; ok && len(u.Connect[name])+len(u.Create[name]) == 0 {
			if !r.Optional {
				return nil, invalid(m.Name+"."+name, "cannot disconnect a required relation")
			}
			for _, f := range r.Fields {
				set[f] = nil
			}
			continue
		}
		target, err := e.related(ctx, r, u.Connect[name], u.Create[name])
		if err != nil {
			return nil, err
		}
		for i, f := range r.Fields {
			set[f] = target.Values[r.References[i]]
		}
	}
	upd, err := e.updateBuilder(m, set, u.Add)
	if err != nil {
		return nil, err
	}
	key := m.key(cur)
	if !upd.Empty() {
		pred, err := e.predicate(m, key.P())
		if err != nil {
			return nil, err
		}
		// The record was read above. MySQL reports unchanged rows as not
		// affected, so the affected count is not an existence check.
		if _, err := e.exec(ctx, upd.Where(pred)); err != nil {
			return nil, err
		}
		e.touch(ctx, m.Name)
		for _, k := range m.PrimaryKey {
			if v, ok := set[k]; ok {
				key[k] = v
			}
		}
	}
	var parent *Record
	for _, name := range names {
		r := m.relations[name]
		if r.Owner && r.Kind != sqlgraph.M2M {
			continue
		}
		if parent == nil {
			if parent, err = e.lookup(ctx, m, key, nil); err != nil {
				return nil, err
			}
		}
		if err := e.disconnect(ctx, m, r, parent, u.Disconnect[name], hasKey(u.Disconnect, name)); err != nil {
			return nil, err
		}
		if err := e.writeChildren(ctx, m, r, parent, u.Connect[name], u.Create[name], true); err != nil {
			return nil, err
		}
	}
	return key, nil
}

func hasKey[V any](m map[string]V, k string) bool {
	_, ok := m[k]
	return ok
}

// updateBuilder returns the UPDATE statement of the assignments. Fields
// marked @updatedAt are set when anything else changes.
func (e *Engine) updateBuilder(m *Model, set, add map[string]any) (*sql.UpdateBuilder, error) {
	upd := e.builder().Update(m.Table)
	add = maps.Clone(add)
	for name, v := range add {
		f := m.fields[name]
		switch {
		case f == nil:
			return nil, invalid(m.Name+"."+name, "unknown field")
		case !f.Type.Numeric():
			return nil, invalid(m.Name+"."+name, "cannot increment a %s field", f.Type)
		case v == nil:
			return nil, invalid(m.Name+"."+name, "increment must not be nil")
		}
		nv, err := normalize(f.Type, v)
		if err != nil {
			return nil, quarry.NewValidationError(m.Name+"."+name, err)
		}
		add[name] = nv
	}
	if len(set)+len(add) == 0 {
		return upd, nil
	}
	now := timestamp()
	for _, f := range m.Fields {
		if f.UpdatedAt && !hasKey(set, f.Name) {
			set[f.Name] = now
		}
	}
	for _, f := range m.Fields {
		if v, ok := set[f.Name]; ok {
			if v == nil {
				upd.SetNull(f.Column)
			} else {
				upd.Set(f.Column, toArg(f, v))
			}
		}
		if v, ok := add[f.Name]; ok {
			upd.Add(f.Column, toArg(f, v))
		}
	}
	return upd, nil
}

// insert inserts the row and reads it back by its primary key.
func (e *Engine) insert(ctx context.Context, m *Model, values map[string]any) (*Record, error) {
	columns, args := m.row(values)
	ins := e.builder().Insert(m.Table).Columns(columns...).Values(args...)
	key := make(Unique, len(m.PrimaryKey))
	if sql.SupportsReturning(e.dialect) {
		pk := make([]*Field, len(m.PrimaryKey))
		for i, k := range m.PrimaryKey {
			pk[i] = m.fields[k]
		}
		ins.Returning(m.Columns(m.PrimaryKey...)...)
		rows, err := e.query(ctx, ins)
		if err != nil {
			return nil, err
		}
		recs, err := scanRecords(rows, pk)
		if err != nil {
			return nil, err
		}
		if len(recs) != 1 {
			return nil, fmt.Errorf("engine: insert into %s returned %d rows", m.Table, len(recs))
		}
		key = m.key(recs[0])
	} else {
		res, err := e.exec(ctx, ins)
		if err != nil {
			return nil, err
		}
		for _, k := range m.PrimaryKey {
			if v, ok := values[k]; ok {
				key[k] = v
				continue
			}
			id, err := res.LastInsertId()
			if err != nil {
				return nil, err
			}
			if key[k], err = normalize(m.fields[k].Type, id); err != nil {
				return nil, err
			}
		}
	}
	e.touch(ctx, m.Name)
	return e.lookup(ctx, m, key, nil)
}

// lookup reads the given fields (all when empty) of the record selected
// by u.
func (e *Engine) lookup(ctx context.Context, m *Model, u Unique, fields []string) (*Record, error) {
	if err := m.checkUnique(u); err != nil {
		return nil, err
	}
	recs, err := e.fetch(ctx, m, &Query{Where: u.P(), Select: fields, Take: quarry.Ptr(1)}, fetchScope{page: true})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, quarry.NewNotFoundErrorWithID(m.Name, u.String())
	}
	return recs[0], nil
}

// link inserts the join table row of a many to many relation.
func (e *Engine) link(ctx context.Context, m *Model, r *RelationSpec, from, to *Record) error {
	target := e.schema.models[r.Model]
	ins := e.builder().Insert(r.JoinTable).
		Columns(r.JoinColumns...).
		Values(from.Values[m.PrimaryKey[0]], to.Values[target.PrimaryKey[0]])
	if _, err := e.exec(ctx, ins); err != nil {
		return err
	}
	e.touch(ctx, m.Name)
	e.touch(ctx, target.Name)
	return nil
}

// disconnect unlinks records of a relation whose foreign key is on the
// target side or in a join table.
func (e *Engine) disconnect(ctx context.Context, m *Model, r *RelationSpec, parent *Record, us []Unique, present bool) error {
	if !present {
		return nil
	}
	target := e.schema.models[r.Model]
	if r.Kind == sqlgraph.M2M {
		for _, u := range us {
			child, err := e.lookup(ctx, target, u, target.PrimaryKey)
			if err != nil {
				return err
			}
			del := e.builder().Delete(r.JoinTable).Where(sql.And(
				sql.EQ(r.JoinColumns[0], parent.Values[m.PrimaryKey[0]]),
				sql.EQ(r.JoinColumns[1], child.Values[target.PrimaryKey[0]]),
			))
			if _, err := e.exec(ctx, del); err != nil {
				return err
			}
		}
		e.touch(ctx, m.Name)
		e.touch(ctx, target.Name)
		return nil
	}
	if !r.List && len(us) == 0 {
		return e.detachAll(ctx, r, target, parent)
	}
	for _, u := range us {
		if err := e.detach(ctx, r, target, parent, u.P()); err != nil {
			return err
		}
	}
	return nil
}

// attach points the foreign key of the target record selected by u to
// the parent.
func (e *Engine) attach(ctx context.Context, r *RelationSpec, target *Model, parent *Record, u Unique) error {
	if err := target.checkUnique(u); err != nil {
		return err
	}
	pred, err := e.predicate(target, u.P())
	if err != nil {
		return err
	}
	upd := e.builder().Update(target.Table)
	for i, f := range r.References {
		upd.Set(target.fields[f].Column, toArg(target.fields[f], parent.Values[r.Fields[i]]))
	}
	res, err := e.exec(ctx, upd.Where(pred))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Connecting a record that already points to the parent changes
		// nothing, which MySQL counts as zero rows.
		if _, err := e.lookup(ctx, target, u, target.PrimaryKey); err != nil {
			return err
		}
	}
	e.touch(ctx, target.Name)
	return nil
}

// detachAll unlinks every target record pointing to the parent.
func (e *Engine) detachAll(ctx context.Context, r *RelationSpec, target *Model, parent *Record) error {
	return e.detach(ctx, r, target, parent, nil)
}

// detach sets the foreign key of target records pointing to the parent,
// and matching p, to NULL.
func (e *Engine) detach(ctx context.Context, r *RelationSpec, target *Model, parent *Record, p ql.P) error {
	refs := make([]ql.P, 0, len(r.References)+1)
	for i, f := range r.References {
		if !target.fields[f].Optional {
			return invalid(target.Name+"."+f, "cannot disconnect a required relation")
		}
		refs = append(refs, ql.FieldEQ(f, parent.Values[r.Fields[i]]))
	}
	if p != nil {
		refs = append(refs, p)
	}
	pred, err := e.predicate(target, ql.And(refs...))
	if err != nil {
		return err
	}
	upd := e.builder().Update(target.Table)
	for _, f := range r.References {
		upd.SetNull(target.fields[f].Column)
	}
	if _, err := e.exec(ctx, upd.Where(pred)); err != nil {
		return err
	}
	e.touch(ctx, target.Name)
	return nil
}

// predicate evaluates p on the table of m for UPDATE and DELETE statements.
func (e *Engine) predicate(m *Model, p ql.P) (*sql.Predicate, error) {
	sel := e.builder().Select()
	sel.From(sql.Table(m.Table))
	if err := e.schema.graph.EvalP(m.Name, p, sel); err != nil {
		return nil, err
	}
	return sel.P(), nil
}

// checkWrites validates the relation names of nested writes.
func (s *Schema) checkWrites(m *Model, connect map[string][]Unique, create map[string][]*Create, disconnect map[string][]Unique) error {
	for _, name := range relationNames(create, connect, disconnect) {
		r := m.relations[name]
		if r == nil {
			return invalid(m.Name+"."+name, "unknown relation")
		}
		if !r.List && len(connect[name])+len(create[name]) > 1 {
			return invalid(m.Name+"."+name, "a to-one relation accepts one nested write")
		}
		if !r.List && len(disconnect[name]) > 0 {
			return invalid(m.Name+"."+name, "to-one relations disconnect without a selector")
		}
	}
	return nil
}

// relationNames returns the relations named by nested writes, sorted.
func relationNames(create map[string][]*Create, selectors ...map[string][]Unique) []string {
	seen := make(map[string]struct{}, len(create))
	for name := range create {
		seen[name] = struct{}{}
	}
	for _, m := range selectors {
		for name := range m {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// values validates and normalizes scalar values.
func (m *Model) values(data map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(data))
	for name, v := range data {
		f := m.fields[name]
		if f == nil {
			return nil, invalid(m.Name+"."+name, "unknown field")
		}
		if v == nil {
			if !f.Optional {
				return nil, invalid(m.Name+"."+name, "value is required")
			}
			values[name] = nil
			continue
		}
		nv, err := normalize(f.Type, v)
		if err != nil {
			return nil, quarry.NewValidationError(m.Name+"."+name, err)
		}
		if f.Type == field.TypeEnum && !slices.Contains(f.Enum, nv.(string)) {
			return nil, invalid(m.Name+"."+name, "%q is not one of %s", nv, strings.Join(f.Enum, ", "))
		}
		values[name] = nv
	}
	return values, nil
}

// applyDefaults sets the values generated on the client side.
func (m *Model) applyDefaults(values map[string]any, now time.Time) {
	for _, f := range m.Fields {
		if _, ok := values[f.Name]; ok {
			continue
		}
		switch {
		case f.Default == DefaultUUID:
			values[f.Name] = uuid.NewString()
		case f.Default == DefaultCUID:
			values[f.Name] = newCUID()
		case f.Default == DefaultNow, f.UpdatedAt:
			values[f.Name] = now
		}
	}
}

// checkRequired reports required fields without a value or a database
// default.
func (m *Model) checkRequired(values map[string]any) error {
	var errs []error
	for _, f := range m.Fields {
		if f.Optional || f.Default.Database() {
			continue
		}
		if _, ok := values[f.Name]; !ok {
			errs = append(errs, invalid(m.Name+"."+f.Name, "value is required"))
		}
	}
	return errors.Join(errs...)
}

// row returns the columns and arguments of the values in field order.
func (m *Model) row(values map[string]any) ([]string, []any) {
	columns := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, f := range m.Fields {
		if v, ok := values[f.Name]; ok {
			columns = append(columns, f.Column)
			args = append(args, toArg(f, v))
		}
	}
	return columns, args
}

// key returns the primary key values of the record.
func (m *Model) key(r *Record) Unique {
	u := make(Unique, len(m.PrimaryKey))
	for _, k := range m.PrimaryKey {
		u[k] = r.Values[k]
	}
	return u
}

// toArg converts a field value into a driver argument.
func toArg(f *Field, v any) any {
	if raw, ok := v.(json.RawMessage); ok && f.Type == field.TypeJSON {
		return string(raw)
	}
	return v
}

// timestamp returns the current time at the precision databases keep.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// newCUID returns a lowercase, time sortable identifier prefixed with "c".
func newCUID() string {
	return "c" + strings.ToLower(ulid.Make().String())
}
