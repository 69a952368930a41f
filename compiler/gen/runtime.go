package gen

import (
	"github.com/syssam/quarry/engine"
	"github.com/syssam/quarry/schema/field"
)

// Runtime returns the engine schema of the graph. The generated client
// embeds the same description as a literal, see Snapshot.
func (g *Graph) Runtime() *engine.Schema {
	s := &engine.Schema{Models: make([]*engine.Model, 0, len(g.Nodes))}
	for _, n := range g.Nodes {
		s.Models = append(s.Models, n.Runtime())
	}
	return s
}

// Runtime returns the engine model of the type.
func (t *Type) Runtime() *engine.Model {
	m := &engine.Model{
		Name:       t.Name,
		Table:      t.Table,
		PrimaryKey: names(t.ID),
	}
	for _, f := range t.Fields {
		m.Fields = append(m.Fields, f.Runtime())
	}
	for _, key := range t.UniqueKeys()[1:] {
		m.Uniques = append(m.Uniques, names(key))
	}
	for _, e := range t.Edges {
		m.Relations = append(m.Relations, e.Runtime())
	}
	return m
}

// Runtime returns the engine field of f.
func (f *Field) Runtime() *engine.Field {
	rf := &engine.Field{
		Name:      f.Name,
		Column:    f.Column,
		Type:      f.Type,
		Optional:  f.Optional,
		UpdatedAt: f.UpdatedAt,
	}
	if f.Enum != nil {
		rf.Enum = f.Enum.Stored()
	}
	if d := f.Default; d != nil {
		rf.Default = d.Kind
		rf.DefaultValue = d.Value
		if f.Type == field.TypeInt && d.Kind == engine.DefaultValue {
			if v, ok := d.Value.(int64); ok {
				rf.DefaultValue = int(v)
			}
		}
	}
	return rf
}

// Runtime returns the engine relation of e.
func (e *Edge) Runtime() *engine.RelationSpec {
	r := &engine.RelationSpec{
		Name:       e.Name,
		Model:      e.Type.Name,
		Kind:       e.Rel.Type.Graph(),
		Owner:      e.FK,
		List:       e.List(),
		Optional:   e.Optional,
		Fields:     e.FieldNames(),
		References: e.ReferenceNames(),
	}
	if e.Ref != nil {
		r.Back = e.Ref.Name
	}
	if e.M2M() {
		r.JoinTable = e.Rel.Table
		r.JoinColumns = e.Rel.Columns
	}
	return r
}
