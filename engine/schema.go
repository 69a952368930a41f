package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/syssam/quarry/dialect/sql/sqlgraph"
	"github.com/syssam/quarry/schema/field"
)

// DefaultKind describes how the value of a field is generated when a
// create input leaves it unset.
type DefaultKind uint8

// Default kinds.
const (
	NoDefault            DefaultKind = iota
	DefaultValue                     // a literal stored as the column default
	DefaultAutoincrement             // generated by the database sequence
	DefaultNow                       // current time, set by the engine
	DefaultUUID                      // random UUID, set by the engine
	DefaultCUID                      // collision resistant sortable id, set by the engine
	DefaultDBGenerated               // arbitrary database expression
)

// String returns the schema function name of the default.
func (k DefaultKind) String() string {
	switch k {
	case DefaultValue:
		return "value"
	case DefaultAutoincrement:
		return "autoincrement()"
	case DefaultNow:
		return "now()"
	case DefaultUUID:
		return "uuid()"
	case DefaultCUID:
		return "cuid()"
	case DefaultDBGenerated:
		return "dbgenerated()"
	default:
		return "none"
	}
}

// Database reports whether the value is produced by the database.
func (k DefaultKind) Database() bool {
	return k == DefaultValue || k == DefaultAutoincrement || k == DefaultDBGenerated
}

type (
	// Schema is the runtime description of the models a generated client
	// works with. Generated packages embed it as a literal.
	Schema struct {
		Models []*Model

		models     map[string]*Model
		graph      *sqlgraph.Schema
		components map[string][]string
	}

	// Model describes a table and its relations.
	Model struct {
		Name       string
		Table      string
		Fields     []*Field
		PrimaryKey []string
		// Uniques lists the unique constraints other than the primary key.
		Uniques   [][]string
		Relations []*RelationSpec

		fields    map[string]*Field
		relations map[string]*RelationSpec
	}

	// Field describes a scalar column.
	Field struct {
		Name         string
		Column       string
		Type         field.Type
		Optional     bool
		Default      DefaultKind
		DefaultValue any
		UpdatedAt    bool
		// Enum holds the stored values of enum fields.
		Enum []string
	}

	// RelationSpec describes a relation field.
	//
	// For the side that holds the foreign key (Owner), Fields are the
	// foreign key fields and References the referenced fields on the
	// target. For the other side, Fields are the referenced fields of this
	// model and References the foreign key fields on the target. Many to
	// many relations reference the primary keys through JoinTable, whose
	// JoinColumns reference this model first and the target second.
	RelationSpec struct {
		Name        string
		Model       string
		Kind        sqlgraph.Rel
		Owner       bool
		List        bool
		Optional    bool
		Fields      []string
		References  []string
		JoinTable   string
		JoinColumns []string
		Back        string
	}
)

// Init indexes the schema and builds the graph used to evaluate filters.
// It must be called before the schema is used, and it is safe to call
// more than once.
func (s *Schema) Init() error {
	if s.graph != nil {
		return nil
	}
	s.models = make(map[string]*Model, len(s.Models))
	for _, m := range s.Models {
		if _, ok := s.models[m.Name]; ok {
			return fmt.Errorf("engine: duplicate model %q", m.Name)
		}
		s.models[m.Name] = m
		m.fields = make(map[string]*Field, len(m.Fields))
		for _, f := range m.Fields {
			m.fields[f.Name] = f
		}
		m.relations = make(map[string]*RelationSpec, len(m.Relations))
		for _, r := range m.Relations {
			m.relations[r.Name] = r
		}
		if len(m.PrimaryKey) == 0 {
			return fmt.Errorf("engine: model %q has no primary key", m.Name)
		}
		for _, name := range m.PrimaryKey {
			if m.fields[name] == nil {
				return fmt.Errorf("engine: primary key field %q of model %q does not exist", name, m.Name)
			}
		}
	}
	g := &sqlgraph.Schema{}
	for _, m := range s.Models {
		g.Nodes = append(g.Nodes, m.node())
	}
	for _, m := range s.Models {
		for _, r := range m.Relations {
			target, ok := s.models[r.Model]
			if !ok {
				return fmt.Errorf("engine: relation %s.%s references unknown model %q", m.Name, r.Name, r.Model)
			}
			if target.relations[r.Back] == nil {
				return fmt.Errorf("engine: relation %s.%s has no back relation %q", m.Name, r.Name, r.Back)
			}
			spec, err := r.spec(m, target)
			if err != nil {
				return err
			}
			if err := g.AddE(r.Name, spec, m.Name, target.Name); err != nil {
				return fmt.Errorf("engine: relation %s.%s: %w", m.Name, r.Name, err)
			}
		}
	}
	s.components = components(s.Models)
	s.graph = g
	return nil
}

// Model returns the model with the given name.
func (s *Schema) Model(name string) (*Model, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	m, ok := s.models[name]
	if !ok {
		return nil, fmt.Errorf("engine: unknown model %q", name)
	}
	return m, nil
}

// Related returns the names of all models connected to the given one
// through relations, including itself.
func (s *Schema) Related(name string) []string {
	return s.components[name]
}

// Field returns the field with the given name, or nil.
func (m *Model) Field(name string) *Field {
	return m.fields[name]
}

// Relation returns the relation with the given name, or nil.
func (m *Model) Relation(name string) *RelationSpec {
	return m.relations[name]
}

// Columns returns the columns of the given fields.
func (m *Model) Columns(fields ...string) []string {
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = m.fields[f].Column
	}
	return columns
}

// IsUnique reports whether the given set of fields is covered by the
// primary key or one of the unique constraints.
func (m *Model) IsUnique(fields []string) bool {
	covers := func(key []string) bool {
		for _, k := range key {
			if !slices.Contains(fields, k) {
				return false
			}
		}
		return true
	}
	if covers(m.PrimaryKey) {
		return true
	}
	for _, u := range m.Uniques {
		if covers(u) {
			return true
		}
	}
	return false
}

func (m *Model) node() *sqlgraph.Node {
	n := &sqlgraph.Node{
		Type:   m.Name,
		Fields: make(map[string]*sqlgraph.FieldSpec, len(m.Fields)),
	}
	n.Table = m.Table
	for _, f := range m.Fields {
		spec := &sqlgraph.FieldSpec{Column: f.Column, Type: f.Type}
		n.Fields[f.Name] = spec
		n.Columns = append(n.Columns, f.Column)
	}
	if len(m.PrimaryKey) == 1 {
		n.ID = n.Fields[m.PrimaryKey[0]]
	} else {
		for _, k := range m.PrimaryKey {
			n.CompositeID = append(n.CompositeID, n.Fields[k])
		}
	}
	return n
}

// spec returns the sqlgraph edge of the relation.
func (r *RelationSpec) spec(from, to *Model) (*sqlgraph.EdgeSpec, error) {
	check := func(m *Model, names []string) error {
		for _, n := range names {
			if m.fields[n] == nil {
				return fmt.Errorf("engine: relation %s.%s references unknown field %s.%s", from.Name, r.Name, m.Name, n)
			}
		}
		return nil
	}
	switch {
	case r.Kind == sqlgraph.M2M:
		if len(r.JoinColumns) != 2 || r.JoinTable == "" {
			return nil, fmt.Errorf("engine: relation %s.%s requires a join table with two columns", from.Name, r.Name)
		}
		return &sqlgraph.EdgeSpec{Rel: sqlgraph.M2M, Table: r.JoinTable, Columns: r.JoinColumns}, nil
	case r.Owner:
		if err := errors.Join(check(from, r.Fields), check(to, r.References)); err != nil {
			return nil, err
		}
		return &sqlgraph.EdgeSpec{
			Rel:        r.Kind,
			Inverse:    r.Kind == sqlgraph.O2O,
			Table:      from.Table,
			Columns:    from.Columns(r.Fields...),
			RefColumns: to.Columns(r.References...),
		}, nil
	default:
		if err := errors.Join(check(from, r.Fields), check(to, r.References)); err != nil {
			return nil, err
		}
		return &sqlgraph.EdgeSpec{
			Rel:        r.Kind,
			Table:      to.Table,
			Columns:    to.Columns(r.References...),
			RefColumns: from.Columns(r.Fields...),
		}, nil
	}
}

// components groups the models into relation-connected sets.
func components(models []*Model) map[string][]string {
	parent := make(map[string]string, len(models))
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	for _, m := range models {
		parent[m.Name] = m.Name
	}
	for _, m := range models {
		for _, r := range m.Relations {
			if _, ok := parent[r.Model]; ok {
				parent[find(m.Name)] = find(r.Model)
			}
		}
	}
	groups := make(map[string][]string)
	for _, m := range models {
		root := find(m.Name)
		groups[root] = append(groups[root], m.Name)
	}
	out := make(map[string][]string, len(models))
	for _, m := range models {
		out[m.Name] = groups[find(m.Name)]
	}
	return out
}
