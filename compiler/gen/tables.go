package gen

import (
	"fmt"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/sql/schema"
	"github.com/syssam/quarry/engine"
	"github.com/syssam/quarry/schema/field"
)

// Tables returns the migration tables of the graph, including the join
// tables of implicit many-to-many relations.
func (g *Graph) Tables() ([]*schema.Table, error) {
	var (
		tables = make([]*schema.Table, 0, len(g.Nodes))
		byName = make(map[string]*schema.Table, len(g.Nodes))
	)
	for _, n := range g.Nodes {
		t := schema.NewTable(n.Table)
		if n.Doc != "" {
			t.SetComment(n.Doc)
		}
		for _, f := range n.Fields {
			c, err := g.column(f)
			if err != nil {
				return nil, err
			}
			t.AddColumn(c)
		}
		for _, f := range n.ID {
			c, _ := t.Column(f.Column)
			t.PrimaryKey = append(t.PrimaryKey, c)
		}
		for _, u := range n.Uniques {
			name := u.Map
			if name == "" {
				name = schema.UniqueIndexName(n.Table, u.Columns()...)
			}
			t.AddIndex(name, true, u.Columns())
		}
		for _, idx := range n.Indexes {
			name := idx.Map
			if name == "" {
				name = schema.IndexName(n.Table, idx.Columns()...)
			}
			t.AddIndex(name, false, idx.Columns())
		}
		tables = append(tables, t)
		byName[n.Table] = t
	}
	for _, n := range g.Nodes {
		t := byName[n.Table]
		for _, e := range n.Edges {
			switch {
			case e.FK:
				ref := byName[e.Type.Table]
				fk := &schema.ForeignKey{
					Symbol:   e.ForeignKey(),
					RefTable: ref,
					OnDelete: e.OnDelete,
					OnUpdate: e.OnUpdate,
				}
				for _, f := range e.Fields {
					c, _ := t.Column(f.Column)
					fk.Columns = append(fk.Columns, c)
				}
				for _, f := range e.References {
					c, _ := ref.Column(f.Column)
					fk.RefColumns = append(fk.RefColumns, c)
				}
				t.AddForeignKey(fk)
				// Foreign keys of to-many relations are indexed, unless
				// a unique constraint covers them already.
				if !e.Ref.Unique && !n.IsUnique(e.Fields) && !hasIndex(t, fk.Columns) {
					cols := columnsOf(e.Fields)
					t.AddIndex(schema.IndexName(n.Table, cols...), false, cols)
				}
			case e.M2M() && e.Rel.Columns[0] == "A":
				join, err := g.joinTable(e, byName)
				if err != nil {
					return nil, err
				}
				tables = append(tables, join)
			}
		}
	}
	return tables, nil
}

// joinTable returns the table of an implicit many-to-many relation. Column
// A references the model of e, and B the model of its back relation.
func (g *Graph) joinTable(e *Edge, byName map[string]*schema.Table) (*schema.Table, error) {
	t := schema.NewTable(e.Rel.Table)
	for i, side := range []*Edge{e, e.Ref} {
		id := side.Owner.ID[0]
		c, err := g.column(id)
		if err != nil {
			return nil, err
		}
		ref := byName[side.Owner.Table]
		refc, ok := ref.Column(id.Column)
		if !ok {
			return nil, fmt.Errorf("quarry: join table %s references unknown column %s.%s", t.Name, ref.Name, id.Column)
		}
		col := &schema.Column{
			Name:       []string{"A", "B"}[i],
			Type:       c.Type,
			Size:       c.Size,
			Precision:  c.Precision,
			Scale:      c.Scale,
			Enums:      c.Enums,
			EnumName:   c.EnumName,
			SchemaType: c.SchemaType,
		}
		t.AddColumn(col)
		t.AddForeignKey(&schema.ForeignKey{
			Symbol:     schema.ForeignKeyName(t.Name, col.Name),
			Columns:    []*schema.Column{col},
			RefTable:   ref,
			RefColumns: []*schema.Column{refc},
			OnDelete:   schema.Cascade,
			OnUpdate:   schema.Cascade,
		})
	}
	t.AddIndex(schema.UniqueIndexName(t.Name, "A", "B"), true, []string{"A", "B"})
	t.AddIndex(schema.IndexName(t.Name, "B"), false, []string{"B"})
	return t, nil
}

// column returns the migration column of a field.
func (g *Graph) column(f *Field) (*schema.Column, error) {
	c := &schema.Column{
		Name:     f.Column,
		Type:     f.Type,
		Nullable: f.Optional,
		Unique:   f.Unique,
		Comment:  f.Doc,
	}
	if f.Enum != nil {
		c.Enums = f.Enum.Stored()
		if g.Storage.SchemaMode.Support(EnumTypes) {
			c.EnumName = f.Enum.StoredName()
		}
	}
	if n := f.Native; n != nil {
		switch {
		case n.Name == "VarChar" && len(n.Args) == 1:
			c.Size = int64(n.Args[0])
		case n.Name == "Decimal" && len(n.Args) == 2:
			c.Precision, c.Scale = n.Args[0], n.Args[1]
		case n.Name == "Decimal" && len(n.Args) == 1:
			c.Precision = n.Args[0]
		default:
			c.SchemaType = map[string]string{g.Dialect(): n.SQL()}
		}
	}
	if d := f.Default; d != nil {
		switch d.Kind {
		case engine.DefaultAutoincrement:
			c.Increment = true
		case engine.DefaultDBGenerated:
			c.DefaultExpr = d.Expr
		case engine.DefaultNow:
			c.DefaultExpr = "CURRENT_TIMESTAMP"
			if g.Dialect() == dialect.MySQL {
				c.DefaultExpr = "CURRENT_TIMESTAMP(3)"
			}
		case engine.DefaultValue:
			v, err := columnDefault(f, d.Value)
			if err != nil {
				return nil, err
			}
			c.Default = v
		}
	}
	return c, nil
}

// columnDefault converts a literal default into the value of the column
// default. JSON defaults are not supported by MySQL columns and are left
// to the client.
func columnDefault(f *Field, v any) (any, error) {
	switch f.Type {
	case field.TypeBool, field.TypeString, field.TypeEnum, field.TypeDecimal, field.TypeJSON, field.TypeTime:
		return v, nil
	case field.TypeInt, field.TypeInt64, field.TypeFloat64:
		return v, nil
	default:
		return nil, fmt.Errorf("quarry: unsupported default for field %s.%s", f.typ.Name, f.Name)
	}
}

func hasIndex(t *schema.Table, cols []*schema.Column) bool {
	for _, idx := range t.Indexes {
		if len(idx.Columns) < len(cols) {
			continue
		}
		match := true
		for i, c := range cols {
			if idx.Columns[i].Name != c.Name {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
