// Package schema contains the table model used for migrations, its
// conversion to Atlas, the migration engine and database introspection.
package schema

import (
	"github.com/syssam/quarry/schema/field"
)

// DefaultRevisionTable is the table recording applied migrations.
const DefaultRevisionTable = "_quarry_migrations"

// Table describes a database table.
type Table struct {
	Name        string
	Schema      string
	Columns     []*Column
	columns     map[string]*Column
	Indexes     []*Index
	PrimaryKey  []*Column
	ForeignKeys []*ForeignKey
	Comment     string
}

// NewTable returns a new table with the given name.
func NewTable(name string) *Table {
	return &Table{
		Name:    name,
		columns: make(map[string]*Column),
	}
}

// SetComment sets the table comment.
func (t *Table) SetComment(c string) *Table {
	t.Comment = c
	return t
}

// SetSchema sets the database schema the table belongs to.
func (t *Table) SetSchema(s string) *Table {
	t.Schema = s
	return t
}

// AddColumn adds a column to the table.
func (t *Table) AddColumn(c *Column) *Table {
	if t.columns == nil {
		t.columns = make(map[string]*Column)
	}
	t.columns[c.Name] = c
	t.Columns = append(t.Columns, c)
	return t
}

// AddPrimary adds a column to the primary key.
func (t *Table) AddPrimary(c *Column) *Table {
	if !t.HasColumn(c.Name) {
		t.AddColumn(c)
	}
	t.PrimaryKey = append(t.PrimaryKey, c)
	return t
}

// AddForeignKey adds a foreign key to the table.
func (t *Table) AddForeignKey(fk *ForeignKey) *Table {
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return t
}

// AddIndex adds an index over the named columns. Unknown columns are
// ignored.
func (t *Table) AddIndex(name string, unique bool, columns []string) *Table {
	idx := &Index{Name: name, Unique: unique}
	for _, n := range columns {
		if c, ok := t.Column(n); ok {
			idx.Columns = append(idx.Columns, c)
		}
	}
	t.Indexes = append(t.Indexes, idx)
	return t
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	if c, ok := t.columns[name]; ok {
		return c, true
	}
	// Columns may be appended to the slice directly.
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Index returns the named index.
func (t *Table) Index(name string) (*Index, bool) {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return nil, false
}

// Column describes a table column.
type Column struct {
	Name      string
	Type      field.Type
	Nullable  bool
	Unique    bool
	Increment bool
	// Size is the length of string columns, 0 for the dialect default.
	Size      int64
	Precision int
	Scale     int
	// Enums holds the values of enum columns and EnumName the name of the
	// database type on dialects with named enum types.
	Enums    []string
	EnumName string
	// Default is a literal default value; DefaultExpr a raw SQL expression
	// that takes precedence over it.
	Default     any
	DefaultExpr string
	// SchemaType overrides the column type per dialect, e.g.
	// {"postgres": "varchar(64)"}.
	SchemaType map[string]string
	Comment    string
}

// IntType reports whether the column is an integer column.
func (c *Column) IntType() bool {
	return c.Type == field.TypeInt || c.Type == field.TypeInt64
}

// FloatType reports whether the column is a floating point column.
func (c *Column) FloatType() bool {
	return c.Type == field.TypeFloat64
}

// HasDefault reports whether the column has a database default.
func (c *Column) HasDefault() bool {
	return c.Default != nil || c.DefaultExpr != ""
}

// Index describes a table index.
type Index struct {
	Name    string
	Unique  bool
	Columns []*Column
}

// ColumnNames returns the names of the indexed columns.
func (i *Index) ColumnNames() []string {
	names := make([]string, len(i.Columns))
	for j, c := range i.Columns {
		names[j] = c.Name
	}
	return names
}

// ForeignKey describes a foreign key constraint.
type ForeignKey struct {
	Symbol     string
	Columns    []*Column
	RefTable   *Table
	RefColumns []*Column
	OnUpdate   ReferenceOption
	OnDelete   ReferenceOption
}

// ReferenceOption is the action of a foreign key on update or delete.
type ReferenceOption string

// Reference options.
const (
	NoAction   ReferenceOption = "NO ACTION"
	Restrict   ReferenceOption = "RESTRICT"
	Cascade    ReferenceOption = "CASCADE"
	SetNull    ReferenceOption = "SET NULL"
	SetDefault ReferenceOption = "SET DEFAULT"
)

// ConstName returns the Go constant name of the option.
func (r ReferenceOption) ConstName() string {
	switch r {
	case NoAction:
		return "NoAction"
	case Restrict:
		return "Restrict"
	case Cascade:
		return "Cascade"
	case SetNull:
		return "SetNull"
	case SetDefault:
		return "SetDefault"
	default:
		return ""
	}
}

// Action returns the schema language name of the option, e.g. "SetNull".
func (r ReferenceOption) Action() string {
	return r.ConstName()
}

// ReferenceOptionOf parses a schema language referential action.
func ReferenceOptionOf(action string) (ReferenceOption, bool) {
	for _, r := range []ReferenceOption{NoAction, Restrict, Cascade, SetNull, SetDefault} {
		if r.ConstName() == action {
			return r, true
		}
	}
	return "", false
}
