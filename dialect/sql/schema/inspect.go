package schema

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"github.com/go-openapi/inflect"

	"github.com/syssam/quarry/dialect"
	model "github.com/syssam/quarry/schema"
)

// Inspect reads the database and returns the models describing it. The
// result holds models and enums only.
func (m *Migrate) Inspect(ctx context.Context) (*model.Schema, error) {
	current, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	return Introspect(m.Dialect(), current)
}

// Introspect converts an inspected Atlas schema into models.
func Introspect(d string, s *schema.Schema) (*model.Schema, error) {
	in := &introspector{
		dialect: d,
		out:     &model.Schema{},
		models:  make(map[string]*model.Model),
		enums:   make(map[string]*model.Enum),
	}
	var joins []*schema.Table
	tables := slices.Clone(s.Tables)
	slices.SortFunc(tables, func(a, b *schema.Table) int { return strings.Compare(a.Name, b.Name) })
	for _, t := range tables {
		if isJoinTable(t) {
			joins = append(joins, t)
			continue
		}
		if err := in.table(t); err != nil {
			return nil, err
		}
	}
	for _, t := range tables {
		if isJoinTable(t) {
			continue
		}
		for _, fk := range t.ForeignKeys {
			if err := in.foreignKey(t, fk); err != nil {
				return nil, err
			}
		}
	}
	for _, t := range joins {
		if err := in.joinTable(t); err != nil {
			return nil, err
		}
	}
	return in.out, nil
}

type introspector struct {
	dialect string
	out     *model.Schema
	// models are keyed by table name, enums by database type name.
	models map[string]*model.Model
	enums  map[string]*model.Enum
}

// isJoinTable reports whether t is the join table of an implicit many to
// many relation: "_<Name>" with the columns A and B referencing two tables.
func isJoinTable(t *schema.Table) bool {
	if !strings.HasPrefix(t.Name, "_") || len(t.Columns) != 2 || len(t.ForeignKeys) != 2 {
		return false
	}
	return t.Columns[0].Name == "A" && t.Columns[1].Name == "B"
}

// ModelName returns the model name of a table: singular PascalCase.
func ModelName(table string) string {
	return inflect.Camelize(inflect.Singularize(table))
}

// FieldName returns the field name of a column: camelCase.
func FieldName(column string) string {
	return inflect.CamelizeDownFirst(column)
}

func (in *introspector) table(t *schema.Table) error {
	name := ModelName(t.Name)
	for in.out.Model(name) != nil || in.out.Enum(name) != nil {
		name += "Table"
	}
	m := &model.Model{Name: name}
	if name != t.Name {
		m.Attributes = append(m.Attributes, model.NewAttribute("map", model.PosArg(&model.StringExpr{Value: t.Name})))
	}
	var pk []string
	if t.PrimaryKey != nil {
		for _, p := range t.PrimaryKey.Parts {
			if p.C != nil {
				pk = append(pk, p.C.Name)
			}
		}
	}
	for _, c := range t.Columns {
		f, err := in.column(t, m, c)
		if err != nil {
			return err
		}
		if len(pk) == 1 && pk[0] == c.Name {
			f.Attributes = append([]*model.Attribute{model.NewAttribute("id")}, f.Attributes...)
		}
		m.Fields = append(m.Fields, f)
	}
	if len(pk) > 1 {
		m.Attributes = append(m.Attributes, model.NewAttribute("id", model.PosArg(model.IdentList(in.fieldNames(m, pk)...))))
	}
	for _, idx := range t.Indexes {
		cols := indexColumns(idx)
		if len(cols) == 0 {
			continue
		}
		switch {
		case idx.Unique && len(cols) == 1:
			if f := fieldOf(m, cols[0]); f != nil && f.Attribute("unique") == nil {
				f.Attributes = append(f.Attributes, model.NewAttribute("unique"))
			}
		case idx.Unique:
			m.Attributes = append(m.Attributes, model.NewAttribute("unique", model.PosArg(model.IdentList(in.fieldNames(m, cols)...))))
		default:
			m.Attributes = append(m.Attributes, model.NewAttribute("index", model.PosArg(model.IdentList(in.fieldNames(m, cols)...))))
		}
	}
	in.models[t.Name] = m
	in.out.Models = append(in.out.Models, m)
	return nil
}

func indexColumns(idx *schema.Index) []string {
	cols := make([]string, 0, len(idx.Parts))
	for _, p := range idx.Parts {
		if p.C == nil {
			// Expression indexes have no schema equivalent.
			return nil
		}
		cols = append(cols, p.C.Name)
	}
	return cols
}

// fieldOf returns the field mapped to the column.
func fieldOf(m *model.Model, column string) *model.Field {
	for _, f := range m.Fields {
		if f.ColumnName() == column {
			return f
		}
	}
	return nil
}

func (in *introspector) fieldNames(m *model.Model, columns []string) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		if f := fieldOf(m, c); f != nil {
			names[i] = f.Name
		} else {
			names[i] = FieldName(c)
		}
	}
	return names
}

func (in *introspector) column(t *schema.Table, m *model.Model, c *schema.Column) (*model.Field, error) {
	f := &model.Field{Name: FieldName(c.Name), Optional: c.Type != nil && c.Type.Null}
	if f.Name != c.Name {
		defer func() {
			f.Attributes = append(f.Attributes, model.NewAttribute("map", model.PosArg(&model.StringExpr{Value: c.Name})))
		}()
	}
	var enum *model.Enum
	f.Type, enum = in.scalar(t, m, c)
	if native := in.native(c); native != nil {
		f.Attributes = append(f.Attributes, native)
	}
	if def := in.defaultOf(f.Type, c, enum); def != nil {
		f.Attributes = append(f.Attributes, def)
	}
	return f, nil
}

// scalar returns the schema type of the column.
func (in *introspector) scalar(t *schema.Table, m *model.Model, c *schema.Column) (string, *model.Enum) {
	if c.Type == nil {
		return "String", nil
	}
	switch typ := c.Type.Type.(type) {
	case *schema.BoolType:
		return "Boolean", nil
	case *schema.IntegerType:
		if strings.Contains(typ.T, "big") || typ.T == "int8" {
			return "BigInt", nil
		}
		if in.dialect == dialect.MySQL && typ.T == "tinyint" && strings.Contains(c.Type.Raw, "(1)") {
			return "Boolean", nil
		}
		return "Int", nil
	case *postgres.SerialType:
		if typ.T == postgres.TypeBigSerial {
			return "BigInt", nil
		}
		return "Int", nil
	case *schema.FloatType:
		return "Float", nil
	case *schema.DecimalType:
		return "Decimal", nil
	case *schema.TimeType:
		return "DateTime", nil
	case *schema.JSONType:
		return "Json", nil
	case *schema.BinaryType:
		return "Bytes", nil
	case *schema.EnumType:
		e := in.enum(t, m, c, typ)
		return e.Name, e
	default:
		return "String", nil
	}
}

func (in *introspector) enum(t *schema.Table, m *model.Model, c *schema.Column, typ *schema.EnumType) *model.Enum {
	key := typ.T
	name := inflect.Camelize(typ.T)
	if typ.T == "" || typ.T == "enum" {
		key = t.Name + "." + c.Name
		name = m.Name + inflect.Camelize(c.Name)
	}
	if e, ok := in.enums[key]; ok {
		return e
	}
	for in.out.Model(name) != nil || in.out.Enum(name) != nil {
		name += "Enum"
	}
	e := &model.Enum{Name: name}
	if typ.T != "" && typ.T != "enum" && name != typ.T {
		e.DBName = typ.T
	}
	for _, v := range typ.Values {
		ev := &model.EnumValue{Name: enumValueName(v)}
		if ev.Name != v {
			ev.DBName = v
		}
		e.Values = append(e.Values, ev)
	}
	in.enums[key] = e
	in.out.Enums = append(in.out.Enums, e)
	return e
}

// enumValueName turns a stored enum value into an identifier.
func enumValueName(v string) string {
	var b strings.Builder
	for i, r := range v {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// native returns the @db attribute of column types that differ from the
// defaults of their scalar.
func (in *introspector) native(c *schema.Column) *model.Attribute {
	if c.Type == nil {
		return nil
	}
	num := func(n int) *model.Arg { return model.PosArg(&model.NumberExpr{Value: strconv.Itoa(n)}) }
	switch typ := c.Type.Type.(type) {
	case *schema.StringType:
		switch {
		case typ.T == "varchar" || typ.T == "character varying":
			if in.dialect == dialect.MySQL && typ.Size == mysqlVarcharSize {
				return nil
			}
			if typ.Size > 0 {
				return model.NewAttribute("db.VarChar", num(typ.Size))
			}
		case typ.T == "char" || typ.T == "character":
			if typ.Size > 0 {
				return model.NewAttribute("db.Char", num(typ.Size))
			}
		case typ.T == "text" && in.dialect == dialect.MySQL:
			return model.NewAttribute("db.Text")
		}
	case *schema.UUIDType:
		return model.NewAttribute("db.Uuid")
	case *schema.IntegerType:
		if typ.T == "smallint" || typ.T == "int2" {
			return model.NewAttribute("db.SmallInt")
		}
	case *schema.DecimalType:
		if typ.Precision > 0 && (typ.Precision != decimalPrecision || typ.Scale != decimalScale) && in.dialect != dialect.SQLite {
			return model.NewAttribute("db.Decimal", num(typ.Precision), num(typ.Scale))
		}
	case *schema.TimeType:
		switch typ.T {
		case "timestamptz", "timestamp with time zone":
			return model.NewAttribute("db.Timestamptz")
		case "date":
			return model.NewAttribute("db.Date")
		}
	case *schema.JSONType:
		if typ.T == "json" && in.dialect == dialect.Postgres {
			return model.NewAttribute("db.Json")
		}
	}
	return nil
}

// defaultOf returns the @default attribute of the column.
func (in *introspector) defaultOf(scalar string, c *schema.Column, enum *model.Enum) *model.Attribute {
	fn := func(name string, args ...*model.Arg) *model.Attribute {
		return model.NewAttribute("default", model.PosArg(&model.FuncExpr{Name: name, Args: args}))
	}
	if increments(c) {
		return fn("autoincrement")
	}
	switch x := c.Default.(type) {
	case nil:
		return nil
	case *schema.RawExpr:
		upper := strings.ToUpper(x.X)
		switch {
		case strings.HasPrefix(upper, "NEXTVAL("):
			return fn("autoincrement")
		case strings.Contains(upper, "CURRENT_TIMESTAMP") || strings.HasPrefix(upper, "NOW()"):
			return fn("now")
		}
		if v, ok := in.literal(scalar, x.X, enum); ok {
			return model.NewAttribute("default", model.PosArg(v))
		}
		return fn("dbgenerated", model.PosArg(&model.StringExpr{Value: x.X}))
	case *schema.Literal:
		if v, ok := in.literal(scalar, x.V, enum); ok {
			return model.NewAttribute("default", model.PosArg(v))
		}
		return fn("dbgenerated", model.PosArg(&model.StringExpr{Value: x.V}))
	default:
		return nil
	}
}

func increments(c *schema.Column) bool {
	if c.Type != nil {
		if _, ok := c.Type.Type.(*postgres.SerialType); ok {
			return true
		}
	}
	for _, a := range c.Attrs {
		switch a.(type) {
		case *mysql.AutoIncrement, *sqlite.AutoIncrement, *postgres.Identity:
			return true
		}
	}
	return false
}

// literal parses a default literal for the scalar type.
func (in *introspector) literal(scalar, raw string, enum *model.Enum) (model.Expr, bool) {
	v := raw
	if i := strings.Index(v, "::"); i > 0 {
		v = v[:i]
	}
	v = strings.TrimSpace(v)
	unquoted, quoted := unquote(v)
	switch scalar {
	case "Boolean":
		switch strings.ToLower(unquoted) {
		case "true", "1":
			return &model.BoolExpr{Value: true}, true
		case "false", "0":
			return &model.BoolExpr{Value: false}, true
		}
	case "Int", "BigInt", "Float", "Decimal":
		if _, err := strconv.ParseFloat(unquoted, 64); err == nil {
			return &model.NumberExpr{Value: unquoted}, true
		}
	case "String", "Json", "DateTime", "Bytes":
		if quoted {
			return &model.StringExpr{Value: unquoted}, true
		}
	default:
		if enum != nil {
			for _, ev := range enum.Values {
				if ev.Stored() == unquoted {
					return &model.IdentExpr{Name: ev.Name}, true
				}
			}
		}
	}
	return nil, false
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
	}
	return s, false
}

// foreignKey adds the relation fields of fk to both models.
func (in *introspector) foreignKey(t *schema.Table, fk *schema.ForeignKey) error {
	owner, target := in.models[t.Name], in.models[fk.RefTable.Name]
	if owner == nil || target == nil {
		return fmt.Errorf("schema: foreign key %q of %q references unknown table %q", fk.Symbol, t.Name, fk.RefTable.Name)
	}
	cols := make([]string, len(fk.Columns))
	optional := false
	for i, c := range fk.Columns {
		cols[i] = c.Name
		optional = optional || c.Type.Null
	}
	refs := make([]string, len(fk.RefColumns))
	for i, c := range fk.RefColumns {
		refs[i] = c.Name
	}
	// A name is required when the pair of models has more than one relation.
	var relName string
	n := 0
	for _, other := range t.ForeignKeys {
		if other.RefTable.Name == fk.RefTable.Name {
			n++
		}
	}
	if n > 1 || owner == target {
		relName = fk.Symbol
	}
	name := FieldName(target.Name)
	if len(cols) == 1 {
		if base, ok := cutIDSuffix(cols[0]); ok {
			name = FieldName(base)
		}
	}
	name = freeName(owner, name)
	args := []*model.Arg{
		model.NamedArg("fields", model.IdentList(in.fieldNames(owner, cols)...)),
		model.NamedArg("references", model.IdentList(in.fieldNames(target, refs)...)),
	}
	if relName != "" {
		args = append([]*model.Arg{model.PosArg(&model.StringExpr{Value: relName})}, args...)
	}
	if a := action(fk.OnDelete); a != "" {
		args = append(args, model.NamedArg("onDelete", &model.IdentExpr{Name: a}))
	}
	if a := action(fk.OnUpdate); a != "" {
		args = append(args, model.NamedArg("onUpdate", &model.IdentExpr{Name: a}))
	}
	owner.Fields = append(owner.Fields, &model.Field{
		Name:       name,
		Type:       target.Name,
		Optional:   optional,
		Attributes: []*model.Attribute{model.NewAttribute("relation", args...)},
	})
	back := &model.Field{Type: owner.Name}
	if uniqueColumns(t, cols) {
		back.Name = FieldName(owner.Name)
		back.Optional = true
	} else {
		back.Name = FieldName(inflect.Pluralize(owner.Name))
		back.List = true
	}
	back.Name = freeName(target, back.Name)
	if relName != "" {
		back.Attributes = []*model.Attribute{model.NewAttribute("relation", model.PosArg(&model.StringExpr{Value: relName}))}
	}
	target.Fields = append(target.Fields, back)
	return nil
}

// action returns the referential action to print, or "" for the default.
func action(o schema.ReferenceOption) string {
	r := ReferenceOption(strings.ToUpper(string(o)))
	if r == "" || r == NoAction {
		return ""
	}
	return r.Action()
}

func cutIDSuffix(column string) (string, bool) {
	for _, suffix := range []string{"_id", "Id", "ID"} {
		if base, ok := strings.CutSuffix(column, suffix); ok && base != "" {
			return base, true
		}
	}
	return "", false
}

// freeName returns name, or name with a numeric suffix if m already has
// such a field.
func freeName(m *model.Model, name string) string {
	if m.Field(name) == nil {
		return name
	}
	for i := 2; ; i++ {
		if n := name + strconv.Itoa(i); m.Field(n) == nil {
			return n
		}
	}
}

// uniqueColumns reports whether the columns are the primary key or a
// unique index of t.
func uniqueColumns(t *schema.Table, cols []string) bool {
	if t.PrimaryKey != nil && slices.Equal(indexColumns(t.PrimaryKey), cols) {
		return true
	}
	for _, idx := range t.Indexes {
		if idx.Unique && slices.Equal(indexColumns(idx), cols) {
			return true
		}
	}
	return false
}

// joinTable adds the list fields of an implicit many to many relation.
func (in *introspector) joinTable(t *schema.Table) error {
	var a, b *model.Model
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 {
			continue
		}
		switch fk.Columns[0].Name {
		case "A":
			a = in.models[fk.RefTable.Name]
		case "B":
			b = in.models[fk.RefTable.Name]
		}
	}
	if a == nil || b == nil {
		return fmt.Errorf("schema: join table %q references unknown tables", t.Name)
	}
	relName := strings.TrimPrefix(t.Name, "_")
	var attrs []*model.Attribute
	if relName != a.Name+"To"+b.Name {
		attrs = []*model.Attribute{model.NewAttribute("relation", model.PosArg(&model.StringExpr{Value: relName}))}
	}
	a.Fields = append(a.Fields, &model.Field{Name: freeName(a, FieldName(inflect.Pluralize(b.Name))), Type: b.Name, List: true, Attributes: attrs})
	if a != b {
		b.Fields = append(b.Fields, &model.Field{Name: freeName(b, FieldName(inflect.Pluralize(a.Name))), Type: a.Name, List: true, Attributes: attrs})
	}
	return nil
}
