package schema

import (
	"fmt"
	"strconv"
	"strings"

	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/schema/field"
)

// Default column sizes and precisions per dialect.
const (
	mysqlVarcharSize = 191
	decimalPrecision = 65
	decimalScale     = 30
	timePrecision    = 3
)

// toAtlas converts the tables into an Atlas schema with the given name.
func toAtlas(d, name string, tables []*Table) (*schema.Schema, error) {
	s := schema.New(name)
	byName := make(map[string]*schema.Table, len(tables))
	for _, t := range tables {
		at, err := atlasTable(d, s, t)
		if err != nil {
			return nil, err
		}
		s.AddTables(at)
		byName[t.Name] = at
	}
	for _, t := range tables {
		at := byName[t.Name]
		for _, fk := range t.ForeignKeys {
			if fk.RefTable == nil {
				return nil, fmt.Errorf("schema: foreign key %q of table %q has no referenced table", fk.Symbol, t.Name)
			}
			ref, ok := byName[fk.RefTable.Name]
			if !ok {
				return nil, fmt.Errorf("schema: foreign key %q references unknown table %q", fk.Symbol, fk.RefTable.Name)
			}
			afk := schema.NewForeignKey(fk.Symbol).SetTable(at).SetRefTable(ref)
			for _, c := range fk.Columns {
				ac, ok := at.Column(c.Name)
				if !ok {
					return nil, fmt.Errorf("schema: foreign key %q references unknown column %q", fk.Symbol, c.Name)
				}
				afk.AddColumns(ac)
			}
			for _, c := range fk.RefColumns {
				ac, ok := ref.Column(c.Name)
				if !ok {
					return nil, fmt.Errorf("schema: foreign key %q references unknown column %s.%s", fk.Symbol, ref.Name, c.Name)
				}
				afk.AddRefColumns(ac)
			}
			afk.OnUpdate = schema.ReferenceOption(onAction(fk.OnUpdate))
			afk.OnDelete = schema.ReferenceOption(onAction(fk.OnDelete))
			at.AddForeignKeys(afk)
		}
	}
	return s, nil
}

func onAction(r ReferenceOption) ReferenceOption {
	if r == "" {
		return NoAction
	}
	return r
}

func atlasTable(d string, s *schema.Schema, t *Table) (*schema.Table, error) {
	at := schema.NewTable(t.Name).SetSchema(s)
	if t.Comment != "" {
		at.SetComment(t.Comment)
	}
	for _, c := range t.Columns {
		ac, err := atlasColumn(d, s, t, c)
		if err != nil {
			return nil, err
		}
		at.AddColumns(ac)
	}
	if len(t.PrimaryKey) > 0 {
		parts := make([]*schema.Column, 0, len(t.PrimaryKey))
		for _, c := range t.PrimaryKey {
			ac, ok := at.Column(c.Name)
			if !ok {
				return nil, fmt.Errorf("schema: primary key of %q references unknown column %q", t.Name, c.Name)
			}
			parts = append(parts, ac)
		}
		at.SetPrimaryKey(schema.NewPrimaryKey(parts...))
	}
	for _, c := range t.Columns {
		if c.Unique && !(len(t.PrimaryKey) == 1 && t.PrimaryKey[0].Name == c.Name) {
			ac, _ := at.Column(c.Name)
			at.AddIndexes(schema.NewUniqueIndex(UniqueIndexName(t.Name, c.Name)).AddColumns(ac))
		}
	}
	for _, idx := range t.Indexes {
		ai := schema.NewIndex(idx.Name).SetUnique(idx.Unique)
		for _, c := range idx.Columns {
			ac, ok := at.Column(c.Name)
			if !ok {
				return nil, fmt.Errorf("schema: index %q references unknown column %q", idx.Name, c.Name)
			}
			ai.AddColumns(ac)
		}
		at.AddIndexes(ai)
	}
	return at, nil
}

// UniqueIndexName returns the name of the unique index of a single
// column.
func UniqueIndexName(table string, columns ...string) string {
	return table + "_" + strings.Join(columns, "_") + "_key"
}

// IndexName returns the name of a non-unique index.
func IndexName(table string, columns ...string) string {
	return table + "_" + strings.Join(columns, "_") + "_idx"
}

// ForeignKeyName returns the name of a foreign key constraint.
func ForeignKeyName(table string, columns ...string) string {
	return table + "_" + strings.Join(columns, "_") + "_fkey"
}

func atlasColumn(d string, s *schema.Schema, t *Table, c *Column) (*schema.Column, error) {
	typ, err := atlasType(d, s, t, c)
	if err != nil {
		return nil, fmt.Errorf("schema: column %s.%s: %w", t.Name, c.Name, err)
	}
	ac := schema.NewColumn(c.Name).SetType(typ).SetNull(c.Nullable)
	if c.Comment != "" {
		ac.SetComment(c.Comment)
	}
	if c.Increment {
		switch d {
		case dialect.MySQL:
			ac.AddAttrs(&mysql.AutoIncrement{})
		case dialect.SQLite:
			ac.AddAttrs(&sqlite.AutoIncrement{})
		}
	}
	switch {
	case c.DefaultExpr != "":
		ac.SetDefault(&schema.RawExpr{X: c.DefaultExpr})
	case c.Default != nil:
		lit, err := literal(d, c.Default)
		if err != nil {
			return nil, fmt.Errorf("schema: default of %s.%s: %w", t.Name, c.Name, err)
		}
		ac.SetDefault(&schema.Literal{V: lit})
	}
	return ac, nil
}

// literal formats a default value as an SQL literal.
func literal(d string, v any) (string, error) {
	switch v := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case bool:
		if d == dialect.MySQL {
			if v {
				return "1", nil
			}
			return "0", nil
		}
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case fmt.Stringer:
		return "'" + strings.ReplaceAll(v.String(), "'", "''") + "'", nil
	default:
		return "", fmt.Errorf("unsupported default value %T", v)
	}
}

// atlasType returns the column type of c on the dialect.
func atlasType(d string, s *schema.Schema, t *Table, c *Column) (schema.Type, error) {
	if raw := c.SchemaType[d]; raw != "" {
		return nativeType(d, raw)
	}
	if c.Increment && d == dialect.Postgres {
		if c.Type == field.TypeInt64 {
			return &postgres.SerialType{T: postgres.TypeBigSerial}, nil
		}
		return &postgres.SerialType{T: postgres.TypeSerial}, nil
	}
	switch c.Type {
	case field.TypeBool:
		return &schema.BoolType{T: pick(d, "boolean", "bool", "boolean")}, nil
	case field.TypeString:
		switch {
		case d == dialect.MySQL:
			size := c.Size
			if size <= 0 {
				size = mysqlVarcharSize
			}
			return &schema.StringType{T: "varchar", Size: int(size)}, nil
		case c.Size > 0 && d == dialect.Postgres:
			return &schema.StringType{T: "varchar", Size: int(c.Size)}, nil
		default:
			return &schema.StringType{T: "text"}, nil
		}
	case field.TypeInt:
		return &schema.IntegerType{T: pick(d, "integer", "int", "integer")}, nil
	case field.TypeInt64:
		return &schema.IntegerType{T: pick(d, "bigint", "bigint", "integer")}, nil
	case field.TypeFloat64:
		return &schema.FloatType{T: pick(d, "double precision", "double", "real")}, nil
	case field.TypeDecimal:
		p, sc := c.Precision, c.Scale
		if p == 0 {
			p, sc = decimalPrecision, decimalScale
		}
		return &schema.DecimalType{T: "decimal", Precision: p, Scale: sc}, nil
	case field.TypeTime:
		p := timePrecision
		switch d {
		case dialect.Postgres:
			return &schema.TimeType{T: "timestamp", Precision: &p}, nil
		case dialect.MySQL:
			return &schema.TimeType{T: "datetime", Precision: &p}, nil
		default:
			return &schema.TimeType{T: "datetime"}, nil
		}
	case field.TypeJSON:
		return &schema.JSONType{T: pick(d, "jsonb", "json", "json")}, nil
	case field.TypeBytes:
		return &schema.BinaryType{T: pick(d, "bytea", "longblob", "blob")}, nil
	case field.TypeEnum:
		switch d {
		case dialect.Postgres:
			name := c.EnumName
			if name == "" {
				name = t.Name + "_" + c.Name
			}
			return &schema.EnumType{T: name, Values: c.Enums, Schema: s}, nil
		case dialect.MySQL:
			return &schema.EnumType{T: "enum", Values: c.Enums}, nil
		default:
			return &schema.StringType{T: "text"}, nil
		}
	default:
		return nil, fmt.Errorf("unsupported column type %s", c.Type)
	}
}

// pick returns the Postgres, MySQL or SQLite variant.
func pick(d, pg, my, lite string) string {
	switch d {
	case dialect.Postgres:
		return pg
	case dialect.MySQL:
		return my
	default:
		return lite
	}
}

// nativeType parses a native type such as "varchar(64)" or
// "decimal(10,2)".
func nativeType(d, raw string) (schema.Type, error) {
	name, args, err := splitType(raw)
	if err != nil {
		return nil, err
	}
	arg := func(i, def int) int {
		if i < len(args) {
			return args[i]
		}
		return def
	}
	switch name {
	case "varchar", "character varying", "char", "character", "nvarchar":
		return &schema.StringType{T: name, Size: arg(0, 0)}, nil
	case "text", "tinytext", "mediumtext", "longtext", "citext":
		return &schema.StringType{T: name}, nil
	case "smallint", "tinyint", "mediumint", "int", "integer", "bigint", "int2", "int4", "int8":
		return &schema.IntegerType{T: name}, nil
	case "decimal", "numeric":
		return &schema.DecimalType{T: name, Precision: arg(0, decimalPrecision), Scale: arg(1, 0)}, nil
	case "real", "float", "double", "double precision", "float4", "float8":
		return &schema.FloatType{T: name}, nil
	case "boolean", "bool":
		return &schema.BoolType{T: name}, nil
	case "date", "time", "timetz", "timestamp", "timestamptz", "datetime":
		if len(args) > 0 {
			p := args[0]
			return &schema.TimeType{T: name, Precision: &p}, nil
		}
		return &schema.TimeType{T: name}, nil
	case "json", "jsonb":
		return &schema.JSONType{T: name}, nil
	case "uuid":
		if d == dialect.Postgres {
			return &schema.UUIDType{T: name}, nil
		}
		return &schema.StringType{T: "char", Size: 36}, nil
	case "bytea", "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary":
		if len(args) > 0 {
			n := args[0]
			return &schema.BinaryType{T: name, Size: &n}, nil
		}
		return &schema.BinaryType{T: name}, nil
	}
	switch d {
	case dialect.Postgres:
		return postgres.ParseType(raw)
	case dialect.MySQL:
		return mysql.ParseType(raw)
	default:
		return &schema.UnsupportedType{T: raw}, nil
	}
}

func splitType(raw string) (string, []int, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	open := strings.IndexByte(raw, '(')
	if open < 0 {
		return raw, nil, nil
	}
	if !strings.HasSuffix(raw, ")") {
		return "", nil, fmt.Errorf("malformed type %q", raw)
	}
	var args []int
	for _, a := range strings.Split(raw[open+1:len(raw)-1], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return "", nil, fmt.Errorf("malformed type %q: %w", raw, err)
		}
		args = append(args, n)
	}
	return strings.TrimSpace(raw[:open]), args, nil
}
