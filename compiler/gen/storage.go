package gen

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/schema/field"
)

// A SchemaMode defines what type of schema feature a storage driver support.
type SchemaMode uint

const (
	// Unique defines field and edge uniqueness support.
	Unique SchemaMode = 1 << iota

	// Indexes defines indexes support.
	Indexes

	// Cascade defines cascading operations (e.g. cascade deletion).
	Cascade

	// Migrate defines static schema and migration support (e.g. SQL-based).
	Migrate

	// EnumTypes defines support for named database enum types.
	EnumTypes

	// NativeTypes defines support for @db.<Type> column types.
	NativeTypes
)

// Support reports whether m support the given mode.
func (m SchemaMode) Support(mode SchemaMode) bool { return m&mode != 0 }

// Storage describes a datasource provider.
type Storage struct {
	Name       string   // canonical provider name.
	Providers  []string // accepted provider names.
	Dialect    string   // dialect package constant.
	IdentName  string   // identifier of the dialect constant, e.g. "Postgres".
	SchemaMode SchemaMode
	// Types lists the native types accepted by @db.<Type>.
	Types map[string]*NativeTypeSpec
}

// NativeTypeSpec describes a native column type.
type NativeTypeSpec struct {
	// SQL is the database type name.
	SQL string
	// MinArgs and MaxArgs bound the number of integer arguments.
	MinArgs, MaxArgs int
	// Fields lists the scalar types the native type can be used with.
	Fields []field.Type
}

func native(sql string, minArgs, maxArgs int, fields ...field.Type) *NativeTypeSpec {
	return &NativeTypeSpec{SQL: sql, MinArgs: minArgs, MaxArgs: maxArgs, Fields: fields}
}

var drivers = []*Storage{
	{
		Name:       "postgresql",
		Providers:  []string{"postgresql", "postgres"},
		Dialect:    dialect.Postgres,
		IdentName:  "Postgres",
		SchemaMode: Unique | Indexes | Cascade | Migrate | EnumTypes | NativeTypes,
		Types: map[string]*NativeTypeSpec{
			"VarChar":         native("varchar", 0, 1, field.TypeString),
			"Char":            native("char", 0, 1, field.TypeString),
			"Text":            native("text", 0, 0, field.TypeString),
			"Citext":          native("citext", 0, 0, field.TypeString),
			"Uuid":            native("uuid", 0, 0, field.TypeString),
			"Inet":            native("inet", 0, 0, field.TypeString),
			"SmallInt":        native("smallint", 0, 0, field.TypeInt),
			"Integer":         native("integer", 0, 0, field.TypeInt),
			"BigInt":          native("bigint", 0, 0, field.TypeInt64),
			"Real":            native("real", 0, 0, field.TypeFloat64),
			"DoublePrecision": native("double precision", 0, 0, field.TypeFloat64),
			"Decimal":         native("decimal", 0, 2, field.TypeDecimal),
			"Money":           native("money", 0, 0, field.TypeDecimal),
			"Timestamp":       native("timestamp", 0, 1, field.TypeTime),
			"Timestamptz":     native("timestamptz", 0, 1, field.TypeTime),
			"Date":            native("date", 0, 0, field.TypeTime),
			"Time":            native("time", 0, 1, field.TypeTime),
			"Timetz":          native("timetz", 0, 1, field.TypeTime),
			"Json":            native("json", 0, 0, field.TypeJSON),
			"JsonB":           native("jsonb", 0, 0, field.TypeJSON),
			"ByteA":           native("bytea", 0, 0, field.TypeBytes),
			"Boolean":         native("boolean", 0, 0, field.TypeBool),
		},
	},
	{
		Name:       "mysql",
		Providers:  []string{"mysql"},
		Dialect:    dialect.MySQL,
		IdentName:  "MySQL",
		SchemaMode: Unique | Indexes | Cascade | Migrate | NativeTypes,
		Types: map[string]*NativeTypeSpec{
			"VarChar":    native("varchar", 1, 1, field.TypeString),
			"Char":       native("char", 0, 1, field.TypeString),
			"Text":       native("text", 0, 0, field.TypeString),
			"TinyText":   native("tinytext", 0, 0, field.TypeString),
			"MediumText": native("mediumtext", 0, 0, field.TypeString),
			"LongText":   native("longtext", 0, 0, field.TypeString),
			"TinyInt":    native("tinyint", 0, 0, field.TypeInt, field.TypeBool),
			"SmallInt":   native("smallint", 0, 0, field.TypeInt),
			"MediumInt":  native("mediumint", 0, 0, field.TypeInt),
			"Int":        native("int", 0, 0, field.TypeInt),
			"BigInt":     native("bigint", 0, 0, field.TypeInt64),
			"Float":      native("float", 0, 0, field.TypeFloat64),
			"Double":     native("double", 0, 0, field.TypeFloat64),
			"Decimal":    native("decimal", 0, 2, field.TypeDecimal),
			"DateTime":   native("datetime", 0, 1, field.TypeTime),
			"Timestamp":  native("timestamp", 0, 1, field.TypeTime),
			"Date":       native("date", 0, 0, field.TypeTime),
			"Time":       native("time", 0, 1, field.TypeTime),
			"Json":       native("json", 0, 0, field.TypeJSON),
			"Blob":       native("blob", 0, 0, field.TypeBytes),
			"LongBlob":   native("longblob", 0, 0, field.TypeBytes),
			"Binary":     native("binary", 0, 1, field.TypeBytes),
			"VarBinary":  native("varbinary", 1, 1, field.TypeBytes),
		},
	},
	{
		Name:       "sqlite",
		Providers:  []string{"sqlite"},
		Dialect:    dialect.SQLite,
		IdentName:  "SQLite",
		SchemaMode: Unique | Indexes | Cascade | Migrate,
	},
}

// NewStorage returns the storage of the given datasource provider.
func NewStorage(provider string) (*Storage, error) {
	for _, d := range drivers {
		if slices.Contains(d.Providers, provider) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("quarry: unsupported datasource provider %q (use postgresql, mysql or sqlite)", provider)
}

// String implements the fmt.Stringer interface.
func (s *Storage) String() string { return s.Name }

// NativeType returns the definition of a native type, or nil.
func (s *Storage) NativeType(name string) *NativeTypeSpec {
	return s.Types[name]
}

// NativeType is a resolved @db.<Type>(args) attribute.
type NativeType struct {
	Name string
	Args []int
	spec *NativeTypeSpec
}

// SQL returns the database type, e.g. "varchar(191)".
func (n *NativeType) SQL() string {
	if len(n.Args) == 0 {
		return n.spec.SQL
	}
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = strconv.Itoa(a)
	}
	return n.spec.SQL + "(" + strings.Join(args, ",") + ")"
}

// String returns the schema form of the type, e.g. "@db.VarChar(191)".
func (n *NativeType) String() string {
	s := "@db." + n.Name
	if len(n.Args) > 0 {
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = strconv.Itoa(a)
		}
		s += "(" + strings.Join(args, ", ") + ")"
	}
	return s
}
