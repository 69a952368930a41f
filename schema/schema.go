package schema

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Pos is a position in a schema file.
type Pos struct {
	Filename string
	Line     int
	Column   int
}

// String returns the "file:line:col" form of the position.
func (p Pos) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Schema is the in-memory representation of one or more schema files.
type Schema struct {
	Datasources []*Datasource
	Generators  []*Generator
	Models      []*Model
	Enums       []*Enum
}

// Datasource returns the first datasource block, or nil.
func (s *Schema) Datasource() *Datasource {
	if len(s.Datasources) == 0 {
		return nil
	}
	return s.Datasources[0]
}

// Model returns the model with the given name, or nil.
func (s *Schema) Model(name string) *Model {
	for _, m := range s.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Enum returns the enum with the given name, or nil.
func (s *Schema) Enum(name string) *Enum {
	for _, e := range s.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Merge appends the blocks of o to s.
func (s *Schema) Merge(o *Schema) {
	s.Datasources = append(s.Datasources, o.Datasources...)
	s.Generators = append(s.Generators, o.Generators...)
	s.Models = append(s.Models, o.Models...)
	s.Enums = append(s.Enums, o.Enums...)
}

// Value is a configuration value that is either a literal or read
// from an environment variable with env("NAME").
type Value struct {
	Literal string
	Env     string
}

// Resolve returns the literal, or the value of the environment variable.
func (v Value) Resolve() (string, error) {
	if v.Env == "" {
		return v.Literal, nil
	}
	s, ok := os.LookupEnv(v.Env)
	if !ok || s == "" {
		return "", fmt.Errorf("schema: environment variable %q is not set", v.Env)
	}
	return s, nil
}

// String returns the schema form of the value.
func (v Value) String() string {
	if v.Env != "" {
		return "env(" + strconv.Quote(v.Env) + ")"
	}
	return strconv.Quote(v.Literal)
}

// Datasource describes the database the schema is bound to.
type Datasource struct {
	Name     string
	Provider string
	URL      Value
	Pos      Pos
}

// Generator describes a code generator to run.
type Generator struct {
	Name     string
	Provider string
	Output   string
	// Config holds the remaining key/value pairs of the block.
	Config map[string]string
	Pos    Pos
}

// Model is a model block.
type Model struct {
	Name       string
	Doc        string
	Fields     []*Field
	Attributes []*Attribute
	Pos        Pos
}

// TableName returns the @@map name of the model, or the model name.
func (m *Model) TableName() string {
	if a := m.BlockAttribute("map"); a != nil {
		if s, ok := StringValue(a.Arg("name", 0)); ok {
			return s
		}
	}
	return m.Name
}

// Field returns the field with the given name, or nil.
func (m *Model) Field(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// BlockAttributes returns all block attributes with the given name.
func (m *Model) BlockAttributes(name string) []*Attribute {
	var attrs []*Attribute
	for _, a := range m.Attributes {
		if a.Name == name {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// BlockAttribute returns the first block attribute with the given name, or nil.
func (m *Model) BlockAttribute(name string) *Attribute {
	if attrs := m.BlockAttributes(name); len(attrs) > 0 {
		return attrs[0]
	}
	return nil
}

// Arity describes how many values a field holds.
type Arity int

// Field arities.
const (
	Required Arity = iota
	Optional
	List
)

// String returns the suffix the arity is written with.
func (a Arity) String() string {
	switch a {
	case Optional:
		return "?"
	case List:
		return "[]"
	default:
		return ""
	}
}

// Field is a model field.
type Field struct {
	Name       string
	Doc        string
	Type       string
	List       bool
	Optional   bool
	Attributes []*Attribute
	Pos        Pos
}

// Attribute returns the first field attribute with the given name, or nil.
// Native type attributes are named with their prefix, e.g. "db.VarChar".
func (f *Field) Attribute(name string) *Attribute {
	for _, a := range f.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// NativeType returns the @db.<Type> attribute of the field, or nil.
func (f *Field) NativeType() *Attribute {
	for _, a := range f.Attributes {
		if strings.HasPrefix(a.Name, "db.") {
			return a
		}
	}
	return nil
}

// ColumnName returns the @map name of the field, or the field name.
func (f *Field) ColumnName() string {
	if a := f.Attribute("map"); a != nil {
		if s, ok := StringValue(a.Arg("name", 0)); ok {
			return s
		}
	}
	return f.Name
}

// Arity returns the arity of the field.
func (f *Field) Arity() Arity {
	switch {
	case f.List:
		return List
	case f.Optional:
		return Optional
	default:
		return Required
	}
}

// TypeString returns the type with its arity suffix, e.g. "Post[]".
func (f *Field) TypeString() string {
	s := f.Type
	if f.List {
		s += "[]"
	}
	if f.Optional {
		s += "?"
	}
	return s
}

// Enum is an enum block.
type Enum struct {
	Name   string
	Doc    string
	Values []*EnumValue
	// DBName is the @@map name of the enum.
	DBName string
	Pos    Pos
}

// Value returns the enum value with the given name, or nil.
func (e *Enum) Value(name string) *EnumValue {
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// EnumValue is a single value of an enum.
type EnumValue struct {
	Name string
	// DBName is the @map name of the value, if any.
	DBName string
	Pos    Pos
}

// Stored returns the value as stored in the database.
func (v *EnumValue) Stored() string {
	if v.DBName != "" {
		return v.DBName
	}
	return v.Name
}
