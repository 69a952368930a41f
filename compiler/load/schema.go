// Package load parses schema files into the schema model.
package load

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/syssam/quarry/schema"
)

// Ext is the file extension of schema files.
const Ext = ".quarry"

// SyntaxError is returned for malformed schema files.
type SyntaxError struct {
	Pos schema.Pos
	Msg string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

var (
	fieldAttrs = map[string]bool{
		"id": true, "unique": true, "default": true, "map": true,
		"relation": true, "updatedAt": true, "ignore": true,
	}
	blockAttrs = map[string]bool{
		"id": true, "unique": true, "index": true, "map": true, "ignore": true,
	}
)

// ParseFile reads and parses the schema file at path. If path is a
// directory, every *.quarry file in it is parsed, in lexical order, and
// merged into one schema.
func ParseFile(path string) (*schema.Schema, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if !fi.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		return Parse(path, src)
	}
	files, err := filepath.Glob(filepath.Join(path, "*"+Ext))
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("load: no %s files in %s", Ext, path)
	}
	sort.Strings(files)
	merged := &schema.Schema{}
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		s, err := parse(f, src)
		if err != nil {
			return nil, err
		}
		merged.Merge(s)
	}
	if err := checkDuplicates(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Parse parses the schema source. The filename is used in positions.
func Parse(filename string, src []byte) (*schema.Schema, error) {
	s, err := parse(filename, src)
	if err != nil {
		return nil, err
	}
	if err := checkDuplicates(s); err != nil {
		return nil, err
	}
	return s, nil
}

func parse(filename string, src []byte) (*schema.Schema, error) {
	if err := checkUTF8(filename, src); err != nil {
		return nil, err
	}
	ast, err := parser.ParseBytes(filename, src)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return nil, &SyntaxError{Pos: position(perr.Position()), Msg: perr.Message()}
		}
		return nil, fmt.Errorf("load: %w", err)
	}
	c := &converter{lines: strings.Split(string(src), "\n")}
	s := c.file(ast)
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	return s, nil
}

// checkUTF8 reports the first byte of src that is not valid UTF-8.
func checkUTF8(filename string, src []byte) error {
	line, col := 1, 1
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRune(src[i:])
		if r == utf8.RuneError && size == 1 {
			return &SyntaxError{Pos: schema.Pos{Filename: filename, Line: line, Column: col}, Msg: fmt.Sprintf("invalid UTF-8 byte 0x%02x", src[i])}
		}
		if r == '\n' {
			line, col = line+1, 1
		} else {
			col++
		}
		i += size
	}
	return nil
}

func position(p lexer.Position) schema.Pos {
	return schema.Pos{Filename: p.Filename, Line: p.Line, Column: p.Column}
}

// converter turns the grammar AST into the schema model and collects errors.
type converter struct {
	lines []string
	errs  []error
}

func (c *converter) errorf(p lexer.Position, format string, args ...any) {
	c.errs = append(c.errs, &SyntaxError{Pos: position(p), Msg: fmt.Sprintf(format, args...)})
}

// doc returns the /// comment lines directly above the given line.
func (c *converter) doc(line int) string {
	var docs []string
	for i := line - 2; i >= 0 && i < len(c.lines); i-- {
		l := strings.TrimSpace(c.lines[i])
		if !strings.HasPrefix(l, "///") {
			break
		}
		docs = append(docs, strings.TrimPrefix(strings.TrimPrefix(l, "///"), " "))
	}
	for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
		docs[i], docs[j] = docs[j], docs[i]
	}
	return strings.Join(docs, "\n")
}

func (c *converter) file(f *fileAST) *schema.Schema {
	s := &schema.Schema{}
	for _, b := range f.Blocks {
		switch {
		case b.Datasource != nil:
			s.Datasources = append(s.Datasources, c.datasource(b.Pos, b.Datasource))
		case b.Generator != nil:
			s.Generators = append(s.Generators, c.generator(b.Pos, b.Generator))
		case b.Model != nil:
			s.Models = append(s.Models, c.model(b.Pos, b.Model))
		case b.Enum != nil:
			s.Enums = append(s.Enums, c.enum(b.Pos, b.Enum))
		}
	}
	return s
}

func (c *converter) datasource(pos lexer.Position, b *kvBlockAST) *schema.Datasource {
	d := &schema.Datasource{Name: b.Name, Pos: position(pos)}
	for _, kv := range b.Entries {
		v := c.expr(kv.Value)
		switch kv.Key {
		case "provider":
			s, ok := schema.StringValue(v)
			if !ok {
				c.errorf(kv.Pos, "datasource provider must be a string")
			}
			d.Provider = s
		case "url":
			if s, ok := schema.StringValue(v); ok {
				d.URL = schema.Value{Literal: s}
				break
			}
			if fn, ok := v.(*schema.FuncExpr); ok && fn.Name == "env" && len(fn.Args) == 1 {
				if s, ok := schema.StringValue(fn.Args[0].Value); ok {
					d.URL = schema.Value{Env: s}
					break
				}
			}
			c.errorf(kv.Pos, `datasource url must be a string or env("NAME")`)
		default:
			c.errorf(kv.Pos, "unknown datasource property %q", kv.Key)
		}
	}
	return d
}

func (c *converter) generator(pos lexer.Position, b *kvBlockAST) *schema.Generator {
	g := &schema.Generator{Name: b.Name, Pos: position(pos), Config: make(map[string]string)}
	for _, kv := range b.Entries {
		v := c.expr(kv.Value)
		s, ok := schema.StringValue(v)
		if !ok {
			s = v.String()
		}
		switch kv.Key {
		case "provider":
			g.Provider = s
		case "output":
			g.Output = s
		default:
			g.Config[kv.Key] = s
		}
	}
	return g
}

func (c *converter) model(pos lexer.Position, b *modelAST) *schema.Model {
	m := &schema.Model{Name: b.Name, Doc: c.doc(pos.Line), Pos: position(pos)}
	for _, mem := range b.Members {
		switch {
		case mem.BlockAttr != nil:
			a := c.attr(mem.BlockAttr)
			if !blockAttrs[a.Name] {
				c.errorf(mem.Pos, "unknown block attribute @@%s", a.Name)
			}
			m.Attributes = append(m.Attributes, a)
		case mem.Field != nil:
			f := mem.Field
			field := &schema.Field{
				Name:     f.Name,
				Doc:      c.doc(f.Pos.Line),
				Type:     f.Type,
				List:     f.List,
				Optional: f.Optional,
				Pos:      position(f.Pos),
			}
			for _, a := range f.Attrs {
				attr := c.attr(a)
				if !fieldAttrs[attr.Name] && !strings.HasPrefix(attr.Name, "db.") {
					c.errorf(a.Pos, "unknown attribute @%s on field %q", attr.Name, f.Name)
				}
				field.Attributes = append(field.Attributes, attr)
			}
			m.Fields = append(m.Fields, field)
		}
	}
	return m
}

func (c *converter) enum(pos lexer.Position, b *enumAST) *schema.Enum {
	e := &schema.Enum{Name: b.Name, Doc: c.doc(pos.Line), Pos: position(pos)}
	for _, mem := range b.Members {
		switch {
		case mem.BlockAttr != nil:
			a := c.attr(mem.BlockAttr)
			s, ok := schema.StringValue(a.Arg("name", 0))
			if a.Name != "map" || !ok {
				c.errorf(mem.Pos, "enum %s only supports @@map(\"name\")", b.Name)
				continue
			}
			e.DBName = s
		case mem.Value != nil:
			v := &schema.EnumValue{Name: mem.Value.Name, Pos: position(mem.Pos)}
			for _, a := range mem.Value.Attrs {
				attr := c.attr(a)
				s, ok := schema.StringValue(attr.Arg("name", 0))
				if attr.Name != "map" || !ok {
					c.errorf(a.Pos, "enum value %s only supports @map(\"name\")", v.Name)
					continue
				}
				v.DBName = s
			}
			e.Values = append(e.Values, v)
		}
	}
	return e
}

func (c *converter) attr(a *attrAST) *schema.Attribute {
	attr := &schema.Attribute{Name: strings.Join(a.Name, "."), Pos: position(a.Pos)}
	attr.Args = c.args(a.Args)
	return attr
}

func (c *converter) args(as []*argAST) []*schema.Arg {
	var args []*schema.Arg
	for _, a := range as {
		args = append(args, &schema.Arg{Name: a.Name, Value: c.expr(a.Value)})
	}
	return args
}

func (c *converter) expr(e *exprAST) schema.Expr {
	switch {
	case e.String != nil:
		if !utf8.ValidString(*e.String) {
			c.errorf(e.Pos, "string %q is not valid UTF-8", *e.String)
		}
		return &schema.StringExpr{Value: *e.String}
	case e.Number != nil:
		return &schema.NumberExpr{Value: *e.Number}
	case e.Array:
		arr := &schema.ArrayExpr{}
		for _, x := range e.Elems {
			arr.Elems = append(arr.Elems, c.expr(x))
		}
		return arr
	case e.Func != nil:
		return &schema.FuncExpr{Name: e.Func.Name, Args: c.args(e.Func.Args)}
	case e.Ident != nil && (*e.Ident == "true" || *e.Ident == "false"):
		return &schema.BoolExpr{Value: *e.Ident == "true"}
	case e.Ident != nil:
		return &schema.IdentExpr{Name: *e.Ident}
	default:
		c.errorf(e.Pos, "malformed expression")
		return &schema.IdentExpr{}
	}
}

// checkDuplicates reports blocks of the same kind that share a name.
func checkDuplicates(s *schema.Schema) error {
	var errs []error
	seen := make(map[string]schema.Pos)
	check := func(kind, name string, pos schema.Pos) {
		key := kind + ":" + name
		if prev, ok := seen[key]; ok {
			errs = append(errs, &SyntaxError{Pos: pos, Msg: fmt.Sprintf("%s %q is already defined at %s", kind, name, prev)})
			return
		}
		seen[key] = pos
	}
	for _, d := range s.Datasources {
		check("datasource", d.Name, d.Pos)
	}
	for _, g := range s.Generators {
		check("generator", g.Name, g.Pos)
	}
	for _, m := range s.Models {
		check("model", m.Name, m.Pos)
	}
	for _, e := range s.Enums {
		check("enum", e.Name, e.Pos)
	}
	return errors.Join(errs...)
}
