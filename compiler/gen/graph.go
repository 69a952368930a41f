package gen

import (
	"encoding/json"
	"fmt"
	"go/token"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/syssam/quarry/dialect/sql/schema"
	"github.com/syssam/quarry/engine"
	qschema "github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

// reserved holds the identifiers declared by every generated package.
var reserved = []string{
	"Client", "Tx", "Option", "Log", "Cache", "CacheTTL", "IncludeWorkers",
	"Debug", "Open", "NewClient", "WithTx", "Schema", "Ptr", "Driver",
	"Close", "Commit", "Rollback", "ExecRaw", "QueryRaw", "Runtime", "Enums", "And", "Or", "Not",
}

// relationAttr is a parsed @relation attribute.
type relationAttr struct {
	name       string
	fields     []string
	references []string
	onDelete   string
	onUpdate   string
	pos        qschema.Pos
}

func (a *relationAttr) hasKeys() bool {
	return len(a.fields) > 0 || len(a.references) > 0
}

func (a *relationAttr) hasActions() bool {
	return a.onDelete != "" || a.onUpdate != ""
}

// builder compiles a schema into a graph and collects the violations.
type builder struct {
	g      *Graph
	errs   *ValidationErrors
	idents map[string]string
}

// NewGraph validates the schema and creates the graph of its models.
// Every violation is reported in the returned *ValidationErrors.
func NewGraph(c *Config, s *qschema.Schema) (*Graph, error) {
	if c == nil {
		c = &Config{}
	}
	if s == nil {
		return nil, NewConfigError("Schema", nil, "schema cannot be nil")
	}
	g := &Graph{
		Config:     c,
		Schema:     s,
		Generators: s.Generators,
		nodes:      make(map[string]*Type, len(s.Models)),
		enums:      make(map[string]*Enum, len(s.Enums)),
	}
	b := &builder{g: g, errs: &ValidationErrors{}, idents: make(map[string]string)}
	b.datasource()
	for _, name := range reserved {
		b.idents[name] = "the generated client"
	}
	for _, e := range s.Enums {
		b.enum(e)
	}
	for _, m := range s.Models {
		b.declare(m)
	}
	for _, m := range s.Models {
		if t := g.nodes[m.Name]; t != nil && t.src == m {
			b.model(t, m)
		}
	}
	b.relations()
	b.tables()
	if err := b.errs.err(); err != nil {
		return nil, err
	}
	return g, nil
}

func (b *builder) errorf(pos qschema.Pos, typ, fld, format string, args ...any) {
	b.errs.add(NewSchemaError(pos, typ, fld, fmt.Sprintf(format, args...)))
}

func (b *builder) edgeErrorf(e *Edge, format string, args ...any) {
	to := ""
	if e.Type != nil {
		to = e.Type.Name
	}
	b.errs.add(NewEdgeError(e.Pos, e.Owner.Name, to, e.Name, fmt.Sprintf(format, args...)))
}

// datasource validates the datasource block and resolves the storage.
func (b *builder) datasource() {
	s := b.g.Schema
	switch len(s.Datasources) {
	case 0:
		b.errorf(qschema.Pos{}, "", "", "a datasource block is required")
	case 1:
	default:
		for _, ds := range s.Datasources[1:] {
			b.errorf(ds.Pos, "", "", "only one datasource block is allowed (found %q)", ds.Name)
		}
	}
	if len(s.Datasources) > 0 {
		ds := s.Datasources[0]
		b.g.Datasource = ds
		st, err := NewStorage(ds.Provider)
		if err != nil {
			b.errorf(ds.Pos, "", "", "datasource %q: %v", ds.Name, err)
		}
		b.g.Storage = st
	}
	if b.g.Config.Storage != nil {
		b.g.Storage = b.g.Config.Storage
	}
}

// ident registers a generated top-level identifier.
func (b *builder) ident(pos qschema.Pos, name, owner string) {
	if prev, ok := b.idents[name]; ok {
		b.errorf(pos, owner, "", "generated identifier %q clashes with %s", name, prev)
		return
	}
	b.idents[name] = owner
}

func validName(name string) bool {
	return token.IsIdentifier(name) && !token.Lookup(name).IsKeyword() && !field.IsScalar(name)
}

func (b *builder) enum(e *qschema.Enum) {
	if !validName(e.Name) {
		b.errorf(e.Pos, e.Name, "", "invalid enum name")
		return
	}
	if b.g.enums[e.Name] != nil {
		b.errorf(e.Pos, e.Name, "", "enum %q is declared more than once", e.Name)
		return
	}
	en := &Enum{Name: e.Name, DBName: e.DBName, Doc: e.Doc, Pos: e.Pos}
	if len(e.Values) == 0 {
		b.errorf(e.Pos, e.Name, "", "enum must have at least one value")
	}
	stored := make(map[string]bool, len(e.Values))
	for _, v := range e.Values {
		if !token.IsIdentifier(v.Name) {
			b.errorf(v.Pos, e.Name, v.Name, "invalid enum value name")
			continue
		}
		if en.Value(v.Name) != nil {
			b.errorf(v.Pos, e.Name, v.Name, "enum value is declared more than once")
			continue
		}
		if stored[v.Stored()] {
			b.errorf(v.Pos, e.Name, v.Name, "stored value %q is used more than once", v.Stored())
			continue
		}
		stored[v.Stored()] = true
		en.Values = append(en.Values, &EnumValue{Name: v.Name, Value: v.Stored()})
	}
	b.g.enums[e.Name] = en
	b.g.Enums = append(b.g.Enums, en)
	b.ident(e.Pos, en.TypeName(), "enum "+e.Name)
	for _, v := range en.Values {
		b.ident(e.Pos, en.Const(v), "enum "+e.Name)
	}
}

// declare registers the model so relation fields can resolve it.
func (b *builder) declare(m *qschema.Model) {
	if !validName(m.Name) {
		b.errorf(m.Pos, m.Name, "", "invalid model name")
		return
	}
	if b.g.nodes[m.Name] != nil {
		b.errorf(m.Pos, m.Name, "", "model %q is declared more than once", m.Name)
		return
	}
	if b.g.enums[m.Name] != nil {
		b.errorf(m.Pos, m.Name, "", "model name clashes with enum %q", m.Name)
		return
	}
	t := &Type{
		Name:   m.Name,
		Table:  m.TableName(),
		Doc:    m.Doc,
		Pos:    m.Pos,
		src:    m,
		fields: make(map[string]*Field),
		edges:  make(map[string]*Edge),
	}
	b.g.nodes[m.Name] = t
	b.g.Nodes = append(b.g.Nodes, t)
	owner := "model " + m.Name
	for _, name := range []string{
		t.Name, t.ClientName(), t.QueryName(), t.WhereName(), t.WhereUniqueName(),
		t.OrderByName(), t.IncludeName(), t.FieldName(), t.CreateName(),
		t.UpdateName(), t.EdgesName(), t.PredicateName(),
	} {
		b.ident(m.Pos, name, owner)
	}
}

var (
	scalarAttrs   = []string{"id", "unique", "default", "updatedAt", "map"}
	relationAttrs = []string{"relation"}
)

// model builds the fields of t and validates the model level rules.
func (b *builder) model(t *Type, m *qschema.Model) {
	columns := make(map[string]string)
	seen := make(map[string]bool)
	for _, sf := range m.Fields {
		if seen[sf.Name] {
			b.errorf(sf.Pos, m.Name, sf.Name, "field is declared more than once")
			continue
		}
		seen[sf.Name] = true
		if !token.IsIdentifier(sf.Name) || token.Lookup(sf.Name).IsKeyword() {
			b.errorf(sf.Pos, m.Name, sf.Name, "invalid field name")
			continue
		}
		switch {
		case field.IsScalar(sf.Type) || b.g.enums[sf.Type] != nil:
			f := b.scalar(t, sf)
			if f == nil {
				continue
			}
			if prev, ok := columns[f.Column]; ok {
				b.errorf(sf.Pos, m.Name, sf.Name, "column %q is already used by field %q", f.Column, prev)
				continue
			}
			columns[f.Column] = f.Name
			t.Fields = append(t.Fields, f)
			t.fields[f.Name] = f
		case b.g.nodes[sf.Type] != nil:
			if e := b.edge(t, sf); e != nil {
				t.Edges = append(t.Edges, e)
				t.edges[e.Name] = e
			}
		default:
			b.errorf(sf.Pos, m.Name, sf.Name, "unknown type %q", sf.Type)
		}
	}
	b.identifier(t, m)
	for _, sf := range m.Fields {
		if f := t.fields[sf.Name]; f != nil && f.src == sf {
			b.fieldDefault(t, f, sf)
			b.nativeType(t, f, sf)
			if sf.Attribute("updatedAt") != nil && f.Type != field.TypeTime {
				b.errorf(sf.Pos, t.Name, f.Name, "@updatedAt is only allowed on DateTime fields")
			}
		}
	}
	b.blockAttributes(t, m)
}

// scalar builds a scalar or enum field.
func (b *builder) scalar(t *Type, sf *qschema.Field) *Field {
	if sf.List {
		b.errorf(sf.Pos, t.Name, sf.Name, "scalar lists are not supported (%s)", sf.TypeString())
		return nil
	}
	f := &Field{
		Name:      sf.Name,
		Column:    sf.ColumnName(),
		Doc:       sf.Doc,
		Type:      field.FromScalar(sf.Type),
		Optional:  sf.Optional,
		Unique:    sf.Attribute("unique") != nil,
		ID:        sf.Attribute("id") != nil,
		UpdatedAt: sf.Attribute("updatedAt") != nil,
		Pos:       sf.Pos,
		typ:       t,
		src:       sf,
	}
	if e := b.g.enums[sf.Type]; e != nil {
		f.Type, f.Enum = field.TypeEnum, e
	}
	for _, a := range sf.Attributes {
		switch {
		case strings.HasPrefix(a.Name, "db."):
		case slices.Contains(scalarAttrs, a.Name):
			for _, msg := range checkArgs("@", a, fieldAttrArgs[a.Name]) {
				b.errorf(a.Pos, t.Name, sf.Name, "%s", msg)
			}
		case slices.Contains(relationAttrs, a.Name):
			b.errorf(a.Pos, t.Name, sf.Name, "@%s is only allowed on relation fields", a.Name)
		default:
			b.errorf(a.Pos, t.Name, sf.Name, "unknown attribute @%s", a.Name)
		}
	}
	if f.ID && f.Optional {
		b.errorf(sf.Pos, t.Name, sf.Name, "identifier fields cannot be optional")
	}
	if f.ID && f.Type == field.TypeJSON {
		b.errorf(sf.Pos, t.Name, sf.Name, "Json fields cannot be identifiers")
	}
	return f
}

// edge builds a relation field. The relation itself is resolved later.
func (b *builder) edge(t *Type, sf *qschema.Field) *Edge {
	e := &Edge{
		Name:     sf.Name,
		Doc:      sf.Doc,
		Type:     b.g.nodes[sf.Type],
		Owner:    t,
		Unique:   !sf.List,
		Optional: sf.Optional,
		Pos:      sf.Pos,
		attr:     &relationAttr{pos: sf.Pos},
	}
	if sf.List && sf.Optional {
		b.edgeErrorf(e, "optional lists are not supported (%s)", sf.TypeString())
		return nil
	}
	for _, a := range sf.Attributes {
		if !slices.Contains(relationAttrs, a.Name) {
			b.edgeErrorf(e, "@%s is not allowed on relation fields", a.Name)
			continue
		}
		e.attr = b.relationAttr(e, a)
	}
	return e
}

func (b *builder) relationAttr(e *Edge, a *qschema.Attribute) *relationAttr {
	r := &relationAttr{pos: a.Pos}
	if x := a.Arg("name", 0); x != nil {
		name, ok := qschema.StringValue(x)
		if !ok || name == "" {
			b.edgeErrorf(e, "relation name must be a non-empty string")
		}
		r.name = name
	}
	if x := a.Arg("fields", -1); x != nil {
		fs, ok := qschema.Idents(x)
		if !ok {
			b.edgeErrorf(e, "fields must be a list of field names")
		}
		r.fields = fs
	}
	if x := a.Arg("references", -1); x != nil {
		rs, ok := qschema.Idents(x)
		if !ok {
			b.edgeErrorf(e, "references must be a list of field names")
		}
		r.references = rs
	}
	action := func(name string) string {
		x := a.Arg(name, -1)
		if x == nil {
			return ""
		}
		id, ok := x.(*qschema.IdentExpr)
		if !ok {
			b.edgeErrorf(e, "%s must be a referential action", name)
			return ""
		}
		return id.Name
	}
	r.onDelete, r.onUpdate = action("onDelete"), action("onUpdate")
	for _, arg := range a.Args {
		switch arg.Name {
		case "", "name", "fields", "references", "onDelete", "onUpdate", "map":
		default:
			b.edgeErrorf(e, "unknown @relation argument %q", arg.Name)
		}
	}
	return r
}

// identifier resolves @id and @@id.
func (b *builder) identifier(t *Type, m *qschema.Model) {
	for _, f := range t.Fields {
		if f.ID {
			t.ID = append(t.ID, f)
		}
	}
	if len(t.ID) > 1 {
		b.errorf(m.Pos, t.Name, "", "more than one field is marked with @id; use @@id([...]) for compound identifiers")
	}
	ids := m.BlockAttributes("id")
	switch {
	case len(ids) > 1:
		b.errorf(ids[1].Pos, t.Name, "", "@@id is declared more than once")
	case len(ids) == 1 && len(t.ID) > 0:
		b.errorf(ids[0].Pos, t.Name, "", "a model cannot have both @id and @@id")
	case len(ids) == 1:
		fields := b.blockFields(t, ids[0])
		for _, f := range fields {
			if f.Optional {
				b.errorf(ids[0].Pos, t.Name, f.Name, "identifier fields cannot be optional")
			}
		}
		if len(fields) == 1 {
			fields[0].ID = true
		}
		t.ID = fields
	case len(t.ID) == 0:
		b.errorf(m.Pos, t.Name, "", "model has no identifier; mark a field with @id or add @@id([...])")
	}
}

// blockFields resolves the field list of a block attribute.
func (b *builder) blockFields(t *Type, a *qschema.Attribute) []*Field {
	names, ok := qschema.Idents(a.Arg("fields", 0))
	if !ok || len(names) == 0 {
		b.errorf(a.Pos, t.Name, "", "@@%s requires a list of fields", a.Name)
		return nil
	}
	fields := make([]*Field, 0, len(names))
	for _, n := range names {
		f := t.fields[n]
		switch {
		case f == nil && t.edges[n] != nil:
			b.errorf(a.Pos, t.Name, n, "@@%s cannot reference relation fields", a.Name)
		case f == nil:
			b.errorf(a.Pos, t.Name, n, "@@%s references unknown field %q", a.Name, n)
		case slices.Contains(fields, f):
			b.errorf(a.Pos, t.Name, n, "@@%s lists field %q more than once", a.Name, n)
		default:
			fields = append(fields, f)
		}
	}
	if len(fields) != len(names) {
		return nil
	}
	return fields
}

func (b *builder) blockAttributes(t *Type, m *qschema.Model) {
	uniques := make(map[string]bool)
	for _, a := range m.Attributes {
		if spec, ok := blockAttrArgs[a.Name]; ok {
			if msgs := checkArgs("@@", a, spec); len(msgs) > 0 {
				for _, msg := range msgs {
					b.errorf(a.Pos, t.Name, "", "%s", msg)
				}
				continue
			}
		}
		switch a.Name {
		case "id", "map":
		case "unique", "index":
			fields := b.blockFields(t, a)
			if fields == nil {
				continue
			}
			idx := &Index{Fields: fields, Unique: a.Name == "unique", Pos: a.Pos}
			idx.Name, _ = qschema.StringValue(a.Arg("name", -1))
			idx.Map, _ = qschema.StringValue(a.Arg("map", -1))
			if !idx.Unique {
				t.Indexes = append(t.Indexes, idx)
				continue
			}
			if len(fields) == 1 && idx.Name == "" && idx.Map == "" {
				fields[0].Unique = true
				continue
			}
			if idx.Name == "" {
				idx.Name = fieldNames(fields, "_")
			}
			if !token.IsIdentifier(idx.Name) {
				b.errorf(a.Pos, t.Name, "", "invalid unique name %q", idx.Name)
				continue
			}
			if uniques[idx.Name] {
				b.errorf(a.Pos, t.Name, "", "unique constraint %q is declared more than once", idx.Name)
				continue
			}
			uniques[idx.Name] = true
			t.Uniques = append(t.Uniques, idx)
		default:
			b.errorf(a.Pos, t.Name, "", "unknown block attribute @@%s", a.Name)
		}
	}
}

// fieldDefault validates and resolves @default.
func (b *builder) fieldDefault(t *Type, f *Field, sf *qschema.Field) {
	a := sf.Attribute("default")
	if a == nil {
		return
	}
	x := a.Arg("value", 0)
	fail := func(format string, args ...any) {
		b.errorf(a.Pos, t.Name, f.Name, "invalid @default: "+format, args...)
	}
	if x == nil {
		fail("missing value")
		return
	}
	d := &Default{Kind: engine.DefaultValue}
	switch x := x.(type) {
	case *qschema.FuncExpr:
		switch x.Name {
		case "autoincrement":
			if f.Type != field.TypeInt && f.Type != field.TypeInt64 {
				fail("autoincrement() is only allowed on Int and BigInt fields")
				return
			}
			if !f.ID || len(t.ID) != 1 {
				fail("autoincrement() is only allowed on single field identifiers")
				return
			}
			d.Kind = engine.DefaultAutoincrement
		case "now":
			if f.Type != field.TypeTime {
				fail("now() is only allowed on DateTime fields")
				return
			}
			d.Kind = engine.DefaultNow
		case "uuid", "cuid":
			if f.Type != field.TypeString {
				fail("%s() is only allowed on String fields", x.Name)
				return
			}
			d.Kind = engine.DefaultUUID
			if x.Name == "cuid" {
				d.Kind = engine.DefaultCUID
			}
		case "dbgenerated":
			var expr string
			if len(x.Args) > 0 {
				expr, _ = qschema.StringValue(x.Args[0].Value)
			}
			if expr == "" {
				fail(`dbgenerated requires an SQL expression, e.g. dbgenerated("gen_random_uuid()")`)
				return
			}
			d.Kind, d.Expr = engine.DefaultDBGenerated, expr
		default:
			fail("unknown function %s()", x.Name)
			return
		}
	case *qschema.IdentExpr:
		if f.Enum == nil {
			fail("%s is not a value of type %s", x.Name, f.Type.Scalar())
			return
		}
		v := f.Enum.Value(x.Name)
		if v == nil {
			fail("%s is not a value of enum %s", x.Name, f.Enum.Name)
			return
		}
		d.Value = v.Value
	default:
		v, err := literalOf(f, x)
		if err != nil {
			fail("%v", err)
			return
		}
		d.Value = v
	}
	f.Default = d
}

// literalOf converts a literal default into the Go value kept in Default.
func literalOf(f *Field, x qschema.Expr) (any, error) {
	mismatch := func() error {
		name := f.Type.Scalar()
		if f.Enum != nil {
			name = f.Enum.Name
		}
		return fmt.Errorf("%s does not match type %s", x, name)
	}
	switch x := x.(type) {
	case *qschema.BoolExpr:
		if f.Type != field.TypeBool {
			return nil, mismatch()
		}
		return x.Value, nil
	case *qschema.NumberExpr:
		switch f.Type {
		case field.TypeInt:
			n, err := strconv.ParseInt(x.Value, 10, 32)
			if err != nil {
				return nil, mismatch()
			}
			return n, nil
		case field.TypeInt64:
			n, err := strconv.ParseInt(x.Value, 10, 64)
			if err != nil {
				return nil, mismatch()
			}
			return n, nil
		case field.TypeFloat64:
			n, err := strconv.ParseFloat(x.Value, 64)
			if err != nil {
				return nil, mismatch()
			}
			return n, nil
		case field.TypeDecimal:
			d, err := decimal.NewFromString(x.Value)
			if err != nil {
				return nil, mismatch()
			}
			return d.String(), nil
		}
	case *qschema.StringExpr:
		switch f.Type {
		case field.TypeString:
			return x.Value, nil
		case field.TypeDecimal:
			d, err := decimal.NewFromString(x.Value)
			if err != nil {
				return nil, mismatch()
			}
			return d.String(), nil
		case field.TypeJSON:
			if !json.Valid([]byte(x.Value)) {
				return nil, fmt.Errorf("%s is not valid JSON", x)
			}
			return x.Value, nil
		case field.TypeTime:
			if _, err := time.Parse(time.RFC3339, x.Value); err != nil {
				return nil, fmt.Errorf("%s is not an RFC 3339 time", x)
			}
			return x.Value, nil
		}
	}
	return nil, mismatch()
}

// nativeType validates and resolves @db.<Type>.
func (b *builder) nativeType(t *Type, f *Field, sf *qschema.Field) {
	a := sf.NativeType()
	if a == nil || b.g.Storage == nil {
		return
	}
	name := strings.TrimPrefix(a.Name, "db.")
	if !b.g.Storage.SchemaMode.Support(NativeTypes) {
		b.errorf(a.Pos, t.Name, f.Name, "native types are not supported by provider %s", b.g.Storage)
		return
	}
	spec := b.g.Storage.NativeType(name)
	if spec == nil {
		b.errorf(a.Pos, t.Name, f.Name, "unknown native type @db.%s for provider %s", name, b.g.Storage)
		return
	}
	if f.Enum != nil || !slices.Contains(spec.Fields, f.Type) {
		b.errorf(a.Pos, t.Name, f.Name, "native type @db.%s is not compatible with type %s", name, sf.Type)
		return
	}
	if n := len(a.Args); n < spec.MinArgs || n > spec.MaxArgs {
		b.errorf(a.Pos, t.Name, f.Name, "native type @db.%s expects %d to %d arguments, got %d", name, spec.MinArgs, spec.MaxArgs, n)
		return
	}
	nt := &NativeType{Name: name, spec: spec}
	for _, arg := range a.Args {
		n, ok := qschema.IntValue(arg.Value)
		if !ok || n < 0 {
			b.errorf(a.Pos, t.Name, f.Name, "native type @db.%s expects non-negative integer arguments", name)
			return
		}
		nt.Args = append(nt.Args, n)
	}
	if name == "Decimal" && len(nt.Args) == 2 && nt.Args[1] > nt.Args[0] {
		b.errorf(a.Pos, t.Name, f.Name, "decimal scale %d exceeds precision %d", nt.Args[1], nt.Args[0])
		return
	}
	f.Native = nt
}

// relations pairs the relation fields and resolves their storage.
func (b *builder) relations() {
	done := make(map[*Edge]bool)
	for _, t := range b.g.Nodes {
		for _, e := range t.Edges {
			if done[e] {
				continue
			}
			done[e] = true
			ref := b.opposite(e)
			if ref == nil || done[ref] {
				continue
			}
			done[ref] = true
			b.pair(e, ref)
		}
	}
}

// opposite finds the back-relation of e.
func (b *builder) opposite(e *Edge) *Edge {
	name := e.attr.name
	if e.SelfRef() && name == "" {
		b.edgeErrorf(e, "self relations require a name, e.g. @relation(%q)", e.Owner.Name+"To"+e.Owner.Name)
		return nil
	}
	var siblings, cands []*Edge
	for _, o := range e.Owner.Edges {
		if o.Type == e.Type && o.attr.name == name {
			siblings = append(siblings, o)
		}
	}
	for _, o := range e.Type.Edges {
		if o != e && o.Type == e.Owner && o.attr.name == name {
			cands = append(cands, o)
		}
	}
	if !e.SelfRef() && len(siblings) > 1 {
		b.edgeErrorf(e, "ambiguous relation: %s has more than one relation to %s; name them with @relation(\"...\")", e.Owner.Name, e.Type.Name)
		return nil
	}
	switch len(cands) {
	case 0:
		if name != "" {
			b.edgeErrorf(e, "missing opposite relation field on model %s with @relation(%q)", e.Type.Name, name)
		} else {
			b.edgeErrorf(e, "missing opposite relation field on model %s", e.Type.Name)
		}
		return nil
	case 1:
		return cands[0]
	default:
		b.edgeErrorf(e, "ambiguous relation: %s has more than one relation to %s; name them with @relation(\"...\")", e.Type.Name, e.Owner.Name)
		return nil
	}
}

func (b *builder) pair(x, y *Edge) {
	name := x.attr.name
	if name == "" {
		first, second := x.Owner.Name, y.Owner.Name
		if first > second {
			first, second = second, first
		}
		name = first + "To" + second
	}
	x.RelName, y.RelName = name, name
	x.Ref, y.Ref = y, x
	switch {
	case x.List() && y.List():
		if x.attr.hasKeys() || y.attr.hasKeys() {
			b.edgeErrorf(x, "many-to-many relations cannot define fields or references")
			return
		}
		if x.attr.hasActions() || y.attr.hasActions() {
			b.edgeErrorf(x, "many-to-many relations cannot define referential actions")
			return
		}
		b.manyToMany(x, y)
	case x.attr.hasKeys() && y.attr.hasKeys():
		b.edgeErrorf(x, "only one side of the relation may define fields and references")
	case !x.attr.hasKeys() && !y.attr.hasKeys():
		e := x
		if x.List() {
			e = y
		}
		b.edgeErrorf(e, "the relation must define fields and references on one side, e.g. @relation(fields: [%sId], references: [id])", e.Name)
	default:
		fk, other := x, y
		if y.attr.hasKeys() {
			fk, other = y, x
		}
		if fk.List() {
			b.edgeErrorf(fk, "fields and references must be defined on the to-one side of the relation")
			return
		}
		if other.attr.hasActions() {
			b.edgeErrorf(other, "referential actions must be defined on the side with fields and references")
			return
		}
		b.foreignKey(fk, other)
	}
}

// fieldsOf resolves the named scalar fields of t.
func (b *builder) fieldsOf(e *Edge, t *Type, names []string, arg string) ([]*Field, bool) {
	fields := make([]*Field, 0, len(names))
	for _, n := range names {
		f := t.Field(n)
		if f == nil {
			b.edgeErrorf(e, "%s: unknown scalar field %s.%s", arg, t.Name, n)
			return nil, false
		}
		fields = append(fields, f)
	}
	return fields, true
}

func (b *builder) foreignKey(fk, other *Edge) {
	a := fk.attr
	if len(a.fields) == 0 || len(a.fields) != len(a.references) {
		b.edgeErrorf(fk, "fields and references must have the same non-zero length")
		return
	}
	fields, ok1 := b.fieldsOf(fk, fk.Owner, a.fields, "fields")
	refs, ok2 := b.fieldsOf(fk, fk.Type, a.references, "references")
	if !ok1 || !ok2 {
		return
	}
	for i, f := range fields {
		if r := refs[i]; f.Type != r.Type || f.Enum != r.Enum {
			b.edgeErrorf(fk, "field %s and its reference %s.%s have different types", f.Name, fk.Type.Name, r.Name)
			return
		}
	}
	if !fk.Type.IsUnique(refs) {
		b.edgeErrorf(fk, "references must be the identifier or a unique constraint of %s", fk.Type.Name)
		return
	}
	required := slices.ContainsFunc(fields, func(f *Field) bool { return !f.Optional })
	switch {
	case !fk.Optional && slices.ContainsFunc(fields, func(f *Field) bool { return f.Optional }):
		b.edgeErrorf(fk, "the relation is required, so its fields must be required too")
		return
	case fk.Optional && required:
		b.edgeErrorf(fk, "the relation is optional, but its fields are required; mark the relation field required")
		return
	}
	if other.Unique {
		if !fk.Owner.IsUnique(fields) {
			b.edgeErrorf(fk, "one-to-one relations require unique fields; add @unique to %s", strings.Join(a.fields, ", "))
			return
		}
		if !other.Optional {
			b.edgeErrorf(other, "the back side of a one-to-one relation must be optional")
			return
		}
	}
	onDelete, onUpdate := schema.Restrict, schema.Cascade
	if !required {
		onDelete = schema.SetNull
	}
	for _, act := range []struct {
		name string
		raw  string
		dst  *schema.ReferenceOption
	}{{"onDelete", a.onDelete, &onDelete}, {"onUpdate", a.onUpdate, &onUpdate}} {
		if act.raw == "" {
			continue
		}
		opt, ok := schema.ReferenceOptionOf(act.raw)
		if !ok {
			b.edgeErrorf(fk, "%s: unknown referential action %q (use Cascade, Restrict, NoAction, SetNull or SetDefault)", act.name, act.raw)
			return
		}
		if opt == schema.SetNull && required {
			b.edgeErrorf(fk, "%s: SetNull requires optional fields", act.name)
			return
		}
		*act.dst = opt
	}
	fk.FK = true
	fk.Fields, fk.References = fields, refs
	other.Fields, other.References = refs, fields
	fk.OnDelete, other.OnDelete = onDelete, onDelete
	fk.OnUpdate, other.OnUpdate = onUpdate, onUpdate
	for _, f := range fields {
		f.fk = append(f.fk, fk)
	}
	rel := Relation{
		Type:       M2O,
		Table:      fk.Owner.Table,
		Columns:    columnsOf(fields),
		RefColumns: columnsOf(refs),
	}
	fk.Rel = rel
	rel.Type = O2M
	if other.Unique {
		fk.Rel.Type, rel.Type = O2O, O2O
	}
	other.Rel = rel
}

func (b *builder) manyToMany(x, y *Edge) {
	for _, e := range []*Edge{x, y} {
		if len(e.Owner.ID) != 1 {
			b.edgeErrorf(e, "implicit many-to-many relations require a single field identifier on %s", e.Owner.Name)
			return
		}
	}
	first, second := x, y
	if x.Owner.Name > y.Owner.Name || (x.Owner == y.Owner && x.Name > y.Name) {
		first, second = y, x
	}
	table := "_" + x.RelName
	first.Rel = Relation{
		Type:       M2M,
		Table:      table,
		Columns:    []string{"A", "B"},
		RefColumns: []string{first.Owner.ID[0].Column, second.Owner.ID[0].Column},
	}
	second.Rel = Relation{
		Type:       M2M,
		Table:      table,
		Columns:    []string{"B", "A"},
		RefColumns: []string{second.Owner.ID[0].Column, first.Owner.ID[0].Column},
	}
	for _, e := range []*Edge{first, second} {
		e.Fields, e.References = e.Owner.ID, e.Type.ID
	}
}

// tables checks that models and join tables map to distinct tables.
func (b *builder) tables() {
	seen := make(map[string]string)
	for _, t := range b.g.Nodes {
		if prev, ok := seen[t.Table]; ok {
			b.errorf(t.Pos, t.Name, "", "table %q is already used by %s", t.Table, prev)
			continue
		}
		seen[t.Table] = "model " + t.Name
	}
	for _, t := range b.g.Nodes {
		for _, e := range t.Edges {
			if !e.M2M() || e.Rel.Columns[0] != "A" {
				continue
			}
			if prev, ok := seen[e.Rel.Table]; ok {
				b.edgeErrorf(e, "join table %q is already used by %s", e.Rel.Table, prev)
				continue
			}
			seen[e.Rel.Table] = "relation " + e.RelName
		}
	}
}

func columnsOf(fs []*Field) []string {
	cols := make([]string, len(fs))
	for i, f := range fs {
		cols[i] = f.Column
	}
	return cols
}
