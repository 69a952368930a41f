package engine

import (
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/schema/field"
)

// Record is a row of a model with its loaded relations. Values are keyed
// by field name and hold the Go type of the field (see field.Type.String),
// or nil for NULL. Enum values are stored as strings.
type Record struct {
	Values map[string]any
	// Edges holds the loaded relations. A relation that was included but
	// has no related records maps to an empty slice.
	Edges map[string][]*Record
}

func newRecord() *Record {
	return &Record{Values: make(map[string]any)}
}

// Get returns the value of the field converted to T, or the zero value
// of T if the field is NULL or was not selected.
func Get[T any](r *Record, name string) T {
	v, _ := r.Values[name].(T)
	return v
}

// GetPtr returns a pointer to the value of the field, or nil if the field
// is NULL or was not selected.
func GetPtr[T any](r *Record, name string) *T {
	v, ok := r.Values[name].(T)
	if !ok {
		return nil
	}
	return &v
}

// Loaded reports whether the relation was included in the query.
func (r *Record) Loaded(relation string) bool {
	_, ok := r.Edges[relation]
	return ok
}

// Edge returns the records of a loaded relation.
func (r *Record) Edge(relation string) []*Record {
	return r.Edges[relation]
}

func (r *Record) setEdge(relation string, recs []*Record) {
	if r.Edges == nil {
		r.Edges = make(map[string][]*Record)
	}
	if recs == nil {
		recs = []*Record{}
	}
	r.Edges[relation] = recs
}

// key returns the values of the given fields.
func (r *Record) key(fields []string) []any {
	vs := make([]any, len(fields))
	for i, f := range fields {
		vs[i] = r.Values[f]
	}
	return vs
}

// scanDest returns a scan destination for a column of type t.
func scanDest(t field.Type) any {
	switch t {
	case field.TypeBool:
		return new(stdsql.NullBool)
	case field.TypeInt, field.TypeInt64:
		return new(stdsql.NullInt64)
	case field.TypeFloat64:
		return new(stdsql.NullFloat64)
	case field.TypeDecimal:
		return new(decimal.NullDecimal)
	case field.TypeTime:
		return new(stdsql.NullTime)
	case field.TypeJSON, field.TypeBytes:
		return new(stdsql.Null[[]byte])
	default:
		return new(stdsql.NullString)
	}
}

// scanValue returns the Go value held by a scan destination.
func scanValue(t field.Type, dest any) any {
	switch d := dest.(type) {
	case *stdsql.NullBool:
		if d.Valid {
			return d.Bool
		}
	case *stdsql.NullInt64:
		if d.Valid {
			if t == field.TypeInt {
				return int(d.Int64)
			}
			return d.Int64
		}
	case *stdsql.NullFloat64:
		if d.Valid {
			return d.Float64
		}
	case *decimal.NullDecimal:
		if d.Valid {
			return d.Decimal
		}
	case *stdsql.NullTime:
		if d.Valid {
			return d.Time
		}
	case *stdsql.Null[[]byte]:
		if d.Valid {
			if t == field.TypeJSON {
				return json.RawMessage(d.V)
			}
			return d.V
		}
	case *stdsql.NullString:
		if d.Valid {
			return d.String
		}
	}
	return nil
}

// scanRecords reads all rows. The selected columns must match fields in order.
func scanRecords(rows *sql.Rows, fields []*Field) (_ []*Record, rerr error) {
	defer func() {
		if err := rows.Close(); err != nil && rerr == nil {
			rerr = err
		}
	}()
	var recs []*Record
	for rows.Next() {
		dest := make([]any, len(fields))
		for i, f := range fields {
			dest[i] = scanDest(f.Type)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r := newRecord()
		for i, f := range fields {
			r.Values[f.Name] = scanValue(f.Type, dest[i])
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// normalize converts v into the Go type of the field. It accepts the
// types produced by decoding cached records and by generated inputs.
func normalize(t field.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch t {
	case field.TypeBool:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	case field.TypeInt, field.TypeInt64:
		var n int64
		switch {
		case rv.CanInt():
			n = rv.Int()
		case rv.CanUint():
			n = int64(rv.Uint())
		default:
			return nil, fmt.Errorf("engine: cannot use %T as %s", v, t)
		}
		if t == field.TypeInt {
			return int(n), nil
		}
		return n, nil
	case field.TypeFloat64:
		switch {
		case rv.CanFloat():
			return rv.Float(), nil
		case rv.CanInt():
			return float64(rv.Int()), nil
		}
	case field.TypeDecimal:
		switch v := v.(type) {
		case decimal.Decimal:
			return v, nil
		case string:
			return decimal.NewFromString(v)
		case float64:
			return decimal.NewFromFloat(v), nil
		}
	case field.TypeTime:
		if tm, ok := v.(time.Time); ok {
			return tm, nil
		}
	case field.TypeJSON:
		switch v := v.(type) {
		case json.RawMessage:
			return v, nil
		case []byte:
			return json.RawMessage(v), nil
		case string:
			return json.RawMessage(v), nil
		default:
			buf, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("engine: encode json: %w", err)
			}
			return json.RawMessage(buf), nil
		}
	case field.TypeBytes:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	case field.TypeString, field.TypeEnum:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	}
	return nil, fmt.Errorf("engine: cannot use %T as %s", v, t)
}

// cachedRecord is the msgpack form of a record.
type cachedRecord struct {
	Values map[string]any            `msgpack:"v"`
	Edges  map[string][]*cachedRecord `msgpack:"e,omitempty"`
}

func toCached(r *Record) *cachedRecord {
	c := &cachedRecord{Values: make(map[string]any, len(r.Values))}
	for k, v := range r.Values {
		switch v := v.(type) {
		case decimal.Decimal:
			c.Values[k] = v.String()
		case json.RawMessage:
			c.Values[k] = []byte(v)
		default:
			c.Values[k] = v
		}
	}
	if r.Edges != nil {
		c.Edges = make(map[string][]*cachedRecord, len(r.Edges))
		for k, recs := range r.Edges {
			cs := make([]*cachedRecord, len(recs))
			for i, rec := range recs {
				cs[i] = toCached(rec)
			}
			c.Edges[k] = cs
		}
	}
	return c
}

func (s *Schema) fromCached(m *Model, c *cachedRecord) (*Record, error) {
	r := newRecord()
	for k, v := range c.Values {
		f := m.Field(k)
		if f == nil {
			return nil, fmt.Errorf("engine: cached field %s.%s does not exist", m.Name, k)
		}
		nv, err := normalize(f.Type, v)
		if err != nil {
			return nil, err
		}
		r.Values[k] = nv
	}
	for name, cs := range c.Edges {
		rel := m.Relation(name)
		if rel == nil {
			return nil, fmt.Errorf("engine: cached relation %s.%s does not exist", m.Name, name)
		}
		target := s.models[rel.Model]
		recs := make([]*Record, len(cs))
		for i, cr := range cs {
			rec, err := s.fromCached(target, cr)
			if err != nil {
				return nil, err
			}
			recs[i] = rec
		}
		r.setEdge(name, recs)
	}
	return r, nil
}

func encodeRecords(recs []*Record) ([]byte, error) {
	cs := make([]*cachedRecord, len(recs))
	for i, r := range recs {
		cs[i] = toCached(r)
	}
	return msgpack.Marshal(cs)
}

func (s *Schema) decodeRecords(m *Model, data []byte) ([]*Record, error) {
	var cs []*cachedRecord
	if err := msgpack.Unmarshal(data, &cs); err != nil {
		return nil, err
	}
	recs := make([]*Record, len(cs))
	for i, c := range cs {
		r, err := s.fromCached(m, c)
		if err != nil {
			return nil, err
		}
		recs[i] = r
	}
	return recs, nil
}
