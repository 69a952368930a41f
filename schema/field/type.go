package field

// A Type represents a scalar field type.
type Type uint8

// List of field types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeString
	TypeInt
	TypeInt64
	TypeFloat64
	TypeDecimal
	TypeTime
	TypeJSON
	TypeBytes
	TypeEnum
	endTypes
)

var (
	typeNames = [...]string{
		TypeInvalid: "invalid",
		TypeBool:    "bool",
		TypeString:  "string",
		TypeInt:     "int",
		TypeInt64:   "int64",
		TypeFloat64: "float64",
		TypeDecimal: "decimal.Decimal",
		TypeTime:    "time.Time",
		TypeJSON:    "json.RawMessage",
		TypeBytes:   "[]byte",
		TypeEnum:    "string",
	}
	constNames = [...]string{
		TypeBool:    "TypeBool",
		TypeString:  "TypeString",
		TypeInt:     "TypeInt",
		TypeInt64:   "TypeInt64",
		TypeFloat64: "TypeFloat64",
		TypeDecimal: "TypeDecimal",
		TypeTime:    "TypeTime",
		TypeJSON:    "TypeJSON",
		TypeBytes:   "TypeBytes",
		TypeEnum:    "TypeEnum",
	}
	scalars = map[string]Type{
		"Boolean":  TypeBool,
		"String":   TypeString,
		"Int":      TypeInt,
		"BigInt":   TypeInt64,
		"Float":    TypeFloat64,
		"Decimal":  TypeDecimal,
		"DateTime": TypeTime,
		"Json":     TypeJSON,
		"Bytes":    TypeBytes,
	}
)

// String returns the Go type name of the field type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t == TypeInt || t == TypeInt64 || t == TypeFloat64 || t == TypeDecimal
}

// Valid reports if the given type is known type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// ConstName returns the constant name of an info type.
// It's used by the code generator when printing runtime metadata.
func (t Type) ConstName() string {
	if !t.Valid() {
		return "TypeInvalid"
	}
	return constNames[t]
}

// Scalar returns the schema language name of the type, or an empty
// string for enums and invalid types.
func (t Type) Scalar() string {
	for name, st := range scalars {
		if st == t {
			return name
		}
	}
	return ""
}

// FromScalar returns the field type of a builtin scalar name such as
// "String" or "DateTime". Unknown names return TypeInvalid.
func FromScalar(name string) Type {
	return scalars[name]
}

// IsScalar reports if name is a builtin scalar type name.
func IsScalar(name string) bool {
	_, ok := scalars[name]
	return ok
}

// Scalars returns the builtin scalar names in a stable order.
func Scalars() []string {
	return []string{"String", "Boolean", "Int", "BigInt", "Float", "Decimal", "DateTime", "Json", "Bytes"}
}

// Comparable reports if values of the type can be ordered with < and >.
func (t Type) Comparable() bool {
	return t.Numeric() || t == TypeString || t == TypeTime || t == TypeEnum
}

// Text reports if the type supports string matching predicates.
func (t Type) Text() bool {
	return t == TypeString
}
