// Package field defines the scalar types a schema field can have and maps
// the names used in schema files (String, Int, DateTime, ...) to them.
//
//	field.FromScalar("DateTime") // field.TypeTime
//	field.TypeDecimal.Numeric()  // true
//
// Enum fields use TypeEnum; their allowed values live on the enum
// declaration in the schema, not on the type.
package field
