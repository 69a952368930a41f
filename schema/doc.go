// Package schema holds the in-memory model of a schema file: datasource,
// generator, model and enum blocks with their fields and attributes.
//
// Values of this package are produced by compiler/load and by database
// introspection, and are consumed by the compiler. They are not modified
// after loading; a changed file is loaded again into a new Schema.
//
//	s, err := load.ParseFile("schema.quarry")
//	if err != nil {
//		return err
//	}
//	user := s.Model("User")
//	fmt.Println(user.TableName(), user.Field("email").ColumnName())
//
// Format writes the canonical text of a Schema, as used by `quarry format`
// and `quarry db pull`.
package schema
