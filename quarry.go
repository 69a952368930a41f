// Package quarry is a schema-driven ORM toolkit.
//
// A schema file declares a datasource, one or more generators and the data
// models. The compiler validates the schema and produces an intermediate
// graph; generators turn the graph into a typed Go client backed by the
// engine package, and the migration engine keeps the database structure in
// sync with the models.
//
//	datasource db {
//	  provider = "postgresql"
//	  url      = env("DATABASE_URL")
//	}
//
//	generator client {
//	  provider = "quarry-client-go"
//	  output   = "./db"
//	}
//
//	model User {
//	  id    Int    @id @default(autoincrement())
//	  email String @unique
//	  posts Post[]
//	}
//
// The root package holds the error types and the cache contract shared by
// the generated code and the runtime.
package quarry

// Version of the toolkit, stamped into generated files and reported by the CLI.
const Version = "0.4.0"

// Ptr returns a pointer to v. Generated create and update inputs take
// pointers for optional values.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value pointed to by p, or the zero value if p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
