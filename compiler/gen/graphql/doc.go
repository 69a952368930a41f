// Package graphql implements the "quarry-graphql" generator. It writes the
// GraphQL SDL of a compiled schema (object types, enums, order and input
// types, Query and Mutation) and a gqlgen.yml that binds every GraphQL type
// to the generated Go client, so gqlgen resolvers can pass the inputs to
// the client unchanged.
//
//	generator graphql {
//	  provider = "quarry-graphql"
//	  output   = "./graph"
//	  client   = "github.com/acme/app/db"
//	}
//
// Relation fields are bound as resolver fields. The Decimal, JSON and Bytes
// scalars need a user provided binding.
package graphql
