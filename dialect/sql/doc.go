// Package sql provides SQL query building primitives and the database/sql
// backed implementation of dialect.Driver.
//
// # Builder Types
//
//   - Builder: low-level SQL string builder with identifier quoting and placeholders
//   - Selector: SELECT query builder with joins, predicates and pagination
//   - InsertBuilder: INSERT statement builder with RETURNING support
//   - UpdateBuilder: UPDATE statement builder with SET and WHERE clauses
//   - DeleteBuilder: DELETE statement builder with WHERE predicates
//
// # Dialect Support
//
// Identifier quoting and placeholders follow the dialect:
//
//	sql.Dialect(dialect.Postgres).Select("id").From(sql.Table("users")).Where(sql.EQ("name", "a8m"))
//	// SELECT "id" FROM "users" WHERE "name" = $1
//
//	sql.Dialect(dialect.MySQL).Select("id").From(sql.Table("users")).Where(sql.EQ("name", "a8m"))
//	// SELECT `id` FROM `users` WHERE `name` = ?
//
// # Predicates
//
//	sql.EQ("name", "john")           // name = ?
//	sql.GT("age", 18)                // age > ?
//	sql.Contains("name", "john")     // name LIKE '%john%'
//	sql.IsNull("deleted_at")         // deleted_at IS NULL
//	sql.In("status", "a", "b")       // status IN (?, ?)
//	sql.Exists(sub)                  // EXISTS (SELECT ...)
//
// Composite predicates are parenthesized only when nested inside another
// composite, so the output stays readable in logs.
//
// # Joins
//
//	u, p := sql.Table("users").As("u"), sql.Table("posts").As("p")
//	s := sql.Dialect(dialect.Postgres).Select().From(u).Join(p)
//	s.On(u.C("id"), p.C("author_id")).Where(sql.EQ(p.C("published"), true))
package sql
