package sqlgraph

import (
	"errors"
	"strings"

	"github.com/syssam/quarry"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return quarry.IsConstraintError(err) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// WrapError converts driver constraint violations into quarry.ConstraintError
// carrying the violated constraint name. Other errors are returned as-is.
func WrapError(err error) error {
	if err == nil || quarry.IsConstraintError(err) {
		return err
	}
	switch {
	case IsUniqueConstraintError(err):
		return quarry.NewNamedConstraintError(ConstraintName(err), "unique constraint violated", err)
	case IsForeignKeyConstraintError(err):
		return quarry.NewNamedConstraintError(ConstraintName(err), "foreign key constraint violated", err)
	case IsCheckConstraintError(err):
		return quarry.NewNamedConstraintError(ConstraintName(err), "check constraint violated", err)
	}
	return err
}

// ConstraintName extracts the name of the violated constraint from a driver
// error. SQLite does not report names; the failing "table.column" list is
// returned instead.
func ConstraintName(err error) string {
	var (
		pqErr  *pq.Error
		pgErr  *pgconn.PgError
		myErr  *mysql.MySQLError
		result string
	)
	switch {
	case errors.As(err, &pqErr):
		result = pqErr.Constraint
	case errors.As(err, &pgErr):
		result = pgErr.ConstraintName
	case errors.As(err, &myErr):
		result = mysqlConstraint(myErr.Message)
	default:
		msg := err.Error()
		for _, p := range []string{"UNIQUE constraint failed: ", "CHECK constraint failed: "} {
			if i := strings.Index(msg, p); i >= 0 {
				result = strings.TrimSpace(msg[i+len(p):])
				if j := strings.Index(result, " ("); j >= 0 {
					result = result[:j]
				}
			}
		}
	}
	return result
}

// mysqlConstraint parses messages such as:
//
//	Duplicate entry 'a@b.c' for key 'users.users_email_key'
//	Cannot add or update a child row: ... CONSTRAINT `posts_authorId_fkey` FOREIGN KEY ...
//	Check constraint 'users_age_check' is violated.
func mysqlConstraint(msg string) string {
	if i := strings.Index(msg, "CONSTRAINT `"); i >= 0 {
		rest := msg[i+len("CONSTRAINT `"):]
		if j := strings.IndexByte(rest, '`'); j >= 0 {
			return rest[:j]
		}
	}
	for _, p := range []string{"for key '", "Check constraint '"} {
		if i := strings.Index(msg, p); i >= 0 {
			rest := msg[i+len(p):]
			if j := strings.IndexByte(rest, '\''); j >= 0 {
				name := rest[:j]
				if k := strings.LastIndexByte(name, '.'); k >= 0 {
					name = name[k+1:]
				}
				return name
			}
		}
	}
	return ""
}

// sqlStateError is an interface for errors that provide SQLSTATE codes.
// Implemented by: pq.Error, pgx, and some MySQL drivers.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}

	// Check for SQLSTATE code (PostgreSQL, pgx)
	if e, ok := asError[sqlStateError](err); ok {
		if e.SQLState() == pgUniqueViolation {
			return true
		}
	}

	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == pgUniqueViolation {
		return true
	}

	// Check for MySQL error number
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return true
	}

	// Fallback to string matching for drivers that don't implement interfaces
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL (string fallback)
		"violates unique constraint", // Postgres (string fallback)
		"UNIQUE constraint failed",   // SQLite
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}

	// Check for SQLSTATE code (PostgreSQL, pgx)
	if e, ok := asError[sqlStateError](err); ok {
		if e.SQLState() == pgForeignKeyViolation {
			return true
		}
	}

	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == pgForeignKeyViolation {
		return true
	}

	// Check for MySQL error number
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == mysqlForeignKeyParent || me.Number == mysqlForeignKeyChild) {
		return true
	}

	// Fallback to string matching for drivers that don't implement interfaces
	return containsAny(err.Error(),
		"Error 1451",                      // MySQL (Cannot delete or update a parent row)
		"Error 1452",                      // MySQL (Cannot add or update a child row)
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
	)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}

	// Check for SQLSTATE code (PostgreSQL, pgx)
	if e, ok := asError[sqlStateError](err); ok {
		if e.SQLState() == pgCheckViolation {
			return true
		}
	}

	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == pgCheckViolation {
		return true
	}

	// Check for MySQL error number
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlCheckConstraintViolate {
		return true
	}

	// Fallback to string matching for drivers that don't implement interfaces
	return containsAny(err.Error(),
		"Error 3819",                // MySQL
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
	)
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
