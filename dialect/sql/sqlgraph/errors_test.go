package sqlgraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/syssam/quarry"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		unique     bool
		foreignKey bool
		check      bool
		constraint string
	}{
		{
			name:       "pq unique",
			err:        &pq.Error{Code: "23505", Constraint: "users_email_key"},
			unique:     true,
			constraint: "users_email_key",
		},
		{
			name:       "pgx foreign key",
			err:        fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503", ConstraintName: "posts_authorId_fkey"}),
			foreignKey: true,
			constraint: "posts_authorId_fkey",
		},
		{
			name:       "mysql duplicate",
			err:        &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'users.users_email_key'"},
			unique:     true,
			constraint: "users_email_key",
		},
		{
			name:       "mysql child row",
			err:        &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails (`db`.`posts`, CONSTRAINT `posts_authorId_fkey` FOREIGN KEY (`authorId`) REFERENCES `users` (`id`))"},
			foreignKey: true,
			constraint: "posts_authorId_fkey",
		},
		{
			name:       "mysql check",
			err:        &mysql.MySQLError{Number: 3819, Message: "Check constraint 'users_age_check' is violated."},
			check:      true,
			constraint: "users_age_check",
		},
		{
			name:       "sqlite unique",
			err:        errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"),
			unique:     true,
			constraint: "users.email",
		},
		{
			name:       "sqlite foreign key",
			err:        errors.New("constraint failed: FOREIGN KEY constraint failed (787)"),
			foreignKey: true,
		},
		{
			name: "other",
			err:  errors.New("connection refused"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.foreignKey, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))
			assert.Equal(t, tt.unique || tt.foreignKey || tt.check, IsConstraintError(tt.err))

			wrapped := WrapError(tt.err)
			if !IsConstraintError(tt.err) {
				require.Same(t, tt.err, wrapped)
				return
			}
			var ce quarry.ConstraintError
			require.True(t, errors.As(wrapped, &ce))
			assert.Equal(t, tt.constraint, ce.Constraint())
			assert.ErrorIs(t, wrapped, tt.err)
		})
	}
	require.NoError(t, WrapError(nil))
}
