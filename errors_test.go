package quarry_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := quarry.NewNotFoundError("User")
		assert.Equal(t, "quarry: User not found", err.Error())
		err = quarry.NewNotFoundErrorWithID("User", `id == 1`)
		assert.Equal(t, "quarry: User not found (id == 1)", err.Error())
		assert.Equal(t, "User", err.Label())
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := quarry.NewNotFoundError("Comment")
		assert.True(t, errors.Is(err, quarry.ErrNotFound))
		assert.True(t, quarry.IsNotFound(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, quarry.IsNotFound(quarry.ErrNotFound))
		assert.False(t, quarry.IsNotFound(errors.New("other error")))
		assert.False(t, quarry.IsNotFound(nil))
	})

	t.Run("MaskNotFound", func(t *testing.T) {
		assert.NoError(t, quarry.MaskNotFound(quarry.NewNotFoundError("Post")))
		other := errors.New("boom")
		assert.Equal(t, other, quarry.MaskNotFound(other))
	})
}

func TestNotSingularError(t *testing.T) {
	err := quarry.NewNotSingularErrorWithCount("User", 2)
	assert.Equal(t, "quarry: User not singular (got 2 results, expected 1)", err.Error())
	assert.True(t, errors.Is(err, quarry.ErrNotSingular))
	assert.True(t, quarry.IsNotSingular(fmt.Errorf("wrapper: %w", err)))
	assert.Equal(t, "quarry: User not singular", quarry.NewNotSingularError("User").Error())
	assert.False(t, quarry.IsNotSingular(nil))
}

func TestNotLoadedError(t *testing.T) {
	err := quarry.NewNotLoadedError("posts")
	assert.Equal(t, `quarry: relation "posts" was not loaded`, err.Error())
	assert.Equal(t, "posts", err.Edge())
	assert.True(t, quarry.IsNotLoaded(fmt.Errorf("wrapper: %w", err)))
	assert.False(t, quarry.IsNotLoaded(errors.New("other error")))
}

func TestConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := quarry.NewConstraintError("UNIQUE constraint failed", nil)
		assert.Equal(t, "quarry: constraint failed: UNIQUE constraint failed", err.Error())
	})

	t.Run("Named", func(t *testing.T) {
		underlying := errors.New("db error")
		err := quarry.NewNamedConstraintError("users_email_key", "duplicate key", underlying)
		var ce quarry.ConstraintError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "users_email_key", ce.Constraint())
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsConstraintError", func(t *testing.T) {
		err := quarry.NewConstraintError("check failed", nil)
		assert.True(t, quarry.IsConstraintError(fmt.Errorf("wrapper: %w", err)))
		assert.False(t, quarry.IsConstraintError(errors.New("other error")))
		assert.False(t, quarry.IsConstraintError(nil))
	})
}

func TestValidationError(t *testing.T) {
	underlying := errors.New("invalid format")
	err := quarry.NewValidationError("email", underlying)
	assert.Equal(t, `quarry: invalid value for field "email": invalid format`, err.Error())
	assert.True(t, errors.Is(err, underlying))
	assert.True(t, quarry.IsValidationError(fmt.Errorf("wrapper: %w", err)))
	assert.False(t, quarry.IsValidationError(nil))
}

func TestRollbackError(t *testing.T) {
	underlying := errors.New("connection lost")
	err := &quarry.RollbackError{Err: underlying}
	assert.Equal(t, "quarry: rollback failed: connection lost", err.Error())
	assert.True(t, errors.Is(err, underlying))
}

func TestAggregateError(t *testing.T) {
	assert.Nil(t, quarry.NewAggregateError())
	assert.Nil(t, quarry.NewAggregateError(nil, nil))

	single := errors.New("single error")
	assert.Equal(t, single, quarry.NewAggregateError(nil, single, nil))

	err1 := errors.New("error 1")
	err2 := errors.New("error 2")
	err := quarry.NewAggregateError(err1, err2)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "multiple errors")
	assert.Contains(t, err.Error(), "error 2")
	assert.True(t, errors.Is(err, err1))
}

func TestQueryAndMutationErrors(t *testing.T) {
	underlying := errors.New("syntax error")

	qe := quarry.NewQueryError("User", "findMany", underlying)
	assert.Equal(t, "quarry: querying User (findMany): syntax error", qe.Error())
	assert.True(t, quarry.IsQueryError(fmt.Errorf("wrap: %w", qe)))
	assert.True(t, errors.Is(qe, underlying))

	me := quarry.NewMutationError("Post", "create", quarry.NewConstraintError("unique", nil))
	assert.Equal(t, "quarry: create Post: quarry: constraint failed: unique", me.Error())
	assert.True(t, quarry.IsMutationError(me))
	assert.True(t, quarry.IsConstraintError(me))
}

func BenchmarkErrors(b *testing.B) {
	b.Run("IsNotFound", func(b *testing.B) {
		err := fmt.Errorf("wrap: %w", quarry.NewNotFoundError("User"))
		for i := 0; i < b.N; i++ {
			_ = quarry.IsNotFound(err)
		}
	})

	b.Run("IsConstraintError", func(b *testing.B) {
		err := quarry.NewConstraintError("unique", nil)
		for i := 0; i < b.N; i++ {
			_ = quarry.IsConstraintError(err)
		}
	})
}
