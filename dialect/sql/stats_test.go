package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/syssam/quarry/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(time.Hour),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	require.Equal(t, time.Hour, drv.SlowThreshold())

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("DELETE").WillReturnError(errors.New("boom"))
	require.Error(t, drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "INSERT INTO users DEFAULT VALUES", []any{}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.Equal(t, int64(1), s.TotalQueries)
	assert.Equal(t, int64(2), s.TotalExecs)
	assert.Equal(t, int64(1), s.Errors)
	assert.Zero(t, s.SlowQueries)
	assert.Empty(t, slow)
	assert.Contains(t, s.String(), "queries=1 execs=2")

	drv.SetSlowThreshold(-1)
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, drv.Exec(context.Background(), "UPDATE users SET a = 1", []any{}, nil))
	assert.Equal(t, []string{"UPDATE users SET a = 1"}, slow)
	assert.Equal(t, int64(1), drv.QueryStats().Stats().SlowQueries)

	drv.QueryStats().Reset()
	assert.Zero(t, drv.QueryStats().Stats().AvgQueryDuration())
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.SQLite, db), logger, DebugLevel(slog.LevelDebug))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "DELETE FROM users WHERE id = ?", []any{1}, nil))
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `msg="tx exec"`)
	assert.Contains(t, out, `sql="DELETE FROM users WHERE id = ?"`)
	assert.Contains(t, out, `msg="rollback transaction"`)
}
