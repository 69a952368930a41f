//go:build integration

package schema

import (
	"context"
	"testing"

	"ariga.io/atlas/sql/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/dsn"
	"github.com/syssam/quarry/schema/field"
)

func TestPostgres(t *testing.T) {
	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("quarry"),
		tcpostgres.WithUsername("quarry"),
		tcpostgres.WithPassword("quarry"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)
	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	drv, err := dsn.Open(ctx, url)
	require.NoError(t, err)
	defer drv.Close()
	require.Equal(t, dialect.Postgres, drv.Dialect())

	tables := blogTables()
	tables[0].AddColumn(&Column{Name: "role", Type: field.TypeEnum, Enums: []string{"USER", "ADMIN"}, EnumName: "Role", Default: "USER"})

	dir, err := migrate.NewLocalDir(t.TempDir())
	require.NoError(t, err)
	m := newMigrate(t, drv, WithDir(dir))
	file, err := m.Dev(ctx, "init", false, tables...)
	require.NoError(t, err)
	assert.Equal(t, "20240102030405_init.sql", file)

	st, err := m.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Clean())

	changes, err := m.Diff(ctx, tables...)
	require.NoError(t, err)
	assert.Empty(t, changes)

	s, err := m.Inspect(ctx)
	require.NoError(t, err)
	require.Len(t, s.Enums, 1)
	user := s.Model("User")
	require.NotNil(t, user)
	assert.Equal(t, "Role", user.Field("role").Type)
	assert.Equal(t, "@default(USER)", user.Field("role").Attribute("default").Format("@"))
	assert.Equal(t, "@default(autoincrement())", user.Field("id").Attribute("default").Format("@"))

	revs, err := m.Reset(ctx)
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}
