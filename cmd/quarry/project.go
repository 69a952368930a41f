package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ariga.io/atlas/sql/migrate"

	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/compiler/load"
	"github.com/syssam/quarry/dialect/dsn"
	"github.com/syssam/quarry/dialect/sql"
	sqlschema "github.com/syssam/quarry/dialect/sql/schema"
	"github.com/syssam/quarry/schema"
)

// schemaDir returns the directory relative paths of the schema are
// resolved against.
func (a *app) schemaDir() string {
	if filepath.Ext(a.cfg.Schema) == load.Ext {
		return filepath.Dir(a.cfg.Schema)
	}
	return a.cfg.Schema
}

func (a *app) loadSchema() (*schema.Schema, error) {
	return load.ParseFile(a.cfg.Schema)
}

func (a *app) loadGraph() (*gen.Graph, error) {
	return compiler.LoadGraph(a.cfg.Schema, compiler.WithConfig(gen.WithLogger(a.log)))
}

// open connects to the datasource of s.
func (a *app) open(ctx context.Context, s *schema.Schema) (*sql.Driver, error) {
	ds := s.Datasource()
	if ds == nil {
		return nil, errors.New("schema has no datasource block")
	}
	url, err := ds.URL.Resolve()
	if err != nil {
		return nil, err
	}
	driver, err := a.cfg.postgresDriver()
	if err != nil {
		return nil, err
	}
	drv, err := dsn.Open(ctx, url, dsn.WithPostgresDriver(driver), dsn.WithBaseDir(a.schemaDir()))
	if err != nil {
		return nil, err
	}
	a.log.Debug("connected", "datasource", ds.Name, "dialect", drv.Dialect())
	return drv, nil
}

// migration is an open database with the compiled tables of the schema.
type migration struct {
	*sqlschema.Migrate
	graph  *gen.Graph
	tables []*sqlschema.Table
	drv    *sql.Driver
}

func (m *migration) Close() error {
	return m.drv.Close()
}

// migrator compiles the schema and opens its database. With withDir, the
// migration directory is created if needed and attached.
func (a *app) migrator(ctx context.Context, withDir bool) (*migration, error) {
	g, err := a.loadGraph()
	if err != nil {
		return nil, err
	}
	tables, err := g.Tables()
	if err != nil {
		return nil, err
	}
	drv, err := a.open(ctx, g.Schema)
	if err != nil {
		return nil, err
	}
	opts := []sqlschema.MigrateOption{sqlschema.WithLogger(a.log)}
	if withDir {
		if err := os.MkdirAll(a.cfg.Migrations, 0o755); err != nil {
			drv.Close()
			return nil, fmt.Errorf("creating migration directory: %w", err)
		}
		dir, err := migrate.NewLocalDir(a.cfg.Migrations)
		if err != nil {
			drv.Close()
			return nil, fmt.Errorf("opening migration directory: %w", err)
		}
		opts = append(opts, sqlschema.WithDir(dir))
	}
	m, err := sqlschema.NewMigrate(drv, opts...)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return &migration{Migrate: m, graph: g, tables: tables, drv: drv}, nil
}
