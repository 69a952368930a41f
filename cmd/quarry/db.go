package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/syssam/quarry/compiler/load"
	sqlschema "github.com/syssam/quarry/dialect/sql/schema"
	"github.com/syssam/quarry/schema"
)

func (a *app) dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Sync the schema and the database without migration files",
	}
	cmd.AddCommand(a.dbPushCmd(), a.dbPullCmd())
	return cmd
}

func (a *app) dbPushCmd() *cobra.Command {
	var accept bool
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Apply the schema to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.migrator(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer m.Close()
			res, err := m.Push(cmd.Context(), accept, m.tables...)
			if errors.Is(err, sqlschema.ErrDataLoss) {
				return errors.New("the changes may cause data loss; rerun with --accept-data-loss:\n" + res.String())
			}
			if err != nil {
				return err
			}
			if res.HasWarnings() {
				printf(cmd.OutOrStdout(), "%s", res)
			}
			printf(cmd.OutOrStdout(), "The database is in sync with %s", a.cfg.Schema)
			return nil
		},
	}
	cmd.Flags().BoolVar(&accept, "accept-data-loss", false, "apply destructive changes")
	return cmd
}

func (a *app) dbPullCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Introspect the database into the schema file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !printOnly && filepath.Ext(a.cfg.Schema) != load.Ext {
				return errors.New("db pull writes a single schema file; use --print with a schema directory")
			}
			s, err := a.loadSchema()
			if err != nil {
				return err
			}
			drv, err := a.open(cmd.Context(), s)
			if err != nil {
				return err
			}
			defer drv.Close()
			m, err := sqlschema.NewMigrate(drv, sqlschema.WithLogger(a.log))
			if err != nil {
				return err
			}
			pulled, err := m.Inspect(cmd.Context())
			if err != nil {
				return err
			}
			out := &schema.Schema{
				Datasources: s.Datasources,
				Generators:  s.Generators,
				Models:      pulled.Models,
				Enums:       pulled.Enums,
			}
			var buf bytes.Buffer
			if err := schema.Format(&buf, out); err != nil {
				return err
			}
			if printOnly {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(a.cfg.Schema, buf.Bytes(), 0o644); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Introspected %d models and %d enums into %s", len(out.Models), len(out.Enums), a.cfg.Schema)
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of writing it")
	return cmd
}
