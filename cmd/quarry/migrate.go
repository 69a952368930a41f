package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	sqlschema "github.com/syssam/quarry/dialect/sql/schema"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create and apply migration files",
	}
	cmd.AddCommand(
		a.migrateDevCmd(),
		a.migrateDeployCmd(),
		a.migrateResetCmd(),
		a.migrateStatusCmd(),
		a.migrateDiffCmd(),
	)
	return cmd
}

func (a *app) migrateDevCmd() *cobra.Command {
	var (
		name       string
		createOnly bool
	)
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Create a migration from the schema changes and apply it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.migrator(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer m.Close()
			file, err := m.Dev(cmd.Context(), name, createOnly, m.tables...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case file == "":
				printf(out, "Already in sync, no migration created")
			case createOnly:
				printf(out, "Created migration %s (not applied)", file)
			default:
				printf(out, "Created and applied migration %s", file)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the migration")
	cmd.Flags().BoolVar(&createOnly, "create-only", false, "create the migration file without applying it")
	return cmd
}

func (a *app) migrateDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Apply the pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.migrator(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer m.Close()
			revs, err := m.Deploy(cmd.Context())
			printRevisions(cmd.OutOrStdout(), revs)
			return err
		},
	}
}

func (a *app) migrateResetCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every table and apply all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return errors.New("reset drops all data; rerun with --force")
			}
			m, err := a.migrator(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer m.Close()
			revs, err := m.Reset(cmd.Context())
			printRevisions(cmd.OutOrStdout(), revs)
			return err
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation")
	return cmd
}

func (a *app) migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.migrator(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer m.Close()
			st, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range st.Applied {
				printf(out, "applied   %s %s (%s)", r.Version, r.Description, r.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			for _, f := range st.Pending {
				printf(out, "pending   %s", f)
			}
			for _, f := range st.Modified {
				printf(out, "modified  %s", f)
			}
			for _, v := range st.Missing {
				printf(out, "missing   %s", v)
			}
			if st.Clean() {
				printf(out, "Database is up to date")
				return nil
			}
			if len(st.Modified) > 0 {
				return fmt.Errorf("%w: %v", sqlschema.ErrChecksumMismatch, st.Modified)
			}
			printf(out, "%d pending migration(s)", len(st.Pending))
			return nil
		},
	}
}

func (a *app) migrateDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Print the SQL turning the database into the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.migrator(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer m.Close()
			changes, err := m.Diff(cmd.Context(), m.tables...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(changes) == 0 {
				printf(out, "-- database is up to date")
				return nil
			}
			for _, c := range changes {
				if c.Comment != "" {
					printf(out, "-- %s", c.Comment)
				}
				printf(out, "%s;", c.Cmd)
			}
			return nil
		},
	}
}

func printRevisions(w io.Writer, revs []*sqlschema.Revision) {
	if len(revs) == 0 {
		printf(w, "No pending migrations")
		return
	}
	for _, r := range revs {
		printf(w, "Applied %s %s in %s", r.Version, r.Description, r.ExecutionTime)
	}
}
