package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/compiler/load"
	"github.com/syssam/quarry/schema"
)

func (a *app) initCmd() *cobra.Command {
	var (
		provider string
		url      string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter schema and config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfg.Schema
			if filepath.Ext(path) != load.Ext {
				path = filepath.Join(path, "schema.quarry")
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			value := schema.Value{Env: "DATABASE_URL"}
			switch {
			case url != "":
				value = schema.Value{Literal: url}
			case provider == "sqlite":
				value = schema.Value{Literal: "file:./dev.db"}
			}
			s := &schema.Schema{
				Datasources: []*schema.Datasource{{Name: "db", Provider: provider, URL: value}},
				Generators: []*schema.Generator{{
					Name:     "client",
					Provider: compiler.ProviderClient,
					Output:   output,
				}},
			}
			var buf bytes.Buffer
			if err := schema.Format(&buf, s); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Created %s", path)
			cfgPath := a.configFlag
			if cfgPath == "" {
				cfgPath = DefaultConfigFile
			}
			if _, err := os.Stat(cfgPath); err == nil {
				return nil
			}
			data, err := yaml.Marshal(&Config{
				Schema:         path,
				Migrations:     a.cfg.Migrations,
				LogLevel:       a.cfg.LogLevel,
				LogFormat:      a.cfg.LogFormat,
				PostgresDriver: a.cfg.PostgresDriver,
			})
			if err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Created %s", cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "postgresql", "datasource provider: postgresql, mysql or sqlite")
	cmd.Flags().StringVar(&url, "url", "", "datasource url (default env(\"DATABASE_URL\"))")
	cmd.Flags().StringVar(&output, "output", "./db", "output directory of the Go client")
	cmd.PreRunE = func(*cobra.Command, []string) error {
		switch provider {
		case "postgresql", "mysql", "sqlite":
			return nil
		default:
			return fmt.Errorf("unsupported provider %q", provider)
		}
	}
	return cmd
}
