package main

import (
	"github.com/spf13/cobra"
)

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the schema compiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.loadGraph()
			if err != nil {
				return err
			}
			if _, err := g.Tables(); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "The schema at %s is valid (%d models, %d enums)", a.cfg.Schema, len(g.Nodes), len(g.Enums))
			return nil
		},
	}
}
