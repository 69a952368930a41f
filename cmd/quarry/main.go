// Command quarry compiles quarry schemas, generates clients and manages
// database migrations.
//
//	quarry init --provider postgresql
//	quarry generate --watch
//	quarry migrate dev --name init
//	quarry db pull
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the state shared by the commands: the persistent flags and
// the resolved configuration.
type app struct {
	schemaFlag string
	configFlag string
	verbose    bool

	cfg *Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "quarry",
		Short:         "Schema-driven ORM toolkit",
		Long:          `quarry compiles a schema file into a typed Go client and keeps the database in sync with it.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.schemaFlag, "schema", "", "path to the schema file or directory (default \"schema.quarry\")")
	root.PersistentFlags().StringVar(&a.configFlag, "config", "", "path to the config file (default \"quarry.yaml\")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.initCmd(),
		a.formatCmd(),
		a.validateCmd(),
		a.generateCmd(),
		a.migrateCmd(),
		a.dbCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the configuration. Flags take precedence over the
// environment, which takes precedence over the config file.
func (a *app) setup(cmd *cobra.Command) error {
	path, explicit := a.configFlag, a.configFlag != ""
	if !explicit {
		path = DefaultConfigFile
	}
	cfg, err := LoadConfig(path, explicit)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if a.schemaFlag != "" {
		cfg.Schema = a.schemaFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log, err = cfg.Logger(cmd.ErrOrStderr(), a.verbose)
	return err
}

// printf writes a result line to the command output.
func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
