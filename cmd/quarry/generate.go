package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/compiler/load"
)

// debounce is the quiet period after a change before regenerating.
const debounce = 200 * time.Millisecond

func (a *app) generateCmd() *cobra.Command {
	var (
		watch      bool
		generators []string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the generators of the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := func() error {
				start := time.Now()
				err := compiler.Generate(a.cfg.Schema,
					compiler.WithConfig(gen.WithLogger(a.log)),
					compiler.Only(generators...),
				)
				if err == nil {
					printf(cmd.OutOrStdout(), "Generated %s in %s", a.cfg.Schema, time.Since(start).Round(time.Millisecond))
				}
				return err
			}
			if !watch {
				return run()
			}
			return a.watch(cmd.Context(), run)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "regenerate when the schema changes")
	cmd.Flags().StringSliceVar(&generators, "generator", nil, "run only the named generator blocks")
	return cmd
}

// watch runs fn once, then again after every change of a schema file
// until ctx is done. Failures are logged and do not stop the loop.
func (a *app) watch(ctx context.Context, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(a.schemaDir()); err != nil {
		return err
	}
	if err := fn(); err != nil {
		a.log.Error("generate failed", "error", err)
	}
	a.log.Info("watching for changes", "schema", a.cfg.Schema)
	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !a.watched(ev) {
				continue
			}
			a.log.Debug("schema changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.log.Warn("watch error", "error", err)
		case <-timer.C:
			if err := fn(); err != nil {
				a.log.Error("generate failed", "error", err)
			}
		}
	}
}

// watched reports whether the event is a change of a schema file.
func (a *app) watched(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	if filepath.Ext(ev.Name) != load.Ext {
		return false
	}
	if filepath.Ext(a.cfg.Schema) == load.Ext {
		return filepath.Clean(ev.Name) == filepath.Clean(a.cfg.Schema)
	}
	return true
}
