package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/syssam/quarry/compiler/load"
	"github.com/syssam/quarry/schema"
)

func (a *app) formatCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Rewrite the schema files in canonical form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := schemaFiles(a.cfg.Schema)
			if err != nil {
				return err
			}
			var unformatted []string
			for _, path := range files {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				out, err := formatSource(path, src)
				if err != nil {
					return err
				}
				if bytes.Equal(src, out) {
					continue
				}
				if check {
					unformatted = append(unformatted, path)
					continue
				}
				if err := os.WriteFile(path, out, 0o644); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "Formatted %s", path)
			}
			if len(unformatted) > 0 {
				return fmt.Errorf("schema files are not formatted: %v", unformatted)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "fail if a file is not formatted instead of rewriting it")
	return cmd
}

// schemaFiles returns the schema file, or the schema files of a directory.
func schemaFiles(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}
	files, err := filepath.Glob(filepath.Join(path, "*"+load.Ext))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func formatSource(path string, src []byte) ([]byte, error) {
	s, err := load.Parse(path, src)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := schema.Format(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
