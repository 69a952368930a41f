package gen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// FeatureExecQuery exposes ExecRaw and QueryRaw on the generated client.
	FeatureExecQuery = Feature{
		Name:        "sql/execquery",
		Stage:       Stable,
		Default:     true,
		Description: "Allows users to run raw statements through the client",
	}

	// FeatureCache generates the Cache and CacheTTL client options.
	FeatureCache = Feature{
		Name:        "cache",
		Stage:       Beta,
		Default:     true,
		Description: "Generates client options for caching query results",
	}

	// FeatureSnapshot stores a snapshot of the schema in the generated
	// package, so the migration state can be rebuilt from it.
	FeatureSnapshot = Feature{
		Name:        "schema/snapshot",
		Stage:       Experimental,
		Default:     false,
		Description: "Stores a snapshot of the schema file in the generated package",
		cleanup: func(c *Config) error {
			return remove(filepath.Join(c.Target, "internal"), "schema.go")
		},
	}

	// AllFeatures holds a list of all feature-flags.
	AllFeatures = []Feature{
		FeatureExecQuery,
		FeatureCache,
		FeatureSnapshot,
	}
)

// FeatureStage describes the stage of the codegen feature.
type FeatureStage int

const (
	_ FeatureStage = iota

	// Experimental features are in development.
	Experimental

	// Alpha features are complete, but their generated API may change.
	Alpha

	// Beta features are documented and not expected to change.
	Beta

	// Stable features are Beta features that were used for a while.
	Stable
)

// A Feature of the code generator.
type Feature struct {
	// Name of the feature.
	Name string

	// Stage of the feature.
	Stage FeatureStage

	// Default values indicates if this feature is enabled by default.
	Default bool

	// A Description of this feature.
	Description string

	// cleanup removes the files of a disabled feature left by previous
	// codegen runs.
	cleanup func(*Config) error
}

// FeatureByName returns the feature with the given name.
func FeatureByName(name string) (Feature, error) {
	for _, f := range AllFeatures {
		if f.Name == name {
			return f, nil
		}
	}
	return Feature{}, fmt.Errorf("quarry: unknown feature %q", name)
}

// ParseFeatures parses a comma separated list of feature names, as given
// in the "features" key of a generator block.
func ParseFeatures(list string) ([]Feature, error) {
	var fs []Feature
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		f, err := FeatureByName(name)
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	return fs, nil
}

// Cleanup removes the files of disabled features.
func (c *Config) Cleanup() error {
	for _, f := range AllFeatures {
		if f.cleanup == nil || c.FeatureEnabled(f.Name) {
			continue
		}
		if err := f.cleanup(c); err != nil {
			return fmt.Errorf("cleanup %q feature assets: %w", f.Name, err)
		}
	}
	return nil
}

// remove file (if exists) and its dir if it's empty.
func remove(dir, file string) error {
	if err := os.Remove(filepath.Join(dir, file)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	infos, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return os.Remove(dir)
	}
	return nil
}
