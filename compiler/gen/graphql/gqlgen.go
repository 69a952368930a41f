package graphql

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// GQLGenConfig represents the subset of gqlgen.yml the generator reads and
// updates. Settings it does not know about are not preserved.
type GQLGenConfig struct {
	// SchemaFilename is the path(s) to the GraphQL schema file(s).
	SchemaFilename StringList `yaml:"schema,omitempty"`

	// Exec configures the generated executor.
	Exec PackageConfig `yaml:"exec,omitempty"`

	// Model configures the generated models.
	Model PackageConfig `yaml:"model,omitempty"`

	// Resolver configures the resolver generation.
	Resolver ResolverConfig `yaml:"resolver,omitempty"`

	// Autobind is a list of packages to autobind types from.
	Autobind []string `yaml:"autobind,omitempty"`

	// Models is a map of GraphQL type name to model configuration.
	Models map[string]TypeMapEntry `yaml:"models,omitempty"`

	// OmitSliceElementPointers removes pointers from slice elements.
	OmitSliceElementPointers bool `yaml:"omit_slice_element_pointers,omitempty"`
}

// PackageConfig configures a generated gqlgen package.
type PackageConfig struct {
	Filename string `yaml:"filename,omitempty"`
	Package  string `yaml:"package,omitempty"`
}

// ResolverConfig configures the resolver generation.
type ResolverConfig struct {
	Filename string `yaml:"filename,omitempty"`
	Package  string `yaml:"package,omitempty"`
	Layout   string `yaml:"layout,omitempty"`
	DirName  string `yaml:"dir,omitempty"`
}

// TypeMapEntry is the configuration for a single GraphQL type.
type TypeMapEntry struct {
	// Model is the Go model(s) to bind to this GraphQL type.
	Model StringList `yaml:"model,omitempty"`

	// Fields configures field-level mappings.
	Fields map[string]TypeMapField `yaml:"fields,omitempty"`

	// EnumValues binds GraphQL enum values to Go constants.
	EnumValues map[string]EnumValue `yaml:"enum_values,omitempty"`
}

// TypeMapField is the configuration for a single field.
type TypeMapField struct {
	// Resolver indicates if this field needs a resolver.
	Resolver bool `yaml:"resolver,omitempty"`

	// FieldName is the Go struct field name.
	FieldName string `yaml:"fieldName,omitempty"`
}

// EnumValue binds a GraphQL enum value to a Go constant.
type EnumValue struct {
	Value string `yaml:"value"`
}

// StringList is a YAML type that can be either a string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler for StringList.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("expected string or list, got %v", node.Kind)
	}
}

// MarshalYAML implements yaml.Marshaler for StringList.
func (s StringList) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}

// LoadGQLGenConfig loads a gqlgen.yml configuration file. A missing file
// yields an empty configuration.
func LoadGQLGenConfig(path string) (*GQLGenConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &GQLGenConfig{Models: make(map[string]TypeMapEntry)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read gqlgen config: %w", err)
	}
	var cfg GQLGenConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse gqlgen config: %w", err)
	}
	if cfg.Models == nil {
		cfg.Models = make(map[string]TypeMapEntry)
	}
	return &cfg, nil
}

// SaveGQLGenConfig saves a gqlgen.yml configuration file.
func SaveGQLGenConfig(path string, cfg *GQLGenConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal gqlgen config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// AddSchemaPath adds a schema path to the configuration if not already present.
func (c *GQLGenConfig) AddSchemaPath(path string) {
	if !slices.Contains(c.SchemaFilename, path) {
		c.SchemaFilename = append(c.SchemaFilename, path)
	}
}

// SetModel replaces the model binding of a GraphQL type. Field and enum
// value mappings of the entry are reset.
func (c *GQLGenConfig) SetModel(typeName, modelPath string) {
	c.Models[typeName] = TypeMapEntry{Model: StringList{modelPath}}
}

// SetResolver marks a field of a GraphQL type as resolved by a resolver.
func (c *GQLGenConfig) SetResolver(typeName, fieldName string) {
	entry := c.Models[typeName]
	if entry.Fields == nil {
		entry.Fields = make(map[string]TypeMapField)
	}
	entry.Fields[fieldName] = TypeMapField{Resolver: true}
	c.Models[typeName] = entry
}

// SetEnumValue binds a GraphQL enum value to a Go constant.
func (c *GQLGenConfig) SetEnumValue(typeName, value, constPath string) {
	entry := c.Models[typeName]
	if entry.EnumValues == nil {
		entry.EnumValues = make(map[string]EnumValue)
	}
	entry.EnumValues[value] = EnumValue{Value: constPath}
	c.Models[typeName] = entry
}
