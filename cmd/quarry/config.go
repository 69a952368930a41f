package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/quarry/dialect/dsn"
)

// DefaultConfigFile is the config file read when --config is not set.
const DefaultConfigFile = "quarry.yaml"

// Config is the project configuration read from quarry.yaml.
type Config struct {
	// Schema is the schema file, or a directory of schema files.
	Schema string `yaml:"schema"`
	// Migrations is the migration directory.
	Migrations string `yaml:"migrations"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`
	// PostgresDriver selects the database/sql driver of Postgres
	// datasources: pq or pgx.
	PostgresDriver string `yaml:"postgres_driver"`
}

// DefaultConfig returns the configuration used for unset keys.
func DefaultConfig() *Config {
	return &Config{
		Schema:         "schema.quarry",
		Migrations:     "migrations",
		LogLevel:       "info",
		LogFormat:      "text",
		PostgresDriver: "pq",
	}
}

// LoadConfig reads the config file at path on top of the defaults. A
// missing file is an error only when it was explicitly requested.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides the configuration with the QUARRY_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for name, dst := range map[string]*string{
		"QUARRY_SCHEMA":     &c.Schema,
		"QUARRY_MIGRATIONS": &c.Migrations,
		"QUARRY_LOG_LEVEL":  &c.LogLevel,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
}

// Validate checks the enumerated keys.
func (c *Config) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	if _, err := c.postgresDriver(); err != nil {
		return err
	}
	if c.Schema == "" {
		return errors.New("config: schema cannot be empty")
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return l, nil
}

func (c *Config) postgresDriver() (string, error) {
	switch strings.ToLower(c.PostgresDriver) {
	case "", "pq", dsn.DriverPQ:
		return dsn.DriverPQ, nil
	case dsn.DriverPGX:
		return dsn.DriverPGX, nil
	default:
		return "", fmt.Errorf("config: postgres_driver must be pq or pgx, got %q", c.PostgresDriver)
	}
}

// Logger returns the logger writing to w. Verbose forces the debug level.
func (c *Config) Logger(w io.Writer, verbose bool) (*slog.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
