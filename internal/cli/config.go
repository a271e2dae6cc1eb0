package cli

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cobra"
)

//go:embed config.cue
var configSchema []byte

// Config is the resolved runtime configuration.
type Config struct {
	PrimaryDB  string `json:"primary_db"`
	GraphDB    string `json:"graph_db"`
	Workers    int    `json:"workers"`
	LogLevel   string `json:"log_level"`
	MetricsOut string `json:"metrics_out"`
}

// LoadConfig evaluates the config file at path against the #Config schema
// and returns it with defaults filled in. An empty path yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(configSchema, cue.Filename("config.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	value := schema.LookupPath(cue.ParsePath("#Config"))

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		file := ctx.CompileBytes(data, cue.Filename(path))
		if err := file.Err(); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		value = value.Unify(file)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// resolveConfig loads the config file and applies flag overrides. Only
// flags the user set win over the file.
func resolveConfig(opts *RootOptions, cmd *cobra.Command) (*Config, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("primary-db") {
		cfg.PrimaryDB = opts.PrimaryDB
	}
	if flags.Changed("graph-db") {
		cfg.GraphDB = opts.GraphDB
	}
	if flags.Changed("workers") {
		if opts.Workers < 1 || opts.Workers > 64 {
			return nil, fmt.Errorf("invalid --workers %d: must be between 1 and 64", opts.Workers)
		}
		cfg.Workers = opts.Workers
	}
	if flags.Changed("metrics-out") {
		cfg.MetricsOut = opts.MetricsOut
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// slogLevel maps a config log level to slog.
func (c *Config) slogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
