package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigPath is an optional CUE config file. Flags below override it.
	ConfigPath string
	PrimaryDB  string
	GraphDB    string
	Workers    int
	MetricsOut string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the graphsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "graphsync",
		Short: "graphsync - keep a social graph in step with its user documents",
		Long: `Synchronize user documents from a primary store into a graph store,
and audit the two for drift.

The primary store holds one document per user with embedded friendships,
groups and presence. The graph store holds user nodes and undirected
friendship edges.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to CUE config file")
	cmd.PersistentFlags().StringVar(&opts.PrimaryDB, "primary-db", "", "path to primary SQLite database")
	cmd.PersistentFlags().StringVar(&opts.GraphDB, "graph-db", "", "path to graph SQLite database")
	cmd.PersistentFlags().IntVar(&opts.Workers, "workers", 0, "sync worker pool size (1-64)")
	cmd.PersistentFlags().StringVar(&opts.MetricsOut, "metrics-out", "", "write prometheus metrics to this file on exit")

	// Add subcommands
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRepairCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
