// Package cli implements the rxrewrite command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigFile string
	EnvFile    string
	Format     string // "text" | "json"
	Verbose    bool
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the rxrewrite root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rxrewrite",
		Short: "Rewrite push pipelines to run on async-push operators",
		Long: `rxrewrite prepares stream pipelines written against push operators,
rewrites them to the equivalent async-push operators and runs them through
adapters at both ends.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default: search standard locations)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", ".env file (default: search standard locations)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}
