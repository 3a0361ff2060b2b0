// Package cli implements the epcisgen command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool

	// Config is an optional settings file (YAML or JSON).
	Config string
}

// NewRootCommand creates the root command for the epcisgen CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "epcisgen",
		Short: "Generate EPCIS test events from a template",
		Long: `epcisgen turns a template of event nodes and identifier nodes into a
stream of EPCIS 2.0 events with valid, consistently reused GS1 identifiers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "settings file (yaml|json)")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}
