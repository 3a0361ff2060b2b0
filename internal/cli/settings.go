package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/config"
)

// loadSettings reads the settings file named by --config, if any.
func loadSettings(rootOpts *RootOptions) (config.Settings, error) {
	if rootOpts.Config == "" {
		return config.DefaultSettings(), nil
	}
	cfg, err := config.FromFile(rootOpts.Config)
	if err != nil {
		return config.Settings{}, err
	}
	return cfg.Settings()
}

// newLogger logs to the command's stderr so stdout stays clean for events.
func newLogger(cmd *cobra.Command, rootOpts *RootOptions, level slog.Level) *slog.Logger {
	if rootOpts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
