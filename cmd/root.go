package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/config"
	"openclaw-setup/internal/logger"
)

// debug flag indicates whether debug logging should be enabled.
// It can be toggled via the `--debug` command-line flag.
var debug bool

// configPath is the YAML config file given with --config. Empty means the
// default location, and no file there means built-in defaults.
var configPath string

// cfg is the configuration loaded before any subcommand runs.
var cfg config.Config

// errReported makes Execute exit non-zero without printing again; the
// failure has already been shown to the user.
var errReported = errors.New("failure already reported")

// rootCmd is the base command for the CLI tool `openclaw-setup`.
// Without a subcommand it installs, same as `openclaw-setup install`.
var rootCmd = &cobra.Command{
	Use:           "openclaw-setup",
	Short:         "Guided installer for OpenClaw",
	SilenceUsage:  true,
	SilenceErrors: true,

	// PersistentPreRunE runs before any subcommand: it sets up logging and
	// loads the configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Init(debug)

		loaded, path, err := config.Resolve(configPath)
		if err != nil {
			return err
		}
		if path != "" {
			logger.Debug("[DEBUG] Loaded config from %s\n", path)
		}
		cfg = loaded
		return nil
	},
	RunE: runInstall,
}

// Execute registers the global flags and runs the selected command.
// Any failure exits with status 1.
func Execute() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default "+config.DefaultPath()+")")

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			logger.Error("[ERROR] %v\n", err)
		}
		os.Exit(1)
	}
}
