package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/command"
	"openclaw-setup/internal/logger"
	"openclaw-setup/internal/pipeline"
)

// launchCmd starts the gateway in the background and returns immediately.
// The process is not supervised; its output is discarded.
var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start the OpenClaw gateway in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cfg.Options()
		gateway := pipeline.GatewayCommand(opts)
		logger.Debug("[DEBUG] Launching detached: %s\n", gateway.String())
		if err := command.Detach(gateway); err != nil {
			return fmt.Errorf("launch gateway: %w", err)
		}
		logger.Success("Gateway starting on port %d\n", opts.GatewayPort)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(launchCmd)
}
