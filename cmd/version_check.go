package cmd

import (
	"github.com/spf13/cobra"

	"openclaw-setup/internal/command"
	"openclaw-setup/internal/logger"
	"openclaw-setup/internal/pipeline"
)

// versionCheckCmd runs only the Node.js version check.
var versionCheckCmd = &cobra.Command{
	Use:   "version-check",
	Short: "Check that a supported Node.js version is installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		step := pipeline.CheckNodeStep(cfg.Options())
		result := command.NewRunner().Run(cmd.Context(), step.Command, nil)
		verdict := step.Classify(result)

		if verdict.Class == pipeline.ClassFatal {
			logger.Error("[ERROR] %s\n", verdict.Message)
			return errReported
		}
		logger.Success("%s\n", verdict.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCheckCmd)
}
