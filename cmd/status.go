package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/logger"
	"openclaw-setup/internal/pipeline"
	"openclaw-setup/internal/state"
)

// statusCmd prints the most recent installation attempt from the history.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the result of the last installation attempt",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := state.LoadState(cfg.StateFile)
		rec, ok := st.Latest()
		if !ok {
			logger.Info("[INFO] No installation attempts recorded in %s\n", cfg.StateFile)
			return nil
		}
		printRun(cmd.OutOrStdout(), rec)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printRun(w io.Writer, rec state.RunRecord) {
	fmt.Fprintf(w, "Run %s\n", rec.ID)
	fmt.Fprintf(w, "  started:  %s\n", rec.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  finished: %s\n", rec.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  result:   %s\n", rec.State)
	for _, step := range rec.Steps {
		line := fmt.Sprintf("  %-8s %s", step.Status, step.Label)
		if step.Elevated {
			line += " (elevated)"
		}
		fmt.Fprintln(w, line)
	}
	for _, warning := range rec.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
	if rec.Failure != "" {
		fmt.Fprintf(w, "  error: %s\n", rec.Failure)
	}
	if rec.LogPath != "" {
		fmt.Fprintf(w, "  log: %s\n", rec.LogPath)
	}
	if rec.State == pipeline.StateAborted.String() {
		fmt.Fprintln(w, "Run `openclaw-setup install` to retry.")
	}
}
