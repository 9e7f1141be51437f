package command

import (
	"context"
	"fmt"

	"openclaw-setup/internal/logger"
)

// Detach starts spec and immediately gives up ownership of the process: its
// output is discarded, nothing waits for it, and anything that happens to it
// after a successful start is not observable. Only a failure to start is
// reported.
func Detach(spec Spec) error {
	cmd, err := buildCommand(context.Background(), spec)
	if err != nil {
		return fmt.Errorf("launch %s: %w", spec.Program, err)
	}
	// Nil stdio means /dev/null (NUL on Windows).
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	detachProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", spec.Program, err)
	}
	logger.Debug("[DEBUG] Detached %s (pid %d)\n", spec.String(), cmd.Process.Pid)
	return cmd.Process.Release()
}
