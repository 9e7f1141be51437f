//go:build windows

package command

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Environment variable names are case-insensitive on Windows.
const envCaseInsensitive = true

// buildCommand routes the command line through the command interpreter.
// Global npm binaries are .cmd shims that only resolve through cmd.exe's
// PATH and PATHEXT lookup.
func buildCommand(ctx context.Context, spec Spec) (*exec.Cmd, error) {
	shell := os.Getenv("ComSpec")
	if shell == "" {
		shell = "cmd.exe"
	}
	cmd := exec.CommandContext(ctx, shell)
	if cmd.Err != nil {
		return nil, cmd.Err
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine: fmt.Sprintf(`%s /d /s /c "%s"`, syscall.EscapeArg(shell), CmdLine(spec)),
	}
	cmd.Env = spec.environ(os.Environ())
	return cmd, nil
}
