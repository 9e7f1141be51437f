//go:build !windows

package command

import (
	"os/exec"
	"syscall"
)

// detachProcess puts the child in its own session so it survives the
// installer exiting and never receives the terminal's signals.
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
