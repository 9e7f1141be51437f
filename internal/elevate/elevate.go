// Package elevate re-runs a command with administrator rights through the
// host's native consent prompt, and decides which failures deserve that.
package elevate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"openclaw-setup/internal/command"
	"openclaw-setup/internal/logger"
	"openclaw-setup/internal/platform"
)

// ErrDeclined indicates the user rejected the consent prompt.
var ErrDeclined = errors.New("administrator elevation declined")

// ErrUnavailable indicates the host has no usable elevation mechanism.
var ErrUnavailable = errors.New("no privilege elevation mechanism available")

// Failure is returned when an elevated attempt did not succeed. Output holds
// whatever diagnostic text the elevation tooling captured.
type Failure struct {
	Err      error
	ExitCode int
	Output   string
}

func (f *Failure) Error() string {
	return f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Native elevates through the mechanism BuildInvocation picks for OS.
// Output is captured, not streamed: the elevation tools buffer it anyway.
type Native struct {
	OS platform.OS

	// run executes an invocation; replaced in tests.
	run func(ctx context.Context, inv Invocation) (exitCode int, output string, err error)
}

// NewNative returns a Native strategy for the running host.
func NewNative() *Native {
	return &Native{OS: platform.Current(), run: execInvocation}
}

// Elevate runs spec with administrator rights and waits for it. It returns
// nil only if the user consented and the command exited 0.
func (n *Native) Elevate(ctx context.Context, spec command.Spec) error {
	inv, err := BuildInvocation(n.OS, spec)
	if err != nil {
		return &Failure{Err: err, ExitCode: -1}
	}
	logger.Debug("[DEBUG] Elevating: %s\n", inv.String())

	run := n.run
	if run == nil {
		run = execInvocation
	}
	code, output, err := run(ctx, inv)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			err = fmt.Errorf("%w: %s not found", ErrUnavailable, inv.Program)
		}
		return &Failure{Err: err, ExitCode: -1, Output: output}
	}
	if code == 0 {
		return nil
	}
	if declined(n.OS, code, output) {
		return &Failure{Err: ErrDeclined, ExitCode: code, Output: output}
	}
	return &Failure{
		Err:      fmt.Errorf("elevated command exited with code %d", code),
		ExitCode: code,
		Output:   output,
	}
}

// declined recognizes each mechanism's "user said no" signal.
func declined(os platform.OS, code int, output string) bool {
	switch os {
	case platform.Darwin:
		// osascript: "User canceled. (-128)"
		return strings.Contains(output, "(-128)")
	case platform.Windows:
		return strings.Contains(output, "canceled by the user")
	default:
		// pkexec: 126 dialog dismissed, 127 not authorized.
		return code == 126 || (code == 127 && !strings.Contains(output, "not found"))
	}
}

func execInvocation(ctx context.Context, inv Invocation) (int, string, error) {
	if _, err := exec.LookPath(inv.Program); err != nil {
		return -1, "", err
	}
	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), out.String(), nil
	}
	if err != nil {
		return -1, out.String(), err
	}
	return 0, out.String(), nil
}
