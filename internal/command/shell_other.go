//go:build !windows

package command

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Environment variable names are case-sensitive outside Windows.
const envCaseInsensitive = false

// buildCommand invokes the executable directly, never through a shell, so
// argument content cannot be interpreted as shell syntax.
func buildCommand(ctx context.Context, spec Spec) (*exec.Cmd, error) {
	path, err := lookPath(spec.Program, spec.Env)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, path, spec.Args...)
	cmd.Args[0] = spec.Program
	cmd.Env = spec.environ(os.Environ())
	return cmd, nil
}

// lookPath resolves program against the PATH override in env when there is
// one, otherwise against the current process PATH. exec.LookPath alone would
// ignore an override because it only consults this process's environment.
func lookPath(program string, env map[string]string) (string, error) {
	pathList, overridden := env["PATH"]
	if !overridden || strings.Contains(program, "/") {
		return exec.LookPath(program)
	}
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, program)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", &exec.Error{Name: program, Err: exec.ErrNotFound}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

