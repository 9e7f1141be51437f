package elevate

import (
	"fmt"
	"strings"

	"openclaw-setup/internal/command"
	"openclaw-setup/internal/platform"
)

// Invocation is the program and arguments that run a command line with
// administrator rights. It is passed to the OS directly, not through a shell.
type Invocation struct {
	Program string
	Args    []string
}

// String renders the invocation for logs.
func (i Invocation) String() string {
	parts := []string{i.Program}
	for _, a := range i.Args {
		if strings.ContainsAny(a, " \t\"'") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// BuildInvocation wraps spec in the host's interactive consent mechanism:
//   - darwin:  osascript "do shell script ... with administrator privileges"
//     (the standard macOS password dialog)
//   - windows: PowerShell Start-Process -Verb RunAs (the UAC prompt), waiting
//     for the elevated cmd.exe and propagating its exit code
//   - others:  pkexec (the polkit authentication agent)
//
// Every mechanism starts the command with a fresh environment, so spec.Env
// is written into the command line as assignments ahead of the program.
// Quotes and backslashes are escaped for each layer, so the command reaches
// the elevated shell unchanged.
func BuildInvocation(os platform.OS, spec command.Spec) (Invocation, error) {
	if strings.TrimSpace(spec.Program) == "" {
		return Invocation{}, fmt.Errorf("empty command")
	}
	switch os {
	case platform.Darwin:
		script := fmt.Sprintf(`do shell script "%s" with administrator privileges`, escapeAppleScript(command.ShellLine(spec)))
		return Invocation{Program: "osascript", Args: []string{"-e", script}}, nil
	case platform.Windows:
		line := command.SetPrefix(spec) + command.CmdLine(spec)
		script := fmt.Sprintf(
			"$p = Start-Process -FilePath 'cmd.exe' -ArgumentList '/d /s /c \"%s\"' -Verb RunAs -Wait -PassThru -WindowStyle Hidden; exit $p.ExitCode",
			escapePowerShell(line))
		return Invocation{
			Program: "powershell.exe",
			Args:    []string{"-NoProfile", "-NonInteractive", "-Command", script},
		}, nil
	case "":
		return Invocation{}, ErrUnavailable
	default:
		return Invocation{Program: "pkexec", Args: []string{"/bin/sh", "-c", command.ShellLine(spec)}}, nil
	}
}

// escapeAppleScript escapes a string for an AppleScript double-quoted literal.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// escapePowerShell escapes a string for a PowerShell single-quoted literal,
// where the only special character is the single quote itself.
func escapePowerShell(s string) string {
	return strings.ReplaceAll(s, `'`, `''`)
}
