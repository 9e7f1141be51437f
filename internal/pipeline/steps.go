package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"openclaw-setup/internal/command"
	"openclaw-setup/internal/elevate"
)

// Step keys, in pipeline order.
const (
	KeyCheckNode Key = "check-node"
	KeyInstall   Key = "install"
	KeyOnboard   Key = "onboard"
	KeyVerify    Key = "verify"
)

// Defaults for Options.
const (
	DefaultMinMajor    = 22
	DefaultDownloadURL = "https://nodejs.org"
	DefaultPackage     = "openclaw"
	DefaultGatewayPort = 18789
)

// Options parameterizes the installation steps.
type Options struct {
	// MinMajor is the lowest accepted Node.js major version.
	MinMajor int
	// DownloadURL is where users are sent to install or update Node.js.
	DownloadURL string
	// GatewayPort is the port the launched gateway listens on.
	GatewayPort int
}

// DefaultOptions returns the options the installer ships with.
func DefaultOptions() Options {
	return Options{
		MinMajor:    DefaultMinMajor,
		DownloadURL: DefaultDownloadURL,
		GatewayPort: DefaultGatewayPort,
	}
}

// Steps returns the installation pipeline: check the runtime version,
// install the package globally, onboard with the background service, and run
// the health check.
func Steps(opts Options) []Step {
	return []Step{
		CheckNodeStep(opts),
		InstallStep(),
		OnboardStep(),
		VerifyStep(),
	}
}

// CheckNodeStep queries the Node.js version. Fatal when node cannot start,
// exits non-zero, or reports a major version below opts.MinMajor.
func CheckNodeStep(opts Options) Step {
	return Step{
		Key:     KeyCheckNode,
		Label:   "Check Node.js",
		Command: command.Spec{Program: "node", Args: []string{"--version"}},
		Classify: func(res command.Result) Verdict {
			return classifyNodeVersion(res, opts)
		},
	}
}

func classifyNodeVersion(res command.Result, opts Options) Verdict {
	if !res.Launched() {
		return Fatal(fmt.Sprintf("Node.js not found: %v. Install it from %s", res.Err, opts.DownloadURL))
	}
	if res.ExitCode != 0 {
		return Fatal("Node.js is not installed or not in PATH.")
	}
	version := strings.TrimSpace(res.Stdout)
	major, _ := ParseMajor(version)
	if major < opts.MinMajor {
		return Fatal(fmt.Sprintf("Node.js %s found, but version %d+ is required. Please update at %s",
			version, opts.MinMajor, opts.DownloadURL))
	}
	return Success(fmt.Sprintf("Node.js %s detected", version))
}

// InstallStep installs the package globally with npm. A permission failure
// is retried once with administrator rights.
func InstallStep() Step {
	return Step{
		Key:     KeyInstall,
		Label:   "Install OpenClaw",
		Command: command.Spec{Program: "npm", Args: []string{"install", "-g", DefaultPackage}},
		Classify: func(res command.Result) Verdict {
			if !res.Launched() {
				return Fatal(fmt.Sprintf("Install failed: %v", res.Err))
			}
			if res.ExitCode != 0 {
				return Fatal(fmt.Sprintf("npm install failed (exit %d):\n%s", res.ExitCode, res.Stderr))
			}
			return Success("OpenClaw installed successfully")
		},
		Elevate:         true,
		ElevationFailed: installElevationFailed,
	}
}

func installElevationFailed(err error) string {
	msg := fmt.Sprintf("Install failed (elevated): %v\n", err)
	var failure *elevate.Failure
	if errors.As(err, &failure) {
		msg += failure.Output
	}
	return msg
}

// OnboardStep runs the one-shot setup and installs the background service.
// Any failure is fatal; onboarding failures are never treated as permission
// problems.
func OnboardStep() Step {
	return Step{
		Key:     KeyOnboard,
		Label:   "Run onboarding",
		Command: command.Spec{Program: "openclaw", Args: []string{"onboard", "--install-daemon"}},
		Classify: func(res command.Result) Verdict {
			if !res.Launched() {
				return Fatal(fmt.Sprintf("Onboard failed: %v", res.Err))
			}
			if res.ExitCode != 0 {
				return Fatal(fmt.Sprintf("Onboard failed (exit %d):\n%s", res.ExitCode, res.Stderr))
			}
			return Success("Onboarding complete")
		},
	}
}

// VerifyStep runs the diagnostic command. Its findings are advisory: any
// failure, including failing to start, is a warning.
func VerifyStep() Step {
	return Step{
		Key:     KeyVerify,
		Label:   "Verify installation",
		Command: command.Spec{Program: "openclaw", Args: []string{"doctor"}},
		Classify: func(res command.Result) Verdict {
			if !res.Launched() {
				return Warning(fmt.Sprintf("Doctor check failed: %v", res.Err))
			}
			if res.ExitCode != 0 {
				return Warning(fmt.Sprintf("Doctor check returned warnings (exit %d):\n%s%s",
					res.ExitCode, res.Stdout, res.Stderr))
			}
			return Success("All checks passed!")
		},
	}
}

// GatewayCommand is the long-running service started after a successful
// install. It is launched detached; see command.Detach.
func GatewayCommand(opts Options) command.Spec {
	port := opts.GatewayPort
	if port == 0 {
		port = DefaultGatewayPort
	}
	return command.Spec{
		Program: "openclaw",
		Args:    []string{"gateway", "--port", strconv.Itoa(port)},
	}
}
