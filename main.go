package main

import (
	"openclaw-setup/cmd" // CLI commands and execution logic
)

// main is the program entry point.
// It delegates to cmd.Execute() which handles command line argument parsing and execution.
//
// openclaw-setup is a guided installer for OpenClaw aimed at users without
// command-line experience. It:
//   - Checks that a supported Node.js version is available, optionally unpacking
//     a portable Node.js archive first
//   - Installs the openclaw npm package globally, retrying once through the OS
//     consent prompt when npm fails for lack of permissions
//   - Runs onboarding, which installs the background service
//   - Runs the health check, whose findings are reported as warnings only
//   - Offers to start the gateway once installation succeeds
//
// On a terminal it shows a full-screen UI with live command output; otherwise
// it prints plain progress lines. Every attempt is logged to a file and
// recorded in a small run history (see `openclaw-setup status`).
//
// A failed installation exits with a non-zero status.
func main() {
	cmd.Execute()
}
