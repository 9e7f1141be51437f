package command

import "fmt"

// Result is the outcome of one command invocation. It is never mutated after
// the Runner returns it.
//
// Err is set only when the program could not be started at all (not found,
// spawn failure); in that case ExitCode is -1 and no output was captured.
// A program that ran and exited non-zero is not an error: the code is in
// ExitCode and the diagnostics are in Stdout/Stderr.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// Launched reports whether the process actually started.
func (r Result) Launched() bool {
	return r.Err == nil
}

// Succeeded reports whether the process started and exited with code 0.
func (r Result) Succeeded() bool {
	return r.Err == nil && r.ExitCode == 0
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("launch error: %v", r.Err)
	}
	return fmt.Sprintf("exit %d", r.ExitCode)
}

func launchFailure(err error) Result {
	return Result{ExitCode: -1, Err: err}
}
