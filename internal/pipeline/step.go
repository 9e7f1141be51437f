package pipeline

import (
	"openclaw-setup/internal/command"
)

// Key identifies a step. The values double as the identifiers the
// presentation layer uses for its step list.
type Key string

// Verdict is a step's judgement of one command result. Message is the text
// shown to the user: a confirmation on success, the warning or error text
// otherwise.
type Verdict struct {
	Class   Class
	Message string
}

// Step is one position of the installation pipeline: one external command
// plus the policy that classifies its result.
type Step struct {
	Key     Key
	Label   string
	Command command.Spec

	// Classify maps the command result onto a verdict. It must handle
	// results whose Err is set (the program never started).
	Classify func(command.Result) Verdict

	// Elevate allows exactly one retry through the elevation strategy when
	// the command ran, exited non-zero and its stderr matches the
	// permission-denied predicate.
	Elevate bool

	// ElevationFailed renders the message for a failed elevated retry.
	// Defaults to a generic message naming the step.
	ElevationFailed func(err error) string
}

// Success, Warning and Fatal build verdicts.
func Success(message string) Verdict { return Verdict{Class: ClassSuccess, Message: message} }
func Warning(message string) Verdict { return Verdict{Class: ClassWarning, Message: message} }
func Fatal(message string) Verdict   { return Verdict{Class: ClassFatal, Message: message} }
