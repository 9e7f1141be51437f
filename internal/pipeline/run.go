package pipeline

import (
	"time"

	"openclaw-setup/internal/command"
)

// StepOutcome is the record of one step within a Run.
type StepOutcome struct {
	Key    Key
	Label  string
	Status Status

	// Result is the command result that decided the step, nil while the
	// step is Pending or Running. After an elevated retry it is still the
	// first, unelevated result.
	Result *command.Result

	// Elevated reports whether the step went through the elevation strategy.
	Elevated bool

	// Message is the verdict text: confirmation, warning or error.
	Message string
}

// Run is one attempt through every step, from all-Pending to a terminal
// State. A retry produces a new Run; an old Run is never reused.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	State      State
	Steps      []StepOutcome

	// Warnings collects the messages of steps whose verdict was a warning.
	// Those steps still finish StatusDone.
	Warnings []string

	// Failure is set when State is StateAborted.
	Failure *StepError
}

// Step returns the outcome recorded for key.
func (r Run) Step(key Key) (StepOutcome, bool) {
	for _, s := range r.Steps {
		if s.Key == key {
			return s, true
		}
	}
	return StepOutcome{}, false
}

// Outcome summarizes the run for its caller.
func (r Run) Outcome() Outcome {
	out := Outcome{
		RunID:    r.ID,
		State:    r.State,
		Warnings: append([]string(nil), r.Warnings...),
	}
	if r.Failure != nil {
		out.Err = r.Failure
	}
	return out
}

// clone returns a deep copy safe to hand out while the original is written.
func (r *Run) clone() Run {
	c := *r
	c.Steps = make([]StepOutcome, len(r.Steps))
	for i, s := range r.Steps {
		if s.Result != nil {
			res := *s.Result
			s.Result = &res
		}
		c.Steps[i] = s
	}
	c.Warnings = append([]string(nil), r.Warnings...)
	if r.Failure != nil {
		f := *r.Failure
		c.Failure = &f
	}
	return c
}

// Outcome is the terminal result reported to the caller of Start or Retry:
// full success, success with warnings, or failure with one readable error.
type Outcome struct {
	RunID    string
	State    State
	Warnings []string
	Err      error
}

// Succeeded reports whether the run completed, with or without warnings.
func (o Outcome) Succeeded() bool {
	return o.State == StateCompleted || o.State == StateCompletedWithWarnings
}

// StepError identifies the step that aborted a run. Its message carries the
// step's captured diagnostic output.
type StepError struct {
	Step    Key
	Label   string
	Message string
}

func (e *StepError) Error() string {
	return e.Message
}
