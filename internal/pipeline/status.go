package pipeline

// Status is the lifecycle position of one step within a run.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusDone
	// StatusWarning is accepted in recorded history but never produced by
	// the Orchestrator, which finishes advisory failures as StatusDone.
	StatusWarning
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusWarning:
		return "warning"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a final step status.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusWarning || s == StatusFailed
}

// State is the global position of a run.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateCompleted
	StateCompletedWithWarnings
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateInProgress:
		return "in-progress"
	case StateCompleted:
		return "completed"
	case StateCompletedWithWarnings:
		return "completed-with-warnings"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCompletedWithWarnings || s == StateAborted
}

// Class is how a step's command result is judged.
type Class int

const (
	ClassSuccess Class = iota
	ClassWarning
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassWarning:
		return "warning"
	default:
		return "fatal"
	}
}

// status maps a verdict class onto the terminal step status it produces.
// A warning finishes its step as done; the warning itself is carried by the
// run, which ends StateCompletedWithWarnings.
func (c Class) status() Status {
	switch c {
	case ClassSuccess, ClassWarning:
		return StatusDone
	default:
		return StatusFailed
	}
}
