package pipeline

import (
	"openclaw-setup/internal/logger"
)

// Sink observes a run. Both methods are fire-and-forget: implementations must
// return promptly and must not call back into the Orchestrator.
//
// ProgressText receives free-form text in the order it was produced:
// echoed command lines, live command output, and step messages.
// StepStatusChanged receives every status transition of every step.
type Sink interface {
	ProgressText(text string)
	StepStatusChanged(key Key, status Status)
}

// RunObserver is implemented by sinks that want to know where one run ends
// and the next begins. RunStarted is called before any event of the run.
type RunObserver interface {
	RunStarted(runID string)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) ProgressText(string)           {}
func (NopSink) StepStatusChanged(Key, Status) {}

// deliver calls fn with sink, swallowing any panic so a broken observer
// cannot take the pipeline down with it.
func deliver(sink Sink, fn func(Sink)) {
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("[DEBUG] Progress sink panicked: %v\n", r)
		}
	}()
	fn(sink)
}
