package progress

import "openclaw-setup/internal/pipeline"

// Multi forwards every call to each of its sinks in order. Nil entries are
// skipped.
type Multi []pipeline.Sink

func (m Multi) ProgressText(text string) {
	for _, s := range m {
		if s != nil {
			s.ProgressText(text)
		}
	}
}

func (m Multi) StepStatusChanged(key pipeline.Key, status pipeline.Status) {
	for _, s := range m {
		if s != nil {
			s.StepStatusChanged(key, status)
		}
	}
}

// RunStarted forwards to the sinks that observe run boundaries.
func (m Multi) RunStarted(runID string) {
	for _, s := range m {
		if obs, ok := s.(pipeline.RunObserver); ok {
			obs.RunStarted(runID)
		}
	}
}
