// Package progress provides the observers a pipeline run reports to: the
// plain console, a log file, and a bus the terminal UI subscribes to.
package progress

import (
	"time"

	"openclaw-setup/internal/pipeline"
)

// Kind distinguishes the things a run reports.
type Kind int

const (
	KindText Kind = iota
	KindStatus
	// KindRun marks the start of a run; every later event belongs to it.
	KindRun
)

// Event is one sink call, captured for delivery over a channel.
type Event struct {
	Kind   Kind
	Time   time.Time
	Text   string
	Step   pipeline.Key
	Status pipeline.Status
	RunID  string
}
