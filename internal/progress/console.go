package progress

import (
	"io"
	"sync"

	"openclaw-setup/internal/logger"
	"openclaw-setup/internal/pipeline"
)

// Console prints a run for a plain terminal or a redirected stdout: command
// output verbatim, step transitions through the colored logger. A step with
// an advisory failure is reported done; its "Warning:" line arrives as text.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	labels map[pipeline.Key]string
}

// NewConsole writes progress text to w. Steps supply the labels used for
// status lines; unknown keys are printed as is.
func NewConsole(w io.Writer, steps []pipeline.Step) *Console {
	labels := make(map[pipeline.Key]string, len(steps))
	for _, s := range steps {
		labels[s.Key] = s.Label
	}
	return &Console{out: w, labels: labels}
}

func (c *Console) ProgressText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, text)
}

func (c *Console) StepStatusChanged(key pipeline.Key, status pipeline.Status) {
	label, ok := c.labels[key]
	if !ok {
		label = string(key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch status {
	case pipeline.StatusRunning:
		logger.Info("[INFO] %s...\n", label)
	case pipeline.StatusDone:
		logger.Success("[OK] %s\n", label)
	case pipeline.StatusFailed:
		logger.Error("[ERROR] %s failed\n", label)
	}
}
