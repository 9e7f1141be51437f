package logger

import (
	"io"

	"github.com/fatih/color" // Colored console output for every log level
)

// Leveled, colorized Printf-style logging functions built on fatih/color.
// They are package-level variables so callers can use them like fmt.Printf
// without threading a logger value through every package.

// Info logs informational messages in green.
var Info func(format string, a ...any)

// Success logs completed milestones in bold bright green, e.g. a finished install step.
var Success func(format string, a ...any)

// Warn logs warnings in bright magenta. Used for advisory problems that do not
// stop the installation, such as a failing health check.
var Warn func(format string, a ...any)

// Error logs errors in red.
var Error func(format string, a ...any)

// Debug logs debug messages in cyan when enabled, otherwise it is a no-op.
// It is reassigned by Init and SetOutput.
var Debug func(format string, a ...any)

// out is the writer every level prints to. Defaults to the color package's
// stdout, which handles Windows consoles.
var out io.Writer = color.Output

// debugEnabled remembers the last Init choice so SetOutput can rebuild Debug.
var debugEnabled bool

func init() {
	bind()
}

// Init enables or disables debug logging.
// When disabled, Debug silently discards its input.
func Init(enableDebug bool) {
	debugEnabled = enableDebug
	bind()
}

// SetOutput redirects every level to w. Passing io.Discard silences console
// logging entirely, which the full-screen UI relies on while it owns the terminal.
// A nil writer restores the default.
func SetOutput(w io.Writer) {
	if w == nil {
		w = color.Output
	}
	out = w
	bind()
}

// Writer returns the writer the logger currently prints to.
func Writer() io.Writer {
	return out
}

// bind (re)creates the level functions against the current writer.
func bind() {
	Info = printer(color.New(color.FgGreen))
	Success = printer(color.New(color.FgHiGreen, color.Bold))
	Warn = printer(color.New(color.FgHiMagenta))
	Error = printer(color.New(color.FgRed))

	if debugEnabled {
		Debug = printer(color.New(color.FgCyan))
	} else {
		Debug = func(format string, a ...any) {}
	}
}

func printer(c *color.Color) func(format string, a ...any) {
	fprintf := c.FprintfFunc()
	w := out
	return func(format string, a ...any) {
		fprintf(w, format, a...)
	}
}
