package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"openclaw-setup/internal/pipeline"
)

// FileLog records a run to a timestamped file and keeps the same lines in
// memory. It is a pipeline.Sink and is safe for concurrent use.
type FileLog struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	lines   []string
	partial strings.Builder
}

// NewFileLog creates {dir}/{prefix}-{yyyymmdd-hhmmss}.log. An empty dir
// means the OS temp directory.
func NewFileLog(dir, prefix string) (*FileLog, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.log", prefix, time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	l := &FileLog{file: f, path: path, lines: make([]string, 0, 128)}
	l.write("INFO", fmt.Sprintf("=== %s log ===", prefix))
	l.write("INFO", "Started: "+time.Now().Format(time.RFC3339))
	return l, nil
}

// Path returns the log file location.
func (l *FileLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Content returns every line logged so far.
func (l *FileLog) Content() string {
	if l == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

// ProgressText logs text line by line. A trailing fragment without a
// newline is held until the rest of the line arrives or the log closes.
func (l *FileLog) ProgressText(text string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.partial.WriteString(text)
	buffered := l.partial.String()
	cut := strings.LastIndexByte(buffered, '\n')
	if cut < 0 {
		return
	}
	l.partial.Reset()
	l.partial.WriteString(buffered[cut+1:])
	for _, line := range strings.Split(buffered[:cut], "\n") {
		l.writeLocked("OUT", strings.TrimRight(line, "\r"))
	}
}

func (l *FileLog) StepStatusChanged(key pipeline.Key, status pipeline.Status) {
	if l == nil {
		return
	}
	l.write("STEP", fmt.Sprintf("%s: %s", key, status))
}

// RunStarted marks where a run, or a retry, begins in the log.
func (l *FileLog) RunStarted(runID string) {
	if l == nil {
		return
	}
	l.write("INFO", "=== Run "+runID+" ===")
}

// Close flushes any partial line, writes a footer and closes the file.
func (l *FileLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	if l.partial.Len() > 0 {
		l.writeLocked("OUT", l.partial.String())
		l.partial.Reset()
	}
	l.writeLocked("INFO", "=== Log ended: "+time.Now().Format(time.RFC3339)+" ===")
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *FileLog) write(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeLocked(level, msg)
}

func (l *FileLog) writeLocked(level, msg string) {
	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("15:04:05.000"), level, msg)
	l.lines = append(l.lines, line)
	if l.file != nil {
		fmt.Fprintln(l.file, line)
	}
}
