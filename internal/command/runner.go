package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"unicode/utf8"

	"openclaw-setup/internal/logger"
)

// readBufferSize is the size of each read from a child's output pipe.
const readBufferSize = 4096

// Runner executes external commands and streams their output.
// The zero value is ready to use.
type Runner struct{}

// NewRunner returns a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run starts spec and blocks until the process exits. There is no timeout;
// ctx only matters if the caller cancels it, which kills the child.
//
// While the process runs, every chunk read from stdout or stderr is decoded to
// text and handed to onText before Run returns. Chunks from one stream are
// delivered in the order they were read; chunks from the two streams are
// interleaved by arrival. onText is never called concurrently with itself.
// A nil onText only buffers.
func (r *Runner) Run(ctx context.Context, spec Spec, onText func(string)) Result {
	cmd, err := buildCommand(ctx, spec)
	if err != nil {
		logger.Debug("[DEBUG] Cannot launch %s: %v\n", spec.Program, err)
		return launchFailure(err)
	}
	logger.Debug("[DEBUG] Running command: %s\n", spec.String())

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return launchFailure(fmt.Errorf("stdout pipe: %w", err))
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		_ = stdoutPipe.Close()
		return launchFailure(fmt.Errorf("stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		logger.Debug("[DEBUG] Failed to start %s: %v\n", spec.Program, err)
		return launchFailure(err)
	}

	var (
		mu             sync.Mutex
		wg             sync.WaitGroup
		stdout, stderr bytes.Buffer
	)
	emit := func(text string) {
		if onText == nil || text == "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onText(text)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		pump(stdoutPipe, &stdout, emit)
	}()
	go func() {
		defer wg.Done()
		pump(stderrPipe, &stderr, emit)
	}()

	// Pipes must be drained before Wait closes them.
	wg.Wait()
	waitErr := cmd.Wait()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		result.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case cmd.ProcessState != nil:
		result.ExitCode = cmd.ProcessState.ExitCode()
	default:
		result.ExitCode = -1
		result.Err = waitErr
	}
	logger.Debug("[DEBUG] %s finished with exit code %d\n", spec.Program, result.ExitCode)
	return result
}

// pump copies one pipe into buf, emitting decoded text per read.
func pump(r io.Reader, buf *bytes.Buffer, emit func(string)) {
	var dec textDecoder
	chunk := make([]byte, readBufferSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			emit(dec.decode(chunk[:n]))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				logger.Debug("[DEBUG] Output read error: %v\n", err)
			}
			break
		}
	}
	emit(dec.flush())
}

// textDecoder turns a byte stream into UTF-8 text chunks. A multi-byte
// character split across two reads is held back until it is complete.
type textDecoder struct {
	pending []byte
}

func (d *textDecoder) decode(p []byte) string {
	data := append(d.pending, p...)
	d.pending = nil

	// Hold back at most one incomplete trailing sequence.
	cut := len(data)
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if !utf8.FullRune(data[i:]) {
				cut = i
			}
			break
		}
	}
	if cut < len(data) {
		d.pending = append([]byte(nil), data[cut:]...)
	}
	return toValidText(data[:cut])
}

func (d *textDecoder) flush() string {
	rest := d.pending
	d.pending = nil
	return toValidText(rest)
}

func toValidText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return string(bytes.ToValidUTF8(b, []byte("�")))
}
