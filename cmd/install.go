package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"openclaw-setup/internal/command"
	"openclaw-setup/internal/elevate"
	"openclaw-setup/internal/logger"
	"openclaw-setup/internal/nodedist"
	"openclaw-setup/internal/pipeline"
	"openclaw-setup/internal/platform"
	"openclaw-setup/internal/progress"
	"openclaw-setup/internal/state"
	"openclaw-setup/internal/ui"
)

var (
	// plain forces line-oriented output even on a terminal.
	plain bool
	// launchAfter starts the gateway once a plain-mode install succeeds.
	launchAfter bool
	// assumeYes skips the welcome screen.
	assumeYes bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Check Node.js, install OpenClaw, onboard it and verify the result",
	RunE:  runInstall,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, installCmd} {
		c.Flags().BoolVar(&plain, "plain", false, "Plain console output instead of the full-screen UI")
		c.Flags().BoolVar(&launchAfter, "launch", false, "Start the gateway after a successful install (plain mode)")
		c.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Start installing without the welcome screen")
	}
	rootCmd.AddCommand(installCmd)
}

// session holds what one install invocation wires together.
type session struct {
	steps   []pipeline.Step
	orch    *pipeline.Orchestrator
	fileLog *progress.FileLog
	env     map[string]string
	opts    pipeline.Options
	host    platform.Info
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if plain || !isTerminal(os.Stdout) {
		return s.runPlain(ctx)
	}
	return s.runInteractive(ctx)
}

func newSession(ctx context.Context) (*session, error) {
	s := &session{
		opts: cfg.Options(),
		host: platform.Describe(),
	}
	logger.Debug("[DEBUG] Host: %s/%s elevated=%v\n", s.host.OS, s.host.Arch, s.host.Elevated)

	if cfg.Runtime.Archive != "" {
		inst := &nodedist.Installer{Dir: cfg.Runtime.InstallDir}
		binDir, err := inst.Install(ctx, cfg.Runtime.Archive)
		if err != nil {
			return nil, fmt.Errorf("prepare Node.js runtime: %w", err)
		}
		s.env = nodedist.PathOverride(binDir)
	}

	fileLog, err := progress.NewFileLog(cfg.LogDir, "openclaw-setup")
	if err != nil {
		logger.Warn("[WARN] Continuing without a log file: %v\n", err)
	}
	s.fileLog = fileLog

	s.steps = pipeline.Steps(s.opts)
	s.orch = pipeline.New(pipeline.Config{
		Steps:      s.steps,
		Runner:     command.NewRunner(),
		Elevator:   elevate.NewNative(),
		Permission: cfg.Markers(s.host.OS),
		Env:        s.env,
	})
	return s, nil
}

func (s *session) close() {
	if err := s.fileLog.Close(); err != nil {
		logger.Warn("[WARN] Failed to close log file: %v\n", err)
	}
}

// sink combines sink with the log file, if there is one.
func (s *session) sink(sink pipeline.Sink) pipeline.Sink {
	if s.fileLog == nil {
		return sink
	}
	return progress.Multi{sink, s.fileLog}
}

// record appends a finished run to the history file.
func (s *session) record(run pipeline.Run) {
	if !run.State.Terminal() {
		return
	}
	if err := state.Record(cfg.StateFile, state.FromRun(run, s.fileLog.Path())); err != nil {
		logger.Warn("[WARN] Failed to save run history: %v\n", err)
	}
}

func (s *session) launch() error {
	return command.Detach(pipeline.GatewayCommand(s.opts).WithEnv(s.env))
}

func (s *session) runPlain(ctx context.Context) error {
	s.orch.SetSink(s.sink(progress.NewConsole(os.Stdout, s.steps)))
	if s.host.RecommendWSL() {
		logger.Warn("[WARN] Running on Windows. OpenClaw works best under WSL2.\n")
	}

	out, err := s.orch.Start(ctx)
	if err != nil {
		return err
	}
	s.record(s.orch.Current())

	if !out.Succeeded() {
		logger.Error("[ERROR] %v\n", out.Err)
		if path := s.fileLog.Path(); path != "" {
			logger.Info("[INFO] Full log: %s\n", path)
		}
		return errReported
	}
	if out.State == pipeline.StateCompletedWithWarnings {
		logger.Warn("[WARN] OpenClaw is installed, with warnings.\n")
	} else {
		logger.Success("OpenClaw is installed!\n")
	}

	if launchAfter {
		if err := s.launch(); err != nil {
			return fmt.Errorf("launch gateway: %w", err)
		}
		logger.Info("[INFO] Gateway starting on port %d\n", s.opts.GatewayPort)
	}
	return nil
}

func (s *session) runInteractive(ctx context.Context) error {
	bus := progress.NewBus(progress.DefaultBuffer)
	events, detach := bus.Subscribe()
	defer bus.Close()
	defer detach()
	s.orch.SetSink(s.sink(bus))

	// The UI owns the terminal; console logging would corrupt it.
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(nil)

	// Runs started from the UI must not outlive it.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctrl := newRecordingController(s.orch, s.record)

	model := ui.New(runCtx, ui.Options{
		Controller:  ctrl,
		Events:      events,
		Steps:       s.steps,
		Host:        s.host,
		Launch:      s.launch,
		GatewayPort: s.opts.GatewayPort,
		LogPath:     s.fileLog.Path(),
		AutoStart:   assumeYes,
	})
	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	// The UI is gone: detach it, kill whatever child is still running and
	// wait for the run to be recorded before the log file closes.
	s.orch.SetSink(s.sink(nil))
	cancel()
	ctrl.shutdown()
	if err != nil {
		return fmt.Errorf("run UI: %w", err)
	}

	m, ok := final.(ui.Model)
	if !ok {
		return nil
	}
	out := m.Outcome()
	switch {
	case m.Launched():
		logger.SetOutput(nil)
		logger.Info("[INFO] Gateway starting on port %d\n", s.opts.GatewayPort)
	case out.State == pipeline.StateAborted:
		logger.SetOutput(nil)
		logger.Error("[ERROR] %v\n", out.Err)
		return errReported
	}
	return nil
}

// errControllerClosed is returned for runs requested after the UI exited.
var errControllerClosed = errors.New("installer is shutting down")

// recordingController saves every finished run to the history. After
// shutdown it refuses new runs.
type recordingController struct {
	*pipeline.Orchestrator
	record func(pipeline.Run)

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
}

func newRecordingController(o *pipeline.Orchestrator, record func(pipeline.Run)) *recordingController {
	return &recordingController{Orchestrator: o, record: record}
}

func (c *recordingController) Start(ctx context.Context) (pipeline.Outcome, error) {
	return c.do(ctx, c.Orchestrator.Start)
}

func (c *recordingController) Retry(ctx context.Context) (pipeline.Outcome, error) {
	return c.do(ctx, c.Orchestrator.Retry)
}

func (c *recordingController) do(ctx context.Context, run func(context.Context) (pipeline.Outcome, error)) (pipeline.Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return pipeline.Outcome{}, errControllerClosed
	}
	c.inFlight.Add(1)
	c.mu.Unlock()
	defer c.inFlight.Done()

	out, err := run(ctx)
	if err == nil {
		c.record(c.Current())
	}
	return out, err
}

// shutdown refuses further runs and waits for the one in flight, if any.
func (c *recordingController) shutdown() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.inFlight.Wait()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
