// Package ui is the full-screen terminal front end of the installer. It
// renders step status and a live log, and offers the retry and launch
// actions. All installation logic stays in the pipeline package.
package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"openclaw-setup/internal/pipeline"
	"openclaw-setup/internal/platform"
	"openclaw-setup/internal/progress"
)

// logTailLines is how many trailing log lines the progress screen shows.
const logTailLines = 10

// maxLogLines bounds the log kept in memory for display.
const maxLogLines = 500

// Controller runs the pipeline. *pipeline.Orchestrator implements it.
type Controller interface {
	Start(ctx context.Context) (pipeline.Outcome, error)
	Retry(ctx context.Context) (pipeline.Outcome, error)
	Current() pipeline.Run
}

type screen int

const (
	screenWelcome screen = iota
	screenProgress
	screenSuccess
	screenError
)

// Options wires a Model.
type Options struct {
	Controller Controller
	// Events carries the run's progress; typically a progress.Bus
	// subscription.
	Events <-chan progress.Event
	Steps  []pipeline.Step
	Host   platform.Info
	// Launch starts the installed service. Nil hides the action.
	Launch      func() error
	GatewayPort int
	LogPath     string
	// AutoStart skips the welcome screen.
	AutoStart bool
}

type (
	eventMsg        progress.Event
	eventsClosedMsg struct{}
	outcomeMsg      struct {
		outcome pipeline.Outcome
		err     error
	}
	launchedMsg struct{ err error }
)

// Model is the bubbletea model of the installer.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	screen   screen
	statuses map[pipeline.Key]pipeline.Status
	log      []string
	partial  string
	outcome  pipeline.Outcome
	started  bool
	running  bool
	launched bool
	notice   string

	// warned holds the done steps whose verdict was a warning.
	warned map[pipeline.Key]bool

	// awaitingRun drops events left over from an earlier run until the
	// start marker of the current one arrives.
	awaitingRun bool

	spinner spinner.Model
	bar     bar.Model
	width   int
}

// New returns the initial model. ctx bounds the pipeline runs it starts;
// aborting the UI with ctrl+c cancels them.
func New(ctx context.Context, opts Options) Model {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	m := Model{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		screen:   screenWelcome,
		statuses: make(map[pipeline.Key]pipeline.Status, len(opts.Steps)),
		warned:   make(map[pipeline.Key]bool),
		spinner:  s,
		bar:      bar.New(bar.WithDefaultGradient(), bar.WithWidth(40)),
	}
	for _, step := range opts.Steps {
		m.statuses[step.Key] = pipeline.StatusPending
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitForEvent(m.opts.Events)}
	if m.opts.AutoStart {
		cmds = append(cmds, func() tea.Msg { return startMsg{} })
	}
	return tea.Batch(cmds...)
}

type startMsg struct{}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 4; w > 10 && w < 80 {
			m.bar.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case startMsg:
		return m.begin(false)

	case eventMsg:
		m.apply(progress.Event(msg))
		return m, waitForEvent(m.opts.Events)

	case eventsClosedMsg:
		return m, nil

	case outcomeMsg:
		m.running = false
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		m.outcome = msg.outcome
		// Events may have been dropped; the snapshot is authoritative.
		for _, s := range m.opts.Controller.Current().Steps {
			m.statuses[s.Key] = s.Status
			m.warned[s.Key] = s.Status == pipeline.StatusDone && slices.Contains(msg.outcome.Warnings, s.Message)
		}
		if msg.outcome.Succeeded() {
			m.screen = screenSuccess
		} else {
			m.screen = screenError
		}
		return m, nil

	case launchedMsg:
		if msg.err != nil {
			m.notice = "Could not launch OpenClaw: " + msg.err.Error()
			return m, nil
		}
		m.launched = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "q", "esc":
		if m.running {
			return m, nil
		}
		return m, tea.Quit
	case "enter":
		if m.screen == screenWelcome && !m.running {
			return m.begin(false)
		}
	case "r":
		if m.screen == screenError && !m.running {
			return m.begin(true)
		}
	case "l":
		if m.screen == screenSuccess && m.opts.Launch != nil {
			launch := m.opts.Launch
			return m, func() tea.Msg { return launchedMsg{err: launch()} }
		}
	}
	return m, nil
}

// begin switches to the progress screen and runs the pipeline in the
// background.
func (m Model) begin(retry bool) (tea.Model, tea.Cmd) {
	if m.running || (!retry && m.started) {
		return m, nil
	}
	m.screen = screenProgress
	m.running = true
	m.started = true
	m.notice = ""
	m.log = nil
	m.partial = ""
	m.awaitingRun = true
	for key := range m.statuses {
		m.statuses[key] = pipeline.StatusPending
		delete(m.warned, key)
	}

	ctrl, ctx := m.opts.Controller, m.ctx
	return m, func() tea.Msg {
		var (
			out pipeline.Outcome
			err error
		)
		if retry {
			out, err = ctrl.Retry(ctx)
		} else {
			out, err = ctrl.Start(ctx)
		}
		return outcomeMsg{outcome: out, err: err}
	}
}

func (m *Model) apply(ev progress.Event) {
	if ev.Kind == progress.KindRun {
		m.awaitingRun = false
		return
	}
	if m.awaitingRun {
		return
	}
	switch ev.Kind {
	case progress.KindStatus:
		m.statuses[ev.Step] = ev.Status
	case progress.KindText:
		m.appendLog(ev.Text)
	}
}

func (m *Model) appendLog(text string) {
	lines := strings.Split(m.partial+text, "\n")
	m.partial = lines[len(lines)-1]
	for _, line := range lines[:len(lines)-1] {
		m.log = append(m.log, strings.TrimRight(line, "\r"))
	}
	if extra := len(m.log) - maxLogLines; extra > 0 {
		m.log = append([]string(nil), m.log[extra:]...)
	}
}

// waitForEvent delivers the next event from ch as a message.
func waitForEvent(ch <-chan progress.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Percent is the share of work done: finished steps count fully, the
// running one half.
func (m Model) Percent() float64 {
	if len(m.opts.Steps) == 0 {
		return 0
	}
	var done float64
	for _, step := range m.opts.Steps {
		switch status := m.statuses[step.Key]; {
		case status.Terminal():
			done++
		case status == pipeline.StatusRunning:
			done += 0.5
		}
	}
	return done / float64(len(m.opts.Steps))
}

// Outcome returns the result of the last finished run.
func (m Model) Outcome() pipeline.Outcome {
	return m.outcome
}

// Launched reports whether the user started the gateway.
func (m Model) Launched() bool {
	return m.launched
}

func (m Model) gatewayPort() int {
	if m.opts.GatewayPort == 0 {
		return pipeline.DefaultGatewayPort
	}
	return m.opts.GatewayPort
}

func (m Model) logTail() []string {
	lines := m.log
	if m.partial != "" {
		lines = append(append([]string(nil), lines...), m.partial)
	}
	if len(lines) > logTailLines {
		lines = lines[len(lines)-logTailLines:]
	}
	return lines
}

func keyHint(key, action string) string {
	return fmt.Sprintf("%s %s", keyStyle.Render(key), subtleStyle.Render(action))
}
