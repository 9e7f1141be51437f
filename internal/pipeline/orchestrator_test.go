package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"openclaw-setup/internal/command"
	"openclaw-setup/internal/elevate"
)

// fakeRunner answers by command line. Unknown commands succeed silently.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]command.Result
	calls   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: make(map[string]command.Result)}
}

func (f *fakeRunner) on(line string, res command.Result) *fakeRunner {
	f.results[line] = res
	return f
}

func (f *fakeRunner) Run(_ context.Context, spec command.Spec, onText func(string)) command.Result {
	line := spec.String()
	f.mu.Lock()
	f.calls = append(f.calls, line)
	res := f.results[line]
	f.mu.Unlock()

	if onText != nil {
		if res.Stdout != "" {
			onText(res.Stdout)
		}
		if res.Stderr != "" {
			onText(res.Stderr)
		}
	}
	return res
}

type fakeElevator struct {
	err   error
	calls []string
	specs []command.Spec
}

func (f *fakeElevator) Elevate(_ context.Context, spec command.Spec) error {
	f.calls = append(f.calls, spec.String())
	f.specs = append(f.specs, spec)
	return f.err
}

type statusEvent struct {
	key    Key
	status Status
}

type recordingSink struct {
	mu     sync.Mutex
	text   strings.Builder
	events []statusEvent
}

func (s *recordingSink) ProgressText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text.WriteString(text)
}

func (s *recordingSink) StepStatusChanged(key Key, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, statusEvent{key, status})
}

// checkTransitions verifies every step went Pending -> Running -> terminal
// and that two steps were never Running at once.
func checkTransitions(t *testing.T, events []statusEvent) {
	t.Helper()
	last := make(map[Key]Status)
	var running Key
	for _, ev := range events {
		prev, seen := last[ev.key]
		switch ev.status {
		case StatusPending:
		case StatusRunning:
			if !seen || prev != StatusPending {
				t.Errorf("%s: running after %v", ev.key, prev)
			}
			if running != "" {
				t.Errorf("%s started while %s running", ev.key, running)
			}
			running = ev.key
		default:
			if prev != StatusRunning {
				t.Errorf("%s: %v after %v", ev.key, ev.status, prev)
			}
			running = ""
		}
		last[ev.key] = ev.status
	}
}

var (
	nodeOK      = command.Result{Stdout: "v22.1.0\n"}
	eaccesError = command.Result{ExitCode: 1, Stderr: "npm ERR! code EACCES\nnpm ERR! syscall mkdir\n"}
)

func newTestOrchestrator(runner Runner, elevator Elevator, sink Sink) *Orchestrator {
	cfg := Config{
		Steps:      Steps(DefaultOptions()),
		Runner:     runner,
		Permission: elevate.Markers{"EACCES", "permission denied", "errno -13"},
		Sink:       sink,
	}
	if elevator != nil {
		cfg.Elevator = elevator
	}
	return New(cfg)
}

func stepStatus(t *testing.T, run Run, key Key) Status {
	t.Helper()
	s, ok := run.Step(key)
	if !ok {
		t.Fatalf("no step %s", key)
	}
	return s.Status
}

func TestStart_AllStepsSucceed(t *testing.T) {
	runner := newFakeRunner().on("node --version", nodeOK)
	sink := &recordingSink{}
	o := newTestOrchestrator(runner, &fakeElevator{}, sink)

	out, err := o.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateCompleted || out.Err != nil || len(out.Warnings) != 0 {
		t.Fatalf("outcome = %+v", out)
	}

	want := []string{"node --version", "npm install -g openclaw", "openclaw onboard --install-daemon", "openclaw doctor"}
	if strings.Join(runner.calls, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %v, want %v", runner.calls, want)
	}

	run := o.Current()
	for _, key := range []Key{KeyCheckNode, KeyInstall, KeyOnboard, KeyVerify} {
		if got := stepStatus(t, run, key); got != StatusDone {
			t.Errorf("%s = %v, want done", key, got)
		}
	}
	checkTransitions(t, sink.events)

	text := sink.text.String()
	for _, line := range []string{"$ node --version\n", "v22.1.0\n", "Node.js v22.1.0 detected\n", "All checks passed!\n"} {
		if !strings.Contains(text, line) {
			t.Errorf("progress text missing %q:\n%s", line, text)
		}
	}
}

func TestStart_NodeTooOld(t *testing.T) {
	runner := newFakeRunner().on("node --version", command.Result{Stdout: "v21.5.0\n"})
	o := newTestOrchestrator(runner, &fakeElevator{}, nil)

	out, _ := o.Start(context.Background())

	if out.State != StateAborted {
		t.Fatalf("state = %v, want aborted", out.State)
	}
	if out.Err == nil || !strings.Contains(out.Err.Error(), "22") {
		t.Errorf("error = %v, want mention of 22", out.Err)
	}
	var stepErr *StepError
	if !errors.As(out.Err, &stepErr) || stepErr.Step != KeyCheckNode {
		t.Errorf("error = %#v, want StepError for check-node", out.Err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("calls = %v, want only the version check", runner.calls)
	}
	run := o.Current()
	for _, key := range []Key{KeyInstall, KeyOnboard, KeyVerify} {
		if got := stepStatus(t, run, key); got != StatusPending {
			t.Errorf("%s = %v, want pending", key, got)
		}
	}
}

func TestStart_NodeSupportedContinues(t *testing.T) {
	runner := newFakeRunner().
		on("node --version", nodeOK).
		on("npm install -g openclaw", command.Result{ExitCode: 1, Stderr: "network down"})
	sink := &recordingSink{}
	o := newTestOrchestrator(runner, &fakeElevator{}, sink)

	o.Start(context.Background())

	if got := stepStatus(t, o.Current(), KeyCheckNode); got != StatusDone {
		t.Errorf("check-node = %v, want done", got)
	}
	if len(runner.calls) < 2 || runner.calls[1] != "npm install -g openclaw" {
		t.Errorf("install did not begin: %v", runner.calls)
	}
	checkTransitions(t, sink.events)
}

func TestStart_NodeMissing(t *testing.T) {
	runner := newFakeRunner().on("node --version", command.Result{ExitCode: -1, Err: errors.New("executable file not found")})
	o := newTestOrchestrator(runner, &fakeElevator{}, nil)

	out, _ := o.Start(context.Background())

	if out.State != StateAborted {
		t.Fatalf("state = %v, want aborted", out.State)
	}
	if !strings.Contains(out.Err.Error(), "Node.js not found") {
		t.Errorf("error = %v", out.Err)
	}
}

func TestStart_PermissionDeniedElevates(t *testing.T) {
	runner := newFakeRunner().
		on("node --version", nodeOK).
		on("npm install -g openclaw", eaccesError)
	elevator := &fakeElevator{}
	sink := &recordingSink{}
	o := newTestOrchestrator(runner, elevator, sink)

	out, _ := o.Start(context.Background())

	if len(elevator.calls) != 1 || elevator.calls[0] != "npm install -g openclaw" {
		t.Fatalf("elevator calls = %v, want one install", elevator.calls)
	}
	if out.State != StateCompleted {
		t.Fatalf("state = %v, want completed (err %v)", out.State, out.Err)
	}
	install, _ := o.Current().Step(KeyInstall)
	if install.Status != StatusDone || !install.Elevated {
		t.Errorf("install = %+v, want done and elevated", install)
	}
	if !strings.Contains(sink.text.String(), "OpenClaw installed successfully") {
		t.Errorf("missing success text:\n%s", sink.text.String())
	}
	checkTransitions(t, sink.events)
}

func TestStart_ElevationFails(t *testing.T) {
	runner := newFakeRunner().
		on("node --version", nodeOK).
		on("npm install -g openclaw", eaccesError)
	elevator := &fakeElevator{err: &elevate.Failure{Err: elevate.ErrDeclined, ExitCode: 126, Output: "dismissed"}}
	o := newTestOrchestrator(runner, elevator, nil)

	out, _ := o.Start(context.Background())

	if len(elevator.calls) != 1 {
		t.Errorf("elevator calls = %d, want 1", len(elevator.calls))
	}
	if out.State != StateAborted {
		t.Fatalf("state = %v, want aborted", out.State)
	}
	if got := stepStatus(t, o.Current(), KeyInstall); got != StatusFailed {
		t.Errorf("install = %v, want failed", got)
	}
	if got := stepStatus(t, o.Current(), KeyOnboard); got != StatusPending {
		t.Errorf("onboard = %v, want pending", got)
	}
	for _, call := range runner.calls {
		if strings.HasPrefix(call, "openclaw") {
			t.Errorf("pipeline continued past install: %v", runner.calls)
		}
	}
	msg := out.Err.Error()
	if !strings.Contains(msg, "Install failed (elevated)") || !strings.Contains(msg, "dismissed") {
		t.Errorf("error = %q", msg)
	}
}

func TestStart_NoPermissionMarkerSkipsElevation(t *testing.T) {
	runner := newFakeRunner().
		on("node --version", nodeOK).
		on("npm install -g openclaw", command.Result{ExitCode: 1, Stderr: "npm ERR! 404 Not Found"})
	elevator := &fakeElevator{}
	o := newTestOrchestrator(runner, elevator, nil)

	out, _ := o.Start(context.Background())

	if len(elevator.calls) != 0 {
		t.Errorf("elevator called: %v", elevator.calls)
	}
	if got := stepStatus(t, o.Current(), KeyInstall); got != StatusFailed {
		t.Errorf("install = %v, want failed", got)
	}
	if !strings.Contains(out.Err.Error(), "npm install failed (exit 1)") ||
		!strings.Contains(out.Err.Error(), "404 Not Found") {
		t.Errorf("error = %v", out.Err)
	}
}

func TestStart_OnboardFailureNeverElevates(t *testing.T) {
	runner := newFakeRunner().
		on("node --version", nodeOK).
		on("openclaw onboard --install-daemon", command.Result{ExitCode: 1, Stderr: "EACCES: permission denied"})
	elevator := &fakeElevator{}
	o := newTestOrchestrator(runner, elevator, nil)

	out, _ := o.Start(context.Background())

	if len(elevator.calls) != 0 {
		t.Errorf("elevator called: %v", elevator.calls)
	}
	if out.State != StateAborted || !strings.Contains(out.Err.Error(), "Onboard failed (exit 1)") {
		t.Errorf("outcome = %+v", out)
	}
	if got := stepStatus(t, o.Current(), KeyVerify); got != StatusPending {
		t.Errorf("verify = %v, want pending", got)
	}
}

func TestStart_VerifyFailureWarns(t *testing.T) {
	runner := newFakeRunner().
		on("node --version", nodeOK).
		on("openclaw doctor", command.Result{ExitCode: 1, Stdout: "gateway not reachable\n"})
	sink := &recordingSink{}
	o := newTestOrchestrator(runner, &fakeElevator{}, sink)

	out, _ := o.Start(context.Background())

	if out.State != StateCompletedWithWarnings {
		t.Fatalf("state = %v, want completed-with-warnings", out.State)
	}
	if out.Err != nil {
		t.Errorf("err = %v, want nil", out.Err)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "gateway not reachable") {
		t.Fatalf("warnings = %v", out.Warnings)
	}
	verify, _ := o.Current().Step(KeyVerify)
	if verify.Status != StatusDone {
		t.Errorf("verify = %v, want done", verify.Status)
	}
	if verify.Message != out.Warnings[0] {
		t.Errorf("verify message = %q, want the recorded warning", verify.Message)
	}
	if !strings.Contains(sink.text.String(), "Warning: Doctor check returned warnings (exit 1)") {
		t.Errorf("missing warning line:\n%s", sink.text.String())
	}
	if !strings.Contains(sink.text.String(), "Installation completed with warnings.") {
		t.Errorf("missing completion warning:\n%s", sink.text.String())
	}
	checkTransitions(t, sink.events)
}

func TestRetry_ProducesFreshRun(t *testing.T) {
	runner := newFakeRunner().on("node --version", command.Result{Stdout: "v20.0.0\n"})
	sink := &recordingSink{}
	o := newTestOrchestrator(runner, &fakeElevator{}, sink)

	first, _ := o.Start(context.Background())
	if first.State != StateAborted {
		t.Fatalf("first state = %v", first.State)
	}
	firstRun := o.Current()

	runner.on("node --version", nodeOK)
	sink.events = nil
	second, err := o.Retry(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if second.RunID == first.RunID {
		t.Error("retry reused the run id")
	}
	if second.State != StateCompleted || second.Err != nil {
		t.Errorf("second outcome = %+v", second)
	}
	run := o.Current()
	if run.ID != second.RunID || run.Failure != nil {
		t.Errorf("current run = %+v", run)
	}
	if firstRun.Failure == nil || firstRun.State != StateAborted {
		t.Errorf("snapshot of first run changed: %+v", firstRun)
	}

	// Every step is reset to Pending before anything runs.
	for i, key := range []Key{KeyCheckNode, KeyInstall, KeyOnboard, KeyVerify} {
		if sink.events[i] != (statusEvent{key, StatusPending}) {
			t.Errorf("event %d = %+v, want %s pending", i, sink.events[i], key)
		}
	}
	checkTransitions(t, sink.events)
}

func TestStartAndRetry_Misuse(t *testing.T) {
	o := newTestOrchestrator(newFakeRunner().on("node --version", nodeOK), nil, nil)

	if _, err := o.Retry(context.Background()); !errors.Is(err, ErrNotFinished) {
		t.Errorf("Retry before Start = %v, want ErrNotFinished", err)
	}
	if got := o.Current().State; got != StateNotStarted {
		t.Errorf("state = %v, want not-started", got)
	}
	if _, err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

// blockingRunner holds the version check until released.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingRunner) Run(_ context.Context, spec command.Spec, _ func(string)) command.Result {
	if spec.Program == "node" {
		close(b.started)
		<-b.release
		return nodeOK
	}
	return command.Result{}
}

func TestRetry_WhileRunning(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	o := newTestOrchestrator(runner, nil, nil)

	done := make(chan Outcome)
	go func() {
		out, _ := o.Start(context.Background())
		done <- out
	}()
	<-runner.started

	if _, err := o.Retry(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Retry = %v, want ErrRunInProgress", err)
	}
	if _, err := o.Start(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Start = %v, want ErrRunInProgress", err)
	}
	run := o.Current()
	if run.State != StateInProgress || stepStatus(t, run, KeyCheckNode) != StatusRunning {
		t.Errorf("snapshot = %+v", run)
	}

	close(runner.release)
	if out := <-done; out.State != StateCompleted {
		t.Errorf("state = %v", out.State)
	}
}

type panickingSink struct{}

func (panickingSink) ProgressText(string)           { panic("window closed") }
func (panickingSink) StepStatusChanged(Key, Status) { panic("window closed") }

func TestStart_SinkPanicsAreContained(t *testing.T) {
	o := newTestOrchestrator(newFakeRunner().on("node --version", nodeOK), nil, panickingSink{})

	out, err := o.Start(context.Background())
	if err != nil || out.State != StateCompleted {
		t.Fatalf("outcome = %+v, err = %v", out, err)
	}
}

// detachingSink detaches itself from the orchestrator on its first status event.
type detachingSink struct {
	o      *Orchestrator
	events int
}

func (d *detachingSink) ProgressText(string) {}

func (d *detachingSink) StepStatusChanged(Key, Status) {
	d.events++
	d.o.SetSink(nil)
}

func TestStart_SinkDetachedMidRun(t *testing.T) {
	o := newTestOrchestrator(newFakeRunner().on("node --version", nodeOK), nil, nil)
	sink := &detachingSink{o: o}
	o.SetSink(sink)

	out, _ := o.Start(context.Background())

	if out.State != StateCompleted {
		t.Errorf("state = %v", out.State)
	}
	if sink.events != 1 {
		t.Errorf("events after detach = %d, want 1", sink.events)
	}
}

func TestStart_EnvAppliedToEverySpec(t *testing.T) {
	var seen []map[string]string
	runner := runnerFunc(func(spec command.Spec) command.Result {
		seen = append(seen, spec.Env)
		if spec.Program == "node" {
			return nodeOK
		}
		return command.Result{}
	})
	o := New(Config{Runner: runner, Env: map[string]string{"PATH": "/opt/node/bin"}})

	if out, _ := o.Start(context.Background()); out.State != StateCompleted {
		t.Fatalf("state = %v", out.State)
	}
	if len(seen) != 4 {
		t.Fatalf("runs = %d, want 4", len(seen))
	}
	for i, env := range seen {
		if env["PATH"] != "/opt/node/bin" {
			t.Errorf("step %d env = %v", i, env)
		}
	}
}

type runnerFunc func(spec command.Spec) command.Result

func (f runnerFunc) Run(_ context.Context, spec command.Spec, _ func(string)) command.Result {
	return f(spec)
}

// runMarkingSink records each run start together with how many status events
// preceded it.
type runMarkingSink struct {
	recordingSink
	runs     []string
	eventsAt []int
}

func (s *runMarkingSink) RunStarted(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, runID)
	s.eventsAt = append(s.eventsAt, len(s.events))
}

func TestRetry_AnnouncesEachRunBeforeItsEvents(t *testing.T) {
	runner := newFakeRunner().on("node --version", command.Result{Stdout: "v18.0.0\n"})
	sink := &runMarkingSink{}
	o := newTestOrchestrator(runner, &fakeElevator{}, sink)

	first, _ := o.Start(context.Background())
	firstEvents := len(sink.events)
	runner.on("node --version", nodeOK)
	second, err := o.Retry(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(sink.runs) != 2 || sink.runs[0] != first.RunID || sink.runs[1] != second.RunID {
		t.Fatalf("runs = %v, want [%s %s]", sink.runs, first.RunID, second.RunID)
	}
	if sink.eventsAt[0] != 0 || sink.eventsAt[1] != firstEvents {
		t.Errorf("run markers at %v, want [0 %d]", sink.eventsAt, firstEvents)
	}
}

func TestStart_ElevationKeepsEnvOverrides(t *testing.T) {
	runner := newFakeRunner().
		on("node --version", nodeOK).
		on("npm install -g openclaw", eaccesError)
	elevator := &fakeElevator{}
	o := New(Config{
		Runner:     runner,
		Elevator:   elevator,
		Permission: elevate.Markers{"EACCES"},
		Env:        map[string]string{"PATH": "/opt/node/bin:/usr/bin"},
	})

	if out, _ := o.Start(context.Background()); out.State != StateCompleted {
		t.Fatalf("outcome = %+v", out)
	}
	if len(elevator.specs) != 1 {
		t.Fatalf("elevations = %d, want 1", len(elevator.specs))
	}
	if got := elevator.specs[0].Env["PATH"]; got != "/opt/node/bin:/usr/bin" {
		t.Errorf("elevated PATH = %q", got)
	}
}
