// Package pipeline drives the installation: a fixed, strictly sequential list
// of steps, each backed by one external command, with per-step failure policy
// and at most one elevated retry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"openclaw-setup/internal/command"
	"openclaw-setup/internal/logger"
)

var (
	// ErrAlreadyStarted is returned by Start once a run exists; use Retry.
	ErrAlreadyStarted = errors.New("pipeline already started")
	// ErrRunInProgress is returned while a run has not reached a terminal state.
	ErrRunInProgress = errors.New("pipeline run in progress")
	// ErrNotFinished is returned by Retry when there is no finished run.
	ErrNotFinished = errors.New("no finished pipeline run to retry")
)

// Runner executes one command, streaming its output to onText.
// *command.Runner implements it.
type Runner interface {
	Run(ctx context.Context, spec command.Spec, onText func(string)) command.Result
}

// Elevator re-runs a command, environment overrides included, with
// administrator rights. *elevate.Native implements it.
type Elevator interface {
	Elevate(ctx context.Context, spec command.Spec) error
}

// PermissionPredicate decides whether stderr text describes an access-rights
// failure. elevate.Markers implements it.
type PermissionPredicate interface {
	Matches(diagnostic string) bool
}

// Config wires an Orchestrator.
type Config struct {
	// Steps run in order. Defaults to Steps(DefaultOptions()).
	Steps []Step
	// Runner defaults to command.NewRunner().
	Runner Runner
	// Elevator and Permission enable the elevated retry; with either unset a
	// permission failure is final.
	Elevator   Elevator
	Permission PermissionPredicate
	// Sink receives progress. May be nil and may be replaced with SetSink.
	Sink Sink
	// Env is applied on top of every step's environment overrides.
	Env map[string]string
}

// Orchestrator owns at most one Run at a time. Start and Retry block until
// the run reaches a terminal state; Current and SetSink may be called from
// other goroutines meanwhile.
type Orchestrator struct {
	steps      []Step
	runner     Runner
	elevator   Elevator
	permission PermissionPredicate
	env        map[string]string

	mu      sync.Mutex
	sink    Sink
	run     *Run
	running bool
}

// New returns an Orchestrator for cfg.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		steps:      cfg.Steps,
		runner:     cfg.Runner,
		elevator:   cfg.Elevator,
		permission: cfg.Permission,
		env:        cfg.Env,
		sink:       cfg.Sink,
	}
	if o.steps == nil {
		o.steps = Steps(DefaultOptions())
	}
	if o.runner == nil {
		o.runner = command.NewRunner()
	}
	return o
}

// SetSink replaces the observer. A nil sink detaches it; the run in
// progress keeps going without one.
func (o *Orchestrator) SetSink(sink Sink) {
	o.mu.Lock()
	o.sink = sink
	o.mu.Unlock()
}

// Current returns a snapshot of the current run. Before the first Start the
// snapshot is the zero Run, whose State is StateNotStarted.
func (o *Orchestrator) Current() Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run == nil {
		return Run{}
	}
	return o.run.clone()
}

// Start executes the first run.
func (o *Orchestrator) Start(ctx context.Context) (Outcome, error) {
	o.mu.Lock()
	switch {
	case o.running:
		o.mu.Unlock()
		return Outcome{}, ErrRunInProgress
	case o.run != nil:
		o.mu.Unlock()
		return Outcome{}, ErrAlreadyStarted
	}
	run := o.begin()
	o.mu.Unlock()

	return o.execute(ctx, run), nil
}

// Retry discards the finished run and executes a new one from the first
// step. It is only valid once the previous run is terminal.
func (o *Orchestrator) Retry(ctx context.Context) (Outcome, error) {
	o.mu.Lock()
	switch {
	case o.running:
		o.mu.Unlock()
		return Outcome{}, ErrRunInProgress
	case o.run == nil || !o.run.State.Terminal():
		o.mu.Unlock()
		return Outcome{}, ErrNotFinished
	}
	previous := o.run.ID
	run := o.begin()
	o.mu.Unlock()

	logger.Debug("[DEBUG] Retrying installation: run %s replaces %s\n", run.ID, previous)
	return o.execute(ctx, run), nil
}

// begin installs a fresh all-Pending run. Caller holds o.mu.
func (o *Orchestrator) begin() *Run {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		State:     StateInProgress,
		Steps:     make([]StepOutcome, len(o.steps)),
	}
	for i, step := range o.steps {
		run.Steps[i] = StepOutcome{Key: step.Key, Label: step.Label, Status: StatusPending}
	}
	o.run = run
	o.running = true
	return run
}

func (o *Orchestrator) execute(ctx context.Context, run *Run) Outcome {
	logger.Debug("[DEBUG] Starting run %s with %d steps\n", run.ID, len(o.steps))
	deliver(o.currentSink(), func(s Sink) {
		if obs, ok := s.(RunObserver); ok {
			obs.RunStarted(run.ID)
		}
	})
	for _, step := range o.steps {
		o.statusChanged(step.Key, StatusPending)
	}

	state := StateCompleted
	for i, step := range o.steps {
		class := o.runStep(ctx, run, i, step)
		if class == ClassFatal {
			state = StateAborted
			break
		}
		if class == ClassWarning {
			state = StateCompletedWithWarnings
		}
	}

	if state == StateCompletedWithWarnings {
		o.progress("Installation completed with warnings.\n")
	}

	o.mu.Lock()
	run.State = state
	run.FinishedAt = time.Now()
	o.running = false
	snapshot := run.clone()
	o.mu.Unlock()

	logger.Debug("[DEBUG] Run %s finished: %s\n", run.ID, state)
	return snapshot.Outcome()
}

// runStep drives one step through Running to its terminal status and returns
// the class of the deciding verdict.
func (o *Orchestrator) runStep(ctx context.Context, run *Run, i int, step Step) Class {
	spec := step.Command.WithEnv(o.env)

	o.setStatus(run, i, StatusRunning)
	o.progress("$ " + spec.String() + "\n")

	result := o.runner.Run(ctx, spec, o.progress)
	verdict := step.Classify(result)

	elevated := false
	if verdict.Class == ClassFatal && o.permissionDenied(step, result) {
		elevated = true
		verdict = o.elevate(ctx, step, spec)
	}

	status := verdict.Class.status()
	o.mu.Lock()
	outcome := &run.Steps[i]
	outcome.Result = &result
	outcome.Elevated = elevated
	outcome.Message = verdict.Message
	switch verdict.Class {
	case ClassWarning:
		run.Warnings = append(run.Warnings, verdict.Message)
	case ClassFatal:
		run.Failure = &StepError{Step: step.Key, Label: step.Label, Message: verdict.Message}
	}
	o.mu.Unlock()

	switch verdict.Class {
	case ClassSuccess:
		o.progress(verdict.Message + "\n")
	case ClassWarning:
		o.progress("Warning: " + verdict.Message + "\n")
	default:
		o.progress("Error: " + verdict.Message + "\n")
	}
	o.setStatus(run, i, status)
	return verdict.Class
}

// permissionDenied reports whether a failed result qualifies for the single
// elevated retry: the step allows it, the command ran and exited non-zero,
// and its stderr carries a permission marker.
func (o *Orchestrator) permissionDenied(step Step, result command.Result) bool {
	if !step.Elevate || o.elevator == nil || o.permission == nil {
		return false
	}
	if !result.Launched() || result.ExitCode == 0 {
		return false
	}
	return o.permission.Matches(result.Stderr)
}

func (o *Orchestrator) elevate(ctx context.Context, step Step, spec command.Spec) Verdict {
	logger.Debug("[DEBUG] Permission failure in %s, elevating: %s\n", step.Key, spec)
	o.progress("Permission denied, retrying with administrator rights...\n")

	if err := o.elevator.Elevate(ctx, spec); err != nil {
		if step.ElevationFailed != nil {
			return Fatal(step.ElevationFailed(err))
		}
		return Fatal(fmt.Sprintf("%s failed (elevated): %v", step.Label, err))
	}
	// The elevated command exited 0; judge it as such.
	verdict := step.Classify(command.Result{})
	if verdict.Class == ClassFatal {
		return Success(step.Label + " complete")
	}
	return verdict
}

func (o *Orchestrator) setStatus(run *Run, i int, status Status) {
	o.mu.Lock()
	run.Steps[i].Status = status
	key := run.Steps[i].Key
	o.mu.Unlock()
	o.statusChanged(key, status)
}

func (o *Orchestrator) currentSink() Sink {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sink
}

func (o *Orchestrator) progress(text string) {
	if text == "" {
		return
	}
	deliver(o.currentSink(), func(s Sink) { s.ProgressText(text) })
}

func (o *Orchestrator) statusChanged(key Key, status Status) {
	deliver(o.currentSink(), func(s Sink) { s.StepStatusChanged(key, status) })
}
