package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"openclaw-setup/internal/logger"
	"openclaw-setup/internal/pipeline"
)

// MaxRuns bounds the history; older runs are discarded first.
const MaxRuns = 20

// StepRecord is the saved outcome of one step of a run.
type StepRecord struct {
	Key      string `json:"key"`                 // Step key, e.g. "install"
	Label    string `json:"label"`               // Human label shown in the UI
	Status   string `json:"status"`              // pending, running, done, warning or failed
	Elevated bool   `json:"elevated,omitempty"`  // True if the step was retried with administrator rights
	ExitCode *int   `json:"exit_code,omitempty"` // Exit code of the unelevated command, nil if it never ran
	Message  string `json:"message,omitempty"`   // Verdict text for the step
}

// RunRecord is the saved summary of one installation attempt. Failure holds
// the failing step's error text when the run aborted.
type RunRecord struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	State      string       `json:"state"`
	Steps      []StepRecord `json:"steps"`
	Warnings   []string     `json:"warnings,omitempty"`
	Failure    string       `json:"failure,omitempty"`
	LogPath    string       `json:"log_path,omitempty"`
}

// State holds the persisted history of runs, oldest first.
type State struct {
	Runs []RunRecord `json:"runs"`
}

// FromRun converts a pipeline run snapshot into a record.
func FromRun(run pipeline.Run, logPath string) RunRecord {
	rec := RunRecord{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		State:      run.State.String(),
		Steps:      make([]StepRecord, 0, len(run.Steps)),
		Warnings:   append([]string(nil), run.Warnings...),
		LogPath:    logPath,
	}
	for _, s := range run.Steps {
		sr := StepRecord{
			Key:      string(s.Key),
			Label:    s.Label,
			Status:   s.Status.String(),
			Elevated: s.Elevated,
			Message:  s.Message,
		}
		if s.Result != nil && s.Result.Launched() {
			code := s.Result.ExitCode
			sr.ExitCode = &code
		}
		rec.Steps = append(rec.Steps, sr)
	}
	if run.Failure != nil {
		rec.Failure = run.Failure.Message
	}
	return rec
}

// Append adds rec as the newest run and trims the history to MaxRuns.
func (s *State) Append(rec RunRecord) {
	s.Runs = append(s.Runs, rec)
	if extra := len(s.Runs) - MaxRuns; extra > 0 {
		s.Runs = append([]RunRecord(nil), s.Runs[extra:]...)
	}
}

// Latest returns the most recent run.
func (s *State) Latest() (RunRecord, bool) {
	if len(s.Runs) == 0 {
		return RunRecord{}, false
	}
	return s.Runs[len(s.Runs)-1], true
}

// LoadState loads the saved history from the JSON file at path.
// A missing or unreadable file yields an empty history; a corrupt one is
// logged and also treated as empty.
func LoadState(path string) *State {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("[WARN] Failed to read state file %s: %v\n", path, err)
		}
		return &State{}
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		logger.Warn("[WARN] Ignoring corrupt state file %s: %v\n", path, err)
		return &State{}
	}
	return &st
}

// SaveState writes st to path as indented JSON, creating the parent
// directory when needed.
func SaveState(path string, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	logger.Debug("[DEBUG] Writing state to %s (%d runs)\n", path, len(st.Runs))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write state file %s: %w", path, err)
	}
	return nil
}

// Record loads the history at path, appends rec and saves it back.
func Record(path string, rec RunRecord) error {
	st := LoadState(path)
	st.Append(rec)
	return SaveState(path, st)
}
