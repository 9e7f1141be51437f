package state

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"openclaw-setup/internal/command"
	"openclaw-setup/internal/pipeline"
)

func TestLoadState_Missing(t *testing.T) {
	st := LoadState(filepath.Join(t.TempDir(), "nope.json"))
	if st == nil || len(st.Runs) != 0 {
		t.Fatalf("state = %+v, want empty", st)
	}
	if _, ok := st.Latest(); ok {
		t.Error("Latest on empty history")
	}
}

func TestLoadState_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if st := LoadState(path); len(st.Runs) != 0 {
		t.Errorf("runs = %d, want 0", len(st.Runs))
	}
}

func TestRecordRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	for i := 0; i < MaxRuns+5; i++ {
		if err := Record(path, RunRecord{ID: fmt.Sprintf("run-%d", i), State: "completed"}); err != nil {
			t.Fatal(err)
		}
	}

	st := LoadState(path)
	if len(st.Runs) != MaxRuns {
		t.Fatalf("runs = %d, want %d", len(st.Runs), MaxRuns)
	}
	if st.Runs[0].ID != "run-5" {
		t.Errorf("oldest = %s, want run-5", st.Runs[0].ID)
	}
	if latest, _ := st.Latest(); latest.ID != fmt.Sprintf("run-%d", MaxRuns+4) {
		t.Errorf("latest = %s", latest.ID)
	}
}

func TestFromRun(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := pipeline.Run{
		ID:         "abc",
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		State:      pipeline.StateAborted,
		Steps: []pipeline.StepOutcome{
			{Key: pipeline.KeyCheckNode, Label: "Check Node.js", Status: pipeline.StatusDone, Result: &command.Result{}},
			{Key: pipeline.KeyInstall, Label: "Install OpenClaw", Status: pipeline.StatusFailed, Elevated: true,
				Result: &command.Result{ExitCode: 243}, Message: "Install failed (elevated): declined"},
			{Key: pipeline.KeyOnboard, Label: "Run onboarding", Status: pipeline.StatusPending},
		},
		Failure: &pipeline.StepError{Step: pipeline.KeyInstall, Message: "Install failed (elevated): declined"},
	}

	rec := FromRun(run, "/tmp/openclaw-setup.log")

	if rec.ID != "abc" || rec.State != "aborted" || rec.LogPath != "/tmp/openclaw-setup.log" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Failure != "Install failed (elevated): declined" {
		t.Errorf("failure = %q", rec.Failure)
	}
	if len(rec.Steps) != 3 {
		t.Fatalf("steps = %d", len(rec.Steps))
	}
	install := rec.Steps[1]
	if install.Status != "failed" || !install.Elevated || install.ExitCode == nil || *install.ExitCode != 243 {
		t.Errorf("install = %+v", install)
	}
	if rec.Steps[2].ExitCode != nil || rec.Steps[2].Status != "pending" {
		t.Errorf("onboard = %+v", rec.Steps[2])
	}
}
