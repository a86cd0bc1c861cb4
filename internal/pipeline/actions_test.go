package pipeline

import (
	"errors"
	"testing"

	cerr "github.com/venturelab/compass/internal/errors"
)

func TestSetModePreservesDisplayedContent(t *testing.T) {
	p := New("acme")
	if err := Apply(p, ApplySynthesis{StageID: StageValidation, TaskID: "competitor-scan", Content: "three incumbents, all enterprise-priced"}); err != nil {
		t.Fatalf("ApplySynthesis: %v", err)
	}

	task := p.Stage(StageValidation).Task("competitor-scan")
	displayed := task.ActiveContent()

	if err := Apply(p, SetMode{StageID: StageValidation, TaskID: "competitor-scan", Mode: ModeManual}); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	// The text visible before the toggle is the editing starting point.
	if task.ActiveContent() != displayed {
		t.Errorf("displayed content changed on toggle: %q != %q", task.ActiveContent(), displayed)
	}
	if task.ManualContent != displayed {
		t.Errorf("manual content not seeded: %q", task.ManualContent)
	}
}

func TestSetModeBackToAutoRetainsManual(t *testing.T) {
	p := New("acme")
	must(t, Apply(p, ApplySynthesis{StageID: StageValidation, TaskID: "competitor-scan", Content: "generated"}))
	must(t, Apply(p, SetMode{StageID: StageValidation, TaskID: "competitor-scan", Mode: ModeManual}))
	must(t, Apply(p, SetContent{StageID: StageValidation, TaskID: "competitor-scan", Content: "my own research"}))
	must(t, Apply(p, SetMode{StageID: StageValidation, TaskID: "competitor-scan", Mode: ModeAuto}))

	task := p.Stage(StageValidation).Task("competitor-scan")
	if task.ActiveContent() != "generated" {
		t.Errorf("display should revert to auto content, got %q", task.ActiveContent())
	}
	if task.ManualContent != "my own research" {
		t.Errorf("manual content should be retained, got %q", task.ManualContent)
	}
}

func TestSetModeOnNotesTaskRejected(t *testing.T) {
	p := New("acme")
	err := Apply(p, SetMode{StageID: StageDiscovery, TaskID: "problem", Mode: ModeAuto})
	var cErr *cerr.CompassError
	if !errors.As(err, &cErr) || cErr.Code != cerr.ErrCodeTaskInvalidMode {
		t.Errorf("expected TASK invalid mode error, got %v", err)
	}
}

func TestSetContentRequiresManualMode(t *testing.T) {
	p := New("acme")

	err := Apply(p, SetContent{StageID: StageValidation, TaskID: "competitor-scan", Content: "x"})
	var cErr *cerr.CompassError
	if !errors.As(err, &cErr) || cErr.Code != cerr.ErrCodeTaskReadOnly {
		t.Errorf("expected read-only error, got %v", err)
	}

	// Notes tasks are always writable.
	if err := Apply(p, SetContent{StageID: StageDiscovery, TaskID: "problem", Content: "founders hate spreadsheets"}); err != nil {
		t.Errorf("notes task should accept content: %v", err)
	}
}

func TestManualImmunity(t *testing.T) {
	p := New("acme")
	must(t, Apply(p, SetMode{StageID: StageValidation, TaskID: "competitor-scan", Mode: ModeManual}))
	must(t, Apply(p, SetContent{StageID: StageValidation, TaskID: "competitor-scan", Content: "X"}))

	// Scenario B: any number of synthesis applications leave the
	// displayed content unchanged.
	for i := 0; i < 5; i++ {
		must(t, Apply(p, ApplySynthesis{StageID: StageValidation, TaskID: "competitor-scan", Content: "machine output"}))
	}

	task := p.Stage(StageValidation).Task("competitor-scan")
	if task.ActiveContent() != "X" {
		t.Errorf("manual content overwritten: %q", task.ActiveContent())
	}
	if task.ManualContent != "X" {
		t.Errorf("manualContent mutated: %q", task.ManualContent)
	}
}

func TestApplySynthesisFallback(t *testing.T) {
	p := New("acme")

	// Scenario D: malformed structured output falls back to the default
	// option set and flags the task, instead of leaving it blank.
	must(t, Apply(p, ApplySynthesis{
		StageID:  StageValidation,
		TaskID:   "interview-questions",
		Fallback: true,
		ErrMsg:   "response was not a JSON array",
	}))

	task := p.Stage(StageValidation).Task("interview-questions")
	if len(task.AutoOptions) != len(task.DefaultOptions) {
		t.Fatalf("expected default options, got %v", task.AutoOptions)
	}
	if task.SynthError == "" {
		t.Error("expected task to be flagged with a retryable error")
	}
	if task.ActiveContent() == "" {
		t.Error("task content should not be blank after fallback")
	}
}

func TestApplySynthesisFallbackKeepsPriorContent(t *testing.T) {
	p := New("acme")
	must(t, Apply(p, ApplySynthesis{
		StageID: StageValidation,
		TaskID:  "interview-questions",
		Options: []string{"how often does this happen?"},
	}))
	must(t, Apply(p, ApplySynthesis{
		StageID:  StageValidation,
		TaskID:   "interview-questions",
		Fallback: true,
		ErrMsg:   "provider timeout",
	}))

	task := p.Stage(StageValidation).Task("interview-questions")
	if len(task.AutoOptions) != 1 || task.AutoOptions[0] != "how often does this happen?" {
		t.Errorf("prior auto content was clobbered: %v", task.AutoOptions)
	}
	if task.SynthError != "provider timeout" {
		t.Errorf("expected retryable error flag, got %q", task.SynthError)
	}
}

func TestApplySynthesisClearsStale(t *testing.T) {
	p := New("acme")
	must(t, Apply(p, MarkStale{StageID: StageValidation}))

	task := p.Stage(StageValidation).Task("competitor-scan")
	if !task.Stale {
		t.Fatal("expected task to be stale")
	}

	must(t, Apply(p, ApplySynthesis{StageID: StageValidation, TaskID: "competitor-scan", Content: "fresh"}))
	if task.Stale {
		t.Error("successful synthesis should clear staleness")
	}
	if task.SynthError != "" {
		t.Errorf("successful synthesis should clear the error flag, got %q", task.SynthError)
	}
}

func TestMarkStaleSkipsManualTasks(t *testing.T) {
	p := New("acme")
	must(t, Apply(p, SetMode{StageID: StageValidation, TaskID: "competitor-scan", Mode: ModeManual}))
	must(t, Apply(p, MarkStale{StageID: StageValidation}))

	if p.Stage(StageValidation).Task("competitor-scan").Stale {
		t.Error("manual tasks must not be marked stale")
	}
	if !p.Stage(StageValidation).Task("validation-summary").Stale {
		t.Error("auto tasks should be marked stale")
	}
}

func TestUnknownTargetsRejected(t *testing.T) {
	p := New("acme")

	if err := Apply(p, SetStatus{StageID: "nope", TaskID: "problem", Status: StatusCompleted}); err == nil {
		t.Error("expected error for unknown stage")
	}
	if err := Apply(p, SetStatus{StageID: StageDiscovery, TaskID: "nope", Status: StatusCompleted}); err == nil {
		t.Error("expected error for unknown task")
	}
	if err := Apply(p, SetStatus{StageID: StageDiscovery, TaskID: "problem", Status: "done"}); err == nil {
		t.Error("expected error for invalid status")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
