package pipeline

import "testing"

func TestStageStatusDerivation(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all not started", []Status{StatusNotStarted, StatusNotStarted}, StatusNotStarted},
		{"one in progress", []Status{StatusInProgress, StatusNotStarted}, StatusInProgress},
		{"some completed", []Status{StatusCompleted, StatusNotStarted}, StatusInProgress},
		{"all completed", []Status{StatusCompleted, StatusCompleted}, StatusCompleted},
		{"empty stage is vacuously completed", nil, StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := Stage{ID: "s"}
			for i, s := range tt.statuses {
				stage.Tasks = append(stage.Tasks, Task{ID: string(rune('a' + i)), Status: s})
			}
			if got := stage.Status(); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompletionMonotonicity(t *testing.T) {
	p := New("acme")
	stage := p.Stage(StageDiscovery)

	before := stage.Status().Rank()
	for i := range stage.Tasks {
		if err := Apply(p, SetStatus{StageID: StageDiscovery, TaskID: stage.Tasks[i].ID, Status: StatusCompleted}); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
		after := stage.Status().Rank()
		if after < before {
			t.Errorf("stage rank decreased from %d to %d after completing a task", before, after)
		}
		before = after
	}

	if stage.Status() != StatusCompleted {
		t.Fatalf("expected completed stage, got %s", stage.Status())
	}

	// Demoting a completed task demotes the stage.
	if err := Apply(p, SetStatus{StageID: StageDiscovery, TaskID: "problem", Status: StatusInProgress}); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if stage.Status() != StatusInProgress {
		t.Errorf("expected in_progress after demotion, got %s", stage.Status())
	}
}

func TestActiveContent(t *testing.T) {
	notes := Task{Kind: KindNotes, Notes: "raw interview notes"}
	if got := notes.ActiveContent(); got != "raw interview notes" {
		t.Errorf("notes task active content = %q", got)
	}

	auto := Task{Kind: KindSynth, Mode: ModeAuto, AutoContent: "generated", ManualContent: "draft"}
	if got := auto.ActiveContent(); got != "generated" {
		t.Errorf("auto task active content = %q", got)
	}

	manual := Task{Kind: KindSynth, Mode: ModeManual, AutoContent: "generated", ManualContent: "draft"}
	if got := manual.ActiveContent(); got != "draft" {
		t.Errorf("manual task active content = %q", got)
	}

	structured := Task{Kind: KindSynth, Mode: ModeAuto, Structured: true, AutoOptions: []string{"a", "b"}}
	if got := structured.ActiveContent(); got != "- a\n- b" {
		t.Errorf("structured task active content = %q", got)
	}
}

func TestPipelineCompletion(t *testing.T) {
	p := New("acme")

	c := p.Completion()
	if c.TotalStages != 4 || c.CompletedStages != 0 || c.AllComplete {
		t.Fatalf("fresh pipeline completion = %+v", c)
	}

	// Scenario A: completing all Discovery tasks completes the stage.
	for _, id := range []string{"problem", "audience", "differentiator"} {
		if err := Apply(p, SetStatus{StageID: StageDiscovery, TaskID: id, Status: StatusCompleted}); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
	}

	c = p.Completion()
	if c.CompletedStages != 1 {
		t.Errorf("expected 1 completed stage, got %d", c.CompletedStages)
	}
	if c.Fraction != 0.25 {
		t.Errorf("expected fraction 0.25, got %f", c.Fraction)
	}
	if c.AllComplete {
		t.Error("pipeline should not be all-complete")
	}
}

func TestTemplateDependencyOrder(t *testing.T) {
	p := New("acme")

	// A stage may only read from strictly earlier stages.
	for i := range p.Stages {
		for _, dep := range p.Stages[i].ReadsFrom {
			depIdx := p.StageIndex(dep)
			if depIdx < 0 {
				t.Errorf("stage %s reads from unknown stage %s", p.Stages[i].ID, dep)
			}
			if depIdx >= i {
				t.Errorf("stage %s reads from non-upstream stage %s", p.Stages[i].ID, dep)
			}
		}
	}

	if p.ActiveStage != StageDiscovery {
		t.Errorf("new pipeline should start in discovery, got %s", p.ActiveStage)
	}
}
