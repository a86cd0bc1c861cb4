package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/venturelab/compass/internal/pipeline"
)

// StageForm runs an interactive form over a stage's editable tasks and
// returns the entered content keyed by task ID. Notes tasks are always
// editable; synth tasks only when in manual mode. Tasks with nothing
// editable are skipped, and an empty result means the stage had no
// editable tasks at all.
func StageForm(stage *pipeline.Stage) (map[string]string, error) {
	answers := make(map[string]string, len(stage.Tasks))
	values := make(map[string]*string, len(stage.Tasks))

	var fields []huh.Field
	for i := range stage.Tasks {
		t := &stage.Tasks[i]
		if !editable(t) {
			continue
		}

		val := t.ActiveContent()
		values[t.ID] = &val
		fields = append(fields, huh.NewText().
			Key(t.ID).
			Title(t.Title).
			Description(t.Description).
			Value(&val))
	}

	if len(fields) == 0 {
		return answers, nil
	}

	form := huh.NewForm(huh.NewGroup(fields...).
		Title(stage.Title).
		Description("Enter to confirm a field • Shift+Tab to go back"))
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("run stage form: %w", err)
	}

	for id, val := range values {
		answers[id] = strings.TrimSpace(*val)
	}
	return answers, nil
}

// EditTaskForm opens a single-field editor for one task and returns the
// new content.
func EditTaskForm(task *pipeline.Task) (string, error) {
	if !editable(task) {
		return "", fmt.Errorf("task %q is auto-synthesized; switch it to manual mode to edit", task.ID)
	}

	val := task.ActiveContent()
	form := huh.NewForm(huh.NewGroup(
		huh.NewText().
			Key(task.ID).
			Title(task.Title).
			Description(task.Description).
			Value(&val),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("run task editor: %w", err)
	}
	return strings.TrimSpace(val), nil
}

// Confirm asks a yes/no question
func Confirm(title, description string) (bool, error) {
	ok := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("run confirm prompt: %w", err)
	}
	return ok, nil
}

func editable(t *pipeline.Task) bool {
	return t.Kind == pipeline.KindNotes || t.Mode == pipeline.ModeManual
}
