package pipeline

import (
	"fmt"
	"time"

	"github.com/venturelab/compass/internal/errors"
)

// Action is a single mutation of pipeline state. All task and stage
// mutations flow through Apply so that the reducer is the only write
// path and can be unit-tested without any rendering environment.
type Action interface {
	apply(p *Pipeline) error
}

// Apply executes an action against the pipeline. On success the
// pipeline's UpdatedAt timestamp is bumped; on failure the pipeline is
// unchanged.
func Apply(p *Pipeline, a Action) error {
	if err := a.apply(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func findTask(p *Pipeline, stageID, taskID string) (*Task, error) {
	stage := p.Stage(stageID)
	if stage == nil {
		return nil, errors.NewStageNotFoundError(stageID)
	}
	task := stage.Task(taskID)
	if task == nil {
		return nil, errors.NewTaskNotFoundError(stageID, taskID)
	}
	return task, nil
}

// SetStatus changes a task's completion status. Valid for any task
// regardless of mode; content is untouched.
type SetStatus struct {
	StageID string
	TaskID  string
	Status  Status
}

func (a SetStatus) apply(p *Pipeline) error {
	if !a.Status.Valid() {
		return errors.New(errors.ErrCodeTaskInvalidStatus,
			fmt.Sprintf("invalid status %q", a.Status))
	}
	task, err := findTask(p, a.StageID, a.TaskID)
	if err != nil {
		return err
	}
	task.Status = a.Status
	return nil
}

// SetMode toggles a task between auto and manual content.
//
// auto → manual copies the currently displayed content into
// ManualContent as the editing starting point, so no visible text is
// lost on toggle. manual → auto retains ManualContent (the user can
// switch back) and the display reverts to AutoContent.
type SetMode struct {
	StageID string
	TaskID  string
	Mode    Mode
}

func (a SetMode) apply(p *Pipeline) error {
	if a.Mode != ModeAuto && a.Mode != ModeManual {
		return errors.New(errors.ErrCodeTaskInvalidMode,
			fmt.Sprintf("invalid mode %q", a.Mode))
	}
	task, err := findTask(p, a.StageID, a.TaskID)
	if err != nil {
		return err
	}
	if task.Kind == KindNotes {
		return errors.New(errors.ErrCodeTaskInvalidMode,
			fmt.Sprintf("task %q has no auto mode", a.TaskID))
	}
	if task.Mode == a.Mode {
		return nil
	}
	if a.Mode == ModeManual {
		task.ManualContent = task.ActiveContent()
	}
	task.Mode = a.Mode
	return nil
}

// SetContent writes user-authored content. For notes-kind tasks this is
// always allowed; for synth-kind tasks the task must be in manual mode.
type SetContent struct {
	StageID string
	TaskID  string
	Content string
}

func (a SetContent) apply(p *Pipeline) error {
	task, err := findTask(p, a.StageID, a.TaskID)
	if err != nil {
		return err
	}
	if task.Kind == KindNotes {
		task.Notes = a.Content
		return nil
	}
	if task.Mode != ModeManual {
		return errors.NewTaskReadOnlyError(a.TaskID)
	}
	task.ManualContent = a.Content
	return nil
}

// ApplySynthesis writes provider output into a task's auto fields. Only
// the reconciler dispatches this action. It never touches ManualContent
// and is a no-op when the task has been switched to manual mode in the
// meantime, so manual edits cannot be silently overwritten.
type ApplySynthesis struct {
	StageID string
	TaskID  string
	Content string
	Options []string

	// Fallback marks content substituted from the task's default option
	// set because the provider output was unparseable. The task keeps a
	// retryable error flag in that case.
	Fallback bool
	ErrMsg   string
}

func (a ApplySynthesis) apply(p *Pipeline) error {
	task, err := findTask(p, a.StageID, a.TaskID)
	if err != nil {
		return err
	}
	if task.Kind == KindNotes {
		return errors.New(errors.ErrCodeTaskInvalidMode,
			fmt.Sprintf("task %q does not accept synthesis", a.TaskID))
	}
	if task.Mode == ModeManual {
		return nil
	}
	if a.Fallback {
		if task.Structured && len(task.AutoOptions) == 0 {
			task.AutoOptions = append([]string(nil), task.DefaultOptions...)
		}
		task.SynthError = a.ErrMsg
		return nil
	}
	task.AutoContent = a.Content
	if task.Structured {
		task.AutoOptions = append([]string(nil), a.Options...)
	}
	task.Stale = false
	task.SynthError = ""
	return nil
}

// MarkStale flags every auto-mode task of a stage as stale. The
// reconciler dispatches this when an upstream fingerprint changes.
type MarkStale struct {
	StageID string
}

func (a MarkStale) apply(p *Pipeline) error {
	stage := p.Stage(a.StageID)
	if stage == nil {
		return errors.NewStageNotFoundError(a.StageID)
	}
	for i := range stage.Tasks {
		t := &stage.Tasks[i]
		if t.Kind == KindSynth && t.Mode == ModeAuto {
			t.Stale = true
		}
	}
	return nil
}

// RecordSnapshots caches the upstream fingerprints a stage's auto
// content was just generated from. Dispatched by the reconciler after a
// successful synthesis so the snapshot update shares the reducer's
// persistence path.
type RecordSnapshots struct {
	StageID      string
	Fingerprints map[string]string
}

func (a RecordSnapshots) apply(p *Pipeline) error {
	if p.Stage(a.StageID) == nil {
		return errors.NewStageNotFoundError(a.StageID)
	}
	for upstreamID, fp := range a.Fingerprints {
		p.SetSnapshot(a.StageID, upstreamID, fp)
	}
	return nil
}

// SetSynthError records a retryable synthesis failure on a task. Prior
// auto content is left in place so the display never goes blank.
type SetSynthError struct {
	StageID string
	TaskID  string
	Message string
}

func (a SetSynthError) apply(p *Pipeline) error {
	task, err := findTask(p, a.StageID, a.TaskID)
	if err != nil {
		return err
	}
	task.SynthError = a.Message
	return nil
}
