package pipeline

import (
	"strings"
	"time"
)

// Status is the completion state of a task or a stage
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Rank orders statuses for monotonicity checks
// (not_started < in_progress < completed)
func (s Status) Rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

// Valid reports whether s is a known status value
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Mode determines whether a task's content is machine-synthesized or user-authored
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// ContentKind describes which content fields a task carries
type ContentKind string

const (
	// KindNotes is a single free-form field with no auto/manual split.
	// Used by interview-style stages where synthesis has no meaning.
	KindNotes ContentKind = "notes"

	// KindSynth is an auto-synthesized field with a manual override.
	KindSynth ContentKind = "synth"
)

// Task is the atomic unit of work within a stage
type Task struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Kind        ContentKind `json:"kind"`
	Status      Status      `json:"status"`
	Mode        Mode        `json:"mode"`

	// AutoContent is the last successfully synthesized text. It may be
	// stale relative to current upstream data until the reconciler runs.
	AutoContent string `json:"auto_content,omitempty"`

	// AutoOptions holds synthesized structured output for tasks that
	// expect an option list rather than prose.
	AutoOptions []string `json:"auto_options,omitempty"`

	// ManualContent is user-authored text. It is retained across mode
	// switches so no edit is ever lost.
	ManualContent string `json:"manual_content,omitempty"`

	// Notes is the single content field of notes-kind tasks.
	Notes string `json:"notes,omitempty"`

	// Structured marks tasks whose synthesis output must parse as an
	// option list. DefaultOptions is the fallback set applied when the
	// provider returns something unparseable.
	Structured     bool     `json:"structured,omitempty"`
	DefaultOptions []string `json:"default_options,omitempty"`

	// Stale marks auto content that no longer matches upstream data.
	Stale bool `json:"stale,omitempty"`

	// SynthError holds the last retryable synthesis failure. Empty when
	// the last synthesis succeeded.
	SynthError string `json:"synth_error,omitempty"`
}

// ActiveContent returns the text that is authoritative for display and
// export. Exactly one content field is active, decided by kind and mode.
func (t *Task) ActiveContent() string {
	if t.Kind == KindNotes {
		return t.Notes
	}
	if t.Mode == ModeManual {
		return t.ManualContent
	}
	if t.Structured && len(t.AutoOptions) > 0 {
		return "- " + strings.Join(t.AutoOptions, "\n- ")
	}
	return t.AutoContent
}

// Stage is an ordered collection of tasks within the pipeline
type Stage struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Premium stages additionally require a paid entitlement tier.
	Premium bool `json:"premium,omitempty"`

	// ReadsFrom lists the strictly earlier stages whose exported data
	// feeds this stage's auto tasks. Dependency edges are explicit
	// rather than positional.
	ReadsFrom []string `json:"reads_from,omitempty"`

	Tasks []Task `json:"tasks"`
}

// Status derives the stage status from its task statuses. A stage with
// zero tasks counts as completed so it never blocks progression.
func (s *Stage) Status() Status {
	if len(s.Tasks) == 0 {
		return StatusCompleted
	}

	completed := 0
	started := 0
	for i := range s.Tasks {
		switch s.Tasks[i].Status {
		case StatusCompleted:
			completed++
			started++
		case StatusInProgress:
			started++
		}
	}

	switch {
	case completed == len(s.Tasks):
		return StatusCompleted
	case started > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// Task returns the task with the given ID, or nil
func (s *Stage) Task(id string) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

// Pipeline is the whole discovery plan: an ordered sequence of stages
// plus the cached upstream fingerprints its auto content was last
// generated from.
type Pipeline struct {
	ID        string    `json:"id"`
	IdeaName  string    `json:"idea_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ActiveStage is the stage the user is currently working in.
	ActiveStage string `json:"active_stage"`

	Stages []Stage `json:"stages"`

	// UpstreamSnapshots maps stage ID -> upstream stage ID -> the
	// fingerprint of the upstream export used at last synthesis.
	UpstreamSnapshots map[string]map[string]string `json:"upstream_snapshots,omitempty"`
}

// Stage returns the stage with the given ID, or nil
func (p *Pipeline) Stage(id string) *Stage {
	for i := range p.Stages {
		if p.Stages[i].ID == id {
			return &p.Stages[i]
		}
	}
	return nil
}

// StageIndex returns the position of a stage, or -1
func (p *Pipeline) StageIndex(id string) int {
	for i := range p.Stages {
		if p.Stages[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot returns the cached fingerprint a stage last synthesized from
// for the given upstream stage. Empty string means never synthesized.
func (p *Pipeline) Snapshot(stageID, upstreamID string) string {
	if p.UpstreamSnapshots == nil {
		return ""
	}
	return p.UpstreamSnapshots[stageID][upstreamID]
}

// SetSnapshot records the fingerprint a stage's auto content was
// generated from.
func (p *Pipeline) SetSnapshot(stageID, upstreamID, fingerprint string) {
	if p.UpstreamSnapshots == nil {
		p.UpstreamSnapshots = make(map[string]map[string]string)
	}
	if p.UpstreamSnapshots[stageID] == nil {
		p.UpstreamSnapshots[stageID] = make(map[string]string)
	}
	p.UpstreamSnapshots[stageID][upstreamID] = fingerprint
}

// Completion summarizes pipeline-level progress
type Completion struct {
	CompletedStages int     `json:"completed_stages"`
	TotalStages     int     `json:"total_stages"`
	Fraction        float64 `json:"fraction"`
	AllComplete     bool    `json:"all_complete"`
}

// Completion computes the completed-stage fraction across the pipeline
func (p *Pipeline) Completion() Completion {
	c := Completion{TotalStages: len(p.Stages)}
	if c.TotalStages == 0 {
		c.AllComplete = true
		c.Fraction = 1.0
		return c
	}

	for i := range p.Stages {
		if p.Stages[i].Status() == StatusCompleted {
			c.CompletedStages++
		}
	}
	c.Fraction = float64(c.CompletedStages) / float64(c.TotalStages)
	c.AllComplete = c.CompletedStages == c.TotalStages
	return c
}
