package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/venturelab/compass/internal/gate"
	"github.com/venturelab/compass/internal/pipeline"
)

// keyMap defines the dashboard keyboard shortcuts
type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "previous stage"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next stage"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "toggle tasks"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Model is the read-only dashboard over a pipeline. It renders stage
// progress, staleness, and gate state; all mutations happen through the
// CLI commands, never from here.
type Model struct {
	plan   *pipeline.Pipeline
	policy *gate.Policy

	cursor   int
	expanded bool
	progress progress.Model
	styles   Styles
	width    int
	quitting bool
}

// NewDashboard creates a dashboard model for a loaded pipeline
func NewDashboard(plan *pipeline.Pipeline, policy *gate.Policy) Model {
	return Model{
		plan:     plan,
		policy:   policy,
		cursor:   plan.StageIndex(plan.ActiveStage),
		progress: progress.New(progress.WithDefaultGradient()),
		styles:   DefaultStyles(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(msg.Width-8, 50)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.plan.Stages)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Enter):
			m.expanded = !m.expanded
		}
	}
	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Compass"))
	b.WriteString("  ")
	b.WriteString(m.styles.Subtitle.Render(m.plan.IdeaName))
	b.WriteString("\n\n")

	c := m.plan.Completion()
	b.WriteString(m.progress.ViewAs(c.Fraction))
	b.WriteString(m.styles.Muted.Render(
		fmt.Sprintf("  %d/%d stages complete", c.CompletedStages, c.TotalStages)))
	b.WriteString("\n\n")

	for i := range m.plan.Stages {
		b.WriteString(m.renderStage(i))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("↑/↓ navigate • enter toggle tasks • q quit"))
	return b.String()
}

func (m Model) renderStage(i int) string {
	stage := &m.plan.Stages[i]
	unlocked := true
	reason := ""
	if m.policy != nil {
		unlocked, reason = m.policy.Unlocked(m.plan, stage.ID)
	}

	marker := "  "
	if i == m.cursor {
		marker = "> "
	}

	label := fmt.Sprintf("%s%s %s", marker, statusIcon(stage.Status()), stage.Title)
	style := m.stageStyle(stage, unlocked, i == m.cursor)

	var b strings.Builder
	b.WriteString(style.Render(label))
	if stage.ID == m.plan.ActiveStage {
		b.WriteString(m.styles.Active.Render("  (active)"))
	}
	if !unlocked {
		b.WriteString(m.styles.Locked.Render("  locked: " + reason))
	}
	b.WriteString("\n")

	if m.expanded && i == m.cursor {
		for j := range stage.Tasks {
			b.WriteString(m.renderTask(&stage.Tasks[j]))
		}
	}
	return b.String()
}

func (m Model) renderTask(t *pipeline.Task) string {
	line := fmt.Sprintf("      %s %s", statusIcon(t.Status), t.Title)
	style := m.styles.Stage
	switch {
	case t.SynthError != "":
		style = m.styles.Error
		line += "  (synthesis failed)"
	case t.Stale:
		style = m.styles.Stale
		line += "  (stale)"
	case t.Status == pipeline.StatusCompleted:
		style = m.styles.Done
	}
	if t.Kind == pipeline.KindSynth && t.Mode == pipeline.ModeManual {
		line += "  [manual]"
	}
	return style.Render(line) + "\n"
}

func (m Model) stageStyle(stage *pipeline.Stage, unlocked, selected bool) lipgloss.Style {
	switch {
	case selected:
		return m.styles.Selected
	case !unlocked:
		return m.styles.Locked
	case stage.Status() == pipeline.StatusCompleted:
		return m.styles.Done
	default:
		return m.styles.Stage
	}
}

func statusIcon(s pipeline.Status) string {
	switch s {
	case pipeline.StatusCompleted:
		return "●"
	case pipeline.StatusInProgress:
		return "◐"
	default:
		return "○"
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
