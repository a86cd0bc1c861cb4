package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/venturelab/compass/internal/entitlement"
	"github.com/venturelab/compass/internal/gate"
	"github.com/venturelab/compass/internal/pipeline"
)

func testModel() Model {
	plan := pipeline.New("fleet-tracker")
	return NewDashboard(plan, gate.NewPolicy(entitlement.TierFree))
}

func TestDashboardStartsOnActiveStage(t *testing.T) {
	m := testModel()
	if m.cursor != 0 {
		t.Errorf("expected cursor on first stage, got %d", m.cursor)
	}
}

func TestDashboardNavigation(t *testing.T) {
	m := testModel()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.cursor != 1 {
		t.Errorf("expected cursor 1 after down, got %d", m.cursor)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	if m.cursor != 0 {
		t.Errorf("expected cursor 0 after up, got %d", m.cursor)
	}

	// Cursor clamps at the top.
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	if m.cursor != 0 {
		t.Errorf("expected cursor clamped at 0, got %d", m.cursor)
	}
}

func TestDashboardViewShowsStagesAndLocks(t *testing.T) {
	m := testModel()
	view := m.View()

	for _, title := range []string{"Discovery", "Validation", "MVP", "Launch"} {
		if !strings.Contains(view, title) {
			t.Errorf("view missing stage title %q", title)
		}
	}
	if !strings.Contains(view, "fleet-tracker") {
		t.Error("view missing idea name")
	}
	// Premium stages are locked on the free tier.
	if !strings.Contains(view, "locked") {
		t.Error("view missing lock marker for premium stages")
	}
}

func TestDashboardExpandShowsTasks(t *testing.T) {
	m := testModel()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	view := m.View()

	if !strings.Contains(view, "Problem statement") {
		t.Error("expanded view missing task titles")
	}
}

func TestDashboardQuit(t *testing.T) {
	m := testModel()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.View() != "" {
		t.Error("expected empty view after quit")
	}
}
