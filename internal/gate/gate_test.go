package gate

import (
	"testing"

	"github.com/venturelab/compass/internal/entitlement"
	"github.com/venturelab/compass/internal/pipeline"
)

func completeStage(t *testing.T, p *pipeline.Pipeline, stageID string) {
	t.Helper()
	stage := p.Stage(stageID)
	for i := range stage.Tasks {
		err := pipeline.Apply(p, pipeline.SetStatus{
			StageID: stageID,
			TaskID:  stage.Tasks[i].ID,
			Status:  pipeline.StatusCompleted,
		})
		if err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
	}
}

func TestFirstStageAlwaysUnlocked(t *testing.T) {
	p := pipeline.New("acme")
	g := NewPolicy(entitlement.TierFree)

	if !g.IsStageUnlocked(p, pipeline.StageDiscovery) {
		t.Error("first stage must always be unlocked")
	}
}

func TestPredecessorGating(t *testing.T) {
	p := pipeline.New("acme")
	g := NewPolicy(entitlement.TierFree)

	if g.IsStageUnlocked(p, pipeline.StageValidation) {
		t.Error("validation should be locked while discovery is incomplete")
	}

	completeStage(t, p, pipeline.StageDiscovery)

	if !g.IsStageUnlocked(p, pipeline.StageValidation) {
		t.Error("validation should unlock once discovery is completed")
	}
}

func TestPremiumGating(t *testing.T) {
	// Scenario E: identical pipeline state, different tiers.
	p := pipeline.New("acme")
	completeStage(t, p, pipeline.StageDiscovery)
	completeStage(t, p, pipeline.StageValidation)

	free := NewPolicy(entitlement.TierFree)
	pro := NewPolicy(entitlement.TierPro)

	if free.IsStageUnlocked(p, pipeline.StageMVP) {
		t.Error("free tier must not unlock a premium stage, regardless of progress")
	}
	if !pro.IsStageUnlocked(p, pipeline.StageMVP) {
		t.Error("paid tier should unlock the premium stage")
	}

	d := free.Evaluate(p, pipeline.StageMVP)
	if d.Reason == "" {
		t.Error("denial should carry a reason for the UI")
	}
}

func TestPremiumDeniedEvenWithoutProgress(t *testing.T) {
	p := pipeline.New("acme")
	free := NewPolicy(entitlement.TierFree)

	// Premium check fires before the predecessor check so the reason
	// points at the real blocker.
	d := free.Evaluate(p, pipeline.StageLaunch)
	if d.Allowed {
		t.Error("premium stage must be denied for free tier")
	}
}

func TestVisibleTasks(t *testing.T) {
	p := pipeline.New("acme")
	g := NewPolicy(entitlement.TierFree)

	if got := g.VisibleTasks(p, pipeline.StageDiscovery); got != 3 {
		t.Errorf("unlocked stage should show all tasks, got %d", got)
	}
	if got := g.VisibleTasks(p, pipeline.StageMVP); got != DefaultMaxVisibleTasks {
		t.Errorf("locked stage should show the preview allowance, got %d", got)
	}
	if got := g.VisibleTasks(p, "unknown"); got != 0 {
		t.Errorf("unknown stage should show nothing, got %d", got)
	}
}

func TestUnknownStageDenied(t *testing.T) {
	p := pipeline.New("acme")
	g := NewPolicy(entitlement.TierPro)

	if g.IsStageUnlocked(p, "shipping") {
		t.Error("unknown stage must be denied")
	}
}
