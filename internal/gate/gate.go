// Package gate decides whether pipeline stages and their content are
// accessible given pipeline progress and the user's entitlement tier.
package gate

import (
	"fmt"

	"github.com/venturelab/compass/internal/entitlement"
	"github.com/venturelab/compass/internal/pipeline"
)

// DefaultMaxVisibleTasks caps how many tasks of a locked premium stage
// are previewed to free-tier users.
const DefaultMaxVisibleTasks = 1

// Policy evaluates stage access for one entitlement tier
type Policy struct {
	Tier entitlement.Tier

	// MaxVisibleTasks is the partial-content allowance for stages the
	// tier cannot fully access. The display layer enforces it; the
	// policy only exposes the number.
	MaxVisibleTasks int
}

// NewPolicy creates a gate policy for a tier
func NewPolicy(tier entitlement.Tier) *Policy {
	return &Policy{
		Tier:            tier,
		MaxVisibleTasks: DefaultMaxVisibleTasks,
	}
}

// Decision is the result of a gate evaluation. Reason is only set on
// denial and is meant for the presentation layer, not for logic.
type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluate decides whether a stage can be entered. The first stage is
// always unlocked; later stages need a completed immediate predecessor;
// premium stages additionally require a paid tier regardless of
// progress.
func (g *Policy) Evaluate(p *pipeline.Pipeline, stageID string) Decision {
	idx := p.StageIndex(stageID)
	if idx < 0 {
		return Decision{Reason: fmt.Sprintf("unknown stage %q", stageID)}
	}

	stage := &p.Stages[idx]
	if stage.Premium && !g.Tier.Paid() {
		return Decision{Reason: fmt.Sprintf("stage %q requires a pro subscription", stageID)}
	}

	if idx == 0 {
		return Decision{Allowed: true}
	}

	if prev := &p.Stages[idx-1]; prev.Status() != pipeline.StatusCompleted {
		return Decision{Reason: fmt.Sprintf("complete stage %q first", prev.ID)}
	}

	return Decision{Allowed: true}
}

// IsStageUnlocked is the boolean form of Evaluate
func (g *Policy) IsStageUnlocked(p *pipeline.Pipeline, stageID string) bool {
	return g.Evaluate(p, stageID).Allowed
}

// Unlocked implements pipeline.Gate for the controller
func (g *Policy) Unlocked(p *pipeline.Pipeline, stageID string) (bool, string) {
	d := g.Evaluate(p, stageID)
	return d.Allowed, d.Reason
}

// VisibleTasks returns how many of a stage's tasks may be shown. Fully
// unlocked stages show everything; locked stages show at most the
// partial-content allowance.
func (g *Policy) VisibleTasks(p *pipeline.Pipeline, stageID string) int {
	stage := p.Stage(stageID)
	if stage == nil {
		return 0
	}
	if g.IsStageUnlocked(p, stageID) {
		return len(stage.Tasks)
	}
	if g.MaxVisibleTasks > len(stage.Tasks) {
		return len(stage.Tasks)
	}
	return g.MaxVisibleTasks
}
