package pipeline

import (
	"context"

	"github.com/venturelab/compass/internal/errors"
	"github.com/venturelab/compass/internal/log"
)

// Saver persists whole pipeline snapshots. Writes are last-write-wins:
// there is no field-level merge across concurrent sessions.
type Saver interface {
	Save(ctx context.Context, planID string, p *Pipeline) error
}

// Gate decides whether a stage is currently enterable. Implemented by
// the gate package; the controller only consumes the decision.
type Gate interface {
	Unlocked(p *Pipeline, stageID string) (bool, string)
}

// TransitionResult reports the outcome of a stage transition attempt.
// A rejected transition is not an error: the pipeline is untouched and
// the reason is for the presentation layer to surface.
type TransitionResult struct {
	OK     bool
	Reason string
}

// Controller owns all mutations of a pipeline. User actions and
// reconciler results both flow through Dispatch, which applies the
// action and persists the new snapshot.
type Controller struct {
	plan   *Pipeline
	saver  Saver
	gate   Gate
	logger *log.Logger
}

// NewController creates a controller for an already-loaded pipeline
func NewController(plan *Pipeline, saver Saver, gate Gate, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		plan:   plan,
		saver:  saver,
		gate:   gate,
		logger: logger,
	}
}

// Plan returns the pipeline under control
func (c *Controller) Plan() *Pipeline {
	return c.plan
}

// Dispatch applies an action and persists the resulting snapshot. A
// failed persist keeps the in-memory state and surfaces a retryable
// storage error; it never rolls back the applied action.
func (c *Controller) Dispatch(ctx context.Context, action Action) error {
	if err := Apply(c.plan, action); err != nil {
		return err
	}

	if c.saver != nil {
		if err := c.saver.Save(ctx, c.plan.ID, c.plan); err != nil {
			c.logger.WithError(err).Warn("persist failed, state kept in memory",
				"plan_id", c.plan.ID)
			return errors.NewStoreWriteError(c.plan.ID, err)
		}
	}
	return nil
}

// StageStatus computes the derived status of a stage
func (c *Controller) StageStatus(stageID string) (Status, error) {
	stage := c.plan.Stage(stageID)
	if stage == nil {
		return StatusNotStarted, errors.NewStageNotFoundError(stageID)
	}
	return stage.Status(), nil
}

// Completion returns the pipeline-level completion summary
func (c *Controller) Completion() Completion {
	return c.plan.Completion()
}

// CanAdvance reports whether the "Continue" action out of a stage is
// currently allowed: the stage must be completed.
func (c *Controller) CanAdvance(stageID string) bool {
	stage := c.plan.Stage(stageID)
	if stage == nil {
		return false
	}
	return stage.Status() == StatusCompleted
}

// Transition moves the active-stage pointer. The move is rejected, not
// failed, when the target is unknown, its predecessor is incomplete, or
// the gate policy denies it.
func (c *Controller) Transition(ctx context.Context, toStageID string) (TransitionResult, error) {
	idx := c.plan.StageIndex(toStageID)
	if idx < 0 {
		return TransitionResult{Reason: "unknown stage: " + toStageID}, nil
	}

	if c.gate != nil {
		if ok, reason := c.gate.Unlocked(c.plan, toStageID); !ok {
			c.logger.Debug("transition rejected",
				"to_stage", toStageID, "reason", reason)
			return TransitionResult{Reason: reason}, nil
		}
	} else if idx > 0 && c.plan.Stages[idx-1].Status() != StatusCompleted {
		return TransitionResult{Reason: "previous stage is not completed"}, nil
	}

	c.plan.ActiveStage = toStageID
	if c.saver != nil {
		if err := c.saver.Save(ctx, c.plan.ID, c.plan); err != nil {
			return TransitionResult{OK: true}, errors.NewStoreWriteError(c.plan.ID, err)
		}
	}
	return TransitionResult{OK: true}, nil
}
