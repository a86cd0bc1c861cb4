package cmd

import (
	"context"
	"fmt"

	"github.com/venturelab/compass/internal/pipeline"
	"github.com/venturelab/compass/internal/session"
	"github.com/venturelab/compass/internal/store"
)

// openSession opens the workspace the command runs against
func openSession() (*session.Session, error) {
	return session.Open(rootWorkspace, rootVerbose)
}

// loadController loads the workspace's current plan into a controller.
// A corrupt snapshot falls back to a fresh template with a warning
// rather than blocking the user.
func loadController(ctx context.Context, s *session.Session) (*pipeline.Controller, error) {
	planID := s.CurrentPlanID()
	if planID == "" {
		return nil, fmt.Errorf("no plan in this workspace (run 'compass init <idea>' first)")
	}

	plan, fresh, err := store.LoadOrInit(ctx, s.Store, planID, "")
	if fresh {
		logger := s.Logger
		if err != nil {
			logger = logger.WithError(err)
		}
		logger.Warn("plan snapshot unreadable, starting from a fresh template",
			"plan_id", planID)
	}

	return pipeline.NewController(plan, s.Store, s.Gate, s.Logger), nil
}

// stageArg resolves an optional stage argument, defaulting to the
// plan's active stage.
func stageArg(args []string, plan *pipeline.Pipeline) (string, error) {
	if len(args) == 0 {
		return plan.ActiveStage, nil
	}
	if plan.Stage(args[0]) == nil {
		return "", fmt.Errorf("unknown stage %q (stages: discovery, validation, mvp, launch)", args[0])
	}
	return args[0], nil
}
