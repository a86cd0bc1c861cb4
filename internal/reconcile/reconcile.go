// Package reconcile keeps auto-synthesized task content consistent with
// the upstream stage data it was generated from. Staleness is detected
// by fingerprint comparison, never by timestamps, so reconciliation is
// idempotent: unchanged upstream data triggers zero provider calls.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/venturelab/compass/internal/errors"
	"github.com/venturelab/compass/internal/log"
	"github.com/venturelab/compass/internal/pipeline"
	"github.com/venturelab/compass/internal/synth"
)

// ErrInFlight reports that a task already has a synthesis running. The
// caller should not retry; the running synthesis will land or fail on
// its own.
var ErrInFlight = errors.New(errors.ErrCodeSynthAPI, "synthesis already in flight for this task")

// Reconciler drives synthesis for one pipeline. All state mutations go
// through the controller so every result is persisted the same way user
// edits are.
type Reconciler struct {
	ctrl     *pipeline.Controller
	provider synth.Provider
	logger   *log.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// New creates a reconciler bound to a controller and a provider
func New(ctrl *pipeline.Controller, provider synth.Provider, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		ctrl:     ctrl,
		provider: provider,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// upstreamFingerprints computes the current fingerprint of every stage
// the given stage reads from.
func (r *Reconciler) upstreamFingerprints(stageID string) (map[string]string, error) {
	p := r.ctrl.Plan()
	stage := p.Stage(stageID)
	if stage == nil {
		return nil, errors.NewStageNotFoundError(stageID)
	}

	fps := make(map[string]string, len(stage.ReadsFrom))
	for _, upstreamID := range stage.ReadsFrom {
		fp, err := pipeline.Fingerprint(p, upstreamID)
		if err != nil {
			return nil, fmt.Errorf("fingerprint stage %s: %w", upstreamID, err)
		}
		fps[upstreamID] = fp
	}
	return fps, nil
}

// CheckStage compares the current upstream fingerprints against the
// cached snapshots and marks the stage's auto tasks stale on mismatch.
// A stage that was never synthesized has empty snapshots and therefore
// always mismatches until its first refresh. Returns whether the stage
// is (now) stale.
func (r *Reconciler) CheckStage(ctx context.Context, stageID string) (bool, error) {
	fps, err := r.upstreamFingerprints(stageID)
	if err != nil {
		return false, err
	}
	if len(fps) == 0 {
		return false, nil
	}

	p := r.ctrl.Plan()
	stale := false
	for upstreamID, fp := range fps {
		if p.Snapshot(stageID, upstreamID) != fp {
			stale = true
			break
		}
	}
	if !stale {
		return false, nil
	}

	r.logger.Debug("upstream changed, marking stage stale", "stage", stageID)
	if err := r.ctrl.Dispatch(ctx, pipeline.MarkStale{StageID: stageID}); err != nil {
		return true, err
	}
	return true, nil
}

// CheckAll runs CheckStage over every stage with upstream dependencies.
// Called on session start and after any upstream edit.
func (r *Reconciler) CheckAll(ctx context.Context) error {
	p := r.ctrl.Plan()
	for i := range p.Stages {
		if len(p.Stages[i].ReadsFrom) == 0 {
			continue
		}
		if _, err := r.CheckStage(ctx, p.Stages[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// RefreshTask regenerates one auto task from current upstream data.
//
// The upstream fingerprints are captured before the provider call; if
// they no longer match when the result arrives, the result is discarded
// and the task stays stale for the next pass. Provider failures are
// recorded on the task without touching snapshots, so the stage remains
// stale and retryable. Manual tasks are left untouched.
func (r *Reconciler) RefreshTask(ctx context.Context, stageID, taskID string) error {
	p := r.ctrl.Plan()
	stage := p.Stage(stageID)
	if stage == nil {
		return errors.NewStageNotFoundError(stageID)
	}
	task := stage.Task(taskID)
	if task == nil {
		return errors.NewTaskNotFoundError(stageID, taskID)
	}
	if task.Kind != pipeline.KindSynth || task.Mode != pipeline.ModeAuto {
		return nil
	}

	key := stageID + "/" + taskID
	r.mu.Lock()
	if r.inflight[key] {
		r.mu.Unlock()
		return ErrInFlight
	}
	r.inflight[key] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.inflight, key)
		r.mu.Unlock()
	}()

	launchFps, err := r.upstreamFingerprints(stageID)
	if err != nil {
		return err
	}

	req, err := synth.BuildTaskRequest(p, stageID, taskID)
	if err != nil {
		return err
	}

	resp, err := r.provider.Generate(ctx, req)
	if err != nil {
		r.logger.WithError(err).Warn("synthesis failed", "stage", stageID, "task", taskID)
		if dispatchErr := r.ctrl.Dispatch(ctx, pipeline.SetSynthError{
			StageID: stageID, TaskID: taskID, Message: err.Error(),
		}); dispatchErr != nil {
			return dispatchErr
		}
		return err
	}

	// The user may have edited upstream stages while the provider was
	// working. A superseded result is dropped, not applied.
	currentFps, err := r.upstreamFingerprints(stageID)
	if err != nil {
		return err
	}
	for upstreamID, fp := range launchFps {
		if currentFps[upstreamID] != fp {
			r.logger.Info("discarding superseded synthesis result",
				"stage", stageID, "task", taskID)
			return nil
		}
	}

	action := pipeline.ApplySynthesis{StageID: stageID, TaskID: taskID}
	if task.Structured {
		parsed := synth.ParseOptions(resp.Content)
		if parsed.Parsed {
			action.Options = parsed.Options
			action.Content = resp.Content
		} else {
			action.Fallback = true
			action.ErrMsg = "provider returned unparseable structured output"
			r.logger.Warn("structured output unparseable, applying defaults",
				"stage", stageID, "task", taskID)
		}
	} else {
		action.Content = resp.Content
	}

	if err := r.ctrl.Dispatch(ctx, action); err != nil {
		return err
	}

	// A fallback substitution never advances snapshots: the task stays
	// stale so the next refresh retries the provider.
	if action.Fallback {
		return nil
	}

	return r.ctrl.Dispatch(ctx, pipeline.RecordSnapshots{
		StageID:      stageID,
		Fingerprints: launchFps,
	})
}

// RefreshStage checks staleness and then regenerates every stale auto
// task of the stage. Tasks that are current are skipped, which is what
// makes a second refresh with unchanged upstream data free.
func (r *Reconciler) RefreshStage(ctx context.Context, stageID string) error {
	if _, err := r.CheckStage(ctx, stageID); err != nil {
		return err
	}

	stage := r.ctrl.Plan().Stage(stageID)
	if stage == nil {
		return errors.NewStageNotFoundError(stageID)
	}

	var firstErr error
	for i := range stage.Tasks {
		t := &stage.Tasks[i]
		if t.Kind != pipeline.KindSynth || t.Mode != pipeline.ModeAuto || !t.Stale {
			continue
		}
		if err := r.RefreshTask(ctx, stageID, t.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
