package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturelab/compass/internal/errors"
	"github.com/venturelab/compass/internal/pipeline"
	"github.com/venturelab/compass/internal/store"
	"github.com/venturelab/compass/internal/synth"
)

func newPlan(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	p := pipeline.New("fleet-tracker")
	for taskID, content := range map[string]string{
		"problem":        "small fleets lose hours to paper logs",
		"audience":       "dispatchers at 5-50 vehicle operators",
		"differentiator": "works offline in rural coverage gaps",
	} {
		require.NoError(t, pipeline.Apply(p, pipeline.SetContent{
			StageID: pipeline.StageDiscovery, TaskID: taskID, Content: content,
		}))
	}
	return p
}

func scriptedProvider() *synth.StaticProvider {
	return synth.NewStaticProvider("offline", "generic advice").
		Respond("interview questions", `["How do you log trips today?", "What breaks first on a busy day?"]`).
		Respond("competitive landscape", "Samsara and Motive dominate upmarket; paper wins downmarket.").
		Respond("worth building", "The offline wedge must matter to at least a third of prospects.")
}

func newFixture(t *testing.T) (*Reconciler, *pipeline.Controller, *synth.StaticProvider) {
	t.Helper()
	ctrl := pipeline.NewController(newPlan(t), store.NewMemoryStore(), nil, nil)
	provider := scriptedProvider()
	return New(ctrl, provider, nil), ctrl, provider
}

func TestRefreshStagePopulatesAutoTasks(t *testing.T) {
	r, ctrl, provider := newFixture(t)
	ctx := context.Background()

	require.NoError(t, r.RefreshStage(ctx, pipeline.StageValidation))

	stage := ctrl.Plan().Stage(pipeline.StageValidation)
	iq := stage.Task("interview-questions")
	assert.Equal(t, []string{
		"How do you log trips today?",
		"What breaks first on a busy day?",
	}, iq.AutoOptions)
	assert.False(t, iq.Stale)
	assert.Empty(t, iq.SynthError)

	cs := stage.Task("competitor-scan")
	assert.Contains(t, cs.AutoContent, "Samsara")
	assert.False(t, cs.Stale)

	assert.Equal(t, 3, provider.Calls())
}

func TestRefreshIsIdempotentOnUnchangedUpstream(t *testing.T) {
	r, _, provider := newFixture(t)
	ctx := context.Background()

	require.NoError(t, r.RefreshStage(ctx, pipeline.StageValidation))
	calls := provider.Calls()

	stale, err := r.CheckStage(ctx, pipeline.StageValidation)
	require.NoError(t, err)
	assert.False(t, stale)

	require.NoError(t, r.RefreshStage(ctx, pipeline.StageValidation))
	assert.Equal(t, calls, provider.Calls(), "unchanged upstream must trigger zero provider calls")
}

func TestUpstreamEditMarksStaleAndRegenerates(t *testing.T) {
	r, ctrl, provider := newFixture(t)
	ctx := context.Background()

	require.NoError(t, r.RefreshStage(ctx, pipeline.StageValidation))
	calls := provider.Calls()

	require.NoError(t, ctrl.Dispatch(ctx, pipeline.SetContent{
		StageID: pipeline.StageDiscovery, TaskID: "problem",
		Content: "drivers forget to log trips entirely",
	}))

	stale, err := r.CheckStage(ctx, pipeline.StageValidation)
	require.NoError(t, err)
	assert.True(t, stale)

	stage := ctrl.Plan().Stage(pipeline.StageValidation)
	assert.True(t, stage.Task("interview-questions").Stale)
	assert.True(t, stage.Task("competitor-scan").Stale)

	require.NoError(t, r.RefreshStage(ctx, pipeline.StageValidation))
	assert.Equal(t, calls+3, provider.Calls())
	assert.False(t, stage.Task("interview-questions").Stale)
}

func TestManualTaskImmuneToReconciliation(t *testing.T) {
	r, ctrl, provider := newFixture(t)
	ctx := context.Background()

	require.NoError(t, r.RefreshStage(ctx, pipeline.StageValidation))

	require.NoError(t, ctrl.Dispatch(ctx, pipeline.SetMode{
		StageID: pipeline.StageValidation, TaskID: "competitor-scan", Mode: pipeline.ModeManual,
	}))
	require.NoError(t, ctrl.Dispatch(ctx, pipeline.SetContent{
		StageID: pipeline.StageValidation, TaskID: "competitor-scan",
		Content: "my own competitor notes",
	}))
	calls := provider.Calls()

	require.NoError(t, ctrl.Dispatch(ctx, pipeline.SetContent{
		StageID: pipeline.StageDiscovery, TaskID: "audience",
		Content: "owner-operators only",
	}))
	require.NoError(t, r.RefreshStage(ctx, pipeline.StageValidation))

	task := ctrl.Plan().Stage(pipeline.StageValidation).Task("competitor-scan")
	assert.Equal(t, "my own competitor notes", task.ManualContent)
	assert.Equal(t, "my own competitor notes", task.ActiveContent())
	assert.False(t, task.Stale, "manual tasks are never marked stale")

	// Only the two remaining auto tasks were regenerated.
	assert.Equal(t, calls+2, provider.Calls())
}

func TestProviderFailureRecordedWithoutSnapshotUpdate(t *testing.T) {
	r, ctrl, provider := newFixture(t)
	ctx := context.Background()
	provider.Fail(errors.NewSynthAuthError("offline"))

	err := r.RefreshTask(ctx, pipeline.StageValidation, "competitor-scan")
	require.Error(t, err)

	task := ctrl.Plan().Stage(pipeline.StageValidation).Task("competitor-scan")
	assert.NotEmpty(t, task.SynthError)
	assert.Empty(t, task.AutoContent)

	// Snapshots were not advanced, so the stage still reads as stale.
	stale, err := r.CheckStage(ctx, pipeline.StageValidation)
	require.NoError(t, err)
	assert.True(t, stale)

	// Recovery: the provider comes back and the same refresh succeeds.
	provider.Fail(nil)
	require.NoError(t, r.RefreshTask(ctx, pipeline.StageValidation, "competitor-scan"))
	assert.Empty(t, task.SynthError)
	assert.Contains(t, task.AutoContent, "Samsara")
}

func TestUnparseableStructuredOutputFallsBackToDefaults(t *testing.T) {
	plan := newPlan(t)
	ctrl := pipeline.NewController(plan, store.NewMemoryStore(), nil, nil)
	provider := synth.NewStaticProvider("offline", "I cannot produce a list right now.")
	r := New(ctrl, provider, nil)

	task := plan.Stage(pipeline.StageValidation).Task("interview-questions")
	require.True(t, task.Structured)
	require.NotEmpty(t, task.DefaultOptions)

	ctx := context.Background()
	stale, err := r.CheckStage(ctx, pipeline.StageValidation)
	require.NoError(t, err)
	require.True(t, stale)

	require.NoError(t, r.RefreshTask(ctx, pipeline.StageValidation, "interview-questions"))

	assert.Equal(t, task.DefaultOptions, task.AutoOptions)
	assert.NotEmpty(t, task.SynthError)
	assert.True(t, task.Stale, "fallback content stays stale for retry")
}

// editingProvider mutates an upstream stage mid-generation, simulating
// a user edit racing a slow provider call.
type editingProvider struct {
	inner synth.Provider
	plan  *pipeline.Pipeline
}

func (e *editingProvider) Generate(ctx context.Context, req *synth.GenerateRequest) (*synth.GenerateResponse, error) {
	if err := pipeline.Apply(e.plan, pipeline.SetContent{
		StageID: pipeline.StageDiscovery, TaskID: "problem",
		Content: "edited while the provider was thinking",
	}); err != nil {
		return nil, err
	}
	return e.inner.Generate(ctx, req)
}

func (e *editingProvider) Info() synth.ProviderInfo { return e.inner.Info() }

func (e *editingProvider) Health(ctx context.Context) error { return e.inner.Health(ctx) }

func (e *editingProvider) Close() error { return e.inner.Close() }

func TestSupersededResultDiscarded(t *testing.T) {
	plan := newPlan(t)
	ctrl := pipeline.NewController(plan, store.NewMemoryStore(), nil, nil)
	provider := &editingProvider{inner: scriptedProvider(), plan: plan}
	r := New(ctrl, provider, nil)
	ctx := context.Background()

	require.NoError(t, r.RefreshTask(ctx, pipeline.StageValidation, "competitor-scan"))

	task := plan.Stage(pipeline.StageValidation).Task("competitor-scan")
	assert.Empty(t, task.AutoContent, "superseded result must be discarded")

	stale, err := r.CheckStage(ctx, pipeline.StageValidation)
	require.NoError(t, err)
	assert.True(t, stale)
}

// reentrantProvider triggers a second refresh of the same task from
// inside Generate to exercise the in-flight guard.
type reentrantProvider struct {
	inner synth.Provider
	r     **Reconciler
	got   error
}

func (p *reentrantProvider) Generate(ctx context.Context, req *synth.GenerateRequest) (*synth.GenerateResponse, error) {
	p.got = (*p.r).RefreshTask(ctx, pipeline.StageValidation, "competitor-scan")
	return p.inner.Generate(ctx, req)
}

func (p *reentrantProvider) Info() synth.ProviderInfo { return p.inner.Info() }

func (p *reentrantProvider) Health(ctx context.Context) error { return p.inner.Health(ctx) }

func (p *reentrantProvider) Close() error { return p.inner.Close() }

func TestAtMostOneSynthesisInFlightPerTask(t *testing.T) {
	plan := newPlan(t)
	ctrl := pipeline.NewController(plan, store.NewMemoryStore(), nil, nil)
	provider := &reentrantProvider{inner: scriptedProvider()}
	var r *Reconciler
	provider.r = &r
	r = New(ctrl, provider, nil)

	require.NoError(t, r.RefreshTask(context.Background(), pipeline.StageValidation, "competitor-scan"))
	assert.ErrorIs(t, provider.got, ErrInFlight)
}

func TestRefreshSkipsNotesTasks(t *testing.T) {
	r, _, provider := newFixture(t)

	require.NoError(t, r.RefreshTask(context.Background(), pipeline.StageDiscovery, "problem"))
	assert.Equal(t, 0, provider.Calls())
}
