package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgcardona/maestro/internal/daw"
	"github.com/cgcardona/maestro/internal/planner"
	"github.com/cgcardona/maestro/internal/statestore"
	"github.com/cgcardona/maestro/internal/variation/statemachine"
	"github.com/cgcardona/maestro/internal/variation/store"
	"github.com/cgcardona/maestro/pkg/mlog"
)

type fakePlanner struct {
	plan planner.ExecutionPlan
	err  error
}

func (f fakePlanner) BuildExecutionPlan(context.Context, string, planner.ProjectContext) (planner.ExecutionPlan, error) {
	return f.plan, f.err
}

func fixedClock() int64 { return 1700000000000 }

func newTestPipeline(t *testing.T, p planner.Planner) (*Pipeline, *statestore.Manager) {
	t.Helper()

	states := statestore.NewManager()

	pl := &Pipeline{
		Variations: store.NewVariationStore(),
		Broadcast:  store.NewSSEBroadcaster(64, &mlog.NoneLogger{}),
		States:     states,
		Planner:    p,
		DAW:        daw.DefaultAdapter{},
		Budget:     daw.UnlimitedBudget{},
		Now:        fixedClock,
		Logger:     &mlog.NoneLogger{},
		Config:     DefaultConfig(),
	}

	return pl, states
}

func waitForStatus(t *testing.T, pl *Pipeline, variationID string, want statemachine.Status) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		r, err := pl.Variations.Get(variationID)
		require.NoError(t, err)

		if r.SnapshotStatus() == want {
			return
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("variation %s did not reach status %s", variationID, want)
}

func TestProposeAndGenerateReachesReady(t *testing.T) {
	plan := planner.ExecutionPlan{ToolCalls: []planner.ToolCall{
		{Name: "addNote", InstrumentID: "lead", Params: map[string]any{"noteId": "n1", "pitch": 60}},
	}}

	pl, _ := newTestPipeline(t, fakePlanner{plan: plan})

	res, err := pl.Propose(context.Background(), ProposeRequest{ProjectID: "proj1", BaseStateID: "0", Intent: "make it funky"})
	require.NoError(t, err)
	require.NotEmpty(t, res.VariationID)

	waitForStatus(t, pl, res.VariationID, statemachine.Ready)

	poll, err := pl.Poll(res.VariationID)
	require.NoError(t, err)
	assert.Len(t, poll.Phrases, 1)
}

func TestProposeRejectsBaselineMismatch(t *testing.T) {
	pl, _ := newTestPipeline(t, fakePlanner{})

	_, err := pl.Propose(context.Background(), ProposeRequest{ProjectID: "proj1", BaseStateID: "99", Intent: "x"})
	assert.Error(t, err)
}

func TestCommitHappyPath(t *testing.T) {
	plan := planner.ExecutionPlan{ToolCalls: []planner.ToolCall{
		{Name: "addNote", InstrumentID: "lead", Params: map[string]any{"noteId": "n1", "pitch": 60}},
	}}

	pl, states := newTestPipeline(t, fakePlanner{plan: plan})

	res, err := pl.Propose(context.Background(), ProposeRequest{ProjectID: "proj1", BaseStateID: "0", Intent: "x"})
	require.NoError(t, err)

	waitForStatus(t, pl, res.VariationID, statemachine.Ready)

	poll, err := pl.Poll(res.VariationID)
	require.NoError(t, err)
	require.Len(t, poll.Phrases, 1)

	phraseID := poll.Phrases[0].PhraseID

	commitRes, err := pl.Commit(context.Background(), CommitRequest{
		ProjectID:         "proj1",
		VariationID:       res.VariationID,
		BaseStateID:       "0",
		AcceptedPhraseIDs: []string{phraseID},
	})
	require.NoError(t, err)

	assert.Equal(t, "1", commitRes.NewStateID)
	assert.Equal(t, 1, commitRes.NotesAdded)
	assert.Equal(t, "1", states.For("proj1").GetStateID())
	require.Len(t, commitRes.AppliedPhraseIDs, 1)

	record, err := pl.Variations.Get(res.VariationID)
	require.NoError(t, err)
	assert.Equal(t, statemachine.Committed, record.SnapshotStatus())

	_, err = pl.Commit(context.Background(), CommitRequest{
		ProjectID:         "proj1",
		VariationID:       res.VariationID,
		BaseStateID:       "1",
		AcceptedPhraseIDs: []string{phraseID},
	})
	assert.Error(t, err, "double-commit must fail")
}

func TestCommitPartialAcceptanceAppliesOnlyAcceptedPhrases(t *testing.T) {
	plan := planner.ExecutionPlan{ToolCalls: []planner.ToolCall{
		{Name: "addNote", InstrumentID: "lead", Params: map[string]any{"regionId": "r1", "noteId": "n1", "pitch": 60}},
		{Name: "addNote", InstrumentID: "bass", Params: map[string]any{"regionId": "r2", "noteId": "n2", "pitch": 40}},
		{Name: "addNote", InstrumentID: "pad", Params: map[string]any{"regionId": "r3", "noteId": "n3", "pitch": 50}},
	}}

	pl, states := newTestPipeline(t, fakePlanner{plan: plan})

	res, err := pl.Propose(context.Background(), ProposeRequest{ProjectID: "proj1", BaseStateID: "0", Intent: "three regions"})
	require.NoError(t, err)

	waitForStatus(t, pl, res.VariationID, statemachine.Ready)

	poll, err := pl.Poll(res.VariationID)
	require.NoError(t, err)
	require.Len(t, poll.Phrases, 3)

	var accepted []string
	for _, ph := range poll.Phrases {
		if ph.RegionID == "r1" || ph.RegionID == "r3" {
			accepted = append(accepted, ph.PhraseID)
		}
	}
	require.Len(t, accepted, 2, "r2's phrase must be rejected")

	commitRes, err := pl.Commit(context.Background(), CommitRequest{
		ProjectID:         "proj1",
		VariationID:       res.VariationID,
		BaseStateID:       "0",
		AcceptedPhraseIDs: accepted,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, commitRes.NotesAdded)
	assert.Len(t, commitRes.UpdatedRegions, 2)

	base := states.For("proj1").CaptureBaseSnapshot()
	require.Contains(t, base.Regions, "r1")
	require.Contains(t, base.Regions, "r3")

	_, hasR2 := base.Regions["r2"]
	assert.False(t, hasR2, "rejected phrase must not create region state")
}

func TestGenerateAppliesTempoKeyAndControllerChanges(t *testing.T) {
	plan := planner.ExecutionPlan{ToolCalls: []planner.ToolCall{
		{Name: "setTempo", Params: map[string]any{"bpm": float64(140)}},
		{Name: "setKey", Params: map[string]any{"key": "D minor"}},
		{Name: "setCC", InstrumentID: "lead", Params: map[string]any{
			"regionId": "r1",
			"ccNumber": float64(11),
			"points": []any{
				map[string]any{"beat": float64(0), "value": float64(20)},
				map[string]any{"beat": float64(4), "value": float64(90)},
			},
		}},
		{Name: "setBusVolume", Params: map[string]any{"target": "drums", "value": float64(-3)}},
	}}

	pl, states := newTestPipeline(t, fakePlanner{plan: plan})

	res, err := pl.Propose(context.Background(), ProposeRequest{ProjectID: "proj1", BaseStateID: "0", Intent: "more energy"})
	require.NoError(t, err)

	waitForStatus(t, pl, res.VariationID, statemachine.Ready)

	poll, err := pl.Poll(res.VariationID)
	require.NoError(t, err)
	require.Len(t, poll.Phrases, 2, "one region phrase for the CC edit, one project phrase for tempo/key/mixer")

	var regionPhrase, projectPhrase store.Phrase
	for _, ph := range poll.Phrases {
		if ph.RegionID == "r1" {
			regionPhrase = ph
		} else {
			projectPhrase = ph
		}
	}

	require.Len(t, regionPhrase.ControllerChanges, 1)
	assert.Equal(t, "cc:11", regionPhrase.ControllerChanges[0].Kind)

	require.Len(t, projectPhrase.ControllerChanges, 3)

	var kinds []string
	for _, c := range projectPhrase.ControllerChanges {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, "tempo")
	assert.Contains(t, kinds, "key")
	assert.Contains(t, kinds, "setBusVolume:drums")

	commitRes, err := pl.Commit(context.Background(), CommitRequest{
		ProjectID:         "proj1",
		VariationID:       res.VariationID,
		BaseStateID:       "0",
		AcceptedPhraseIDs: []string{regionPhrase.PhraseID, projectPhrase.PhraseID},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", commitRes.NewStateID)

	base := states.For("proj1").CaptureBaseSnapshot()
	assert.Equal(t, float64(140), base.Tempo)
	assert.Equal(t, "D minor", base.Key)
	require.Contains(t, base.Regions, "r1")
	assert.Len(t, base.Regions["r1"].CC["11"], 2)
}

func TestCommitRejectsUnknownPhraseID(t *testing.T) {
	pl, _ := newTestPipeline(t, fakePlanner{plan: planner.ExecutionPlan{}})

	res, err := pl.Propose(context.Background(), ProposeRequest{ProjectID: "proj1", BaseStateID: "0", Intent: "x"})
	require.NoError(t, err)

	waitForStatus(t, pl, res.VariationID, statemachine.Ready)

	_, err = pl.Commit(context.Background(), CommitRequest{
		ProjectID:         "proj1",
		VariationID:       res.VariationID,
		BaseStateID:       "0",
		AcceptedPhraseIDs: []string{"does-not-exist"},
	})
	assert.Error(t, err)
}

func TestDiscardIsIdempotentForMissingRecord(t *testing.T) {
	pl, _ := newTestPipeline(t, fakePlanner{})

	err := pl.Discard(context.Background(), DiscardRequest{ProjectID: "proj1", VariationID: "nope"})
	assert.NoError(t, err)
}

func TestSubscribeToReadyRecordReturnsLiveChannel(t *testing.T) {
	pl, _ := newTestPipeline(t, fakePlanner{plan: planner.ExecutionPlan{}})

	res, err := pl.Propose(context.Background(), ProposeRequest{ProjectID: "proj1", BaseStateID: "0", Intent: "x"})
	require.NoError(t, err)

	waitForStatus(t, pl, res.VariationID, statemachine.Ready)

	history, live, terminal, err := pl.Subscribe(res.VariationID, 0)
	require.NoError(t, err)
	assert.False(t, terminal, "READY is not terminal")
	assert.Nil(t, history)
	assert.NotNil(t, live)

	require.NoError(t, pl.Discard(context.Background(), DiscardRequest{ProjectID: "proj1", VariationID: res.VariationID}))

	_, err = pl.Variations.Get(res.VariationID)
	require.NoError(t, err)
}
