// Package pipeline implements the variation happy path: propose ->
// background generate -> stream -> commit-apply, including partial
// acceptance on commit.
package pipeline

import (
	"context"
	"time"

	"github.com/cgcardona/maestro/internal/daw"
	"github.com/cgcardona/maestro/internal/envelope"
	"github.com/cgcardona/maestro/internal/planner"
	"github.com/cgcardona/maestro/internal/statestore"
	"github.com/cgcardona/maestro/internal/variation/statemachine"
	"github.com/cgcardona/maestro/internal/variation/store"
	"github.com/cgcardona/maestro/pkg/merrors"
	"github.com/cgcardona/maestro/pkg/mlog"
)

// Config holds the pipeline's concurrency and timeout settings. runPlan
// reads InstrumentGroupParallelism and the server's sweeper uses
// VariationTTL; GeneratorToolTimeout and SSEHeartbeat are not read by
// the pipeline, so tool calls run without a timeout.
type Config struct {
	InstrumentGroupParallelism int
	GeneratorToolTimeout       time.Duration
	VariationTTL               time.Duration
	SSEHeartbeat               time.Duration
}

// DefaultConfig matches the values the generation path is tuned against.
func DefaultConfig() Config {
	return Config{
		InstrumentGroupParallelism: 4,
		GeneratorToolTimeout:       30 * time.Second,
		VariationTTL:               3600 * time.Second,
		SSEHeartbeat:               30 * time.Second,
	}
}

// Pipeline wires the variation components together into the propose ->
// generate -> stream -> commit -> discard flow.
type Pipeline struct {
	Variations *store.VariationStore
	Broadcast  *store.SSEBroadcaster
	States     *statestore.Manager
	Planner    planner.Planner
	DAW        daw.Adapter
	Budget     daw.BudgetService
	Now        func() int64
	Logger     mlog.Logger
	Config     Config
}

// ProposeRequest is the inbound propose payload.
type ProposeRequest struct {
	ProjectID   string
	UserID      string
	BaseStateID string
	Intent      string
}

// ProposeResult is returned immediately; generation continues in the
// background.
type ProposeResult struct {
	VariationID string
	ProjectID   string
	BaseStateID string
	StreamURL   string
}

// Propose creates a variation in CREATED state, validates baseStateId
// against the project's StateStore, and spawns the background
// generation task.
func (p *Pipeline) Propose(ctx context.Context, req ProposeRequest) (ProposeResult, error) {
	if err := p.Budget.CheckBudget(ctx, req.UserID); err != nil {
		return ProposeResult{}, err
	}

	projectStore := p.States.For(req.ProjectID)

	if !projectStore.CheckStateID(req.BaseStateID) {
		return ProposeResult{}, merrors.ConflictError{
			Code:    "BASELINE_MISMATCH",
			Message: "baseStateId does not match current project state",
			Details: map[string]any{"currentStateId": projectStore.GetStateID()},
		}
	}

	record := p.Variations.Create(req.ProjectID, req.BaseStateID, req.Intent)

	genCtx, cancel := context.WithCancel(context.Background())
	record.SetCancel(cancel)

	go p.generate(genCtx, record, projectStore)

	return ProposeResult{
		VariationID: record.VariationID,
		ProjectID:   record.ProjectID,
		BaseStateID: record.BaseStateID,
		StreamURL:   "/api/v1/variation/stream?variation_id=" + record.VariationID,
	}, nil
}

func (p *Pipeline) now() int64 {
	if p.Now != nil {
		return p.Now()
	}

	return time.Now().UnixMilli()
}

// generate runs the background three-phase execution for one variation,
// streaming phrase envelopes as they're produced and transitioning the
// record through STREAMING -> READY|FAILED|DISCARDED.
func (p *Pipeline) generate(ctx context.Context, record *store.Record, projectStore *statestore.Store) {
	builder := envelope.NewBuilder(record.VariationID, record.ProjectID, record.BaseStateID, p.now)

	if err := record.Transition(statemachine.Streaming); err != nil {
		p.Logger.Errorf("pipeline: cannot start streaming for %s: %v", record.VariationID, err)
		return
	}

	base := projectStore.CaptureBaseSnapshot()

	p.Broadcast.Publish(record.VariationID, builder.BuildMeta(envelope.MetaPayload{Intent: record.Intent}))

	plan, err := p.Planner.BuildExecutionPlan(ctx, record.Intent, planner.ProjectContext{
		ProjectID: record.ProjectID,
		Tempo:     base.Tempo,
		Key:       base.Key,
	})
	if err != nil {
		p.fail(record, builder, err)
		return
	}

	vctx := newVariationContext(base)

	if err := runPlan(ctx, p.DAW, plan, vctx, p.Config.InstrumentGroupParallelism); err != nil {
		if ctx.Err() != nil {
			p.discardDuringStreaming(record, builder)
			return
		}

		p.fail(record, builder, err)
		return
	}

	phrases := computeVariationFromContext(vctx, record.Intent)

	for i := range phrases {
		if record.SnapshotStatus() != statemachine.Streaming {
			// Discarded mid-loop: Discard already published its own
			// done{discarded} and closed the stream. Publishing further
			// phrases here would land them after that terminal envelope.
			return
		}

		phrases[i].PhraseID = phraseID(record.VariationID, i)

		env := builder.BuildPhrase(envelope.PhrasePayload{
			PhraseID:          phrases[i].PhraseID,
			RegionID:          phrases[i].RegionID,
			Label:             phrases[i].Label,
			NoteChanges:       phrases[i].NoteChanges,
			ControllerChanges: phrases[i].ControllerChanges,
		})

		phrases[i].Sequence = env.Sequence

		record.AppendPhrase(phrases[i])
		p.Broadcast.Publish(record.VariationID, env)
	}

	if record.SnapshotStatus() != statemachine.Streaming {
		// Discarded while we were publishing the last phrase.
		return
	}

	p.Broadcast.Publish(record.VariationID, builder.BuildDone(envelope.DonePayload{
		Status:      "ready",
		PhraseCount: len(phrases),
	}))

	if err := record.Transition(statemachine.Ready); err != nil {
		p.Logger.Errorf("pipeline: cannot mark %s ready: %v", record.VariationID, err)
	}
}

func phraseID(variationID string, index int) string {
	return variationID + "-p" + itoa(index+1)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	return string(digits)
}

func (p *Pipeline) fail(record *store.Record, builder *envelope.Builder, err error) {
	p.Broadcast.Publish(record.VariationID, builder.BuildError(envelope.ErrorPayload{
		Code:    "GENERATION_FAILED",
		Message: err.Error(),
	}))
	p.Broadcast.Publish(record.VariationID, builder.BuildDone(envelope.DonePayload{Status: "failed"}))

	if terr := record.Transition(statemachine.Failed); terr != nil {
		p.Logger.Errorf("pipeline: cannot mark %s failed: %v", record.VariationID, terr)
	}
}

func (p *Pipeline) discardDuringStreaming(record *store.Record, builder *envelope.Builder) {
	if err := record.Transition(statemachine.Discarded); err != nil {
		return
	}

	p.Broadcast.Publish(record.VariationID, builder.BuildDone(envelope.DonePayload{Status: "discarded"}))
	p.Broadcast.CloseStream(record.VariationID)
}

// Subscribe wires a caller up to a variation's live or replayed stream.
// If the record is terminal, history is returned directly for replay;
// otherwise a live subscription channel is returned.
func (p *Pipeline) Subscribe(variationID string, fromSequence int64) (history []envelope.Envelope, live <-chan envelope.Envelope, terminal bool, err error) {
	record, err := p.Variations.Get(variationID)
	if err != nil {
		return nil, nil, false, err
	}

	if statemachine.IsTerminal(record.SnapshotStatus()) {
		return p.Broadcast.GetHistory(variationID, fromSequence), nil, true, nil
	}

	return nil, p.Broadcast.Subscribe(variationID, fromSequence), false, nil
}

// PollResult is the JSON record + phrases returned by the poll endpoint.
type PollResult struct {
	VariationID  string
	Status       statemachine.Status
	Phrases      []store.Phrase
	LastSequence int64
}

// Poll returns the current snapshot of a variation's record, for
// clients that cannot maintain an SSE connection.
func (p *Pipeline) Poll(variationID string) (PollResult, error) {
	record, err := p.Variations.Get(variationID)
	if err != nil {
		return PollResult{}, err
	}

	phrases := record.Phrases

	var last int64
	if n := len(phrases); n > 0 {
		last = phrases[n-1].Sequence
	}

	return PollResult{
		VariationID:  record.VariationID,
		Status:       record.SnapshotStatus(),
		Phrases:      phrases,
		LastSequence: last,
	}, nil
}

// DiscardRequest is the inbound discard payload.
type DiscardRequest struct {
	ProjectID   string
	VariationID string
}

// Discard cancels an in-flight generation (if streaming) and transitions
// the record to DISCARDED. Idempotent: a missing record or an
// already-discarded one both return ok.
func (p *Pipeline) Discard(_ context.Context, req DiscardRequest) error {
	record, err := p.Variations.Get(req.VariationID)
	if err != nil {
		return nil
	}

	status := record.SnapshotStatus()

	if status == statemachine.Discarded {
		return nil
	}

	if statemachine.IsTerminal(status) {
		return merrors.ConflictError{
			Code:    "INVALID_TERMINAL_STATE",
			Message: "variation is already terminal: " + string(status),
			Details: map[string]any{"currentStatus": string(status)},
		}
	}

	wasStreaming := status == statemachine.Streaming

	record.Cancel()

	if err := record.Transition(statemachine.Discarded); err != nil {
		return err
	}

	if wasStreaming {
		builder := envelope.NewBuilder(record.VariationID, record.ProjectID, record.BaseStateID, p.now)
		p.Broadcast.Publish(record.VariationID, builder.BuildDone(envelope.DonePayload{Status: "discarded"}))
		p.Broadcast.CloseStream(record.VariationID)
	}

	return nil
}
