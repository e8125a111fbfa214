// Package store holds the in-process VariationStore and the SSE
// broadcaster that fans a variation's generated events out to
// subscribers. Both are process-local singletons; durable storage for
// in-flight variations is explicitly out of scope for v1.
package store

import (
	"sync"
	"time"

	"github.com/cgcardona/maestro/internal/envelope"
	"github.com/cgcardona/maestro/internal/variation/statemachine"
)

// Phrase is one streamed phrase diff, recorded against its parent
// variation once emitted.
type Phrase struct {
	PhraseID          string
	Sequence          int64
	TrackID           string
	RegionID          string
	BeatStart         float64
	BeatEnd           float64
	Label             string
	Tags              []string
	Explanation       string
	NoteChanges       []envelope.NoteChange
	ControllerChanges []envelope.ControllerChange
}

// Record is one variation's mutable lifecycle state.
type Record struct {
	mu sync.Mutex

	VariationID     string
	ProjectID       string
	BaseStateID     string
	Intent          string
	Status          statemachine.Status
	Phrases         []Phrase
	AffectedTracks  []string
	AffectedRegions []string
	AIExplanation   string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	seq envelope.SequenceCounter

	// cancel, when non-nil, cancels the background generation task.
	cancel func()
}

// Transition validates and applies a state-machine transition, bumping
// UpdatedAt on success.
func (r *Record) Transition(to statemachine.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := statemachine.Transition(&r.Status, to); err != nil {
		return err
	}

	r.UpdatedAt = time.Now()

	return nil
}

// AppendPhrase records a streamed phrase against the variation.
func (r *Record) AppendPhrase(p Phrase) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Phrases = append(r.Phrases, p)
	r.UpdatedAt = time.Now()
}

// SnapshotStatus returns the record's status under lock.
func (r *Record) SnapshotStatus() statemachine.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Status
}

// SetCancel stashes the background task's cancel func for Discard to
// invoke.
func (r *Record) SetCancel(cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancel = cancel
}

// Cancel invokes the stashed cancel func, if any.
func (r *Record) Cancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// PhraseIDs returns the ordered list of phrase IDs streamed so far.
func (r *Record) PhraseIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(r.Phrases))
	for i, p := range r.Phrases {
		ids[i] = p.PhraseID
	}

	return ids
}
