// Package statestore implements the versioned, per-conversation project
// state that variation generation and commit operate against. Mutations
// are staged under an explicit transaction and applied atomically on
// commit, incrementing the store's version exactly once per commit.
package statestore

import (
	"strconv"
	"sync"
	"time"

	"github.com/cgcardona/maestro/pkg/merrors"
)

// Note is one MIDI-style note event in a region.
type Note struct {
	NoteID    string
	Pitch     int
	Velocity  int
	StartBeat float64
	Duration  float64
}

// RegionState holds the per-region musical data a variation can mutate.
type RegionState struct {
	Notes         map[string]Note
	CC            map[string][]ControllerPoint
	PitchBends    []ControllerPoint
	Aftertouch    []ControllerPoint
}

// ControllerPoint is one CC/pitch-bend/aftertouch sample.
type ControllerPoint struct {
	Beat  float64
	Value float64
}

func newRegionState() *RegionState {
	return &RegionState{
		Notes: make(map[string]Note),
		CC:    make(map[string][]ControllerPoint),
	}
}

func (rs *RegionState) deepCopy() *RegionState {
	out := newRegionState()

	for k, v := range rs.Notes {
		out.Notes[k] = v
	}

	for k, v := range rs.CC {
		cp := make([]ControllerPoint, len(v))
		copy(cp, v)
		out.CC[k] = cp
	}

	out.PitchBends = append([]ControllerPoint(nil), rs.PitchBends...)
	out.Aftertouch = append([]ControllerPoint(nil), rs.Aftertouch...)

	return out
}

// Event is one append-only record of a successful mutation.
type Event struct {
	Type      string
	EntityID  string
	Version   int64
	Timestamp time.Time
	Payload   any
}

const (
	EventTrackCreated  = "TRACK_CREATED"
	EventRegionCreated = "REGION_CREATED"
	EventNotesAdded    = "NOTES_ADDED"
	EventNotesRemoved  = "NOTES_REMOVED"
	EventTempoSet      = "TEMPO_SET"
	EventKeySet        = "KEY_SET"
	EventCCSet         = "CC_SET"
	EventPitchBendsSet = "PITCH_BENDS_SET"
	EventAftertouchSet = "AFTERTOUCH_SET"
)

// SnapshotBundle is a frozen, shared-immutable deep copy of the store's
// region maps taken at a point in time. Muse Hub functions accept
// SnapshotBundle arguments and never see the live store; this is the
// boundary between the process owning live state and any consumer that
// only needs a point-in-time view.
type SnapshotBundle struct {
	StateID string
	Tempo   float64
	Key     string
	Regions map[string]*RegionState
}

// mutation is a single staged change, applied in order on commit.
type mutation func(s *Store)

// Transaction stages mutations for a Store until Commit or Rollback.
type Transaction struct {
	label     string
	mutations []mutation
}

// Store is the per-conversation versioned project state singleton.
type Store struct {
	mu sync.Mutex

	version int64
	tempo   float64
	key     string
	regions map[string]*RegionState
	events  []Event

	activeTx *Transaction
}

// New builds an empty Store at version 0.
func New() *Store {
	return &Store{
		regions: make(map[string]*RegionState),
		tempo:   120,
		key:     "C major",
	}
}

// BeginTransaction starts a new Transaction, failing if one is already
// active. Nested transactions are not supported.
func (s *Store) BeginTransaction(label string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTx != nil {
		return nil, merrors.ConflictError{Code: "TRANSACTION_ACTIVE", Message: "a transaction is already active on this store"}
	}

	tx := &Transaction{label: label}
	s.activeTx = tx

	return tx, nil
}

func (s *Store) regionLocked(regionID string) *RegionState {
	rs, ok := s.regions[regionID]
	if !ok {
		rs = newRegionState()
		s.regions[regionID] = rs
	}

	return rs
}

// AddNotes appends notes to regionID. When tx is non-nil the mutation is
// staged; when nil it is applied immediately and the version incremented.
func (s *Store) AddNotes(regionID string, notes []Note, tx *Transaction) error {
	apply := func(st *Store) {
		rs := st.regionLocked(regionID)
		for _, n := range notes {
			rs.Notes[n.NoteID] = n
		}

		st.appendEvent(EventNotesAdded, regionID, map[string]any{"count": len(notes)})
	}

	return s.stageOrApply(tx, apply)
}

// RemoveNotes removes noteIDs from regionID.
func (s *Store) RemoveNotes(regionID string, noteIDs []string, tx *Transaction) error {
	apply := func(st *Store) {
		rs := st.regionLocked(regionID)
		for _, id := range noteIDs {
			delete(rs.Notes, id)
		}

		st.appendEvent(EventNotesRemoved, regionID, map[string]any{"count": len(noteIDs)})
	}

	return s.stageOrApply(tx, apply)
}

// SetTempo sets the project tempo in BPM.
func (s *Store) SetTempo(bpm float64, tx *Transaction) error {
	apply := func(st *Store) {
		st.tempo = bpm
		st.appendEvent(EventTempoSet, "", map[string]any{"bpm": bpm})
	}

	return s.stageOrApply(tx, apply)
}

// SetKey sets the project key signature.
func (s *Store) SetKey(key string, tx *Transaction) error {
	apply := func(st *Store) {
		st.key = key
		st.appendEvent(EventKeySet, "", map[string]any{"key": key})
	}

	return s.stageOrApply(tx, apply)
}

// SetCC replaces regionID's full point curve for MIDI CC number ccNumber.
// Controller curves are whole-curve replacements, not point-wise merges.
func (s *Store) SetCC(regionID, ccNumber string, points []ControllerPoint, tx *Transaction) error {
	apply := func(st *Store) {
		rs := st.regionLocked(regionID)

		cp := make([]ControllerPoint, len(points))
		copy(cp, points)
		rs.CC[ccNumber] = cp

		st.appendEvent(EventCCSet, regionID, map[string]any{"ccNumber": ccNumber, "count": len(points)})
	}

	return s.stageOrApply(tx, apply)
}

// SetPitchBends replaces regionID's full pitch-bend curve.
func (s *Store) SetPitchBends(regionID string, points []ControllerPoint, tx *Transaction) error {
	apply := func(st *Store) {
		rs := st.regionLocked(regionID)
		rs.PitchBends = append([]ControllerPoint(nil), points...)

		st.appendEvent(EventPitchBendsSet, regionID, map[string]any{"count": len(points)})
	}

	return s.stageOrApply(tx, apply)
}

// SetAftertouch replaces regionID's full aftertouch curve.
func (s *Store) SetAftertouch(regionID string, points []ControllerPoint, tx *Transaction) error {
	apply := func(st *Store) {
		rs := st.regionLocked(regionID)
		rs.Aftertouch = append([]ControllerPoint(nil), points...)

		st.appendEvent(EventAftertouchSet, regionID, map[string]any{"count": len(points)})
	}

	return s.stageOrApply(tx, apply)
}

func (s *Store) stageOrApply(tx *Transaction, apply mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx != nil {
		if s.activeTx != tx {
			return merrors.ConflictError{Code: "UNKNOWN_TRANSACTION", Message: "transaction is not the store's active transaction"}
		}

		tx.mutations = append(tx.mutations, apply)

		return nil
	}

	apply(s)
	s.version++

	return nil
}

// appendEvent must be called with s.mu held.
func (s *Store) appendEvent(eventType, entityID string, payload any) {
	s.events = append(s.events, Event{
		Type:      eventType,
		EntityID:  entityID,
		Version:   s.version + 1,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// Commit applies tx's staged mutations in order, increments the version
// exactly once, and clears the active transaction slot.
func (s *Store) Commit(tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTx != tx {
		return merrors.ConflictError{Code: "UNKNOWN_TRANSACTION", Message: "not the active transaction"}
	}

	for _, m := range tx.mutations {
		m(s)
	}

	s.version++
	s.activeTx = nil

	return nil
}

// Rollback discards tx's staged mutations without touching the version.
func (s *Store) Rollback(tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTx != tx {
		return merrors.ConflictError{Code: "UNKNOWN_TRANSACTION", Message: "not the active transaction"}
	}

	s.activeTx = nil

	return nil
}

// GetStateID returns the string form of the current version.
func (s *Store) GetStateID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return strconv.FormatInt(s.version, 10)
}

// CheckStateID reports whether expected matches the store's current
// version.
func (s *Store) CheckStateID(expected string) bool {
	return s.GetStateID() == expected
}

// CaptureBaseSnapshot returns a SnapshotBundle of the store's current
// state, deep-copied so the caller can hold it across ownership
// boundaries without racing live mutation.
func (s *Store) CaptureBaseSnapshot() SnapshotBundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// CaptureProposedSnapshot is identical to CaptureBaseSnapshot; the
// distinction is semantic (call it after staging speculative mutations
// to inspect the would-be result) rather than structural.
func (s *Store) CaptureProposedSnapshot() SnapshotBundle {
	return s.CaptureBaseSnapshot()
}

func (s *Store) snapshotLocked() SnapshotBundle {
	regions := make(map[string]*RegionState, len(s.regions))
	for id, rs := range s.regions {
		regions[id] = rs.deepCopy()
	}

	return SnapshotBundle{
		StateID: strconv.FormatInt(s.version, 10),
		Tempo:   s.tempo,
		Key:     s.key,
		Regions: regions,
	}
}

// EventsSince returns events with version > fromVersion, in order.
func (s *Store) EventsSince(fromVersion int64) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event

	for _, e := range s.events {
		if e.Version > fromVersion {
			out = append(out, e)
		}
	}

	return out
}

// EventsForEntity returns events recorded against entityID, in order.
func (s *Store) EventsForEntity(entityID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event

	for _, e := range s.events {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}

	return out
}
