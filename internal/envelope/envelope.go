// Package envelope defines the transport-agnostic event types streamed
// out of a variation's background generation task, and the per-variation
// sequence counter that orders them.
package envelope

import (
	"sync"
	"sync/atomic"
)

// Type discriminates the kind of payload an Envelope carries.
type Type string

const (
	TypeMeta      Type = "meta"
	TypePhrase    Type = "phrase"
	TypeDone      Type = "done"
	TypeError     Type = "error"
	TypeHeartbeat Type = "heartbeat"
)

// Envelope is the single event shape exposed over SSE, REST polling, and
// any future WebSocket transport. Sequence 1 is always meta; done is
// always last; an error may precede the terminal done (whose payload then
// carries status=failed).
type Envelope struct {
	Type        Type   `json:"type"`
	Sequence    int64  `json:"sequence"`
	VariationID string `json:"variationId"`
	ProjectID   string `json:"projectId"`
	BaseStateID string `json:"baseStateId"`
	Payload     any    `json:"payload"`
	TimestampMs int64  `json:"timestampMs"`
}

// MetaPayload is sequence 1's payload, announcing the variation's intent
// and scope before any phrase is streamed.
type MetaPayload struct {
	Intent          string   `json:"intent"`
	AffectedTracks  []string `json:"affectedTracks,omitempty"`
	AffectedRegions []string `json:"affectedRegions,omitempty"`
}

// PhrasePayload carries one streamed phrase diff.
type PhrasePayload struct {
	PhraseID         string `json:"phraseId"`
	TrackID          string `json:"trackId"`
	RegionID         string `json:"regionId"`
	BeatStart        float64 `json:"beatStart"`
	BeatEnd          float64 `json:"beatEnd"`
	Label            string `json:"label"`
	Tags             []string `json:"tags,omitempty"`
	Explanation      string `json:"explanation,omitempty"`
	NoteChanges      []NoteChange `json:"noteChanges,omitempty"`
	ControllerChanges []ControllerChange `json:"controllerChanges,omitempty"`
}

// NoteChange describes one note addition, removal, or modification.
type NoteChange struct {
	NoteID     string `json:"noteId"`
	ChangeType string `json:"changeType"`
	Before     any    `json:"before,omitempty"`
	After      any    `json:"after,omitempty"`
}

// ControllerChange describes a CC/pitch-bend/aftertouch edit.
type ControllerChange struct {
	Kind   string `json:"kind"`
	Before any    `json:"before,omitempty"`
	After  any    `json:"after,omitempty"`
}

// DonePayload is the terminal envelope's payload.
type DonePayload struct {
	Status          string   `json:"status"`
	PhraseCount     int      `json:"phraseCount"`
	AffectedTracks  []string `json:"affectedTracks,omitempty"`
	AffectedRegions []string `json:"affectedRegions,omitempty"`
}

// ErrorPayload carries a failure reason for an error envelope.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SequenceCounter yields strictly increasing integers starting at 1.
// Each Variation owns exactly one. Safe for concurrent use.
type SequenceCounter struct {
	n int64
}

// Next returns the next sequence number, starting at 1.
func (s *SequenceCounter) Next() int64 {
	return atomic.AddInt64(&s.n, 1)
}

// Current returns the most recently issued sequence number, or 0 if Next
// has never been called.
func (s *SequenceCounter) Current() int64 {
	return atomic.LoadInt64(&s.n)
}

// Builder constructs envelopes for a single variation, binding type,
// sequence, and IDs around a type-specific payload. Construction is pure
// and safe for concurrent use via the underlying SequenceCounter and an
// internal mutex guarding clock reads.
type Builder struct {
	VariationID string
	ProjectID   string
	BaseStateID string

	seq SequenceCounter
	mu  sync.Mutex
	now func() int64
}

// NewBuilder constructs a Builder for one variation. now supplies the
// current time in epoch milliseconds, injected so tests can control it.
func NewBuilder(variationID, projectID, baseStateID string, now func() int64) *Builder {
	return &Builder{VariationID: variationID, ProjectID: projectID, BaseStateID: baseStateID, now: now}
}

func (b *Builder) frame(t Type, payload any) Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Envelope{
		Type:        t,
		Sequence:    b.seq.Next(),
		VariationID: b.VariationID,
		ProjectID:   b.ProjectID,
		BaseStateID: b.BaseStateID,
		Payload:     payload,
		TimestampMs: b.now(),
	}
}

// BuildMeta constructs the sequence-1 envelope.
func (b *Builder) BuildMeta(payload MetaPayload) Envelope {
	return b.frame(TypeMeta, payload)
}

// BuildPhrase constructs a phrase envelope.
func (b *Builder) BuildPhrase(payload PhrasePayload) Envelope {
	return b.frame(TypePhrase, payload)
}

// BuildDone constructs the terminal envelope.
func (b *Builder) BuildDone(payload DonePayload) Envelope {
	return b.frame(TypeDone, payload)
}

// BuildError constructs an error envelope. It may precede the terminal
// done envelope.
func (b *Builder) BuildError(payload ErrorPayload) Envelope {
	return b.frame(TypeError, payload)
}

// BuildHeartbeat constructs an idle-keepalive envelope. Heartbeats do not
// consume a sequence number since they carry no ordering meaning for
// resume/replay.
func (b *Builder) BuildHeartbeat() Envelope {
	return Envelope{
		Type:        TypeHeartbeat,
		VariationID: b.VariationID,
		ProjectID:   b.ProjectID,
		BaseStateID: b.BaseStateID,
		TimestampMs: b.now(),
	}
}
