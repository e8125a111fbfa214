package pipeline

import (
	"context"
	"strings"

	"github.com/cgcardona/maestro/internal/statestore"
	"github.com/cgcardona/maestro/internal/variation/statemachine"
	"github.com/cgcardona/maestro/internal/variation/store"
	"github.com/cgcardona/maestro/pkg/merrors"
)

// CommitRequest is the inbound commit payload.
type CommitRequest struct {
	ProjectID         string
	VariationID       string
	BaseStateID       string
	AcceptedPhraseIDs []string
}

// UpdatedRegion is one region's post-commit state, carried from the
// phrase records rather than re-queried from the store, avoiding
// coupling between the response shape and the store's internals.
type UpdatedRegion struct {
	RegionID   string
	TrackID    string
	Notes      []statestore.Note
	CCEvents   map[string][]statestore.ControllerPoint
	PitchBends []statestore.ControllerPoint
	Aftertouch []statestore.ControllerPoint
}

// CommitResult is returned on a successful commit.
type CommitResult struct {
	ProjectID        string
	NewStateID       string
	AppliedPhraseIDs []string
	NotesAdded       int
	NotesRemoved     int
	NotesModified    int
	UpdatedRegions   []UpdatedRegion
}

// Commit loads the record, requires READY, re-validates baseStateId
// against the project's current version, validates every accepted
// phrase id exists, and applies the accepted phrases transactionally.
func (p *Pipeline) Commit(_ context.Context, req CommitRequest) (CommitResult, error) {
	record, err := p.Variations.Get(req.VariationID)
	if err != nil {
		return CommitResult{}, err
	}

	status := record.SnapshotStatus()

	if status == statemachine.Committed {
		return CommitResult{}, merrors.ConflictError{
			Code:    "ALREADY_COMMITTED",
			Message: "variation is already committed",
			Details: map[string]any{"currentStatus": string(status)},
		}
	}

	if !statemachine.CanCommit(status) {
		return CommitResult{}, merrors.ConflictError{
			Code:    "INVALID_STATE_FOR_COMMIT",
			Message: "commit is only allowed from READY",
			Details: map[string]any{"currentStatus": string(status)},
		}
	}

	projectStore := p.States.For(req.ProjectID)

	if !projectStore.CheckStateID(req.BaseStateID) {
		return CommitResult{}, merrors.ConflictError{
			Code:    "STATE_CONFLICT",
			Message: "project state has changed since variation was proposed",
			Details: map[string]any{"currentStateId": projectStore.GetStateID()},
		}
	}

	if record.BaseStateID != req.BaseStateID {
		return CommitResult{}, merrors.ConflictError{
			Code:    "BASELINE_MISMATCH",
			Message: "variation was proposed against a different baseStateId",
		}
	}

	available := make(map[string]store.Phrase, len(record.Phrases))
	for _, ph := range record.Phrases {
		available[ph.PhraseID] = ph
	}

	var unknown []string

	for _, id := range req.AcceptedPhraseIDs {
		if _, ok := available[id]; !ok {
			unknown = append(unknown, id)
		}
	}

	if len(unknown) > 0 {
		return CommitResult{}, merrors.ValidationError{
			Code:    "INVALID_PHRASE_IDS",
			Message: "phrases not found in variation",
		}
	}

	result, err := applyVariationPhrases(projectStore, record.Phrases, req.AcceptedPhraseIDs)
	if err != nil {
		record.ErrorMessage = err.Error()

		if terr := record.Transition(statemachine.Failed); terr != nil {
			return CommitResult{}, terr
		}

		return CommitResult{}, err
	}

	if err := record.Transition(statemachine.Committed); err != nil {
		return CommitResult{}, err
	}

	result.ProjectID = req.ProjectID
	result.NewStateID = projectStore.GetStateID()

	return result, nil
}

// applyVariationPhrases opens a StateStore transaction and applies each
// accepted phrase's note changes in phrase sequence order: additions
// first, then removals, then modifications (as removal+add).
// Controller changes are applied after notes. On any failure the
// transaction is rolled back.
func applyVariationPhrases(projectStore *statestore.Store, phrases []store.Phrase, acceptedIDs []string) (CommitResult, error) {
	accepted := make(map[string]bool, len(acceptedIDs))
	for _, id := range acceptedIDs {
		accepted[id] = true
	}

	tx, err := projectStore.BeginTransaction("variation-commit")
	if err != nil {
		return CommitResult{}, err
	}

	var added, removed, modified int

	regionNotes := make(map[string]map[string]statestore.Note)
	regionTrack := make(map[string]string)
	regionCC := make(map[string]map[string][]statestore.ControllerPoint)
	regionPitchBends := make(map[string][]statestore.ControllerPoint)
	regionAftertouch := make(map[string][]statestore.ControllerPoint)
	touchedRegions := make(map[string]bool)

	applyNoteChanges := func(phrase store.Phrase) error {
		if len(phrase.NoteChanges) == 0 {
			return nil
		}

		regionID := phrase.RegionID
		touchedRegions[regionID] = true

		if regionNotes[regionID] == nil {
			regionNotes[regionID] = make(map[string]statestore.Note)
		}

		changes := phrase.NoteChanges[:0:0]
		for _, kind := range []string{"added", "removed", "modified"} {
			for _, nc := range phrase.NoteChanges {
				if nc.ChangeType == kind {
					changes = append(changes, nc)
				}
			}
		}

		for _, nc := range changes {
			switch nc.ChangeType {
			case "added":
				if note, ok := toNote(nc.After); ok {
					if err := projectStore.AddNotes(regionID, []statestore.Note{note}, tx); err != nil {
						return err
					}

					regionNotes[regionID][note.NoteID] = note
					added++
				}
			case "removed":
				if err := projectStore.RemoveNotes(regionID, []string{nc.NoteID}, tx); err != nil {
					return err
				}

				delete(regionNotes[regionID], nc.NoteID)
				removed++
			case "modified":
				if err := projectStore.RemoveNotes(regionID, []string{nc.NoteID}, tx); err != nil {
					return err
				}

				if note, ok := toNote(nc.After); ok {
					if err := projectStore.AddNotes(regionID, []statestore.Note{note}, tx); err != nil {
						return err
					}

					regionNotes[regionID][note.NoteID] = note
				}

				modified++
			}
		}

		return nil
	}

	// applyControllerChanges runs after applyNoteChanges for the same
	// phrase, matching the "controller changes are applied after notes"
	// ordering. tempo/key land on the project itself; cc/pitchBend/
	// aftertouch land on the phrase's region; mixer changes (anything
	// else) have no StateStore field to persist into and are carried
	// through to the response for client sync only.
	applyControllerChanges := func(phrase store.Phrase) error {
		regionID := phrase.RegionID

		for _, cc := range phrase.ControllerChanges {
			switch {
			case cc.Kind == "tempo":
				bpm, ok := toFloat(cc.After)
				if !ok {
					continue
				}

				if err := projectStore.SetTempo(bpm, tx); err != nil {
					return err
				}
			case cc.Kind == "key":
				key, ok := cc.After.(string)
				if !ok {
					continue
				}

				if err := projectStore.SetKey(key, tx); err != nil {
					return err
				}
			case strings.HasPrefix(cc.Kind, "cc:"):
				points, ok := toControllerPoints(cc.After)
				if !ok {
					continue
				}

				ccNumber := strings.TrimPrefix(cc.Kind, "cc:")

				if err := projectStore.SetCC(regionID, ccNumber, points, tx); err != nil {
					return err
				}

				touchedRegions[regionID] = true

				if regionCC[regionID] == nil {
					regionCC[regionID] = make(map[string][]statestore.ControllerPoint)
				}

				regionCC[regionID][ccNumber] = points
			case cc.Kind == "pitchBend":
				points, ok := toControllerPoints(cc.After)
				if !ok {
					continue
				}

				if err := projectStore.SetPitchBends(regionID, points, tx); err != nil {
					return err
				}

				touchedRegions[regionID] = true
				regionPitchBends[regionID] = points
			case cc.Kind == "aftertouch":
				points, ok := toControllerPoints(cc.After)
				if !ok {
					continue
				}

				if err := projectStore.SetAftertouch(regionID, points, tx); err != nil {
					return err
				}

				touchedRegions[regionID] = true
				regionAftertouch[regionID] = points
			}
		}

		return nil
	}

	for _, phrase := range phrases {
		if !accepted[phrase.PhraseID] {
			continue
		}

		if phrase.RegionID != "" {
			regionTrack[phrase.RegionID] = phrase.TrackID
		}

		if err := applyNoteChanges(phrase); err != nil {
			_ = projectStore.Rollback(tx)
			return CommitResult{}, err
		}

		if err := applyControllerChanges(phrase); err != nil {
			_ = projectStore.Rollback(tx)
			return CommitResult{}, err
		}
	}

	if err := projectStore.Commit(tx); err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{
		NotesAdded:    added,
		NotesRemoved:  removed,
		NotesModified: modified,
	}

	for _, id := range acceptedIDs {
		result.AppliedPhraseIDs = append(result.AppliedPhraseIDs, id)
	}

	for regionID := range touchedRegions {
		ur := UpdatedRegion{RegionID: regionID, TrackID: regionTrack[regionID]}

		for _, n := range regionNotes[regionID] {
			ur.Notes = append(ur.Notes, n)
		}

		ur.CCEvents = regionCC[regionID]
		ur.PitchBends = regionPitchBends[regionID]
		ur.Aftertouch = regionAftertouch[regionID]

		result.UpdatedRegions = append(result.UpdatedRegions, ur)
	}

	return result, nil
}

func toNote(v any) (statestore.Note, bool) {
	n, ok := v.(statestore.Note)

	return n, ok
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)

	return f, ok
}

func toControllerPoints(v any) ([]statestore.ControllerPoint, bool) {
	p, ok := v.([]statestore.ControllerPoint)

	return p, ok
}
