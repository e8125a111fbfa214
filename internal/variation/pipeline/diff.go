package pipeline

import (
	"sort"

	"github.com/cgcardona/maestro/internal/envelope"
	"github.com/cgcardona/maestro/internal/statestore"
	"github.com/cgcardona/maestro/internal/variation/store"
)

// computeVariationFromContext is the pure diff between a VariationContext's
// base and proposed state. It never touches the live store; it only
// compares two point-in-time views and produces ordered phrases, one per
// affected region plus one project-level phrase for tempo/key/mixing.
func computeVariationFromContext(ctx *VariationContext, intent string) []store.Phrase {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	var phrases []store.Phrase

	for _, regionID := range unionRegionIDs(ctx) {
		base := ctx.BaseSnapshot.Regions[regionID]

		noteChanges := diffRegionNotes(base, ctx.ProposedNotes[regionID])
		controllerChanges := diffRegionControllers(base, ctx.ProposedCC[regionID], ctx.ProposedPitchBends[regionID], ctx.ProposedAftertouch[regionID])

		if len(noteChanges) == 0 && len(controllerChanges) == 0 {
			continue
		}

		phrases = append(phrases, store.Phrase{
			RegionID:          regionID,
			Label:             intent,
			NoteChanges:       noteChanges,
			ControllerChanges: controllerChanges,
		})
	}

	if projectChanges := diffProjectState(ctx); len(projectChanges) > 0 {
		phrases = append(phrases, store.Phrase{
			Label:             intent,
			ControllerChanges: projectChanges,
		})
	}

	return phrases
}

// unionRegionIDs returns every region touched by notes or controller
// curves, since a region may receive only a CC edit and never appear in
// ProposedNotes.
func unionRegionIDs(ctx *VariationContext) []string {
	seen := make(map[string]bool)

	var ids []string

	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for id := range ctx.ProposedNotes {
		add(id)
	}

	for id := range ctx.ProposedCC {
		add(id)
	}

	for id := range ctx.ProposedPitchBends {
		add(id)
	}

	for id := range ctx.ProposedAftertouch {
		add(id)
	}

	sort.Strings(ids)

	return ids
}

func diffRegionNotes(base *statestore.RegionState, proposed map[string]statestore.Note) []envelope.NoteChange {
	var baseNotes map[string]statestore.Note
	if base != nil {
		baseNotes = base.Notes
	}

	var changes []envelope.NoteChange

	var noteIDs []string
	seen := make(map[string]bool)

	for id := range baseNotes {
		noteIDs = append(noteIDs, id)
		seen[id] = true
	}

	for id := range proposed {
		if !seen[id] {
			noteIDs = append(noteIDs, id)
		}
	}

	sort.Strings(noteIDs)

	for _, id := range noteIDs {
		before, hadBefore := baseNotes[id]
		after, hasAfter := proposed[id]

		switch {
		case !hadBefore && hasAfter:
			changes = append(changes, envelope.NoteChange{NoteID: id, ChangeType: "added", After: after})
		case hadBefore && !hasAfter:
			changes = append(changes, envelope.NoteChange{NoteID: id, ChangeType: "removed", Before: before})
		case hadBefore && hasAfter && before != after:
			changes = append(changes, envelope.NoteChange{NoteID: id, ChangeType: "modified", Before: before, After: after})
		}
	}

	return changes
}

// diffRegionControllers compares a region's base CC/pitch-bend/aftertouch
// curves against the proposed ones. Curves are whole-curve replacements,
// so a change is reported as a single before/after pair per controller
// rather than point-by-point.
func diffRegionControllers(base *statestore.RegionState, cc map[string][]statestore.ControllerPoint, pitchBends, aftertouch []statestore.ControllerPoint) []envelope.ControllerChange {
	var baseCC map[string][]statestore.ControllerPoint
	var basePitchBends, baseAftertouch []statestore.ControllerPoint

	if base != nil {
		baseCC = base.CC
		basePitchBends = base.PitchBends
		baseAftertouch = base.Aftertouch
	}

	var changes []envelope.ControllerChange

	var ccNumbers []string
	seen := make(map[string]bool)

	for number := range baseCC {
		ccNumbers = append(ccNumbers, number)
		seen[number] = true
	}

	for number := range cc {
		if !seen[number] {
			ccNumbers = append(ccNumbers, number)
		}
	}

	sort.Strings(ccNumbers)

	for _, number := range ccNumbers {
		before := baseCC[number]
		after := cc[number]

		if !controllerCurveEqual(before, after) {
			changes = append(changes, envelope.ControllerChange{Kind: "cc:" + number, Before: before, After: after})
		}
	}

	if !controllerCurveEqual(basePitchBends, pitchBends) {
		changes = append(changes, envelope.ControllerChange{Kind: "pitchBend", Before: basePitchBends, After: pitchBends})
	}

	if !controllerCurveEqual(baseAftertouch, aftertouch) {
		changes = append(changes, envelope.ControllerChange{Kind: "aftertouch", Before: baseAftertouch, After: aftertouch})
	}

	return changes
}

func controllerCurveEqual(a, b []statestore.ControllerPoint) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// diffProjectState compares tempo/key against the base snapshot and
// appends every recorded mixer change. Mixer changes have no base value
// to compare against (mixer state isn't modeled in the StateStore), so
// they're reported unconditionally.
func diffProjectState(ctx *VariationContext) []envelope.ControllerChange {
	var changes []envelope.ControllerChange

	if ctx.ProposedTempo != nil && *ctx.ProposedTempo != ctx.BaseSnapshot.Tempo {
		changes = append(changes, envelope.ControllerChange{Kind: "tempo", Before: ctx.BaseSnapshot.Tempo, After: *ctx.ProposedTempo})
	}

	if ctx.ProposedKey != nil && *ctx.ProposedKey != ctx.BaseSnapshot.Key {
		changes = append(changes, envelope.ControllerChange{Kind: "key", Before: ctx.BaseSnapshot.Key, After: *ctx.ProposedKey})
	}

	for _, mc := range ctx.MixerChanges {
		changes = append(changes, envelope.ControllerChange{Kind: mc.Tool + ":" + mc.Target, After: mc.Value})
	}

	return changes
}
