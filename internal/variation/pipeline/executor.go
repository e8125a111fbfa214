package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cgcardona/maestro/internal/daw"
	"github.com/cgcardona/maestro/internal/planner"
	"github.com/cgcardona/maestro/internal/statestore"
)

// MixerChange records one mixing-phase tool call (bus volume, send, pan,
// track volume). Mixer state has no persistent home in the StateStore, so
// unlike notes and controller curves it is carried straight through to
// the phrase diff for client sync rather than staged against a region.
type MixerChange struct {
	Tool   string
	Target string
	Value  float64
}

// VariationContext accumulates the base and proposed note/controller/
// project state as the executor runs tool calls against an immutable
// snapshot. The executor never mutates the canonical store directly.
type VariationContext struct {
	mu sync.Mutex

	BaseSnapshot       statestore.SnapshotBundle
	ProposedNotes      map[string]map[string]statestore.Note              // regionId -> noteId -> Note
	ProposedCC         map[string]map[string][]statestore.ControllerPoint // regionId -> ccNumber -> curve
	ProposedPitchBends map[string][]statestore.ControllerPoint            // regionId -> curve
	ProposedAftertouch map[string][]statestore.ControllerPoint            // regionId -> curve
	ProposedTempo      *float64
	ProposedKey        *string
	MixerChanges       []MixerChange
}

func newVariationContext(base statestore.SnapshotBundle) *VariationContext {
	proposedNotes := make(map[string]map[string]statestore.Note, len(base.Regions))
	proposedCC := make(map[string]map[string][]statestore.ControllerPoint, len(base.Regions))
	proposedPitchBends := make(map[string][]statestore.ControllerPoint, len(base.Regions))
	proposedAftertouch := make(map[string][]statestore.ControllerPoint, len(base.Regions))

	for regionID, rs := range base.Regions {
		notes := make(map[string]statestore.Note, len(rs.Notes))
		for id, n := range rs.Notes {
			notes[id] = n
		}

		proposedNotes[regionID] = notes

		cc := make(map[string][]statestore.ControllerPoint, len(rs.CC))
		for number, points := range rs.CC {
			cc[number] = append([]statestore.ControllerPoint(nil), points...)
		}

		proposedCC[regionID] = cc
		proposedPitchBends[regionID] = append([]statestore.ControllerPoint(nil), rs.PitchBends...)
		proposedAftertouch[regionID] = append([]statestore.ControllerPoint(nil), rs.Aftertouch...)
	}

	return &VariationContext{
		BaseSnapshot:       base,
		ProposedNotes:      proposedNotes,
		ProposedCC:         proposedCC,
		ProposedPitchBends: proposedPitchBends,
		ProposedAftertouch: proposedAftertouch,
	}
}

func (c *VariationContext) upsertNote(regionID string, n statestore.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ProposedNotes[regionID] == nil {
		c.ProposedNotes[regionID] = make(map[string]statestore.Note)
	}

	c.ProposedNotes[regionID][n.NoteID] = n
}

func (c *VariationContext) removeNote(regionID, noteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.ProposedNotes[regionID], noteID)
}

func (c *VariationContext) setCC(regionID, ccNumber string, points []statestore.ControllerPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ProposedCC[regionID] == nil {
		c.ProposedCC[regionID] = make(map[string][]statestore.ControllerPoint)
	}

	c.ProposedCC[regionID][ccNumber] = points
}

func (c *VariationContext) setPitchBends(regionID string, points []statestore.ControllerPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ProposedPitchBends[regionID] = points
}

func (c *VariationContext) setAftertouch(regionID string, points []statestore.ControllerPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ProposedAftertouch[regionID] = points
}

func (c *VariationContext) setTempo(bpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ProposedTempo = &bpm
}

func (c *VariationContext) setKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ProposedKey = &key
}

// recordMixerChange appends a mixing-phase tool call. Mixing tool calls
// are not deduplicated by target: the phrase diff carries the full
// sequence so clients can replay every mixer move a variation made.
func (c *VariationContext) recordMixerChange(tool string, params map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target, _ := params["target"].(string)
	if target == "" {
		target, _ = params["busId"].(string)
	}

	if target == "" {
		target, _ = params["trackId"].(string)
	}

	c.MixerChanges = append(c.MixerChanges, MixerChange{Tool: tool, Target: target, Value: floatParam(params, "value")})
}

// executeToolCall applies one planner-issued tool call's effects (notes,
// controller curves, tempo, key, mixer settings) into the
// VariationContext. Only the handful of tool shapes the generator
// actually emits are interpreted; unknown tools are no-ops.
func executeToolCall(ctx *VariationContext, call planner.ToolCall) error {
	switch call.Name {
	case "addNote":
		regionID, _ := call.Params["regionId"].(string)
		note, err := noteFromParams(call.Params)
		if err != nil {
			return err
		}

		ctx.upsertNote(regionID, note)
	case "removeNote":
		regionID, _ := call.Params["regionId"].(string)
		noteID, _ := call.Params["noteId"].(string)
		ctx.removeNote(regionID, noteID)
	case "modifyNote":
		regionID, _ := call.Params["regionId"].(string)
		note, err := noteFromParams(call.Params)
		if err != nil {
			return err
		}

		ctx.upsertNote(regionID, note)
	case "setCC":
		regionID, _ := call.Params["regionId"].(string)
		ctx.setCC(regionID, ccNumberFromParams(call.Params), controllerPointsFromParams(call.Params, "points"))
	case "setPitchBend":
		regionID, _ := call.Params["regionId"].(string)
		ctx.setPitchBends(regionID, controllerPointsFromParams(call.Params, "points"))
	case "setAftertouch":
		regionID, _ := call.Params["regionId"].(string)
		ctx.setAftertouch(regionID, controllerPointsFromParams(call.Params, "points"))
	case "setTempo":
		ctx.setTempo(floatParam(call.Params, "bpm"))
	case "setKey":
		key, _ := call.Params["key"].(string)
		ctx.setKey(key)
	case "setBusVolume", "setSend", "setPan", "setVolume":
		ctx.recordMixerChange(call.Name, call.Params)
	}

	return nil
}

func ccNumberFromParams(params map[string]any) string {
	switch v := params["ccNumber"].(type) {
	case string:
		return v
	case float64:
		return strconv.Itoa(int(v))
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func controllerPointsFromParams(params map[string]any, key string) []statestore.ControllerPoint {
	raw, _ := params[key].([]any)

	points := make([]statestore.ControllerPoint, 0, len(raw))

	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}

		points = append(points, statestore.ControllerPoint{Beat: floatParam(m, "beat"), Value: floatParam(m, "value")})
	}

	return points
}

func noteFromParams(params map[string]any) (statestore.Note, error) {
	noteID, _ := params["noteId"].(string)
	if noteID == "" {
		return statestore.Note{}, fmt.Errorf("executor: tool call missing noteId")
	}

	return statestore.Note{
		NoteID:    noteID,
		Pitch:     intParam(params, "pitch"),
		Velocity:  intParam(params, "velocity"),
		StartBeat: floatParam(params, "startBeat"),
		Duration:  floatParam(params, "duration"),
	}, nil
}

func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func floatParam(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// runPlan executes an ExecutionPlan's tool calls in three phases: setup
// (sequential), per-instrument groups (bounded parallelism across
// groups), and mixing (sequential). Phase classification is delegated to
// the DAW adapter.
func runPlan(ctx context.Context, adapter daw.Adapter, plan planner.ExecutionPlan, vctx *VariationContext, instrumentParallelism int) error {
	var setup, mixing []planner.ToolCall

	groups := make(map[string][]planner.ToolCall)
	var groupOrder []string

	for _, call := range plan.ToolCalls {
		switch adapter.PhaseForTool(call.Name) {
		case daw.PhaseSetup:
			setup = append(setup, call)
		case daw.PhaseMixing:
			mixing = append(mixing, call)
		default:
			key := strings.ToLower(call.InstrumentID)
			if _, seen := groups[key]; !seen {
				groupOrder = append(groupOrder, key)
			}

			groups[key] = append(groups[key], call)
		}
	}

	for _, call := range setup {
		if err := executeToolCall(vctx, call); err != nil {
			return err
		}
	}

	if err := runInstrumentGroups(ctx, groupOrder, groups, vctx, instrumentParallelism); err != nil {
		return err
	}

	for _, call := range mixing {
		if err := executeToolCall(vctx, call); err != nil {
			return err
		}
	}

	return nil
}

// runInstrumentGroups runs each instrument group's calls sequentially
// within the group, but runs up to parallelism groups concurrently
// across groups. Groups are started in sorted order; the phrases later
// built from vctx are ordered by region ID, not by completion order.
func runInstrumentGroups(ctx context.Context, groupOrder []string, groups map[string][]planner.ToolCall, vctx *VariationContext, parallelism int) error {
	if parallelism <= 0 {
		parallelism = 1
	}

	sorted := append([]string(nil), groupOrder...)
	sort.Strings(sorted)

	tokens := make(chan struct{}, parallelism)
	errs := make(chan error, len(sorted))
	var wg sync.WaitGroup

	for _, key := range sorted {
		calls := groups[key]

		wg.Add(1)

		go func(calls []planner.ToolCall) {
			defer wg.Done()

			select {
			case tokens <- struct{}{}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
			defer func() { <-tokens }()

			for _, call := range calls {
				if err := executeToolCall(vctx, call); err != nil {
					errs <- err
					return
				}
			}
		}(calls)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
