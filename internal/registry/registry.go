// Package registry resolves and mints IDs for the entities a variation
// operates on: tracks, regions, buses, and the owning project. The
// registry never holds cross-request shared state; it is keyed and
// scoped per project.
package registry

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cgcardona/maestro/pkg/merrors"
	"github.com/cgcardona/maestro/pkg/mlog"
)

// Kind discriminates the entity types the registry indexes.
type Kind string

const (
	KindTrack   Kind = "track"
	KindRegion  Kind = "region"
	KindBus     Kind = "bus"
	KindProject Kind = "project"
)

// Entity is a discriminated record the registry indexes by ID and name.
// IDs are always server-issued UUIDs, never synthesised by a caller.
type Entity struct {
	ID        string
	Kind      Kind
	Name      string
	CreatedAt time.Time
	Metadata  map[string]any
	// ParentID is set only for regions, referencing an extant track.
	ParentID string
}

// Registry indexes one project's entities by ID and by case-insensitive
// name, plus a reverse track->regions index for parent-scoped lookups.
type Registry struct {
	mu            sync.RWMutex
	byID          map[string]*Entity
	byNameLower   map[Kind]map[string]string // kind -> lowercase name -> id
	trackRegions  map[string][]string        // trackId -> regionIds
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		byID:         make(map[string]*Entity),
		byNameLower:  make(map[Kind]map[string]string),
		trackRegions: make(map[string][]string),
	}
}

// Resolve looks up an entity by exact ID, then case-insensitive exact
// name, then (if exact is false) substring/prefix overlap. Region
// resolution may be scoped to a parent track via parentScope to
// disambiguate same-named regions across tracks. Returns ("", false) on
// a miss; it never panics.
func (r *Registry) Resolve(nameOrID string, kind Kind, parentScope string, exact bool) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.byID[nameOrID]; ok && e.Kind == kind {
		if parentScope == "" || e.ParentID == parentScope {
			return e.ID, true
		}
	}

	lower := strings.ToLower(nameOrID)

	if byName, ok := r.byNameLower[kind]; ok {
		if id, ok := byName[lower]; ok {
			if e := r.byID[id]; parentScope == "" || e.ParentID == parentScope {
				return id, true
			}
		}
	}

	if exact {
		return "", false
	}

	return r.resolveFuzzy(lower, kind, parentScope)
}

func (r *Registry) resolveFuzzy(lower string, kind Kind, parentScope string) (string, bool) {
	var best string

	for id, e := range r.byID {
		if e.Kind != kind {
			continue
		}

		if parentScope != "" && e.ParentID != parentScope {
			continue
		}

		candidate := strings.ToLower(e.Name)
		if strings.Contains(candidate, lower) || strings.HasPrefix(candidate, lower) {
			best = id
			break
		}
	}

	return best, best != ""
}

// Create mints a fresh UUID and registers all indices for a new entity.
// Region creation without a valid, already-registered parentTrack fails
// with merrors.ValidationError{Code: "InvalidParent"}. Region creation is
// idempotent: when (parentTrack, name, startBeat, durationBeats) already
// match an existing entry (conveyed via metadata keys "startBeat" and
// "durationBeats"), the existing entity's ID is returned instead of a new
// one being minted.
func (r *Registry) Create(kind Kind, name string, metadata map[string]any, parentID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == KindRegion {
		if parentID == "" {
			return "", merrors.ValidationError{Code: "InvalidParent", Message: "region requires a parent track"}
		}

		parent, ok := r.byID[parentID]
		if !ok || parent.Kind != KindTrack {
			return "", merrors.ValidationError{Code: "InvalidParent", Message: "parent track does not exist: " + parentID}
		}

		if id, ok := r.findMatchingRegion(parentID, name, metadata); ok {
			return id, nil
		}
	}

	id := uuid.NewString()
	entity := &Entity{
		ID:        id,
		Kind:      kind,
		Name:      name,
		CreatedAt: time.Now(),
		Metadata:  metadata,
		ParentID:  parentID,
	}

	r.byID[id] = entity

	if r.byNameLower[kind] == nil {
		r.byNameLower[kind] = make(map[string]string)
	}

	r.byNameLower[kind][strings.ToLower(name)] = id

	if kind == KindRegion {
		r.trackRegions[parentID] = append(r.trackRegions[parentID], id)
	}

	return id, nil
}

func (r *Registry) findMatchingRegion(parentID, name string, metadata map[string]any) (string, bool) {
	for _, id := range r.trackRegions[parentID] {
		e := r.byID[id]
		if !strings.EqualFold(e.Name, name) {
			continue
		}

		if sameNumeric(e.Metadata["startBeat"], metadata["startBeat"]) &&
			sameNumeric(e.Metadata["durationBeats"], metadata["durationBeats"]) {
			return id, true
		}
	}

	return "", false
}

func sameNumeric(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)

	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// TrackRegions returns the region IDs owned by trackID.
func (r *Registry) TrackRegions(trackID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.trackRegions[trackID]))
	copy(out, r.trackRegions[trackID])

	return out
}

// Get returns the entity by ID.
func (r *Registry) Get(id string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]

	return e, ok
}

// ProjectSnapshot is the client-supplied project state syncFromClient
// re-indexes the registry from.
type ProjectSnapshot struct {
	Tracks  []SnapshotEntity
	Regions []SnapshotEntity
	Buses   []SnapshotEntity
}

// SnapshotEntity is one entity as described by a client-supplied project
// snapshot.
type SnapshotEntity struct {
	ID       string
	Name     string
	ParentID string
	Metadata map[string]any
}

// SyncFromClient clears the registry and re-indexes it from a
// client-supplied project snapshot. Individual bad entries (e.g. a
// region whose parent track is missing from the snapshot) are logged and
// skipped rather than raised, since a partially-malformed client snapshot
// should not block the rest of the project from loading.
func (r *Registry) SyncFromClient(logger mlog.Logger, snapshot ProjectSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[string]*Entity)
	r.byNameLower = make(map[Kind]map[string]string)
	r.trackRegions = make(map[string][]string)

	for _, t := range snapshot.Tracks {
		r.indexLocked(KindTrack, t.ID, t.Name, t.Metadata, "")
	}

	for _, b := range snapshot.Buses {
		r.indexLocked(KindBus, b.ID, b.Name, b.Metadata, "")
	}

	for _, rg := range snapshot.Regions {
		if _, ok := r.byID[rg.ParentID]; !ok {
			logger.Warnf("registry: skipping region %q, unknown parent track %q", rg.Name, rg.ParentID)
			continue
		}

		r.indexLocked(KindRegion, rg.ID, rg.Name, rg.Metadata, rg.ParentID)
	}
}

func (r *Registry) indexLocked(kind Kind, id, name string, metadata map[string]any, parentID string) {
	r.byID[id] = &Entity{ID: id, Kind: kind, Name: name, CreatedAt: time.Now(), Metadata: metadata, ParentID: parentID}

	if r.byNameLower[kind] == nil {
		r.byNameLower[kind] = make(map[string]string)
	}

	r.byNameLower[kind][strings.ToLower(name)] = id

	if kind == KindRegion {
		r.trackRegions[parentID] = append(r.trackRegions[parentID], id)
	}
}
