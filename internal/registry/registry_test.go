package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgcardona/maestro/pkg/mlog"
)

func TestCreateTrackThenResolveByName(t *testing.T) {
	r := New()

	id, err := r.Create(KindTrack, "Lead Synth", nil, "")
	require.NoError(t, err)

	got, ok := r.Resolve("lead synth", KindTrack, "", true)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestRegionRequiresValidParent(t *testing.T) {
	r := New()

	_, err := r.Create(KindRegion, "Verse 1", nil, "does-not-exist")
	require.Error(t, err)
}

func TestRegionCreateIsIdempotentOnMatchingBounds(t *testing.T) {
	r := New()

	trackID, err := r.Create(KindTrack, "Drums", nil, "")
	require.NoError(t, err)

	meta := map[string]any{"startBeat": 0.0, "durationBeats": 8.0}

	id1, err := r.Create(KindRegion, "Intro", meta, trackID)
	require.NoError(t, err)

	id2, err := r.Create(KindRegion, "Intro", meta, trackID)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestResolveFuzzyFallsBackToSubstring(t *testing.T) {
	r := New()

	id, err := r.Create(KindTrack, "Lead Synth Arp", nil, "")
	require.NoError(t, err)

	got, ok := r.Resolve("synth", KindTrack, "", false)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestResolveMissingReturnsFalseNotPanic(t *testing.T) {
	r := New()

	_, ok := r.Resolve("nonexistent", KindTrack, "", true)
	assert.False(t, ok)
}

func TestSyncFromClientSkipsRegionWithMissingParent(t *testing.T) {
	r := New()

	r.SyncFromClient(&mlog.NoneLogger{}, ProjectSnapshot{
		Tracks: []SnapshotEntity{{ID: "t1", Name: "Bass"}},
		Regions: []SnapshotEntity{
			{ID: "r1", Name: "Hook", ParentID: "t1"},
			{ID: "r2", Name: "Orphan", ParentID: "missing"},
		},
	})

	_, ok := r.Get("r1")
	assert.True(t, ok)

	_, ok = r.Get("r2")
	assert.False(t, ok)
}

func TestManagerScopesRegistriesPerProject(t *testing.T) {
	m := NewManager()

	regA := m.For("projA")
	regB := m.For("projB")

	idA, err := regA.Create(KindTrack, "Lead", nil, "")
	require.NoError(t, err)

	_, ok := regB.Resolve(idA, KindTrack, "", true)
	assert.False(t, ok)

	again := m.For("projA")
	_, ok = again.Resolve(idA, KindTrack, "", true)
	assert.True(t, ok)
}
