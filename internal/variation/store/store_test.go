package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgcardona/maestro/internal/variation/statemachine"
)

func TestCreateStartsAtCreated(t *testing.T) {
	s := NewVariationStore()
	r := s.Create("proj1", "0", "make it funky")

	assert.Equal(t, statemachine.Created, r.SnapshotStatus())
	assert.NotEmpty(t, r.VariationID)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := NewVariationStore()
	_, err := s.Get("nope")
	assert.Error(t, err)
}

func TestTransitionThroughStore(t *testing.T) {
	s := NewVariationStore()
	r := s.Create("proj1", "0", "intent")

	require.NoError(t, s.Transition(r.VariationID, statemachine.Streaming))
	require.NoError(t, s.Transition(r.VariationID, statemachine.Ready))
	require.NoError(t, s.Transition(r.VariationID, statemachine.Committed))

	err := s.Transition(r.VariationID, statemachine.Discarded)
	assert.Error(t, err)
}

func TestListForProjectFiltersByStatus(t *testing.T) {
	s := NewVariationStore()
	r1 := s.Create("proj1", "0", "a")
	_ = s.Create("proj2", "0", "b")

	require.NoError(t, s.Transition(r1.VariationID, statemachine.Streaming))

	ready := statemachine.Streaming
	got := s.ListForProject("proj1", &ready)
	require.Len(t, got, 1)
	assert.Equal(t, r1.VariationID, got[0].VariationID)
}

func TestCleanupExpiredOnlyTouchesNonTerminalPastTTL(t *testing.T) {
	s := NewVariationStore()
	r1 := s.Create("proj1", "0", "a")
	r1.CreatedAt = time.Now().Add(-2 * time.Hour)

	r2 := s.Create("proj1", "0", "b")
	require.NoError(t, s.Transition(r2.VariationID, statemachine.Streaming))
	require.NoError(t, s.Transition(r2.VariationID, statemachine.Ready))
	require.NoError(t, s.Transition(r2.VariationID, statemachine.Committed))
	r2.CreatedAt = time.Now().Add(-2 * time.Hour)

	expired := s.CleanupExpired(time.Hour)

	assert.Contains(t, expired, r1.VariationID)
	assert.NotContains(t, expired, r2.VariationID)
	assert.Equal(t, statemachine.Expired, r1.SnapshotStatus())
	assert.Equal(t, statemachine.Committed, r2.SnapshotStatus())
}
