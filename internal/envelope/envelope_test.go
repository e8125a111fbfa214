package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() int64 { return 1700000000000 }

func TestSequenceCounterStartsAtOne(t *testing.T) {
	var sc SequenceCounter
	assert.Equal(t, int64(1), sc.Next())
	assert.Equal(t, int64(2), sc.Next())
	assert.Equal(t, int64(2), sc.Current())
}

func TestBuilderMetaIsSequenceOne(t *testing.T) {
	b := NewBuilder("var1", "proj1", "0", fixedClock)

	meta := b.BuildMeta(MetaPayload{Intent: "make it funky"})

	require.Equal(t, int64(1), meta.Sequence)
	assert.Equal(t, TypeMeta, meta.Type)
	assert.Equal(t, "var1", meta.VariationID)
	assert.Equal(t, "proj1", meta.ProjectID)
}

func TestBuilderSequenceIsGaplessAndOrdered(t *testing.T) {
	b := NewBuilder("var1", "proj1", "0", fixedClock)

	meta := b.BuildMeta(MetaPayload{Intent: "x"})
	p1 := b.BuildPhrase(PhrasePayload{PhraseID: "p1"})
	p2 := b.BuildPhrase(PhrasePayload{PhraseID: "p2"})
	done := b.BuildDone(DonePayload{Status: "ready", PhraseCount: 2})

	assert.Equal(t, []int64{1, 2, 3, 4}, []int64{meta.Sequence, p1.Sequence, p2.Sequence, done.Sequence})
}

func TestBuilderErrorPrecedesDone(t *testing.T) {
	b := NewBuilder("var1", "proj1", "0", fixedClock)

	_ = b.BuildMeta(MetaPayload{Intent: "x"})
	errEnv := b.BuildError(ErrorPayload{Code: "TOOL_TIMEOUT", Message: "timed out"})
	done := b.BuildDone(DonePayload{Status: "failed"})

	assert.Less(t, errEnv.Sequence, done.Sequence)
	assert.Equal(t, "failed", done.Payload.(DonePayload).Status)
}

func TestHeartbeatCarriesNoSequence(t *testing.T) {
	b := NewBuilder("var1", "proj1", "0", fixedClock)
	_ = b.BuildMeta(MetaPayload{Intent: "x"})

	hb := b.BuildHeartbeat()
	assert.Equal(t, TypeHeartbeat, hb.Type)
	assert.Equal(t, int64(0), hb.Sequence)

	// A heartbeat must not advance the variation's own sequence counter.
	next := b.BuildPhrase(PhrasePayload{PhraseID: "p1"})
	assert.Equal(t, int64(2), next.Sequence)
}
