package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgcardona/maestro/internal/envelope"
	"github.com/cgcardona/maestro/pkg/mlog"
)

func TestSubscribeThenPublishDelivers(t *testing.T) {
	b := NewSSEBroadcaster(8, &mlog.NoneLogger{})

	ch := b.Subscribe("var1", 0)

	env := envelope.Envelope{Type: envelope.TypeMeta, Sequence: 1, VariationID: "var1"}
	b.Publish("var1", env)

	select {
	case got := <-ch:
		assert.Equal(t, env, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestSubscribeReplaysHistoryAboveFromSequence(t *testing.T) {
	b := NewSSEBroadcaster(8, &mlog.NoneLogger{})

	b.Publish("var1", envelope.Envelope{Type: envelope.TypeMeta, Sequence: 1})
	b.Publish("var1", envelope.Envelope{Type: envelope.TypePhrase, Sequence: 2})
	b.Publish("var1", envelope.Envelope{Type: envelope.TypePhrase, Sequence: 3})

	ch := b.Subscribe("var1", 1)

	got := []int64{}
	for i := 0; i < 2; i++ {
		got = append(got, (<-ch).Sequence)
	}

	assert.Equal(t, []int64{2, 3}, got)
}

func TestGetHistoryFiltersBySequence(t *testing.T) {
	b := NewSSEBroadcaster(8, &mlog.NoneLogger{})

	b.Publish("var1", envelope.Envelope{Sequence: 1})
	b.Publish("var1", envelope.Envelope{Sequence: 2})

	hist := b.GetHistory("var1", 1)
	require.Len(t, hist, 1)
	assert.Equal(t, int64(2), hist[0].Sequence)
}

func TestCloseStreamClosesSubscriberQueues(t *testing.T) {
	b := NewSSEBroadcaster(8, &mlog.NoneLogger{})

	ch := b.Subscribe("var1", 0)
	b.CloseStream("var1")

	_, ok := <-ch
	assert.False(t, ok)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := NewSSEBroadcaster(8, &mlog.NoneLogger{})

	ch := b.Subscribe("var1", 0)
	b.Unsubscribe("var1", ch)
	b.Unsubscribe("var1", ch)
}

func TestPublishDoesNotBlockOnFullQueue(t *testing.T) {
	b := NewSSEBroadcaster(1, &mlog.NoneLogger{})

	_ = b.Subscribe("var1", 0)

	done := make(chan struct{})
	go func() {
		for i := int64(1); i <= 10; i++ {
			b.Publish("var1", envelope.Envelope{Sequence: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber queue")
	}
}

func TestHeartbeatIsNotStoredInHistory(t *testing.T) {
	b := NewSSEBroadcaster(8, &mlog.NoneLogger{})

	b.Publish("var1", envelope.Envelope{Type: envelope.TypeMeta, Sequence: 1})
	b.Publish("var1", envelope.Envelope{Type: envelope.TypeHeartbeat})

	hist := b.GetHistory("var1", 0)
	require.Len(t, hist, 1)
	assert.Equal(t, envelope.TypeMeta, hist[0].Type)
}
