package store

import (
	"sync"

	"github.com/cgcardona/maestro/internal/envelope"
	"github.com/cgcardona/maestro/pkg/mlog"
)

// DefaultSubscriberQueueSize is the default bounded-queue depth for a
// single SSE subscriber.
const DefaultSubscriberQueueSize = 256

type subscription struct {
	queue chan envelope.Envelope
}

type variationStream struct {
	mu          sync.Mutex
	history     []envelope.Envelope
	subscribers map[*subscription]struct{}
	closed      bool
}

// SSEBroadcaster fans a variation's generated envelopes out to
// subscribers, keeping a replayable history. The broadcaster is
// single-writer per variation (the background generation task) and
// many-reader; subscriber writes never block the publisher.
type SSEBroadcaster struct {
	mu        sync.Mutex
	streams   map[string]*variationStream
	queueSize int
	logger    mlog.Logger
}

// NewSSEBroadcaster builds a broadcaster with the given per-subscriber
// queue depth.
func NewSSEBroadcaster(queueSize int, logger mlog.Logger) *SSEBroadcaster {
	if queueSize <= 0 {
		queueSize = DefaultSubscriberQueueSize
	}

	if logger == nil {
		logger = &mlog.NoneLogger{}
	}

	return &SSEBroadcaster{
		streams:   make(map[string]*variationStream),
		queueSize: queueSize,
		logger:    logger,
	}
}

func (b *SSEBroadcaster) streamFor(variationID string) *variationStream {
	b.mu.Lock()
	defer b.mu.Unlock()

	vs, ok := b.streams[variationID]
	if !ok {
		vs = &variationStream{subscribers: make(map[*subscription]struct{})}
		b.streams[variationID] = vs
	}

	return vs
}

// Publish appends env to variationID's history and drains it into every
// current subscriber's queue. A full subscriber queue drops the event
// for that subscriber (logged) rather than blocking or failing the
// publish — SSE delivery is at-least-once with sequence-based replay,
// not exactly-once.
func (b *SSEBroadcaster) Publish(variationID string, env envelope.Envelope) {
	vs := b.streamFor(variationID)

	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.closed {
		// CloseStream already sent the terminal sentinel; anything
		// published afterward would land after it.
		return
	}

	if env.Type != envelope.TypeHeartbeat {
		vs.history = append(vs.history, env)
	}

	for sub := range vs.subscribers {
		select {
		case sub.queue <- env:
		default:
			b.logger.Warnf("sse: dropping envelope seq=%d for variation=%s, subscriber queue full", env.Sequence, variationID)
		}
	}
}

// Subscribe registers a new subscriber for variationID, replaying any
// history with sequence > fromSequence into its queue before returning.
func (b *SSEBroadcaster) Subscribe(variationID string, fromSequence int64) <-chan envelope.Envelope {
	vs := b.streamFor(variationID)

	vs.mu.Lock()
	defer vs.mu.Unlock()

	sub := &subscription{queue: make(chan envelope.Envelope, b.queueSize)}

	for _, env := range vs.history {
		if env.Sequence <= fromSequence {
			continue
		}

		select {
		case sub.queue <- env:
		default:
			b.logger.Warnf("sse: history replay dropped envelope seq=%d for variation=%s, subscriber queue full", env.Sequence, variationID)
		}
	}

	vs.subscribers[sub] = struct{}{}

	return sub.queue
}

// Unsubscribe removes a subscriber by its channel. Idempotent.
func (b *SSEBroadcaster) Unsubscribe(variationID string, queue <-chan envelope.Envelope) {
	vs := b.streamFor(variationID)

	vs.mu.Lock()
	defer vs.mu.Unlock()

	for sub := range vs.subscribers {
		if sub.queue == queue {
			delete(vs.subscribers, sub)
			return
		}
	}
}

// CloseStream pushes a final sentinel to each subscriber by closing
// their queues, then removes all subscribers for variationID.
func (b *SSEBroadcaster) CloseStream(variationID string) {
	vs := b.streamFor(variationID)

	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.closed {
		return
	}

	for sub := range vs.subscribers {
		close(sub.queue)
	}

	vs.subscribers = make(map[*subscription]struct{})
	vs.closed = true
}

// GetHistory returns envelopes with sequence > fromSequence, used by the
// poll endpoint and by clients replaying a terminal stream.
func (b *SSEBroadcaster) GetHistory(variationID string, fromSequence int64) []envelope.Envelope {
	vs := b.streamFor(variationID)

	vs.mu.Lock()
	defer vs.mu.Unlock()

	var out []envelope.Envelope

	for _, env := range vs.history {
		if env.Sequence > fromSequence {
			out = append(out, env)
		}
	}

	return out
}
