package musehub

import "context"

// EventPublisher publishes push/merge events to a topic exchange. The
// default is a no-op; production wiring passes an
// mrabbitmq.EventPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// NoopEventPublisher discards every event.
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, string, any) error { return nil }

func (s *Service) publishEvent(ctx context.Context, routingKey string, payload any) {
	if s.Events == nil {
		return
	}

	if err := s.Events.Publish(ctx, routingKey, payload); err != nil {
		s.Logger.Warnf("musehub: event publish failed for %s: %v", routingKey, err)
	}
}
