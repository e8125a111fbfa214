// Package mrabbitmq manages the AMQP connection used to publish push and
// merge events for webhook dispatch.
package mrabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/cgcardona/maestro/pkg/mlog"
)

// Connection is a singleton AMQP connection/channel holder.
type Connection struct {
	URI       string
	Exchange  string
	Logger    mlog.Logger
	conn      *amqp.Connection
	channel   *amqp.Channel
	Connected bool
}

// Connect dials the broker, opens a channel, and declares the topic
// exchange events are published to.
func (c *Connection) Connect(_ context.Context) error {
	logger := c.logger()
	logger.Info("connecting to rabbitmq...")

	conn, err := amqp.Dial(c.URI)
	if err != nil {
		return fmt.Errorf("mrabbitmq: dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("mrabbitmq: open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(c.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("mrabbitmq: declare exchange: %w", err)
	}

	c.conn = conn
	c.channel = channel
	c.Connected = true

	logger.Info("connected to rabbitmq")

	return nil
}

// GetChannel returns the channel, connecting lazily if necessary.
func (c *Connection) GetChannel(ctx context.Context) (*amqp.Channel, error) {
	if !c.Connected {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.channel, nil
}

func (c *Connection) logger() mlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return &mlog.NoneLogger{}
}

// EventPublisher publishes domain events (push, merge) to the exchange
// under a routing key, picked up by the webhook dispatch hook point.
type EventPublisher struct {
	conn *Connection
}

// NewEventPublisher builds a publisher over an already-connected
// Connection.
func NewEventPublisher(conn *Connection) *EventPublisher {
	return &EventPublisher{conn: conn}
}

// Publish marshals payload as JSON and publishes it under routingKey.
func (p *EventPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	channel, err := p.conn.GetChannel(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mrabbitmq: marshal event: %w", err)
	}

	return channel.Publish(p.conn.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
