package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher forwards bus events to a topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// RoutingKey maps an event type to its topic, e.g. booking_approved -> shareit.booking_approved.
func RoutingKey(eventType string) string {
	return "shareit." + eventType
}

// Publish sends an already encoded event.
func (p *AMQPPublisher) Publish(ctx context.Context, event *Event) error {
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
		Type:         event.Type,
		Body:         event.Payload,
	})
}

// Attach subscribes the publisher to the given event types on bus.
func (p *AMQPPublisher) Attach(bus *EventBus, eventTypes ...string) {
	for _, t := range eventTypes {
		bus.Subscribe(t, func(event *Event) error {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			return p.Publish(ctx, event)
		})
	}
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
