package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/campushub/campushub/internal/event"
	"github.com/campushub/campushub/internal/logger"
)

const DefaultExchange = "campushub.events"

// publisher is the part of *amqp.Channel the notifier needs
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitNotifier publishes registration and event notices to a topic exchange
type RabbitNotifier struct {
	conn     *amqp.Connection
	channel  publisher
	exchange string
	now      func() time.Time
}

// NewRabbitNotifier connects to url and declares a durable topic exchange
func NewRabbitNotifier(url, exchange string) (*RabbitNotifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	logger.Info("RabbitMQ notifier ready", logger.Fields{"exchange": exchange})

	return &RabbitNotifier{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		now:      time.Now,
	}, nil
}

func newRabbitNotifierWith(ch publisher, exchange string, now func() time.Time) *RabbitNotifier {
	return &RabbitNotifier{channel: ch, exchange: exchange, now: now}
}

// NotifyRegistration publishes a RegistrationNotice with routing key event.registered
func (n *RabbitNotifier) NotifyRegistration(ctx context.Context, evt *event.Event, attendee *event.Attendee) error {
	return n.publish(ctx, RoutingKeyRegistered, NewRegistrationNotice(evt, attendee, n.now()))
}

// AnnounceEvent publishes an EventNotice with routing key event.created
func (n *RabbitNotifier) AnnounceEvent(ctx context.Context, evt *event.Event) error {
	return n.publish(ctx, RoutingKeyCreated, NewEventNotice(evt, n.now()))
}

func (n *RabbitNotifier) publish(ctx context.Context, key string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding notice: %w", err)
	}

	err = n.channel.PublishWithContext(ctx, n.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.now(),
		Body:         data,
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", key, err)
	}

	logger.Debug("notice published", logger.Fields{"exchange": n.exchange, "routing_key": key})
	return nil
}

// Close releases the connection
func (n *RabbitNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
