package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// publisher is the part of *amqp.Channel used for delivery.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes notifications as persistent JSON messages to a
// direct exchange, routed to a durable queue of the same name.
type AMQPNotifier struct {
	channel  *amqp.Channel
	pub      publisher
	exchange string
	queue    string
	logger   *slog.Logger
}

// NewAMQPNotifier opens a channel on conn and declares the exchange, the
// queue and their binding.
func NewAMQPNotifier(conn *amqp.Connection, exchange, queue string, logger *slog.Logger) (*AMQPNotifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declare(ch, exchange, queue); err != nil {
		ch.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return &AMQPNotifier{channel: ch, pub: ch, exchange: exchange, queue: queue, logger: logger}, nil
}

func declare(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// The queue name doubles as the routing key.
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Send publishes message.
func (n *AMQPNotifier) Send(ctx context.Context, message Message) error {
	publishing, err := encode(message)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := n.pub.PublishWithContext(ctx, n.exchange, n.queue, false, false, publishing); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	n.logger.DebugContext(ctx, "published notification",
		slog.String("kind", message.Kind),
		slog.String("owner_id", message.Destination),
		slog.String("exchange", n.exchange),
	)
	return nil
}

// Close releases the channel. The connection belongs to the caller.
func (n *AMQPNotifier) Close() error {
	if n.channel == nil {
		return nil
	}
	return n.channel.Close()
}

func encode(message Message) (amqp.Publishing, error) {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(message)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    message.CreatedAt,
		Type:         message.Kind,
		Body:         body,
	}, nil
}
