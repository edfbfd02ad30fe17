// internal/messaging/rabbit.go
package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"rent-reminder/internal/logging"
	"rent-reminder/internal/metrics"
)

const (
	OutboxQueue = "mail_outbox"
	OutboxDLQ   = "mail_outbox_dlq"
)

// Channel is the part of *amqp.Channel the outbox uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueInspect(name string) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

type RabbitClient struct {
	conn    *amqp.Connection
	channel Channel
	mu      sync.Mutex
	logger  logging.Logger
}

func NewRabbitClient(url string, logger logging.Logger) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	return &RabbitClient{conn: conn, channel: ch, logger: logger}, nil
}

// NewWithChannel wraps an existing channel. Used by tests.
func NewWithChannel(ch Channel, logger logging.Logger) *RabbitClient {
	return &RabbitClient{channel: ch, logger: logger}
}

func (r *RabbitClient) Channel() Channel {
	return r.channel
}

// DeclareOutbox creates the durable outbox queue and its dead-letter queue.
func (r *RabbitClient) DeclareOutbox() error {
	// 1. DLQ
	if _, err := r.channel.QueueDeclare(OutboxDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	// 2. Main Queue with DLQ binding
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": OutboxDLQ,
	}
	if _, err := r.channel.QueueDeclare(OutboxQueue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare main queue: %w", err)
	}

	r.logger.WithField("queue", OutboxQueue).Info("Mail outbox declared")
	return nil
}

// Publish puts one mail job on the outbox as a persistent message.
func (r *RabbitClient) Publish(ctx context.Context, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.channel.Publish(
		"",          // default exchange
		OutboxQueue, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", OutboxQueue, err)
	}
	return nil
}

// UpdateQueueDepth refreshes the outbox depth gauge.
func (r *RabbitClient) UpdateQueueDepth() {
	r.mu.Lock()
	q, err := r.channel.QueueInspect(OutboxQueue)
	r.mu.Unlock()
	if err != nil {
		r.logger.WithError(err).Warn("Failed to inspect mail outbox")
		return
	}
	metrics.OutboxDepth.Set(float64(q.Messages))
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
