// Package amqpexport publishes changes to a RabbitMQ exchange and consumes
// them in the worker.
package amqpexport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/odyssey-erp/arcollect/internal/changes"
	"github.com/odyssey-erp/arcollect/internal/collections"
)

// DefaultExchange is the direct exchange changes are published to.
const DefaultExchange = "arcollect.changes"

const publishTimeout = 5 * time.Second

// RoutingKey returns the routing key used for c, e.g. "actions.ppa".
func RoutingKey(d collections.Division) string {
	return "actions." + d.Slug()
}

// Exporter is a changes.Relay publishing persistent JSON messages.
type Exporter struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// Dial connects to url and declares the exchange.
func Dial(url, exchange string) (*Exporter, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqpexport: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqpexport: open channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Exporter{conn: conn, channel: ch, exchange: exchange}, nil
}

// Forward implements changes.Relay.
func (e *Exporter) Forward(ctx context.Context, c changes.Change) error {
	msg, err := Publishing(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := e.channel.PublishWithContext(ctx, e.exchange, RoutingKey(c.Division), false, false, msg); err != nil {
		return fmt.Errorf("amqpexport: publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (e *Exporter) Close() error {
	if e.channel != nil {
		_ = e.channel.Close()
	}
	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}

// Publishing encodes c as a persistent JSON message.
func Publishing(c changes.Change) (amqp.Publishing, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("amqpexport: encode: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    c.ID.String(),
		Timestamp:    c.At,
		Body:         body,
	}, nil
}

// Consumer reads changes from a durable queue bound to every division key.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
}

// DialConsumer connects, declares the exchange and queue, and binds the queue.
func DialConsumer(url, exchange, queue string, logger *slog.Logger) (*Consumer, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqpexport: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqpexport: open channel: %w", err)
	}
	cleanup := func() {
		ch.Close()
		conn.Close()
	}
	if err := declareExchange(ch, exchange); err != nil {
		cleanup()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		cleanup()
		return nil, fmt.Errorf("amqpexport: declare queue: %w", err)
	}
	for _, d := range collections.Divisions() {
		if err := ch.QueueBind(queue, RoutingKey(d), exchange, false, nil); err != nil {
			cleanup()
			return nil, fmt.Errorf("amqpexport: bind %s: %w", d, err)
		}
	}
	return &Consumer{conn: conn, channel: ch, queue: queue, logger: logger}, nil
}

// Consume delivers decoded changes to handle until ctx is cancelled. Messages
// that fail to decode are rejected; handler failures are requeued.
func (c *Consumer) Consume(ctx context.Context, handle func(context.Context, changes.Change) error) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqpexport: consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqpexport: delivery channel closed")
			}
			var change changes.Change
			if err := json.Unmarshal(d.Body, &change); err != nil {
				c.logger.Error("amqpexport: decode change", slog.Any("error", err))
				_ = d.Nack(false, false)
				continue
			}
			if err := handle(ctx, change); err != nil {
				c.logger.Error("amqpexport: handle change",
					slog.String("change_id", change.ID.String()),
					slog.Any("error", err))
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Close releases the channel and connection.
func (c *Consumer) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqpexport: declare exchange: %w", err)
	}
	return nil
}
