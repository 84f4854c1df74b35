// Package redisbus shares changes between service instances over Redis pub/sub.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/arcollect/internal/changes"
)

// Channel is the pub/sub channel carrying JSON encoded changes.
const Channel = "arcollect:changes"

// Bus publishes local changes to Redis and delivers remote ones to the hub.
type Bus struct {
	client *redis.Client
	hub    *changes.Hub
	logger *slog.Logger
}

// New constructs a Bus. Register it on the hub with AddRelay and call Start.
func New(client *redis.Client, hub *changes.Hub, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{client: client, hub: hub, logger: logger}
}

// Forward implements changes.Relay.
func (b *Bus) Forward(ctx context.Context, c changes.Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redisbus: encode: %w", err)
	}
	if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("redisbus: publish: %w", err)
	}
	return nil
}

// Start subscribes to the channel and returns once the subscription is
// confirmed. Messages are consumed until ctx is cancelled.
func (b *Bus) Start(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redisbus: subscribe: %w", err)
	}
	go b.consume(ctx, sub)
	return nil
}

func (b *Bus) consume(ctx context.Context, sub *redis.PubSub) {
	defer sub.Close()
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var c changes.Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				b.logger.Warn("redisbus: decode change", slog.Any("error", err))
				continue
			}
			// Local subscribers already saw changes this instance published.
			if c.Origin == b.hub.Origin() {
				continue
			}
			b.hub.Deliver(c)
		}
	}
}
