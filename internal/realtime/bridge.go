package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// LocalPublisher hands notifications straight to the in-process hub.
type LocalPublisher struct {
	hub *Hub
}

// NewLocalPublisher wraps hub.
func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

// Publish delivers n to the local hub.
func (p *LocalPublisher) Publish(_ context.Context, n models.Notification) error {
	p.hub.Deliver(n)
	return nil
}

// RedisBridge publishes notifications on a Redis channel and relays every
// message received on it to the local hub, so all instances see every event.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger
}

// NewRedisBridge constructs a RedisBridge.
func NewRedisBridge(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{client: client, channel: channel, hub: hub, logger: logger}
}

// Publish sends n to the channel.
func (b *RedisBridge) Publish(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Run relays channel messages to the hub until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("notification bridge subscribed", zap.String("channel", b.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var n models.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				b.logger.Warn("discarding malformed notification", zap.Error(err))
				continue
			}
			b.hub.Deliver(n)
		}
	}
}
