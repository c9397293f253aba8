package redisclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking/internal/realtime"
)

// Bus fans realtime events out through a Redis channel so every API
// instance can deliver them to its own websocket clients.
type Bus struct {
	client  *redis.Client
	channel string
	log     *zap.Logger

	// OnPublish, if set, is called with the event type after a successful
	// publish.
	OnPublish func(eventType string)
}

func NewBus(client *redis.Client, channel string, log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{client: client, channel: channel, log: log}
}

func (b *Bus) Publish(ctx context.Context, event realtime.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	if b.OnPublish != nil {
		b.OnPublish(event.Type)
	}
	return nil
}

// Run forwards every event received on the channel to sink until ctx is
// done. The subscription is confirmed before Run starts reading, so events
// published after ready is closed are not missed.
func (b *Bus) Run(ctx context.Context, sink realtime.Publisher, ready chan<- struct{}) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	b.log.Info("event bus subscribed", zap.String("channel", b.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev realtime.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("dropping malformed event", zap.Error(err))
				continue
			}
			if err := sink.Publish(ctx, ev); err != nil {
				b.log.Warn("deliver event", zap.String("type", ev.Type), zap.Error(err))
			}
		}
	}
}
