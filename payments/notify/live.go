package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLiveNotifier implements payments.LiveNotifier by publishing to a
// Redis Pub/Sub channel derived from room, so that every process instance
// subscribed to that channel (not just the one that confirmed the payment)
// can forward the update to its own locally-connected UI sessions via
// payments.NotificationRoom.
type RedisLiveNotifier struct {
	client *redis.Client
}

// NewRedisLiveNotifier constructs a notifier over an already-connected
// Redis client.
func NewRedisLiveNotifier(client *redis.Client) *RedisLiveNotifier {
	return &RedisLiveNotifier{client: client}
}

func channelName(room string) string {
	return "payments:room:" + room
}

// Publish implements payments.LiveNotifier.
func (n *RedisLiveNotifier) Publish(ctx context.Context, room, event string, payload interface{}) error {
	body, err := json.Marshal(struct {
		Event   string      `json:"event"`
		Payload interface{} `json:"payload"`
	}{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("notify: marshal live payload: %w", err)
	}
	if err := n.client.Publish(ctx, channelName(room), body).Err(); err != nil {
		return fmt.Errorf("notify: redis publish: %w", err)
	}
	return nil
}

// Subscribe returns a Redis subscription for room's channel; callers drain
// its Channel() and feed each message to a local payments.NotificationRoom.
func (n *RedisLiveNotifier) Subscribe(ctx context.Context, room string) *redis.PubSub {
	return n.client.Subscribe(ctx, channelName(room))
}
