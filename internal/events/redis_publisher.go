package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// MessageChannel is the pub/sub channel the realtime transport subscribes
// to.
const MessageChannel = "events:message_created"

// RedisPublisher implements Publisher over Redis pub/sub, which is how
// the realtime transport picks up new messages.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(client *redis.Client) Publisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishMessageCreated(ctx context.Context, evt MessageCreated) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal message event: %w", err)
	}
	if err := p.client.Publish(ctx, MessageChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish message event: %w", err)
	}
	return nil
}
