package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel indexers subscribe to.
const DefaultRedisChannel = "agentmemory.events"

// RedisPublisher publishes events as JSON on a redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher builds a publisher from a redis URL.
// Returns nil if the URL is empty (redis not configured).
func NewRedisPublisher(url, channel string) (*RedisPublisher, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

func (p *RedisPublisher) Emit(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
