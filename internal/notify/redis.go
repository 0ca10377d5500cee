package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default Redis names used by RedisPublisher.
const (
	DefaultChannel = "fitlife:session:notification"
	DefaultKey     = "fitlife:session:latest"
)

// Connect builds a client from a redis:// URL. An empty URL yields nil.
func Connect(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// RedisPublisher publishes each notification as JSON on a pub/sub channel
// and keeps the latest one under a key for readers that join late.
type RedisPublisher struct {
	client  *redis.Client
	Channel string
	Key     string
	// TTL bounds how long the latest notification outlives the publisher.
	TTL time.Duration
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		Channel: DefaultChannel,
		Key:     DefaultKey,
		TTL:     10 * time.Minute,
	}
}

func (p *RedisPublisher) Present(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.Key, payload, p.TTL)
	pipe.Publish(ctx, p.Channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
