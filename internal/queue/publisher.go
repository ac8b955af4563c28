package queue

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Publisher publishes events to Redis Streams.
type Publisher interface {
	PublishFeedEvent(ctx context.Context, event FeedEvent) error
}

type redisPublisher struct {
	client *redis.Client
}

// NewPublisher creates a Redis Streams publisher.
func NewPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) PublishFeedEvent(ctx context.Context, event FeedEvent) error {
	values, err := event.ToMap()
	if err != nil {
		return fmt.Errorf("convert event to map: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamFeed,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Publisher] FAILED to publish %s event: %v", event.Type, err)
		return fmt.Errorf("xadd to %s: %w", StreamFeed, err)
	}

	log.Printf("[Publisher] Published %s event (stream ID: %s)", event.Type, id)
	return nil
}
