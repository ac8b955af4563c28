package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// HandlerFunc processes a single stream message. The message is acknowledged
// regardless of the returned error; failures are logged and skipped so a
// poison message cannot stall the group.
type HandlerFunc func(ctx context.Context, msg redis.XMessage) error

// Consumer reads events from a Redis stream as part of a consumer group.
type Consumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	handler  HandlerFunc
}

// NewConsumer creates a consumer bound to a stream and consumer group.
func NewConsumer(client *redis.Client, stream, group, consumer string, handler HandlerFunc) *Consumer {
	return &Consumer{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		handler:  handler,
	}
}

// EnsureGroup creates the consumer group if it doesn't exist yet.
// Safe to call on every startup.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !isBusyGroupErr(err) {
		return fmt.Errorf("create consumer group %s on %s: %w", c.group, c.stream, err)
	}
	return nil
}

// Run blocks reading messages until ctx is cancelled. On startup it first
// drains any messages left pending by a previous instance of this consumer,
// then tails new messages.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.recoverPending(ctx); err != nil {
		log.Printf("[Consumer %s] FAILED to recover pending messages: %v", c.consumer, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, ">"},
			Count:    16,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // block timed out, nothing new
			}
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			log.Printf("[Consumer %s] FAILED to read stream: %v", c.consumer, err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.process(ctx, msg)
			}
		}
	}
}

// recoverPending re-processes messages that were delivered to this consumer
// but never acknowledged (e.g. a crash mid-handler).
func (c *Consumer) recoverPending(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, "0"},
		Count:    100,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	for _, stream := range streams {
		if len(stream.Messages) > 0 {
			log.Printf("[Consumer %s] Recovering %d pending messages", c.consumer, len(stream.Messages))
		}
		for _, msg := range stream.Messages {
			c.process(ctx, msg)
		}
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	if err := c.handler(ctx, msg); err != nil {
		log.Printf("[Consumer %s] FAILED to handle message %s: %v", c.consumer, msg.ID, err)
	}
	// Ack even on failure: the handlers are best-effort cache maintenance and
	// notifications, and retrying a malformed message forever would wedge the group.
	if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
		log.Printf("[Consumer %s] FAILED to ack message %s: %v", c.consumer, msg.ID, err)
	}
}

func isBusyGroupErr(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}
