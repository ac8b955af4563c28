package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"chirp/internal/queue"
)

// Manager runs a pool of feed workers consuming the feed event stream.
type Manager struct {
	client  *redis.Client
	handler *Handler
	count   int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewManager creates a worker manager with the given pool size.
func NewManager(client *redis.Client, handler *Handler, count int) *Manager {
	if count < 1 {
		count = 1
	}
	return &Manager{
		client:  client,
		handler: handler,
		count:   count,
	}
}

// Start launches the worker pool. Workers run until Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)

	// One consumer creates the group; the rest only read.
	bootstrap := queue.NewConsumer(m.client, queue.StreamFeed, queue.ConsumerGroupFeed, "feed-worker-0", m.handler.Handle)
	if err := bootstrap.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	for i := 0; i < m.count; i++ {
		name := fmt.Sprintf("feed-worker-%d", i)
		consumer := queue.NewConsumer(m.client, queue.StreamFeed, queue.ConsumerGroupFeed, name, m.handler.Handle)

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			log.Printf("[Worker] %s started", name)
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[Worker] %s exited with error: %v", name, err)
				return
			}
			log.Printf("[Worker] %s stopped", name)
		}()
	}

	log.Printf("[Worker] Manager started %d workers", m.count)
	return nil
}

// Stop cancels all workers and waits for them to finish in-flight messages.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	log.Printf("[Worker] Manager stopped")
}
