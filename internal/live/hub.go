// Package live delivers collection snapshots to subscribers. Writers notify
// a topic after a successful store write; each subscription re-loads the
// collection and emits a full replacement snapshot.
package live

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Hub fans out change notifications over Redis pub/sub so every API
// instance sees writes made by any of them.
type Hub struct {
	client *redis.Client
	prefix string
}

// NewHub connects to Redis and returns a notification hub.
func NewHub(redisURL string) (*Hub, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Hub{client: client, prefix: "live:"}, nil
}

// NewHubWithClient creates a hub from an existing Redis client
func NewHubWithClient(client *redis.Client) *Hub {
	return &Hub{client: client, prefix: "live:"}
}

// Notify signals that the collection behind topic changed. Failures are
// logged and swallowed: a missed notification leaves subscribers on a stale
// snapshot until the next write, it never fails the write itself.
func (h *Hub) Notify(ctx context.Context, topic string) {
	if err := h.client.Publish(ctx, h.prefix+topic, "1").Err(); err != nil {
		log.Printf("live: notify %s: %v", topic, err)
	}
}

func (h *Hub) subscribe(ctx context.Context, topic string) *redis.PubSub {
	return h.client.Subscribe(ctx, h.prefix+topic)
}

// Close closes the Redis connection
func (h *Hub) Close() error {
	return h.client.Close()
}

// Subscription is a cancellable snapshot stream. At most one snapshot is
// buffered; an undelivered snapshot is replaced by a newer one, never
// queued behind it.
type Subscription[T any] struct {
	snapshots chan T
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Snapshots returns the stream channel. It is closed when the subscription
// ends, whether by Close or by context cancellation.
func (s *Subscription[T]) Snapshots() <-chan T {
	return s.snapshots
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(s.cancel)
}

func (s *Subscription[T]) push(snapshot T) {
	for {
		select {
		case s.snapshots <- snapshot:
			return
		default:
		}
		// Drop the stale pending snapshot and retry.
		select {
		case <-s.snapshots:
		default:
		}
	}
}

// Watch opens a subscription on topic. It emits one initial snapshot, then
// re-loads and re-emits exactly once per change notification. Loader errors
// are logged and the previous snapshot stands.
func Watch[T any](ctx context.Context, hub *Hub, topic string, load func(context.Context) (T, error)) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		snapshots: make(chan T, 1),
		cancel:    cancel,
	}

	pubsub := hub.subscribe(ctx, topic)

	go func() {
		defer close(sub.snapshots)
		defer pubsub.Close()

		emit := func() {
			snapshot, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("live: load snapshot for %s: %v", topic, err)
				}
				return
			}
			sub.push(snapshot)
		}

		emit()

		changes := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				emit()
			}
		}
	}()

	return sub
}
