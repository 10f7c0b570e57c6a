package accounts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisDispatcher enqueues notification jobs onto a Redis stream. The
// out-of-process worker consumes the stream through a consumer group, which
// gives the at-least-once delivery the dispatch contract asks for.
type RedisDispatcher struct {
	client *redis.Client
	stream string
}

// RedisDispatcherOption customizes the dispatcher.
type RedisDispatcherOption func(*RedisDispatcher)

// WithRedisStream overrides the destination stream.
func WithRedisStream(stream string) RedisDispatcherOption {
	return func(d *RedisDispatcher) {
		if stream != "" {
			d.stream = stream
		}
	}
}

// NewRedisDispatcher creates a dispatcher publishing to NotificationQueue.
func NewRedisDispatcher(client *redis.Client, opts ...RedisDispatcherOption) *RedisDispatcher {
	d := &RedisDispatcher{
		client: client,
		stream: NotificationQueue,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

var _ Dispatcher = (*RedisDispatcher)(nil)

// Dispatch implements Dispatcher. It returns once the job is appended to the
// stream; it never waits for execution.
func (d *RedisDispatcher) Dispatch(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: d.stream,
		Values: map[string]any{
			"job": payload,
		},
	}

	if _, err := d.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	return nil
}
