package eventpublisher

import (
	"context"

	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/muhammadchandra19/matcher/pkg/redis"

	eventv1 "github.com/muhammadchandra19/matcher/internal/domain/event/v1"
)

// RedisPublisher publishes engine events on a redis pub/sub channel, one message per event.
type RedisPublisher struct {
	client  redis.Client
	channel string
	logger  *logger.Logger
}

// NewRedisPublisher creates a publisher writing to channel.
func NewRedisPublisher(client redis.Client, channel string, logger *logger.Logger) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Publish sends the events in order and stops at the first failure.
func (p *RedisPublisher) Publish(ctx context.Context, events ...eventv1.Event) error {
	for i, event := range events {
		if _, err := p.client.Publish(ctx, p.channel, event.ToBytes()); err != nil {
			p.logger.ErrorContext(ctx, err,
				logger.Field{Key: "sink", Value: "redis"},
				logger.Field{Key: "channel", Value: p.channel},
				logger.Field{Key: "unpublished", Value: len(events) - i},
			)
			return errors.NewTracer("failed to publish events").Wrap(err)
		}
	}
	return nil
}

// Close is a no-op: the redis client is shared and closed by its owner.
func (p *RedisPublisher) Close() error {
	return nil
}
