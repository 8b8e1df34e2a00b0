package orderreader

import (
	"context"
	"sync/atomic"

	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/muhammadchandra19/matcher/pkg/redis"
	v9 "github.com/redis/go-redis/v9"

	orderreaderv1 "github.com/muhammadchandra19/matcher/internal/domain/order-reader/v1"
	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

// RedisReader reads order messages from a redis pub/sub channel.
// Pub/sub has no replay, so commits are no-ops and offsets are a local counter.
type RedisReader struct {
	channel string
	pubSub  *v9.PubSub
	offset  atomic.Int64
	logger  *logger.Logger
}

// NewRedisReader subscribes to channel and returns a reader for it.
func NewRedisReader(ctx context.Context, client redis.Client, channel string, log *logger.Logger) (*RedisReader, error) {
	pubSub, err := client.Subscribe(ctx, channel)
	if err != nil {
		log.Error(err, logger.Field{Key: "channel", Value: channel}, logger.Field{Key: "operation", Value: "Subscribe"})
		return nil, err
	}

	log.Info("Subscribed to order channel", logger.Field{Key: "channel", Value: channel})

	return &RedisReader{
		channel: channel,
		pubSub:  pubSub,
		logger:  log,
	}, nil
}

// ReadMessage blocks until the next message on the channel and decodes it.
func (r *RedisReader) ReadMessage(ctx context.Context) (orderreaderv1.Message, *orderbookv1.PlaceOrderRequest, error) {
	msg, err := r.pubSub.ReceiveMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error(err, logger.Field{Key: "operation", Value: "ReceiveMessage"}, logger.Field{Key: "source", Value: "redis"})
		}
		return orderreaderv1.Message{}, nil, errors.NewTracer("redis_receive_error").Wrap(err)
	}

	message := orderreaderv1.Message{
		Topic:  msg.Channel,
		Offset: r.offset.Add(1),
		Value:  []byte(msg.Payload),
	}

	request, err := orderbookv1.DecodeRequest(message.Value)
	logDecoded(r.logger, message, request, err)

	return message, request, err
}

// CommitMessages is a no-op: redis pub/sub delivers at most once.
func (r *RedisReader) CommitMessages(ctx context.Context, msgs ...orderreaderv1.Message) error {
	return nil
}

// Close unsubscribes from the channel.
func (r *RedisReader) Close() error {
	return r.pubSub.Close()
}
