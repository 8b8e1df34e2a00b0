package eventpublisher

import (
	"context"
	"time"

	"github.com/muhammadchandra19/matcher/pkg/config"
	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/segmentio/kafka-go"

	eventv1 "github.com/muhammadchandra19/matcher/internal/domain/event/v1"
)

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes engine events to the event topic.
// Events are keyed by instrument so one instrument's events stay on one partition, in order.
type KafkaPublisher struct {
	kafkaWriter messageWriter
	logger      *logger.Logger
}

// NewKafkaPublisher creates a new Kafka publisher for engine events.
func NewKafkaPublisher(config config.KafkaConfig, logger *logger.Logger) *KafkaPublisher {
	kafkaWriter := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.EventTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaPublisher{
		kafkaWriter: kafkaWriter,
		logger:      logger,
	}
}

// Publish writes the events as one batch.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...eventv1.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.Instrument),
			Value: event.ToBytes(),
		})
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msgs...); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.Field{Key: "sink", Value: "kafka"},
			logger.Field{Key: "eventCount", Value: len(events)},
		)
		return errors.NewTracer("failed to publish events").Wrap(err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.kafkaWriter.Close()
}
