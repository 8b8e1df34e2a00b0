package orderreader

import (
	"context"

	"github.com/muhammadchandra19/matcher/pkg/config"
	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/segmentio/kafka-go"

	orderreaderv1 "github.com/muhammadchandra19/matcher/internal/domain/order-reader/v1"
	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

// kafkaFetcher is the part of *kafka.Reader the order reader needs.
type kafkaFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaReader reads order messages from the order topic with a consumer group.
type KafkaReader struct {
	kafkaReader kafkaFetcher
	logger      *logger.Logger
}

// NewKafkaReader creates a new Kafka reader for consuming messages from the order topic.
func NewKafkaReader(config config.KafkaConfig, log *logger.Logger) *KafkaReader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.OrderTopic,
		GroupID:     config.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return &KafkaReader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

// logError is a helper method to log errors consistently
func (r *KafkaReader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "operation", Value: operation},
		logger.Field{Key: "source", Value: "kafka"},
	)
}

// ReadMessage fetches the next message and decodes it. The message is not
// committed until CommitMessages is called.
func (r *KafkaReader) ReadMessage(ctx context.Context) (orderreaderv1.Message, *orderbookv1.PlaceOrderRequest, error) {
	msg, err := r.kafkaReader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logError(err, "FetchMessage")
		}
		return orderreaderv1.Message{}, nil, errors.NewTracer("kafka_fetch_error").Wrap(err)
	}

	message := orderreaderv1.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
		Time:      msg.Time,
	}

	request, err := orderbookv1.DecodeRequest(msg.Value)
	logDecoded(r.logger, message, request, err)

	return message, request, err
}

// CommitMessages commits the messages to Kafka after processing.
func (r *KafkaReader) CommitMessages(ctx context.Context, msgs ...orderreaderv1.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		kafkaMsgs = append(kafkaMsgs, kafka.Message{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
		})
	}

	if err := r.kafkaReader.CommitMessages(ctx, kafkaMsgs...); err != nil {
		r.logError(err, "CommitMessages")
		return errors.NewTracer("kafka_commit_error").Wrap(err)
	}
	return nil
}

// Close properly closes the Kafka reader.
func (r *KafkaReader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}

func logDecoded(log *logger.Logger, msg orderreaderv1.Message, request *orderbookv1.PlaceOrderRequest, err error) {
	if err != nil {
		log.Warn("Undecodable order message",
			logger.Field{Key: "offset", Value: msg.Offset},
			logger.Field{Key: "orderID", Value: request.OrderID},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return
	}

	log.Debug("ReadMessage",
		logger.Field{Key: "offset", Value: msg.Offset},
		logger.Field{Key: "orderID", Value: request.OrderID},
		logger.Field{Key: "userID", Value: request.UserID},
		logger.Field{Key: "instrument", Value: request.Instrument},
		logger.Field{Key: "action", Value: request.Action},
		logger.Field{Key: "type", Value: request.Type},
		logger.Field{Key: "side", Value: request.Side},
	)
}
