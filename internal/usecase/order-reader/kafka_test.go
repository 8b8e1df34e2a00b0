package orderreader

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderreaderv1 "github.com/muhammadchandra19/matcher/internal/domain/order-reader/v1"
	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

type fakeFetcher struct {
	messages  []kafka.Message
	fetchErr  error
	committed []kafka.Message
	closed    bool
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if f.fetchErr != nil {
		return kafka.Message{}, f.fetchErr
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeFetcher) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

func TestKafkaReader_ReadMessage(t *testing.T) {
	fetcher := &fakeFetcher{messages: []kafka.Message{
		{Topic: "orders", Partition: 2, Offset: 10, Value: []byte(`{"order_id":"o-1","user_id":"u","side":"buy","order_type":"limit","price":100,"quantity":5}`)},
		{Topic: "orders", Partition: 2, Offset: 11, Value: []byte(`{"order_id":"o-2","price":"abc"}`)},
	}}
	reader := &KafkaReader{kafkaReader: fetcher, logger: logger.NewNop()}
	ctx := context.Background()

	msg, req, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), msg.Offset)
	assert.Equal(t, "o-1", req.OrderID)
	assert.Equal(t, orderbookv1.OrderTypeLimit, req.Type)

	msg, req, err = reader.ReadMessage(ctx)
	assert.True(t, errors.ErrorCodeEquals(err, errors.ValidationError))
	assert.Equal(t, int64(11), msg.Offset)
	assert.Equal(t, "o-2", req.OrderID)

	require.NoError(t, reader.CommitMessages(ctx, msg))
	assert.Equal(t, []kafka.Message{{Topic: "orders", Partition: 2, Offset: 11}}, fetcher.committed)

	require.NoError(t, reader.CommitMessages(ctx))
	assert.Len(t, fetcher.committed, 1)

	require.NoError(t, reader.Close())
	assert.True(t, fetcher.closed)
}

func TestKafkaReader_FetchError(t *testing.T) {
	reader := &KafkaReader{kafkaReader: &fakeFetcher{fetchErr: stderrors.New("broker down")}, logger: logger.NewNop()}

	msg, req, err := reader.ReadMessage(context.Background())

	assert.Error(t, err)
	assert.False(t, errors.ErrorCodeEquals(err, errors.ValidationError))
	assert.Nil(t, req)
	assert.Equal(t, orderreaderv1.Message{}, msg)
}
