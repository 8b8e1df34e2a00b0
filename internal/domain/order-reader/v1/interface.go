package orderreaderv1

import (
	"context"
	"time"

	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

// Message is a raw inbound message with its transport position.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
}

// OrderReader defines the interface for reading orders from a source.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=orderreaderv1_mock
type OrderReader interface {
	// ReadMessage reads a message and returns it with the decoded order request.
	// A message that cannot be decoded is returned together with a validation
	// error and a request carrying whatever order id could be read.
	ReadMessage(ctx context.Context) (Message, *orderbookv1.PlaceOrderRequest, error)
	// CommitMessages marks the messages as processed.
	CommitMessages(ctx context.Context, msgs ...Message) error
	// Close closes the reader
	Close() error
}
