package eventv1

import "context"

// Publisher defines the interface for publishing engine events.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=eventv1_mock
type Publisher interface {
	// Publish writes the events in the given order.
	Publish(ctx context.Context, events ...Event) error
	// Close flushes and releases the underlying transport.
	Close() error
}
