package util

import (
	"context"

	"github.com/google/uuid"
)

type key string

const (
	requestIDKey  = key("x-request-id")
	instrumentKey = key("instrument")
)

// WithRequestID returns a context with a request id.
// It will generate new request id if the provided id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return context.WithValue(ctx, requestIDKey, generate())
	}

	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns request id from context, or an empty string if not present.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithInstrument returns a context tagged with the instrument being processed.
func WithInstrument(ctx context.Context, instrument string) context.Context {
	return context.WithValue(ctx, instrumentKey, instrument)
}

// GetInstrument returns the instrument from context, or an empty string if not present.
func GetInstrument(ctx context.Context) string {
	instrument, _ := ctx.Value(instrumentKey).(string)
	return instrument
}

// generate returns a uuid-v4 string to use as request id
func generate() string {
	return uuid.NewString()
}
