package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))

	generated := GetRequestID(WithRequestID(context.Background(), ""))
	assert.Len(t, generated, 36)

	assert.Equal(t, "", GetRequestID(context.Background()))
}

func TestWithInstrument(t *testing.T) {
	ctx := WithInstrument(context.Background(), "BTC-USD")
	assert.Equal(t, "BTC-USD", GetInstrument(ctx))
	assert.Equal(t, "", GetInstrument(context.Background()))
}
