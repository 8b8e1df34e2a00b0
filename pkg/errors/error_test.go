package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseError(t *testing.T) {
	base := NewBaseError()
	assert.False(t, base.HasDetails())
	assert.Equal(t, "", base.Code())

	base.AddErrorDetails(
		NewErrorDetails("is required", string(ValidationError), "order_id"),
		NewErrorDetails("must be positive", string(ValidationError), "quantity"),
	)

	require.True(t, base.HasDetails())
	assert.Equal(t, string(ValidationError), base.Code())
	assert.Equal(t, "order_id: is required; quantity: must be positive", base.Error())
	assert.True(t, base.IsAnyCodeEqual(string(ValidationError)))
	assert.False(t, base.IsAnyCodeEqual(string(OrderNotFound)))
}

func TestCodeOf(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "details", err: NewErrorDetails("x", string(OrderNotFound), ""), expected: OrderNotFound},
		{
			name:     "wrapped details",
			err:      fmt.Errorf("cancel: %w", NewErrorDetails("x", string(OrderAlreadyFilled), "")),
			expected: OrderAlreadyFilled,
		},
		{
			name:     "base error",
			err:      NewBaseError(NewErrorDetails("x", string(ValidationError), "side")),
			expected: ValidationError,
		},
		{
			name:     "tracer",
			err:      NewTracer("halt").Wrap(NewErrorDetails("crossed", string(InvariantViolation), "")),
			expected: InvariantViolation,
		},
		{name: "plain", err: fmt.Errorf("boom"), expected: GeneralInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CodeOf(tc.err))
		})
	}
}

func TestErrorTracer(t *testing.T) {
	cause := NewErrorDetails("book crossed", string(InvariantViolation), "")
	tracer := NewTracer("instrument halted").Wrap(cause)

	assert.Equal(t, "instrument halted: book crossed", tracer.Error())
	assert.NotNil(t, tracer.StackTrace())
	assert.True(t, ErrorCodeEquals(tracer, InvariantViolation))
}
