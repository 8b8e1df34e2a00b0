package errors

import (
	"bytes"
	stderrors "errors"
	"strings"
)

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"

	// ValidationError is returned when an order message is malformed or misses a required field.
	ValidationError ErrorCode = "validation_error"
	// DuplicateOrderID is returned when an order id was already used on the instrument's book.
	DuplicateOrderID ErrorCode = "duplicate_order_id"
	// OrderNotFound is returned when cancelling an unknown or already terminal order.
	OrderNotFound ErrorCode = "order_not_found"
	// OrderAlreadyFilled is returned when cancelling an order that was fully filled.
	OrderAlreadyFilled ErrorCode = "order_already_filled"
	// UnknownInstrument is returned when a message targets an instrument this node does not serve.
	UnknownInstrument ErrorCode = "unknown_instrument"
	// InvariantViolation signals a corrupted book. It halts the instrument.
	InvariantViolation ErrorCode = "invariant_violation"
	// InstrumentHalted is returned for every request on an instrument halted by an invariant violation.
	InstrumentHalted ErrorCode = "instrument_halted"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisPingError represents an error when pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
	// RedisDelError represents an error when deleting a value from Redis.
	RedisDelError ErrorCode = "redis_del_error"
	// RedisSubscribeError represents an error when subscribing to channels in Redis.
	RedisSubscribeError ErrorCode = "redis_subscribe_error"
	// RedisPublishError represents an error when publishing messages to channels in Redis.
	RedisPublishError ErrorCode = "redis_publish_error"
)

// BaseError is an `error` type containing an array of ErrorDetails.
// Validation collects every problem of a message into one BaseError.
type BaseError struct {
	details []*ErrorDetails
}

// NewBaseError create BaseError with ErrorDetails
func NewBaseError(details ...*ErrorDetails) *BaseError {
	return &BaseError{details: details}
}

// AddErrorDetails add more ErrorDetails to BaseError
func (b *BaseError) AddErrorDetails(errors ...*ErrorDetails) {
	b.details = append(b.details, errors...)
}

// GetDetails get array ErrorDetails on BaseError
func (b *BaseError) GetDetails() []*ErrorDetails {
	return b.details
}

// HasDetails reports whether at least one ErrorDetails was collected.
func (b *BaseError) HasDetails() bool {
	return len(b.details) > 0
}

// Code returns the code of the first ErrorDetails, or an empty string.
func (b *BaseError) Code() string {
	if len(b.details) == 0 {
		return ""
	}
	return b.details[0].Code
}

// Error implement error interface
func (b *BaseError) Error() string {
	buff := bytes.NewBufferString("")

	for i, err := range b.details {
		if i > 0 {
			buff.WriteString("; ")
		}
		if err.Field != "" {
			buff.WriteString(err.Field)
			buff.WriteString(": ")
		}
		buff.WriteString(err.Error())
	}

	return strings.TrimSpace(buff.String())
}

// IsAnyCodeEqual check if any ErrorDetails code is equal with given code
func (b *BaseError) IsAnyCodeEqual(code string) bool {
	for _, d := range b.GetDetails() {
		if d.Code == code {
			return true
		}
	}
	return false
}

// CodeOf extracts the error code carried by err, looking through wrapped errors.
// It returns GeneralInternalServerError for errors that carry no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var details *ErrorDetails
	if stderrors.As(err, &details) {
		return ErrorCode(details.Code)
	}

	var base *BaseError
	if stderrors.As(err, &base) && base.HasDetails() {
		return ErrorCode(base.Code())
	}

	return GeneralInternalServerError
}
