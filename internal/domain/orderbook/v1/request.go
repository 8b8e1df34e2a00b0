package orderbookv1

import (
	"encoding/json"
	"math"

	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/shopspring/decimal"
)

// Action is what a message asks the engine to do.
type Action string

const (
	// ActionPlace submits a new order. It is the default when a message carries no action.
	ActionPlace Action = "place"
	// ActionCancel cancels a resting or pending order by id.
	ActionCancel Action = "cancel"
)

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

// PlaceOrderRequest represents a decoded inbound order message.
type PlaceOrderRequest struct {
	OrderID       string              `json:"order_id"`
	UserID        string              `json:"user_id"`
	Instrument    string              `json:"instrument,omitempty"`
	Action        Action              `json:"action,omitempty"`
	Side          Side                `json:"side"`
	Type          OrderType           `json:"order_type"`
	Price         decimal.NullDecimal `json:"price"`
	Quantity      decimal.NullDecimal `json:"quantity"`
	StopLossPrice decimal.NullDecimal `json:"stop_loss_price"`
	StopPrice     decimal.NullDecimal `json:"stop_price"`
	LimitPrice    decimal.NullDecimal `json:"limit_price"`
}

// DecodeRequest parses a wire message. When the payload is not valid JSON for
// the schema, the returned request still carries the order id if one could be
// read, so the rejection can be correlated.
func DecodeRequest(data []byte) (*PlaceOrderRequest, error) {
	var req PlaceOrderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		var partial struct {
			OrderID string `json:"order_id"`
		}
		_ = json.Unmarshal(data, &partial)

		return &PlaceOrderRequest{OrderID: partial.OrderID}, errors.NewErrorDetails(
			"malformed order message: "+err.Error(), string(errors.ValidationError), "",
		)
	}

	return &req, nil
}

// IsCancel reports whether the request cancels an existing order.
func (r *PlaceOrderRequest) IsCancel() bool {
	return r.Action == ActionCancel
}

// Validate checks the request against the per order type field rules.
// Every problem is collected into a single BaseError.
func (r *PlaceOrderRequest) Validate() error {
	base := errors.NewBaseError()
	invalid := func(field, message string) {
		base.AddErrorDetails(errors.NewErrorDetails(message, string(errors.ValidationError), field))
	}

	if r.OrderID == "" {
		invalid("order_id", "is required")
	}

	switch r.Action {
	case "", ActionPlace:
	case ActionCancel:
		if base.HasDetails() {
			return base
		}
		return nil
	default:
		invalid("action", "unknown action "+string(r.Action))
		return base
	}

	if r.UserID == "" {
		invalid("user_id", "is required")
	}

	switch {
	case r.Side == "":
		invalid("side", "is required")
	case !r.Side.Valid():
		invalid("side", "unknown side "+string(r.Side))
	}

	switch {
	case !r.Quantity.Valid:
		invalid("quantity", "is required")
	case !r.Quantity.Decimal.IsPositive():
		invalid("quantity", "must be positive")
	case !r.Quantity.Decimal.IsInteger():
		invalid("quantity", "must be an integer")
	case r.Quantity.Decimal.GreaterThan(maxQuantity):
		invalid("quantity", "is too large")
	}

	switch r.Type {
	case OrderTypeLimit:
		requirePositive(invalid, "price", r.Price)
	case OrderTypeMarket:
	case OrderTypeStopLimit:
		requirePositive(invalid, "limit_price", r.LimitPrice)
		requirePositive(invalid, "stop_price", r.StopPrice)
	case "":
		invalid("order_type", "is required")
	default:
		invalid("order_type", "unknown order type "+string(r.Type))
	}

	if base.HasDetails() {
		return base
	}
	return nil
}

func requirePositive(invalid func(field, message string), field string, value decimal.NullDecimal) {
	switch {
	case !value.Valid:
		invalid(field, "is required")
	case !value.Decimal.IsPositive():
		invalid(field, "must be positive")
	}
}

// ToOrder converts a validated request into an order record.
// Sequence, status and timestamp are assigned by the engine.
func (r *PlaceOrderRequest) ToOrder() *Order {
	order := NewOrder(r.OrderID, r.UserID, r.Side, r.Type, r.Price.Decimal, r.Quantity.Decimal.IntPart())
	order.LimitPrice = r.LimitPrice
	order.StopPrice = r.StopPrice
	order.StopLossPrice = r.StopLossPrice
	return order
}
