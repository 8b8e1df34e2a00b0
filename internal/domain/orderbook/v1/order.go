package orderbookv1

import (
	"github.com/shopspring/decimal"
)

// Side is the side of the book an order belongs to.
type Side string

const (
	// SideBuy is a bid.
	SideBuy Side = "buy"
	// SideSell is an ask.
	SideSell Side = "sell"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType represents the type of order.
type OrderType string

const (
	// OrderTypeMarket represents a market order.
	OrderTypeMarket OrderType = "market"
	// OrderTypeLimit represents a limit order.
	OrderTypeLimit OrderType = "limit"
	// OrderTypeStopLimit represents a stop order that becomes a limit order once triggered.
	OrderTypeStopLimit OrderType = "stop_limit"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopLimit:
		return true
	}
	return false
}

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusPending is an accepted stop order waiting for its trigger.
	StatusPending Status = "pending"
	// StatusResting is an order on the book with no fills.
	StatusResting Status = "resting"
	// StatusPartiallyFilled is an order on the book with at least one fill.
	StatusPartiallyFilled Status = "partially_filled"
	// StatusFilled is a fully executed order.
	StatusFilled Status = "filled"
	// StatusCancelled is an order removed by request or for lack of liquidity.
	StatusCancelled Status = "cancelled"
	// StatusRejected is an order that never entered the book.
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// Order represents a single accepted order.
type Order struct {
	ID               string              `json:"order_id"`
	UserID           string              `json:"user_id"`
	Side             Side                `json:"side"`
	Type             OrderType           `json:"order_type"`
	Price            decimal.Decimal     `json:"price"`
	Quantity         int64               `json:"quantity"` // remaining quantity
	OriginalQuantity int64               `json:"original_quantity"`
	LimitPrice       decimal.NullDecimal `json:"limit_price"`
	StopPrice        decimal.NullDecimal `json:"stop_price"`
	StopLossPrice    decimal.NullDecimal `json:"stop_loss_price"`
	Sequence         uint64              `json:"sequence"`
	Status           Status              `json:"status"`
	Triggered        bool                `json:"triggered,omitempty"`
	Timestamp        int64               `json:"timestamp"`
	Limit            *Limit              `json:"-"`
}

// NewOrder creates a new order with the given parameters.
func NewOrder(id, userID string, side Side, orderType OrderType, price decimal.Decimal, quantity int64) *Order {
	return &Order{
		ID:               id,
		UserID:           userID,
		Side:             side,
		Type:             orderType,
		Price:            price,
		Quantity:         quantity,
		OriginalQuantity: quantity,
	}
}

// IsBid checks if the order is a bid (buy) order.
func (o *Order) IsBid() bool {
	return o.Side == SideBuy
}

// IsAsk checks if the order is an ask (sell) order.
func (o *Order) IsAsk() bool {
	return o.Side == SideSell
}

// IsFilled checks if the order is filled (quantity is zero).
func (o *Order) IsFilled() bool {
	return o.Quantity == 0
}

// IsMarket reports whether the order executes at any price.
// A triggered stop order is priced by its limit price and never counts as market.
func (o *Order) IsMarket() bool {
	return o.Type == OrderTypeMarket
}

// IsPendingStop reports whether the order still waits in the stop registry.
func (o *Order) IsPendingStop() bool {
	return o.Type == OrderTypeStopLimit && !o.Triggered
}

// Crosses reports whether the order may execute against a resting order at price.
func (o *Order) Crosses(price decimal.Decimal) bool {
	if o.IsMarket() {
		return true
	}
	if o.IsBid() {
		return o.Price.GreaterThanOrEqual(price)
	}
	return o.Price.LessThanOrEqual(price)
}

// Fill decrements the remaining quantity and moves the status forward.
func (o *Order) Fill(quantity int64) {
	o.Quantity -= quantity
	if o.Quantity == 0 {
		o.Status = StatusFilled
		return
	}
	o.Status = StatusPartiallyFilled
}

// StopTriggeredBy reports whether a trade at price fires this stop order.
// Buy stops fire at or above the stop price, sell stops at or below.
func (o *Order) StopTriggeredBy(price decimal.Decimal) bool {
	if !o.StopPrice.Valid {
		return false
	}
	if o.IsBid() {
		return price.GreaterThanOrEqual(o.StopPrice.Decimal)
	}
	return price.LessThanOrEqual(o.StopPrice.Decimal)
}

// Promote turns a triggered stop order into an active limit order at its limit price.
// The new sequence becomes its time priority on the book.
func (o *Order) Promote(sequence uint64) {
	o.Triggered = true
	o.Price = o.LimitPrice.Decimal
	o.Sequence = sequence
	o.Status = StatusResting
}
