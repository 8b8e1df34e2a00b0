package eventv1

import (
	"encoding/json"

	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

// Type discriminates the outbound events.
type Type string

const (
	// TypeAccepted is emitted once per accepted order.
	TypeAccepted Type = "accepted"
	// TypeRejected is emitted for every request that could not be applied.
	TypeRejected Type = "rejected"
	// TypeTrade is emitted once per fill.
	TypeTrade Type = "trade"
	// TypeCancelled is emitted when an order leaves the book without being filled.
	TypeCancelled Type = "cancelled"
	// TypeStopTriggered is emitted when a stop order is promoted to the book.
	TypeStopTriggered Type = "stop_triggered"
)

// Reasons carried by cancelled events.
const (
	ReasonUserRequested = "user_requested"
	ReasonNoLiquidity   = "no_liquidity"
)

// Event is a single outbound engine event. Fields not relevant to Type are omitted on the wire.
type Event struct {
	Type        Type             `json:"type"`
	Instrument  string           `json:"instrument"`
	OrderID     string           `json:"order_id,omitempty"`
	Sequence    uint64           `json:"sequence,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Message     string           `json:"message,omitempty"`
	TradeID     string           `json:"trade_id,omitempty"`
	BuyOrderID  string           `json:"buy_order_id,omitempty"`
	SellOrderID string           `json:"sell_order_id,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    int64            `json:"quantity,omitempty"`
	PromotedTo  *decimal.Decimal `json:"promoted_to,omitempty"`
	Timestamp   int64            `json:"timestamp"`
}

// NewAccepted creates the acknowledgement of an accepted order.
func NewAccepted(instrument string, order *orderbookv1.Order) Event {
	return Event{
		Type:       TypeAccepted,
		Instrument: instrument,
		OrderID:    order.ID,
		Sequence:   order.Sequence,
		Timestamp:  order.Timestamp,
	}
}

// NewRejected creates a rejection carrying the error code as reason.
func NewRejected(instrument, orderID string, err error, timestamp int64) Event {
	return Event{
		Type:       TypeRejected,
		Instrument: instrument,
		OrderID:    orderID,
		Reason:     string(errors.CodeOf(err)),
		Message:    err.Error(),
		Timestamp:  timestamp,
	}
}

// NewTrade creates a trade event from a match. The price is the resting order's level price.
func NewTrade(instrument string, match orderbookv1.Match, timestamp int64) Event {
	price := match.Price
	return Event{
		Type:        TypeTrade,
		Instrument:  instrument,
		TradeID:     ulid.Make().String(),
		BuyOrderID:  match.Bid.ID,
		SellOrderID: match.Ask.ID,
		Price:       &price,
		Quantity:    match.SizeFilled,
		Timestamp:   timestamp,
	}
}

// NewCancelled creates a cancellation event.
func NewCancelled(instrument, orderID, reason string, timestamp int64) Event {
	return Event{
		Type:       TypeCancelled,
		Instrument: instrument,
		OrderID:    orderID,
		Reason:     reason,
		Timestamp:  timestamp,
	}
}

// NewStopTriggered creates the event for a promoted stop order.
func NewStopTriggered(instrument string, order *orderbookv1.Order, timestamp int64) Event {
	limitPrice := order.LimitPrice.Decimal
	return Event{
		Type:       TypeStopTriggered,
		Instrument: instrument,
		OrderID:    order.ID,
		Sequence:   order.Sequence,
		PromotedTo: &limitPrice,
		Timestamp:  timestamp,
	}
}

// ToBytes converts the event to a byte array.
func (e Event) ToBytes() []byte {
	buf, err := json.Marshal(e)
	if err != nil {
		return nil
	}

	return buf
}

// FromBytes converts a byte array to an event.
func FromBytes(data []byte) *Event {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil
	}
	return &event
}
