package snapshotv1

import (
	"github.com/shopspring/decimal"

	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

// Snapshot represents the state of one instrument at a specific sequence.
type Snapshot struct {
	Instrument string              `json:"instrument"`
	Sequence   uint64              `json:"sequence"`
	LastPrice  decimal.NullDecimal `json:"last_price"`
	// Orders are the resting orders, level by level, each level in FIFO order.
	Orders []*orderbookv1.Order `json:"orders"`
	// Stops are the pending stop orders in sequence order.
	Stops []*orderbookv1.Order `json:"stops"`
	// Terminal keeps the final status of every order that left the book.
	Terminal  map[string]orderbookv1.Status `json:"terminal"`
	CreatedAt int64                         `json:"created_at"`
}
