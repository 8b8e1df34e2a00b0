package orderbookv1

import "github.com/shopspring/decimal"

// Match represents a match between an ask and a bid order.
type Match struct {
	Ask        *Order          `json:"ask"`
	Bid        *Order          `json:"bid"`
	SizeFilled int64           `json:"size_filled"`
	Price      decimal.Decimal `json:"price"`
}

// AskIsFilled checks if the ask order is filled.
func (m *Match) AskIsFilled() bool {
	return m.Ask.Quantity <= 0
}

// BidIsFilled checks if the bid order is filled
func (m *Match) BidIsFilled() bool {
	return m.Bid.Quantity <= 0
}

// Resting returns the order that provided liquidity for the given taker.
func (m *Match) Resting(taker *Order) *Order {
	if taker == m.Bid {
		return m.Ask
	}
	return m.Bid
}
