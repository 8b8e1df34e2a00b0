package orderbookv1

import "github.com/shopspring/decimal"

// PriceLevel is an aggregated view of one price level.
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Orders   int             `json:"orders"`
}

// Depth is an aggregated view of both sides of a book, best levels first.
type Depth struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// ToPriceLevels aggregates limits into price levels.
func (ls Limits) ToPriceLevels() []PriceLevel {
	levels := make([]PriceLevel, 0, len(ls))
	for _, l := range ls {
		levels = append(levels, PriceLevel{
			Price:    l.Price,
			Quantity: l.TotalVolume,
			Orders:   l.OrderCount(),
		})
	}
	return levels
}
