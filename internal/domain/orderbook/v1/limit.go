package orderbookv1

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNilOrder      = errors.New("order cannot be nil")
	ErrInvalidPrice  = errors.New("price must be positive")
	ErrInvalidSize   = errors.New("size must be positive")
	ErrOrderNotFound = errors.New("order not found in limit")
)

// Limit represents a price level in the order book with associated orders.
// Orders are kept in arrival order, which is ascending sequence order.
// A Limit is owned by a single goroutine and is not safe for concurrent use.
type Limit struct {
	Price       decimal.Decimal `json:"price"`
	Orders      []*Order        `json:"orders"`
	TotalVolume int64           `json:"total_volume"`
}

// NewLimit creates a new Limit with the specified price.
func NewLimit(price decimal.Decimal) *Limit {
	return &Limit{
		Price:  price,
		Orders: make([]*Order, 0),
	}
}

// AddOrder appends an order to the limit and updates the total volume.
func (l *Limit) AddOrder(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}
	if order.Quantity <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, order.Quantity)
	}

	order.Limit = l
	l.Orders = append(l.Orders, order)
	l.TotalVolume += order.Quantity

	return nil
}

// RemoveOrder removes an order from the limit and updates the total volume.
// The relative order of the remaining orders is preserved.
func (l *Limit) RemoveOrder(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}

	for i, o := range l.Orders {
		if o == order {
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			l.TotalVolume -= order.Quantity
			order.Limit = nil
			return nil
		}
	}

	return ErrOrderNotFound
}

// Fill matches the limit with an incoming order and returns matches.
// Resting orders are consumed head first; filled ones leave the level.
func (l *Limit) Fill(incomingOrder *Order) []Match {
	if incomingOrder == nil {
		return nil
	}

	var matches []Match
	consumed := 0

	for _, existingOrder := range l.Orders {
		if incomingOrder.Quantity <= 0 {
			break
		}

		match := l.createMatch(incomingOrder, existingOrder)
		matches = append(matches, match)
		l.TotalVolume -= match.SizeFilled

		if !existingOrder.IsFilled() {
			break
		}
		existingOrder.Limit = nil
		consumed++
	}

	if consumed > 0 {
		l.Orders = append(l.Orders[:0], l.Orders[consumed:]...)
	}

	return matches
}

// createMatch creates a match between incoming and existing order
func (l *Limit) createMatch(incomingOrder, existingOrder *Order) Match {
	var bid, ask *Order

	if incomingOrder.IsBid() {
		bid = incomingOrder
		ask = existingOrder
	} else {
		bid = existingOrder
		ask = incomingOrder
	}

	sizeFilled := min(incomingOrder.Quantity, existingOrder.Quantity)
	incomingOrder.Fill(sizeFilled)
	existingOrder.Fill(sizeFilled)

	return Match{
		Ask:        ask,
		Bid:        bid,
		SizeFilled: sizeFilled,
		Price:      l.Price,
	}
}

// Head returns the oldest order at this limit, or nil.
func (l *Limit) Head() *Order {
	if len(l.Orders) == 0 {
		return nil
	}
	return l.Orders[0]
}

// IsEmpty checks if the limit has no orders
func (l *Limit) IsEmpty() bool {
	return len(l.Orders) == 0
}

// OrderCount returns the number of orders at this limit
func (l *Limit) OrderCount() int {
	return len(l.Orders)
}

// GetOrders returns a copy of the orders slice
func (l *Limit) GetOrders() []*Order {
	orders := make([]*Order, len(l.Orders))
	copy(orders, l.Orders)
	return orders
}

// Validate performs basic validation of the limit's state
func (l *Limit) Validate() error {
	if !l.Price.IsPositive() {
		return fmt.Errorf("%w: limit price %s", ErrInvalidPrice, l.Price)
	}

	var calculatedVolume int64
	var lastSequence uint64
	for i, order := range l.Orders {
		if order == nil {
			return fmt.Errorf("nil order found in limit %s", l.Price)
		}
		if order.Quantity <= 0 {
			return fmt.Errorf("%w: order %s has size %d at %s", ErrInvalidSize, order.ID, order.Quantity, l.Price)
		}
		if order.Status != StatusResting && order.Status != StatusPartiallyFilled {
			return fmt.Errorf("order %s at %s has status %s", order.ID, l.Price, order.Status)
		}
		if i > 0 && order.Sequence <= lastSequence {
			return fmt.Errorf("order %s at %s breaks arrival order", order.ID, l.Price)
		}
		lastSequence = order.Sequence
		calculatedVolume += order.Quantity
	}

	if calculatedVolume != l.TotalVolume {
		return fmt.Errorf("volume mismatch at %s: calculated %d, stored %d", l.Price, calculatedVolume, l.TotalVolume)
	}

	return nil
}
