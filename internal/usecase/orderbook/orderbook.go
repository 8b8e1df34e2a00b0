package orderbook

import (
	"fmt"

	"github.com/muhammadchandra19/matcher/pkg/errors"

	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
	snapshotv1 "github.com/muhammadchandra19/matcher/internal/domain/snapshot/v1"
)

// Orderbook is the two sided book of one instrument.
// It is owned by a single goroutine and holds no locks.
type Orderbook struct {
	asks   *orderbookv1.BookSide
	bids   *orderbookv1.BookSide
	Orders map[string]*orderbookv1.Order // orderID -> resting order
}

// NewOrderbook creates a new orderbook
func NewOrderbook() *Orderbook {
	return &Orderbook{
		asks:   orderbookv1.NewBookSide(orderbookv1.SideSell),
		bids:   orderbookv1.NewBookSide(orderbookv1.SideBuy),
		Orders: make(map[string]*orderbookv1.Order),
	}
}

func (ob *Orderbook) side(side orderbookv1.Side) *orderbookv1.BookSide {
	if side == orderbookv1.SideBuy {
		return ob.bids
	}
	return ob.asks
}

func (ob *Orderbook) opposite(side orderbookv1.Side) *orderbookv1.BookSide {
	if side == orderbookv1.SideBuy {
		return ob.asks
	}
	return ob.bids
}

func checkIncoming(order *orderbookv1.Order) error {
	if order == nil {
		return fmt.Errorf("order cannot be nil")
	}
	if order.Quantity <= 0 {
		return errors.NewErrorDetails("order size must be positive", string(errors.ValidationError), "quantity")
	}
	if order.ID == "" {
		return errors.NewErrorDetails("order ID cannot be empty", string(errors.ValidationError), "order_id")
	}
	if !order.Side.Valid() {
		return errors.NewErrorDetails("unknown side", string(errors.ValidationError), "side")
	}
	return nil
}

// PlaceLimitOrder matches a limit priced order against the opposite side and
// rests whatever remains at its own price.
func (ob *Orderbook) PlaceLimitOrder(order *orderbookv1.Order) ([]orderbookv1.Match, error) {
	if err := checkIncoming(order); err != nil {
		return nil, err
	}
	if !order.Price.IsPositive() {
		return nil, errors.NewErrorDetails("price must be positive", string(errors.ValidationError), "price")
	}
	if _, exists := ob.Orders[order.ID]; exists {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("order with ID %s already exists", order.ID), string(errors.DuplicateOrderID), "order_id",
		)
	}

	order.Status = orderbookv1.StatusResting
	matches := ob.match(order)

	if !order.IsFilled() {
		if err := ob.side(order.Side).Insert(order); err != nil {
			return matches, err
		}
		ob.Orders[order.ID] = order
	}

	return matches, nil
}

// PlaceMarketOrder matches a market order against the opposite side.
// Market orders never rest: any remainder is marked cancelled.
func (ob *Orderbook) PlaceMarketOrder(order *orderbookv1.Order) ([]orderbookv1.Match, error) {
	if err := checkIncoming(order); err != nil {
		return nil, err
	}

	order.Status = orderbookv1.StatusResting
	matches := ob.match(order)

	if !order.IsFilled() {
		order.Status = orderbookv1.StatusCancelled
	}

	return matches, nil
}

// match walks the opposite side best level first while the order crosses.
// Every fill executes at the resting level's price.
func (ob *Orderbook) match(order *orderbookv1.Order) []orderbookv1.Match {
	opposite := ob.opposite(order.Side)
	var matches []orderbookv1.Match

	for !order.IsFilled() {
		best := opposite.Best()
		if best == nil || !order.Crosses(best.Price) {
			break
		}

		levelMatches := best.Fill(order)
		for i := range levelMatches {
			if resting := levelMatches[i].Resting(order); resting.IsFilled() {
				delete(ob.Orders, resting.ID)
			}
		}
		matches = append(matches, levelMatches...)

		opposite.Prune(best)
	}

	return matches
}

// CancelOrder removes a resting order and returns it marked cancelled.
func (ob *Orderbook) CancelOrder(orderID string) (*orderbookv1.Order, error) {
	if orderID == "" {
		return nil, errors.NewErrorDetails("order ID cannot be empty", string(errors.ValidationError), "order_id")
	}

	order, exists := ob.Orders[orderID]
	if !exists {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("order with ID %s does not exist", orderID), string(errors.OrderNotFound), "order_id",
		)
	}

	if err := ob.side(order.Side).Remove(order); err != nil {
		return nil, err
	}

	delete(ob.Orders, orderID)
	order.Status = orderbookv1.StatusCancelled

	return order, nil
}

// Get returns the resting order with the given id, or nil.
func (ob *Orderbook) Get(orderID string) *orderbookv1.Order {
	return ob.Orders[orderID]
}

// Len returns the number of resting orders.
func (ob *Orderbook) Len() int {
	return len(ob.Orders)
}

// Best returns the best level of the given side, or nil when the side is empty.
func (ob *Orderbook) Best(side orderbookv1.Side) *orderbookv1.Limit {
	return ob.side(side).Best()
}

// Asks returns ask limits sorted by price (ascending)
func (ob *Orderbook) Asks() orderbookv1.Limits {
	return ob.asks.Levels(0)
}

// Bids returns bid limits sorted by price (descending)
func (ob *Orderbook) Bids() orderbookv1.Limits {
	return ob.bids.Levels(0)
}

// Depth aggregates up to levels price levels per side. levels <= 0 returns the full book.
func (ob *Orderbook) Depth(levels int) orderbookv1.Depth {
	return orderbookv1.Depth{
		Bids: ob.bids.Levels(levels).ToPriceLevels(),
		Asks: ob.asks.Levels(levels).ToPriceLevels(),
	}
}

// AskTotalVolume returns total ask volume
func (ob *Orderbook) AskTotalVolume() int64 {
	return ob.asks.Volume()
}

// BidTotalVolume returns total bid volume
func (ob *Orderbook) BidTotalVolume() int64 {
	return ob.bids.Volume()
}

// Crossed reports whether the best bid is at or above the best ask.
func (ob *Orderbook) Crossed() bool {
	bid, ask := ob.bids.Best(), ob.asks.Best()
	if bid == nil || ask == nil {
		return false
	}
	return bid.Price.GreaterThanOrEqual(ask.Price)
}

// Validate checks the book invariants: not crossed, every level consistent
// and the order index in sync with the levels.
func (ob *Orderbook) Validate() error {
	if ob.Crossed() {
		return fmt.Errorf("book crossed: best bid %s >= best ask %s", ob.bids.Best().Price, ob.asks.Best().Price)
	}
	if err := ob.bids.Validate(); err != nil {
		return fmt.Errorf("bids: %w", err)
	}
	if err := ob.asks.Validate(); err != nil {
		return fmt.Errorf("asks: %w", err)
	}

	indexed := 0
	for _, side := range []*orderbookv1.BookSide{ob.bids, ob.asks} {
		for _, limit := range side.Levels(0) {
			for _, order := range limit.Orders {
				if ob.Orders[order.ID] != order {
					return fmt.Errorf("order %s at %s missing from index", order.ID, limit.Price)
				}
				indexed++
			}
		}
	}
	if indexed != len(ob.Orders) {
		return fmt.Errorf("order index holds %d orders, levels hold %d", len(ob.Orders), indexed)
	}

	return nil
}

// CheckTouched checks what one command can break without walking the book:
// the sides are not crossed, both best levels are live, and every given
// order either rests with a positive quantity on an indexed level or is
// gone from the book. Validate remains the full check.
func (ob *Orderbook) CheckTouched(orders ...*orderbookv1.Order) error {
	if ob.Crossed() {
		return fmt.Errorf("book crossed: best bid %s >= best ask %s", ob.bids.Best().Price, ob.asks.Best().Price)
	}

	for _, side := range []*orderbookv1.BookSide{ob.bids, ob.asks} {
		best := side.Best()
		if best == nil {
			continue
		}
		if best.IsEmpty() || best.TotalVolume <= 0 {
			return fmt.Errorf("%s: empty best level left at %s", side.Side(), best.Price)
		}
		if head := best.Head(); head.Quantity <= 0 {
			return fmt.Errorf("%s: order %s at %s has size %d", side.Side(), head.ID, best.Price, head.Quantity)
		}
	}

	for _, order := range orders {
		if order == nil {
			continue
		}

		limit := order.Limit
		if limit == nil {
			if ob.Orders[order.ID] == order {
				return fmt.Errorf("order %s indexed but on no level", order.ID)
			}
			continue
		}

		if ob.Orders[order.ID] != order {
			return fmt.Errorf("order %s at %s missing from index", order.ID, limit.Price)
		}
		if order.Quantity <= 0 {
			return fmt.Errorf("order %s at %s has size %d", order.ID, limit.Price, order.Quantity)
		}
		if order.Status != orderbookv1.StatusResting && order.Status != orderbookv1.StatusPartiallyFilled {
			return fmt.Errorf("order %s at %s has status %s", order.ID, limit.Price, order.Status)
		}
		if limit.TotalVolume < order.Quantity {
			return fmt.Errorf("volume mismatch at %s: level holds %d, order %s holds %d",
				limit.Price, limit.TotalVolume, order.ID, order.Quantity)
		}
		if ob.side(order.Side).Get(limit.Price) != limit {
			return fmt.Errorf("order %s rests on a detached level at %s", order.ID, limit.Price)
		}
	}

	return nil
}

// CreateSnapshot copies the resting orders, bids then asks, best level first
// and FIFO within a level. The copies are safe to hand to another goroutine.
func (ob *Orderbook) CreateSnapshot() *snapshotv1.Snapshot {
	orders := make([]*orderbookv1.Order, 0, len(ob.Orders))

	for _, side := range []*orderbookv1.BookSide{ob.bids, ob.asks} {
		for _, limit := range side.Levels(0) {
			for _, order := range limit.Orders {
				cp := *order
				cp.Limit = nil
				orders = append(orders, &cp)
			}
		}
	}

	return &snapshotv1.Snapshot{
		Orders: orders,
	}
}

// RestoreOrderbook restores the orderbook from a snapshot
func (ob *Orderbook) RestoreOrderbook(snapshot *snapshotv1.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	// Clear current state
	ob.asks = orderbookv1.NewBookSide(orderbookv1.SideSell)
	ob.bids = orderbookv1.NewBookSide(orderbookv1.SideBuy)
	ob.Orders = make(map[string]*orderbookv1.Order)

	for _, bookOrder := range snapshot.Orders {
		if bookOrder == nil {
			return fmt.Errorf("nil order in snapshot")
		}
		if _, exists := ob.Orders[bookOrder.ID]; exists {
			return fmt.Errorf("duplicate order %s in snapshot", bookOrder.ID)
		}

		order := *bookOrder
		order.Limit = nil
		if err := ob.side(order.Side).Insert(&order); err != nil {
			return fmt.Errorf("failed to restore order %s: %w", order.ID, err)
		}
		ob.Orders[order.ID] = &order
	}

	return ob.Validate()
}
