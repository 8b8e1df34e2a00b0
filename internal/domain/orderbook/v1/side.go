package orderbookv1

import (
	"fmt"

	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

const levelsDegree = 32

// Limits represents a slice of Limit pointers, representing multiple price levels.
type Limits []*Limit

// BookSide holds the price levels of one side of a book, best level first.
// Bids are ordered by descending price and asks by ascending price.
type BookSide struct {
	side   Side
	levels *btree.BTreeG[*Limit]
}

// NewBookSide creates an empty side of the book.
func NewBookSide(side Side) *BookSide {
	less := func(a, b *Limit) bool { return a.Price.LessThan(b.Price) }
	if side == SideBuy {
		less = func(a, b *Limit) bool { return a.Price.GreaterThan(b.Price) }
	}

	return &BookSide{
		side:   side,
		levels: btree.NewG(levelsDegree, less),
	}
}

// Side returns which side of the book this is.
func (s *BookSide) Side() Side {
	return s.side
}

// Get returns the level at price, or nil.
func (s *BookSide) Get(price decimal.Decimal) *Limit {
	limit, ok := s.levels.Get(&Limit{Price: price})
	if !ok {
		return nil
	}
	return limit
}

// Insert appends the order at the back of its price level, creating the level if needed.
func (s *BookSide) Insert(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}
	if !order.Price.IsPositive() {
		return ErrInvalidPrice
	}

	limit := s.Get(order.Price)
	if limit == nil {
		limit = NewLimit(order.Price)
		if err := limit.AddOrder(order); err != nil {
			return err
		}
		s.levels.ReplaceOrInsert(limit)
		return nil
	}

	return limit.AddOrder(order)
}

// Remove takes the order off its level and prunes the level when it empties.
func (s *BookSide) Remove(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}

	limit := order.Limit
	if limit == nil {
		return ErrOrderNotFound
	}
	if err := limit.RemoveOrder(order); err != nil {
		return err
	}
	s.Prune(limit)

	return nil
}

// Best returns the best price level, or nil when the side is empty.
func (s *BookSide) Best() *Limit {
	limit, ok := s.levels.Min()
	if !ok {
		return nil
	}
	return limit
}

// Prune drops the level if it has no orders left.
func (s *BookSide) Prune(limit *Limit) {
	if limit != nil && limit.IsEmpty() {
		s.levels.Delete(limit)
	}
}

// Levels returns up to depth levels, best first. A depth <= 0 returns every level.
func (s *BookSide) Levels(depth int) Limits {
	limits := make(Limits, 0, s.levels.Len())
	s.levels.Ascend(func(limit *Limit) bool {
		limits = append(limits, limit)
		return depth <= 0 || len(limits) < depth
	})
	return limits
}

// Len returns the number of price levels.
func (s *BookSide) Len() int {
	return s.levels.Len()
}

// Volume returns the quantity resting on this side.
func (s *BookSide) Volume() int64 {
	var total int64
	s.levels.Ascend(func(limit *Limit) bool {
		total += limit.TotalVolume
		return true
	})
	return total
}

// Validate validates every level and the ordering between them.
func (s *BookSide) Validate() error {
	var err error
	s.levels.Ascend(func(limit *Limit) bool {
		if limit.IsEmpty() {
			err = fmt.Errorf("empty level left at %s", limit.Price)
			return false
		}
		err = limit.Validate()
		return err == nil
	})
	return err
}
