package stop

import (
	"fmt"
	"slices"

	"github.com/google/btree"
	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/shopspring/decimal"

	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

const registryDegree = 16

// Monitor is the registry of pending stop orders of one instrument.
// Buy stops are kept by ascending stop price and sell stops by descending
// stop price, so the ones closest to firing come first.
// It is owned by a single goroutine and holds no locks.
type Monitor struct {
	buys   *btree.BTreeG[*orderbookv1.Order]
	sells  *btree.BTreeG[*orderbookv1.Order]
	orders map[string]*orderbookv1.Order
}

// NewMonitor creates an empty registry.
func NewMonitor() *Monitor {
	return &Monitor{
		buys: btree.NewG(registryDegree, func(a, b *orderbookv1.Order) bool {
			if c := a.StopPrice.Decimal.Cmp(b.StopPrice.Decimal); c != 0 {
				return c < 0
			}
			return a.Sequence < b.Sequence
		}),
		sells: btree.NewG(registryDegree, func(a, b *orderbookv1.Order) bool {
			if c := a.StopPrice.Decimal.Cmp(b.StopPrice.Decimal); c != 0 {
				return c > 0
			}
			return a.Sequence < b.Sequence
		}),
		orders: make(map[string]*orderbookv1.Order),
	}
}

func (m *Monitor) tree(side orderbookv1.Side) *btree.BTreeG[*orderbookv1.Order] {
	if side == orderbookv1.SideBuy {
		return m.buys
	}
	return m.sells
}

// Add registers a pending stop order.
func (m *Monitor) Add(order *orderbookv1.Order) error {
	if order == nil || !order.IsPendingStop() {
		return fmt.Errorf("only untriggered stop orders can be registered")
	}
	if !order.StopPrice.Valid {
		return errors.NewErrorDetails("is required", string(errors.ValidationError), "stop_price")
	}
	if _, exists := m.orders[order.ID]; exists {
		return errors.NewErrorDetails(
			fmt.Sprintf("stop order with ID %s already exists", order.ID), string(errors.DuplicateOrderID), "order_id",
		)
	}

	order.Status = orderbookv1.StatusPending
	m.orders[order.ID] = order
	m.tree(order.Side).ReplaceOrInsert(order)

	return nil
}

// Cancel removes a pending stop order and returns it marked cancelled.
func (m *Monitor) Cancel(orderID string) (*orderbookv1.Order, bool) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, false
	}

	m.remove(order)
	order.Status = orderbookv1.StatusCancelled

	return order, true
}

func (m *Monitor) remove(order *orderbookv1.Order) {
	m.tree(order.Side).Delete(order)
	delete(m.orders, order.ID)
}

// Get returns the pending stop order with the given id, or nil.
func (m *Monitor) Get(orderID string) *orderbookv1.Order {
	return m.orders[orderID]
}

// Len returns the number of pending stop orders.
func (m *Monitor) Len() int {
	return len(m.orders)
}

// Triggered removes and returns every stop order fired by trades printed
// between low and high, oldest sequence first. Buy stops fire when high
// reaches their stop price, sell stops when low reaches it.
func (m *Monitor) Triggered(low, high decimal.Decimal) []*orderbookv1.Order {
	var fired []*orderbookv1.Order

	m.buys.Ascend(func(order *orderbookv1.Order) bool {
		if !order.StopTriggeredBy(high) {
			return false
		}
		fired = append(fired, order)
		return true
	})
	m.sells.Ascend(func(order *orderbookv1.Order) bool {
		if !order.StopTriggeredBy(low) {
			return false
		}
		fired = append(fired, order)
		return true
	})

	for _, order := range fired {
		m.remove(order)
	}

	sortBySequence(fired)
	return fired
}

// Pending returns the pending stop orders in sequence order.
func (m *Monitor) Pending() []*orderbookv1.Order {
	pending := make([]*orderbookv1.Order, 0, len(m.orders))
	for _, order := range m.orders {
		pending = append(pending, order)
	}

	sortBySequence(pending)
	return pending
}

func sortBySequence(orders []*orderbookv1.Order) {
	slices.SortFunc(orders, func(a, b *orderbookv1.Order) int {
		switch {
		case a.Sequence < b.Sequence:
			return -1
		case a.Sequence > b.Sequence:
			return 1
		}
		return 0
	})
}
