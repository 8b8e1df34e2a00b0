package orderbook

import (
	"fmt"
	"testing"

	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

var sequence uint64

// Helper function to create a limit order with the next sequence
func createTestOrder(orderID string, side orderbookv1.Side, price string, quantity int64) *orderbookv1.Order {
	sequence++
	order := orderbookv1.NewOrder(orderID, "user-"+orderID, side, orderbookv1.OrderTypeLimit, decimal.RequireFromString(price), quantity)
	order.Sequence = sequence
	return order
}

func createMarketOrder(orderID string, side orderbookv1.Side, quantity int64) *orderbookv1.Order {
	order := createTestOrder(orderID, side, "0", quantity)
	order.Type = orderbookv1.OrderTypeMarket
	return order
}

func place(t *testing.T, ob *Orderbook, order *orderbookv1.Order) []orderbookv1.Match {
	t.Helper()
	matches, err := ob.PlaceLimitOrder(order)
	require.NoError(t, err)
	require.NoError(t, ob.Validate())
	return matches
}

// Test 1: Basic constructor
func TestNewOrderbook(t *testing.T) {
	ob := NewOrderbook()

	assert.NotNil(t, ob)
	assert.Equal(t, 0, ob.Len())
	assert.Nil(t, ob.Best(orderbookv1.SideBuy))
	assert.Nil(t, ob.Best(orderbookv1.SideSell))
	assert.False(t, ob.Crossed())
	assert.NoError(t, ob.Validate())
}

// Test 2: Place a single limit order
func TestOrderbook_PlaceLimitOrder_Basic(t *testing.T) {
	ob := NewOrderbook()

	order := createTestOrder("order1", orderbookv1.SideSell, "10000", 10)
	matches := place(t, ob, order)

	assert.Empty(t, matches)
	assert.Equal(t, 1, ob.Len())
	assert.Len(t, ob.Asks(), 1)
	assert.Len(t, ob.Bids(), 0)
	assert.Equal(t, orderbookv1.StatusResting, order.Status)

	limit := ob.Best(orderbookv1.SideSell)
	require.NotNil(t, limit)
	assert.Equal(t, "10000", limit.Price.String())
	assert.Equal(t, 1, limit.OrderCount())
	assert.Equal(t, int64(10), limit.TotalVolume)
}

// Test 3: Place multiple orders at same price
func TestOrderbook_SamePriceLevel(t *testing.T) {
	ob := NewOrderbook()

	place(t, ob, createTestOrder("order1", orderbookv1.SideSell, "10000", 10))
	place(t, ob, createTestOrder("order2", orderbookv1.SideSell, "10000", 5))

	assert.Equal(t, 2, ob.Len())
	assert.Len(t, ob.Asks(), 1)
	assert.Equal(t, int64(15), ob.AskTotalVolume())
}

// Test 4: Crossing limit order executes at the resting price and rests its remainder
func TestOrderbook_PlaceLimitOrder_Crossing(t *testing.T) {
	ob := NewOrderbook()

	buy := createTestOrder("buy1", orderbookv1.SideBuy, "100", 5)
	place(t, ob, buy)

	sell := createTestOrder("sell1", orderbookv1.SideSell, "95", 3)
	matches := place(t, ob, sell)

	require.Len(t, matches, 1)
	assert.Equal(t, "100", matches[0].Price.String())
	assert.Equal(t, int64(3), matches[0].SizeFilled)
	assert.Equal(t, buy, matches[0].Bid)
	assert.Equal(t, sell, matches[0].Ask)

	assert.Equal(t, int64(2), buy.Quantity)
	assert.Equal(t, orderbookv1.StatusPartiallyFilled, buy.Status)
	assert.Equal(t, orderbookv1.StatusFilled, sell.Status)
	assert.Nil(t, ob.Get("sell1"))
	assert.Equal(t, buy, ob.Get("buy1"))
}

// Test 5: Limit order sweeps several levels then rests
func TestOrderbook_PlaceLimitOrder_SweepAndRest(t *testing.T) {
	ob := NewOrderbook()

	place(t, ob, createTestOrder("sell1", orderbookv1.SideSell, "100", 2))
	place(t, ob, createTestOrder("sell2", orderbookv1.SideSell, "101", 2))
	place(t, ob, createTestOrder("sell3", orderbookv1.SideSell, "103", 2))

	buy := createTestOrder("buy1", orderbookv1.SideBuy, "102", 6)
	matches := place(t, ob, buy)

	require.Len(t, matches, 2)
	assert.Equal(t, "100", matches[0].Price.String())
	assert.Equal(t, "101", matches[1].Price.String())

	assert.Equal(t, int64(2), buy.Quantity)
	assert.Equal(t, "102", ob.Best(orderbookv1.SideBuy).Price.String())
	assert.Equal(t, "103", ob.Best(orderbookv1.SideSell).Price.String())
	assert.False(t, ob.Crossed())
}

// Test 6: Buy market order across multiple ask levels
func TestOrderbook_BuyMarketOrderMultipleFills(t *testing.T) {
	ob := NewOrderbook()

	sellOrder1 := createTestOrder("sell1", orderbookv1.SideSell, "10000", 5)
	sellOrder2 := createTestOrder("sell2", orderbookv1.SideSell, "10100", 3)
	sellOrder3 := createTestOrder("sell3", orderbookv1.SideSell, "10200", 7)
	place(t, ob, sellOrder1)
	place(t, ob, sellOrder2)
	place(t, ob, sellOrder3)

	buyOrder := createMarketOrder("buy1", orderbookv1.SideBuy, 12)
	matches, err := ob.PlaceMarketOrder(buyOrder)

	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, int64(5), matches[0].SizeFilled)
	assert.Equal(t, int64(3), matches[1].SizeFilled)
	assert.Equal(t, int64(4), matches[2].SizeFilled)

	assert.Equal(t, "10000", matches[0].Price.String())
	assert.Equal(t, "10100", matches[1].Price.String())
	assert.Equal(t, "10200", matches[2].Price.String())

	assert.Equal(t, int64(0), sellOrder1.Quantity)
	assert.Equal(t, int64(0), sellOrder2.Quantity)
	assert.Equal(t, int64(3), sellOrder3.Quantity)
	assert.Equal(t, orderbookv1.StatusFilled, buyOrder.Status)
	assert.Equal(t, 1, ob.Len())
	assert.NoError(t, ob.Validate())
}

// Test 7: Market order against an empty side never rests
func TestOrderbook_MarketOrderWithoutLiquidity(t *testing.T) {
	ob := NewOrderbook()

	order := createMarketOrder("buy1", orderbookv1.SideBuy, 10)
	matches, err := ob.PlaceMarketOrder(order)

	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, orderbookv1.StatusCancelled, order.Status)
	assert.Equal(t, int64(10), order.Quantity)
	assert.Equal(t, 0, ob.Len())
}

// Test 8: FIFO inside a level
func TestOrderbook_FIFOWithinLevel(t *testing.T) {
	ob := NewOrderbook()

	first := createTestOrder("sell1", orderbookv1.SideSell, "50", 4)
	second := createTestOrder("sell2", orderbookv1.SideSell, "50", 4)
	third := createTestOrder("sell3", orderbookv1.SideSell, "50", 4)
	place(t, ob, first)
	place(t, ob, second)
	place(t, ob, third)

	_, err := ob.CancelOrder("sell2")
	require.NoError(t, err)

	matches := place(t, ob, createTestOrder("buy1", orderbookv1.SideBuy, "50", 6))

	require.Len(t, matches, 2)
	assert.Equal(t, first, matches[0].Ask)
	assert.Equal(t, third, matches[1].Ask)
	assert.Equal(t, int64(2), third.Quantity)
}

// Test 9: Cancel order
func TestOrderbook_CancelOrder(t *testing.T) {
	ob := NewOrderbook()

	place(t, ob, createTestOrder("order1", orderbookv1.SideSell, "10000", 10))

	cancelled, err := ob.CancelOrder("order1")
	require.NoError(t, err)
	assert.Equal(t, orderbookv1.StatusCancelled, cancelled.Status)
	assert.Equal(t, 0, ob.Len())
	assert.Len(t, ob.Asks(), 0)

	_, err = ob.CancelOrder("order1")
	assert.True(t, errors.ErrorCodeEquals(err, errors.OrderNotFound))
}

// Test 10: Error cases
func TestOrderbook_ErrorCases(t *testing.T) {
	ob := NewOrderbook()

	t.Run("Nil order", func(t *testing.T) {
		_, err := ob.PlaceLimitOrder(nil)
		assert.Error(t, err)
	})

	t.Run("Invalid price", func(t *testing.T) {
		_, err := ob.PlaceLimitOrder(createTestOrder("order1", orderbookv1.SideSell, "0", 10))
		assert.True(t, errors.ErrorCodeEquals(err, errors.ValidationError))
	})

	t.Run("Duplicate resting id", func(t *testing.T) {
		place(t, ob, createTestOrder("dup", orderbookv1.SideSell, "10", 1))
		_, err := ob.PlaceLimitOrder(createTestOrder("dup", orderbookv1.SideSell, "11", 1))
		assert.True(t, errors.ErrorCodeEquals(err, errors.DuplicateOrderID))
	})

	t.Run("Cancel empty id", func(t *testing.T) {
		_, err := ob.CancelOrder("")
		assert.Error(t, err)
	})
}

// Test 11: Depth aggregates levels best first
func TestOrderbook_Depth(t *testing.T) {
	ob := NewOrderbook()

	place(t, ob, createTestOrder("b1", orderbookv1.SideBuy, "99", 1))
	place(t, ob, createTestOrder("b2", orderbookv1.SideBuy, "99", 2))
	place(t, ob, createTestOrder("b3", orderbookv1.SideBuy, "98", 3))
	place(t, ob, createTestOrder("a1", orderbookv1.SideSell, "101", 4))

	depth := ob.Depth(1)
	require.Len(t, depth.Bids, 1)
	require.Len(t, depth.Asks, 1)
	assert.Equal(t, "99", depth.Bids[0].Price.String())
	assert.Equal(t, int64(3), depth.Bids[0].Quantity)
	assert.Equal(t, 2, depth.Bids[0].Orders)

	assert.Len(t, ob.Depth(0).Bids, 2)
	assert.Equal(t, int64(6), ob.BidTotalVolume())
}

// Test 12: Snapshot and restore functionality
func TestOrderbook_SnapshotAndRestore(t *testing.T) {
	ob1 := NewOrderbook()

	place(t, ob1, createTestOrder("sell1", orderbookv1.SideSell, "10000", 10))
	place(t, ob1, createTestOrder("sell2", orderbookv1.SideSell, "10100", 5))
	place(t, ob1, createTestOrder("buy1", orderbookv1.SideBuy, "9900", 8))
	place(t, ob1, createTestOrder("buy2", orderbookv1.SideBuy, "9900", 3))
	place(t, ob1, createTestOrder("buy3", orderbookv1.SideBuy, "9800", 3))

	snapshot := ob1.CreateSnapshot()
	require.Len(t, snapshot.Orders, 5)
	assert.Equal(t, "buy1", snapshot.Orders[0].ID)
	assert.Equal(t, "buy2", snapshot.Orders[1].ID)
	assert.Nil(t, snapshot.Orders[0].Limit)

	// snapshot copies are detached from the live book
	snapshot.Orders[0].Quantity = 1
	assert.Equal(t, int64(8), ob1.Get("buy1").Quantity)
	snapshot.Orders[0].Quantity = 8

	ob2 := NewOrderbook()
	require.NoError(t, ob2.RestoreOrderbook(snapshot))

	assert.Equal(t, ob1.Len(), ob2.Len())
	assert.Equal(t, ob1.Depth(0), ob2.Depth(0))

	matches := place(t, ob2, createTestOrder("sell3", orderbookv1.SideSell, "9900", 9))
	require.Len(t, matches, 2)
	assert.Equal(t, "buy1", matches[0].Bid.ID)
	assert.Equal(t, "buy2", matches[1].Bid.ID)
}

func TestOrderbook_RestoreRejectsCrossedSnapshot(t *testing.T) {
	ob := NewOrderbook()
	bid := createTestOrder("b", orderbookv1.SideBuy, "101", 1)
	ask := createTestOrder("a", orderbookv1.SideSell, "100", 1)
	bid.Status, ask.Status = orderbookv1.StatusResting, orderbookv1.StatusResting

	snapshot := NewOrderbook().CreateSnapshot()
	snapshot.Orders = append(snapshot.Orders, bid, ask)

	assert.Error(t, ob.RestoreOrderbook(snapshot))
	assert.Error(t, ob.RestoreOrderbook(nil))
}

func TestOrderbook_CheckTouched(t *testing.T) {
	testCases := []struct {
		name    string
		corrupt func(ob *Orderbook, deep, best *orderbookv1.Order) []*orderbookv1.Order
		wantErr string
	}{
		{
			name: "consistent book",
			corrupt: func(ob *Orderbook, deep, best *orderbookv1.Order) []*orderbookv1.Order {
				return []*orderbookv1.Order{deep, best}
			},
		},
		{
			name: "touched order with no size",
			corrupt: func(ob *Orderbook, deep, best *orderbookv1.Order) []*orderbookv1.Order {
				deep.Quantity = 0
				return []*orderbookv1.Order{deep}
			},
			wantErr: "has size 0",
		},
		{
			name: "touched order dropped from index",
			corrupt: func(ob *Orderbook, deep, best *orderbookv1.Order) []*orderbookv1.Order {
				delete(ob.Orders, deep.ID)
				return []*orderbookv1.Order{deep}
			},
			wantErr: "missing from index",
		},
		{
			name: "filled order still indexed",
			corrupt: func(ob *Orderbook, deep, best *orderbookv1.Order) []*orderbookv1.Order {
				deep.Limit = nil
				return []*orderbookv1.Order{deep}
			},
			wantErr: "on no level",
		},
		{
			name: "best level drained",
			corrupt: func(ob *Orderbook, deep, best *orderbookv1.Order) []*orderbookv1.Order {
				best.Quantity = 0
				return nil
			},
			wantErr: "has size 0",
		},
		{
			name: "crossed",
			corrupt: func(ob *Orderbook, deep, best *orderbookv1.Order) []*orderbookv1.Order {
				ask := createTestOrder("a1", orderbookv1.SideSell, "90", 1)
				ask.Status = orderbookv1.StatusResting
				require.NoError(t, ob.asks.Insert(ask))
				ob.Orders[ask.ID] = ask
				return nil
			},
			wantErr: "book crossed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ob := NewOrderbook()
			deep := createTestOrder("b1", orderbookv1.SideBuy, "95", 3)
			best := createTestOrder("b2", orderbookv1.SideBuy, "100", 2)
			place(t, ob, deep)
			place(t, ob, best)

			touched := tc.corrupt(ob, deep, best)
			err := ob.CheckTouched(touched...)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestOrderbook_CheckTouchedAfterMatching(t *testing.T) {
	ob := NewOrderbook()
	first := createTestOrder("s1", orderbookv1.SideSell, "100", 2)
	second := createTestOrder("s2", orderbookv1.SideSell, "101", 5)
	place(t, ob, first)
	place(t, ob, second)

	taker := createTestOrder("b1", orderbookv1.SideBuy, "101", 4)
	matches := place(t, ob, taker)
	require.Len(t, matches, 2)

	touched := []*orderbookv1.Order{taker}
	for _, match := range matches {
		touched = append(touched, match.Resting(taker))
	}
	assert.NoError(t, ob.CheckTouched(touched...))
	assert.Nil(t, first.Limit)
	assert.Equal(t, int64(3), second.Quantity)
}

func BenchmarkOrderbook_PlaceLimitOrder(b *testing.B) {
	ob := NewOrderbook()
	for i := 0; i < b.N; i++ {
		side := orderbookv1.SideBuy
		if i%2 == 1 {
			side = orderbookv1.SideSell
		}
		price := fmt.Sprintf("%d", 1000+i%50-25)
		_, _ = ob.PlaceLimitOrder(createTestOrder(fmt.Sprintf("o-%d", i), side, price, int64(1+i%7)))
	}
}
