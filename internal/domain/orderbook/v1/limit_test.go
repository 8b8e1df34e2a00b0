package orderbookv1

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a test order resting at the given sequence
func createTestOrder(id string, quantity int64, side Side, sequence uint64) *Order {
	order := NewOrder(id, "user-"+id, side, OrderTypeLimit, decimal.NewFromInt(100), quantity)
	order.Sequence = sequence
	order.Status = StatusResting
	return order
}

func TestNewLimit(t *testing.T) {
	limit := NewLimit(decimal.NewFromInt(100))

	assert.NotNil(t, limit)
	assert.True(t, decimal.NewFromInt(100).Equal(limit.Price))
	assert.Equal(t, int64(0), limit.TotalVolume)
	assert.Empty(t, limit.Orders)
	assert.True(t, limit.IsEmpty())
	assert.Nil(t, limit.Head())
}

func TestLimit_AddOrder(t *testing.T) {
	limit := NewLimit(decimal.NewFromInt(100))

	t.Run("Add valid order", func(t *testing.T) {
		order := createTestOrder("o1", 10, SideBuy, 1)
		err := limit.AddOrder(order)

		require.NoError(t, err)
		assert.Equal(t, 1, limit.OrderCount())
		assert.Equal(t, int64(10), limit.TotalVolume)
		assert.Equal(t, limit, order.Limit)
		assert.Equal(t, order, limit.Head())
	})

	t.Run("Add nil order", func(t *testing.T) {
		err := limit.AddOrder(nil)
		assert.ErrorIs(t, err, ErrNilOrder)
	})

	t.Run("Add order with zero size", func(t *testing.T) {
		order := createTestOrder("o2", 0, SideBuy, 2)
		err := limit.AddOrder(order)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})
}

func TestLimit_RemoveOrder(t *testing.T) {
	limit := NewLimit(decimal.NewFromInt(100))
	first := createTestOrder("o1", 10, SideBuy, 1)
	middle := createTestOrder("o2", 20, SideBuy, 2)
	last := createTestOrder("o3", 30, SideBuy, 3)

	require.NoError(t, limit.AddOrder(first))
	require.NoError(t, limit.AddOrder(middle))
	require.NoError(t, limit.AddOrder(last))

	t.Run("Remove keeps arrival order of the rest", func(t *testing.T) {
		require.NoError(t, limit.RemoveOrder(middle))

		assert.Equal(t, []*Order{first, last}, limit.GetOrders())
		assert.Equal(t, int64(40), limit.TotalVolume)
		assert.Nil(t, middle.Limit)
		assert.NoError(t, limit.Validate())
	})

	t.Run("Remove unknown order", func(t *testing.T) {
		err := limit.RemoveOrder(middle)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("Remove nil order", func(t *testing.T) {
		err := limit.RemoveOrder(nil)
		assert.ErrorIs(t, err, ErrNilOrder)
	})
}

func TestLimit_Fill_Simple(t *testing.T) {
	t.Run("Simple partial fill", func(t *testing.T) {
		limit := NewLimit(decimal.NewFromInt(100))

		sellOrder := createTestOrder("seller", 10, SideSell, 1)
		require.NoError(t, limit.AddOrder(sellOrder))

		buyOrder := createTestOrder("buyer", 5, SideBuy, 2)

		matches := limit.Fill(buyOrder)

		require.Equal(t, 1, len(matches))

		match := matches[0]
		assert.Equal(t, int64(5), match.SizeFilled)
		assert.True(t, decimal.NewFromInt(100).Equal(match.Price))
		assert.Equal(t, buyOrder, match.Bid)
		assert.Equal(t, sellOrder, match.Ask)
		assert.Equal(t, sellOrder, match.Resting(buyOrder))

		assert.Equal(t, int64(0), buyOrder.Quantity)
		assert.Equal(t, StatusFilled, buyOrder.Status)
		assert.Equal(t, int64(5), sellOrder.Quantity)
		assert.Equal(t, StatusPartiallyFilled, sellOrder.Status)

		assert.Equal(t, 1, limit.OrderCount())
		assert.Equal(t, int64(5), limit.TotalVolume)
		assert.NoError(t, limit.Validate())
	})

	t.Run("Exact match", func(t *testing.T) {
		limit := NewLimit(decimal.NewFromInt(100))

		sellOrder := createTestOrder("seller", 10, SideSell, 1)
		require.NoError(t, limit.AddOrder(sellOrder))

		buyOrder := createTestOrder("buyer", 10, SideBuy, 2)

		matches := limit.Fill(buyOrder)

		require.Equal(t, 1, len(matches))
		assert.Equal(t, int64(10), matches[0].SizeFilled)
		assert.True(t, matches[0].AskIsFilled())
		assert.True(t, matches[0].BidIsFilled())

		assert.True(t, limit.IsEmpty())
		assert.Equal(t, int64(0), limit.TotalVolume)
		assert.Nil(t, sellOrder.Limit)
	})
}

func TestLimit_Fill_FIFO(t *testing.T) {
	limit := NewLimit(decimal.NewFromInt(100))

	order1 := createTestOrder("a1", 10, SideSell, 1)
	order2 := createTestOrder("a2", 8, SideSell, 2)
	order3 := createTestOrder("a3", 15, SideSell, 3)

	require.NoError(t, limit.AddOrder(order1))
	require.NoError(t, limit.AddOrder(order2))
	require.NoError(t, limit.AddOrder(order3))

	incomingOrder := createTestOrder("buyer", 25, SideBuy, 4)

	matches := limit.Fill(incomingOrder)

	require.Equal(t, 3, len(matches))
	assert.Equal(t, order1, matches[0].Ask)
	assert.Equal(t, int64(10), matches[0].SizeFilled)
	assert.Equal(t, order2, matches[1].Ask)
	assert.Equal(t, int64(8), matches[1].SizeFilled)
	assert.Equal(t, order3, matches[2].Ask)
	assert.Equal(t, int64(7), matches[2].SizeFilled)

	assert.Equal(t, []*Order{order3}, limit.GetOrders())
	assert.Equal(t, int64(8), limit.TotalVolume)
	assert.True(t, incomingOrder.IsFilled())
	assert.NoError(t, limit.Validate())
}

func TestLimit_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Limit)
	}{
		{name: "volume mismatch", mutate: func(l *Limit) { l.TotalVolume++ }},
		{name: "zero quantity", mutate: func(l *Limit) { l.Orders[0].Quantity = 0; l.TotalVolume = 5 }},
		{name: "terminal status", mutate: func(l *Limit) { l.Orders[0].Status = StatusCancelled }},
		{name: "sequence out of order", mutate: func(l *Limit) { l.Orders[1].Sequence = 1 }},
		{name: "non positive price", mutate: func(l *Limit) { l.Price = decimal.Zero }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			limit := NewLimit(decimal.NewFromInt(100))
			require.NoError(t, limit.AddOrder(createTestOrder("o1", 5, SideBuy, 1)))
			require.NoError(t, limit.AddOrder(createTestOrder("o2", 5, SideBuy, 2)))
			require.NoError(t, limit.Validate())

			tc.mutate(limit)

			assert.Error(t, limit.Validate())
		})
	}
}
