package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	eventv1 "github.com/muhammadchandra19/matcher/internal/domain/event/v1"
	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

// randomRequest draws a request around a mid price of 100.
func randomRequest(rng *rand.Rand, id string, known []string) *orderbookv1.PlaceOrderRequest {
	side := orderbookv1.SideBuy
	if rng.IntN(2) == 0 {
		side = orderbookv1.SideSell
	}
	p := func() string { return fmt.Sprintf("%d", 95+rng.IntN(11)) }
	quantity := int64(1 + rng.IntN(10))

	switch n := rng.IntN(20); {
	case n < 2 && len(known) > 0:
		return &orderbookv1.PlaceOrderRequest{OrderID: known[rng.IntN(len(known))], Action: orderbookv1.ActionCancel}
	case n < 5:
		return marketRequest(id, side, quantity)
	case n < 8:
		return stopRequest(id, side, p(), p(), quantity)
	default:
		return limitRequest(id, side, p(), quantity)
	}
}

func TestEngine_RandomOrderFlowKeepsInvariants(t *testing.T) {
	f := setupTestFixture(t)
	e := createTestEngine(t, f, testOptions())
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 42))

	var (
		known     []string
		original  = make(map[string]int64)
		filled    = make(map[string]int64)
		sequences = make(map[string]uint64)
		sides     = make(map[string]orderbookv1.Side)
	)

	for i := range 3000 {
		id := fmt.Sprintf("o%d", i)
		req := randomRequest(rng, id, known)

		events, err := e.Submit(ctx, req)
		require.NoError(t, err)
		require.NotEmpty(t, events)

		if !req.IsCancel() {
			known = append(known, id)
			original[id] = req.Quantity.Decimal.IntPart()
			sides[id] = req.Side
		}

		var (
			taker        string
			lastPrice    decimal.Decimal
			lastSequence uint64
		)
		for _, event := range events {
			switch event.Type {
			case eventv1.TypeAccepted, eventv1.TypeStopTriggered:
				taker = event.OrderID
				sequences[event.OrderID] = event.Sequence
				lastSequence = 0
			case eventv1.TypeTrade:
				filled[event.BuyOrderID] += event.Quantity
				filled[event.SellOrderID] += event.Quantity

				resting := event.BuyOrderID
				if resting == taker {
					resting = event.SellOrderID
				}
				require.NotEqual(t, taker, resting)

				// within one pass, prices only get worse for the taker and
				// orders at the same price fill in arrival order
				if lastSequence != 0 {
					if sides[taker] == orderbookv1.SideBuy {
						require.True(t, event.Price.GreaterThanOrEqual(lastPrice))
					} else {
						require.True(t, event.Price.LessThanOrEqual(lastPrice))
					}
					if event.Price.Equal(lastPrice) {
						require.Greater(t, sequences[resting], lastSequence, "FIFO broken at %s", event.Price)
					}
				}
				lastPrice = *event.Price
				lastSequence = sequences[resting]
			}
		}

		var (
			crossed bool
			bookErr error
		)
		_, err = e.query(ctx, func() []eventv1.Event {
			crossed = e.orderbook.Crossed()
			bookErr = e.orderbook.Validate()
			return nil
		})
		require.NoError(t, err)
		require.False(t, crossed, "book crossed after %s", id)
		require.NoError(t, bookErr)
	}

	require.False(t, e.Halted())

	for id, quantity := range filled {
		require.LessOrEqual(t, quantity, original[id], "order %s overfilled", id)
	}

	var resting, pending []orderbookv1.Order
	_, err := e.query(ctx, func() []eventv1.Event {
		for _, order := range e.orderbook.Orders {
			resting = append(resting, *order)
		}
		for _, order := range e.stops.Pending() {
			pending = append(pending, *order)
		}
		return nil
	})
	require.NoError(t, err)

	for _, order := range resting {
		require.Equal(t, original[order.ID], order.Quantity+filled[order.ID], "order %s quantity not conserved", order.ID)
	}
	for _, order := range pending {
		require.Zero(t, filled[order.ID])
	}
}
