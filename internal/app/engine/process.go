package engine

import (
	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/shopspring/decimal"

	eventv1 "github.com/muhammadchandra19/matcher/internal/domain/event/v1"
	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

// tradeRange is the lowest and highest price printed by one execution pass.
type tradeRange struct {
	low, high decimal.Decimal
	traded    bool
}

func (r *tradeRange) add(price decimal.Decimal) {
	if !r.traded {
		r.low, r.high, r.traded = price, price, true
		return
	}
	r.low = decimal.Min(r.low, price)
	r.high = decimal.Max(r.high, price)
}

func (r *tradeRange) merge(other tradeRange) {
	if other.traded {
		r.add(other.low)
		r.add(other.high)
	}
}

func haltedError() error {
	return errors.NewErrorDetails("instrument halted after an invariant violation", string(errors.InstrumentHalted), "")
}

// handle runs on the actor goroutine.
func (e *Engine) handle(req *orderbookv1.PlaceOrderRequest) []eventv1.Event {
	if req.IsCancel() {
		return e.cancelOrder(req)
	}
	return e.placeOrder(req)
}

func (e *Engine) reject(orderID string, err error) []eventv1.Event {
	e.logger.DebugContext(e.ctx, "Order rejected",
		logger.NewField("orderID", orderID),
		logger.NewField("reason", errors.CodeOf(err)),
	)
	return []eventv1.Event{eventv1.NewRejected(e.instrument, orderID, err, e.now())}
}

// known reports whether orderID was already accepted on this book, whatever its state.
func (e *Engine) known(orderID string) bool {
	if e.orderbook.Get(orderID) != nil || e.stops.Get(orderID) != nil {
		return true
	}
	_, ok := e.terminal[orderID]
	return ok
}

func (e *Engine) placeOrder(req *orderbookv1.PlaceOrderRequest) []eventv1.Event {
	if e.halted != nil {
		return e.reject(req.OrderID, haltedError())
	}
	if err := req.Validate(); err != nil {
		return e.reject(req.OrderID, err)
	}
	if e.known(req.OrderID) {
		return e.reject(req.OrderID, errors.NewErrorDetails(
			"order id "+req.OrderID+" was already used", string(errors.DuplicateOrderID), "order_id",
		))
	}

	order := req.ToOrder()
	e.sequence++
	order.Sequence = e.sequence
	order.Timestamp = e.now()

	e.logger.DebugContext(e.ctx, "Processing order",
		logger.NewField("orderID", order.ID),
		logger.NewField("userID", order.UserID),
		logger.NewField("side", order.Side),
		logger.NewField("type", order.Type),
		logger.NewField("sequence", order.Sequence),
	)

	if order.IsPendingStop() {
		if err := e.stops.Add(order); err != nil {
			return e.reject(order.ID, err)
		}
		events := []eventv1.Event{eventv1.NewAccepted(e.instrument, order)}

		// a stop whose trigger was already crossed by the last trade fires at once
		if e.lastPrice.Valid {
			events = e.drainStops(events, e.lastPrice.Decimal, e.lastPrice.Decimal)
		}
		return e.checkInvariants(events)
	}

	events := []eventv1.Event{eventv1.NewAccepted(e.instrument, order)}
	events, pass := e.executeOrder(events, order)
	if pass.traded {
		events = e.drainStops(events, pass.low, pass.high)
	}

	return e.checkInvariants(events)
}

// executeOrder matches order against the book and emits its trades, plus a
// no_liquidity cancellation for an unfilled market remainder.
func (e *Engine) executeOrder(events []eventv1.Event, order *orderbookv1.Order) ([]eventv1.Event, tradeRange) {
	var (
		matches []orderbookv1.Match
		err     error
		pass    tradeRange
	)

	if order.IsMarket() {
		matches, err = e.orderbook.PlaceMarketOrder(order)
	} else {
		matches, err = e.orderbook.PlaceLimitOrder(order)
	}

	ts := e.now()
	for _, match := range matches {
		events = append(events, eventv1.NewTrade(e.instrument, match, ts))
		pass.add(match.Price)
		e.lastPrice = decimal.NewNullDecimal(match.Price)

		resting := match.Resting(order)
		if resting.IsFilled() {
			e.retire(resting)
		}
		e.touched = append(e.touched, resting)
	}
	e.touched = append(e.touched, order)

	if len(matches) > 0 {
		e.logger.DebugContext(e.ctx, "Matches executed",
			logger.NewField("orderID", order.ID),
			logger.NewField("matchCount", len(matches)),
			logger.NewField("remaining", order.Quantity),
		)
	}

	if err != nil {
		// the request passed validation, so the book refusing it is a defect
		e.halt(err)
		return events, pass
	}

	switch {
	case order.IsFilled():
		e.retire(order)
	case order.Status == orderbookv1.StatusCancelled:
		e.retire(order)
		events = append(events, eventv1.NewCancelled(e.instrument, order.ID, eventv1.ReasonNoLiquidity, ts))
	}

	return events, pass
}

// drainStops fires the stop orders crossed by trades between low and high.
// Trades printed by promoted orders feed the next round until nothing fires.
func (e *Engine) drainStops(events []eventv1.Event, low, high decimal.Decimal) []eventv1.Event {
	for e.halted == nil {
		fired := e.stops.Triggered(low, high)
		if len(fired) == 0 {
			return events
		}

		var next tradeRange
		for _, order := range fired {
			e.sequence++
			order.Promote(e.sequence)
			events = append(events, eventv1.NewStopTriggered(e.instrument, order, e.now()))

			e.logger.DebugContext(e.ctx, "Stop order triggered",
				logger.NewField("orderID", order.ID),
				logger.NewField("stopPrice", order.StopPrice.Decimal),
				logger.NewField("limitPrice", order.LimitPrice.Decimal),
			)

			var pass tradeRange
			events, pass = e.executeOrder(events, order)
			next.merge(pass)
		}

		if !next.traded {
			return events
		}
		low, high = next.low, next.high
	}

	return events
}

// cancelOrder resolves a cancel against the book, then the stop registry,
// then the orders that already left the book.
func (e *Engine) cancelOrder(req *orderbookv1.PlaceOrderRequest) []eventv1.Event {
	if e.halted != nil {
		return e.reject(req.OrderID, haltedError())
	}
	if err := req.Validate(); err != nil {
		return e.reject(req.OrderID, err)
	}

	orderID := req.OrderID
	if e.orderbook.Get(orderID) != nil {
		order, err := e.orderbook.CancelOrder(orderID)
		if err != nil {
			e.halt(err)
			return e.reject(orderID, haltedError())
		}
		e.retire(order)
		e.touched = append(e.touched, order)
		return e.checkInvariants([]eventv1.Event{
			eventv1.NewCancelled(e.instrument, orderID, eventv1.ReasonUserRequested, e.now()),
		})
	}

	if order, ok := e.stops.Cancel(orderID); ok {
		order.Status = orderbookv1.StatusCancelled
		e.retire(order)
		return e.checkInvariants([]eventv1.Event{
			eventv1.NewCancelled(e.instrument, orderID, eventv1.ReasonUserRequested, e.now()),
		})
	}

	if e.terminal[orderID] == orderbookv1.StatusFilled {
		return e.reject(orderID, errors.NewErrorDetails(
			"order "+orderID+" is already filled", string(errors.OrderAlreadyFilled), "order_id",
		))
	}

	return e.reject(orderID, errors.NewErrorDetails(
		"order "+orderID+" is not open", string(errors.OrderNotFound), "order_id",
	))
}

// retire records the final status of an order that left the book, keeping
// its id reserved and cancels of it answerable.
func (e *Engine) retire(order *orderbookv1.Order) {
	e.terminal[order.ID] = order.Status
}

// checkInvariants checks the book after a state change and halts the
// instrument when it is corrupted. Only the orders the command touched are
// inspected unless ValidateBook asks for a walk of the whole book.
func (e *Engine) checkInvariants(events []eventv1.Event) []eventv1.Event {
	touched := e.touched
	e.touched = e.touched[:0]

	if e.halted == nil {
		var err error
		if e.options.ValidateBook {
			err = e.orderbook.Validate()
		} else {
			err = e.orderbook.CheckTouched(touched...)
		}
		if err != nil {
			e.halt(err)
		}
	}
	clear(touched)

	e.metrics.SetBookSize(e.instrument, e.orderbook.Len(), e.stops.Len())
	return events
}

func (e *Engine) halt(cause error) {
	if e.halted != nil {
		return
	}

	tracer := errors.NewTracer("instrument halted").Wrap(
		errors.NewErrorDetails(cause.Error(), string(errors.InvariantViolation), ""),
	)
	e.halted = tracer
	e.isHalted.Store(true)
	e.metrics.SetHalted(e.instrument, true)

	e.logger.ErrorContext(e.ctx, tracer,
		logger.NewField("action", "check_invariants"),
		logger.NewField("sequence", e.sequence),
	)
}
