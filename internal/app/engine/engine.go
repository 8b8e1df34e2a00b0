package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/muhammadchandra19/matcher/pkg/util"
	"github.com/shopspring/decimal"

	eventv1 "github.com/muhammadchandra19/matcher/internal/domain/event/v1"
	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
	snapshotv1 "github.com/muhammadchandra19/matcher/internal/domain/snapshot/v1"
	"github.com/muhammadchandra19/matcher/internal/infrastructure/metrics"
	"github.com/muhammadchandra19/matcher/internal/usecase/orderbook"
	"github.com/muhammadchandra19/matcher/internal/usecase/stop"
)

// ErrEngineNotRunning is returned for requests sent before Start or after Stop.
var ErrEngineNotRunning = stderrors.New("engine is not running")

// command is a unit of work executed by the actor goroutine.
// done is nil for fire and forget submissions. ack, when set, runs on the
// emitter once the events of the command have been handed to the publisher.
type command struct {
	run  func() []eventv1.Event
	done chan []eventv1.Event
	ack  func()
}

// batch is what the actor hands to the emitter for one command.
type batch struct {
	events []eventv1.Event
	ack    func()
}

// Engine owns the book of one instrument. Every state change runs on a single
// actor goroutine, events leave through an ordered emitter goroutine.
type Engine struct {
	instrument    string
	orderbook     *orderbook.Orderbook
	stops         *stop.Monitor
	publisher     eventv1.Publisher
	snapshotStore snapshotv1.Store
	metrics       *metrics.Metrics
	logger        *logger.Logger
	options       *Options

	// actor state
	sequence  uint64
	lastPrice decimal.NullDecimal
	terminal  map[string]orderbookv1.Status
	halted    error
	touched   []*orderbookv1.Order

	isHalted             atomic.Bool
	currentSequence      atomic.Uint64
	lastSnapshotSequence atomic.Uint64

	commands         chan command
	outbox           chan batch
	snapshotRequests chan struct{}
	quit             chan struct{}
	emitterDone      chan struct{}

	mu      sync.RWMutex
	storeMu sync.Mutex
	started bool
	stopped bool

	ctx context.Context
	wg  sync.WaitGroup
}

// NewEngine creates an engine for instrument. snapshotStore may be nil, in
// which case nothing is loaded or stored.
func NewEngine(
	instrument string,
	publisher eventv1.Publisher,
	snapshotStore snapshotv1.Store,
	metrics *metrics.Metrics,
	log *logger.Logger,
	options *Options,
) *Engine {
	if options == nil {
		options = DefaultEngineOptions()
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if options.QueueSize <= 0 {
		options.QueueSize = DefaultEngineOptions().QueueSize
	}

	return &Engine{
		instrument:    instrument,
		orderbook:     orderbook.NewOrderbook(),
		stops:         stop.NewMonitor(),
		publisher:     publisher,
		snapshotStore: snapshotStore,
		metrics:       metrics,
		logger:        log.WithFields(logger.NewField("instrument", instrument)),
		options:       options,
		terminal:      make(map[string]orderbookv1.Status),

		commands:         make(chan command, options.QueueSize),
		outbox:           make(chan batch, options.QueueSize),
		snapshotRequests: make(chan struct{}, 1),
		quit:             make(chan struct{}),
		emitterDone:      make(chan struct{}),
	}
}

// Instrument returns the instrument served by the engine.
func (e *Engine) Instrument() string {
	return e.instrument
}

// Start restores the latest snapshot and starts the processing routines.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	// in-flight publishing must survive the caller's cancellation until Stop drains
	e.ctx = util.WithInstrument(context.WithoutCancel(ctx), e.instrument)

	if err := e.loadSnapshot(ctx); err != nil {
		return err
	}

	e.wg.Add(1)
	go e.run()
	go e.runEmitter()

	if e.snapshotsEnabled() {
		e.wg.Add(1)
		go e.runSnapshotManager()
	}

	e.started = true
	e.logger.Info("Engine started", logger.NewField("sequence", e.sequence))

	return nil
}

// Stop stops accepting requests, drains every queued command, publishes the
// remaining events and stores a final snapshot.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.mu.Unlock()

	close(e.quit)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		<-e.emitterDone
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Engine stopped gracefully", logger.NewField("sequence", e.currentSequence.Load()))
		return nil
	case <-ctx.Done():
		e.logger.Warn("Engine stop timeout exceeded")
		return ctx.Err()
	}
}

// Submit applies req and waits for the events it produced.
func (e *Engine) Submit(ctx context.Context, req *orderbookv1.PlaceOrderRequest) ([]eventv1.Event, error) {
	return e.query(ctx, func() []eventv1.Event { return e.handle(req) })
}

// Enqueue queues req without waiting. Its events are published in order,
// then ack is called if it is not nil.
func (e *Engine) Enqueue(ctx context.Context, req *orderbookv1.PlaceOrderRequest, ack func()) error {
	_, err := e.enqueue(ctx, command{run: func() []eventv1.Event { return e.handle(req) }, ack: ack}, false)
	return err
}

// Cancel cancels orderID and waits for the resulting event.
func (e *Engine) Cancel(ctx context.Context, orderID string) ([]eventv1.Event, error) {
	return e.Submit(ctx, &orderbookv1.PlaceOrderRequest{OrderID: orderID, Action: orderbookv1.ActionCancel})
}

// Reject queues a rejection for a message that never became a request,
// keeping it ordered with the other events of the instrument. ack is called
// like for Enqueue.
func (e *Engine) Reject(ctx context.Context, orderID string, cause error, ack func()) error {
	_, err := e.enqueue(ctx, command{run: func() []eventv1.Event {
		return []eventv1.Event{eventv1.NewRejected(e.instrument, orderID, cause, e.now())}
	}, ack: ack}, false)
	return err
}

// Best returns the best level of side, or nil when the side is empty.
func (e *Engine) Best(ctx context.Context, side orderbookv1.Side) (*orderbookv1.PriceLevel, error) {
	var level *orderbookv1.PriceLevel
	_, err := e.query(ctx, func() []eventv1.Event {
		if best := e.orderbook.Best(side); best != nil {
			levels := orderbookv1.Limits{best}.ToPriceLevels()
			level = &levels[0]
		}
		return nil
	})
	return level, err
}

// Depth returns up to levels aggregated price levels per side.
func (e *Engine) Depth(ctx context.Context, levels int) (orderbookv1.Depth, error) {
	var depth orderbookv1.Depth
	_, err := e.query(ctx, func() []eventv1.Event {
		depth = e.orderbook.Depth(levels)
		return nil
	})
	return depth, err
}

// Sequence returns the last sequence number assigned.
func (e *Engine) Sequence() uint64 {
	return e.currentSequence.Load()
}

// Halted reports whether an invariant violation stopped the instrument.
func (e *Engine) Halted() bool {
	return e.isHalted.Load()
}

// Healthy implements healthcheck.Checker.
func (e *Engine) Healthy() error {
	if e.Halted() {
		return haltedError()
	}
	return nil
}

// query runs fn on the actor and waits for it.
func (e *Engine) query(ctx context.Context, fn func() []eventv1.Event) ([]eventv1.Event, error) {
	return e.enqueue(ctx, command{run: fn}, true)
}

// enqueue hands cmd to the actor. Senders hold the read lock so Stop cannot
// close the queue under them: every accepted command is executed.
func (e *Engine) enqueue(ctx context.Context, cmd command, wait bool) ([]eventv1.Event, error) {
	if wait {
		cmd.done = make(chan []eventv1.Event, 1)
	}

	e.mu.RLock()
	if !e.started || e.stopped {
		e.mu.RUnlock()
		return nil, ErrEngineNotRunning
	}
	select {
	case e.commands <- cmd:
		e.mu.RUnlock()
	case <-ctx.Done():
		e.mu.RUnlock()
		return nil, ctx.Err()
	}

	if !wait {
		return nil, nil
	}

	select {
	case events := <-cmd.done:
		return events, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run is the actor loop. On quit it drains the queue before exiting.
func (e *Engine) run() {
	defer e.wg.Done()
	defer close(e.outbox)

	for {
		select {
		case cmd := <-e.commands:
			e.execute(cmd)
		case <-e.quit:
			for {
				select {
				case cmd := <-e.commands:
					e.execute(cmd)
				default:
					e.storeFinalSnapshot()
					return
				}
			}
		}
	}
}

func (e *Engine) execute(cmd command) {
	events := cmd.run()
	e.currentSequence.Store(e.sequence)

	if len(events) > 0 || cmd.ack != nil {
		e.outbox <- batch{events: events, ack: cmd.ack}
	}
	if cmd.done != nil {
		cmd.done <- events
	}

	if e.shouldCreateSnapshot() {
		select {
		case e.snapshotRequests <- struct{}{}:
		default:
		}
	}
}

// runEmitter publishes event batches in the order the actor produced them.
// A batch is acknowledged even when publishing fails: the command is already
// applied to the book, so holding back its ack would only stall later ones.
func (e *Engine) runEmitter() {
	defer close(e.emitterDone)

	for b := range e.outbox {
		if len(b.events) > 0 {
			e.metrics.ObserveEvents(b.events)

			if err := e.publisher.Publish(e.ctx, b.events...); err != nil {
				e.metrics.PublishFailed(e.instrument)
				e.logger.ErrorContext(e.ctx, err,
					logger.NewField("action", "publish_events"),
					logger.NewField("count", len(b.events)),
				)
			}
		}
		if b.ack != nil {
			b.ack()
		}
	}
}

func (e *Engine) now() int64 {
	return e.options.Clock().UnixNano()
}
