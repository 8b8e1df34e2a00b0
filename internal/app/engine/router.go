package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/muhammadchandra19/matcher/pkg/util"
	"golang.org/x/sync/errgroup"

	eventv1 "github.com/muhammadchandra19/matcher/internal/domain/event/v1"
	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
	orderreaderv1 "github.com/muhammadchandra19/matcher/internal/domain/order-reader/v1"
)

const readBackoff = 100 * time.Millisecond

// Factory builds a stopped engine for an instrument.
type Factory func(instrument string) *Engine

// Router shards inbound messages to one engine per instrument.
// With a fixed instrument list, messages for any other instrument are
// rejected; otherwise engines are created on first use.
type Router struct {
	defaultInstrument string
	instruments       []string
	factory           Factory
	publisher         eventv1.Publisher
	logger            *logger.Logger
	clock             func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]*engineEntry
	engines map[string]*Engine
	stopped bool

	offsets     *offsetTracker
	commitStop  chan struct{}
	commitDone  chan struct{}
	stopCommits sync.Once
}

// engineEntry is the slot of an engine while it starts. ready is closed
// once engine or err is set.
type engineEntry struct {
	ready  chan struct{}
	engine *Engine
	err    error
}

// NewRouter creates a router. publisher receives the rejections that no
// engine owns, such as messages for unknown instruments.
func NewRouter(
	defaultInstrument string,
	instruments []string,
	factory Factory,
	publisher eventv1.Publisher,
	log *logger.Logger,
) *Router {
	if len(instruments) > 0 && !slices.Contains(instruments, defaultInstrument) {
		instruments = append(slices.Clone(instruments), defaultInstrument)
	}

	return &Router{
		defaultInstrument: defaultInstrument,
		instruments:       instruments,
		factory:           factory,
		publisher:         publisher,
		logger:            log,
		clock:             time.Now,
		entries:           make(map[string]*engineEntry),
		engines:           make(map[string]*Engine),
		offsets:           newOffsetTracker(),
		commitStop:        make(chan struct{}),
	}
}

// Start starts the engines of the configured instruments in parallel.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	var g errgroup.Group
	for _, instrument := range r.instruments {
		g.Go(func() error {
			_, err := r.Engine(instrument)
			return err
		})
	}
	return g.Wait()
}

// Engine returns the running engine of instrument, starting it when allowed.
// A starting engine loads its snapshot without holding the router lock, so
// other instruments keep flowing; concurrent callers wait for the same start.
func (r *Router) Engine(instrument string) (*Engine, error) {
	if instrument == "" {
		instrument = r.defaultInstrument
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil, ErrEngineNotRunning
	}
	if entry, ok := r.entries[instrument]; ok {
		r.mu.Unlock()
		<-entry.ready
		return entry.engine, entry.err
	}
	if len(r.instruments) > 0 && !slices.Contains(r.instruments, instrument) {
		r.mu.Unlock()
		return nil, errors.NewErrorDetails(
			"instrument "+instrument+" is not served", string(errors.UnknownInstrument), "instrument",
		)
	}

	entry := &engineEntry{ready: make(chan struct{})}
	r.entries[instrument] = entry
	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.Unlock()

	e := r.factory(instrument)
	err := e.Start(ctx)

	var orphan *Engine
	r.mu.Lock()
	switch {
	case err != nil:
		delete(r.entries, instrument)
		entry.err = errors.NewTracer("failed to start engine for " + instrument).Wrap(err)
	case r.stopped:
		// Stop already collected the running engines
		orphan = e
		entry.err = ErrEngineNotRunning
	default:
		entry.engine = e
		r.engines[instrument] = e
	}
	r.mu.Unlock()
	close(entry.ready)

	if orphan != nil {
		if err := orphan.Stop(context.WithoutCancel(ctx)); err != nil {
			r.logger.ErrorContext(ctx, err, logger.NewField("action", "stop_engine"), logger.NewField("instrument", instrument))
		}
	}

	return entry.engine, entry.err
}

// Dispatch queues req on the engine of its instrument. ack, if not nil, is
// called once the events of req are published.
func (r *Router) Dispatch(ctx context.Context, req *orderbookv1.PlaceOrderRequest, ack func()) error {
	e, err := r.Engine(req.Instrument)
	if errors.ErrorCodeEquals(err, errors.UnknownInstrument) {
		return r.rejectUnowned(ctx, req, err, ack)
	}
	if err != nil {
		return err
	}
	return e.Enqueue(ctx, req, ack)
}

// Reject emits a rejection for a message that could not be decoded.
func (r *Router) Reject(ctx context.Context, req *orderbookv1.PlaceOrderRequest, cause error, ack func()) error {
	e, err := r.Engine(req.Instrument)
	if errors.ErrorCodeEquals(err, errors.UnknownInstrument) {
		return r.rejectUnowned(ctx, req, cause, ack)
	}
	if err != nil {
		return err
	}
	return e.Reject(ctx, req.OrderID, cause, ack)
}

func (r *Router) rejectUnowned(ctx context.Context, req *orderbookv1.PlaceOrderRequest, cause error, ack func()) error {
	event := eventv1.NewRejected(req.Instrument, req.OrderID, cause, r.clock().UnixNano())
	err := r.publisher.Publish(ctx, event)
	if ack != nil {
		ack()
	}
	return err
}

// Run reads messages until ctx is cancelled. A message is committed once the
// events of its request, and of every earlier message of its partition, have
// been published. Messages still queued at a crash are read again.
func (r *Router) Run(ctx context.Context, reader orderreaderv1.OrderReader) error {
	r.logger.Info("Starting order processor")
	r.startCommitter(ctx, reader)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Order processor shutting down")
			return nil
		default:
		}

		msg, req, err := reader.ReadMessage(ctx)
		if err != nil && req == nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.ErrorContext(ctx, err, logger.NewField("action", "read_order_message"))
			time.Sleep(readBackoff)
			continue
		}

		tracked := r.offsets.track(msg)
		ack := func() { r.offsets.done(tracked) }

		msgCtx := util.WithRequestID(ctx, req.OrderID)
		if err != nil {
			err = r.Reject(msgCtx, req, err, ack)
		} else {
			err = r.Dispatch(msgCtx, req, ack)
		}
		if err != nil {
			r.logger.ErrorContext(msgCtx, err,
				logger.NewField("action", "process_order"),
				logger.NewField("offset", msg.Offset),
			)
			if ctx.Err() != nil {
				// never queued, left for redelivery
				continue
			}
			ack()
		}
	}
}

func (r *Router) startCommitter(ctx context.Context, reader orderreaderv1.OrderReader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.commitDone != nil {
		return
	}
	r.commitDone = make(chan struct{})

	// commits continue while Stop drains the engines
	go r.runCommitter(context.WithoutCancel(ctx), reader)
}

// runCommitter is the only goroutine committing, so offsets never go back.
func (r *Router) runCommitter(ctx context.Context, reader orderreaderv1.OrderReader) {
	defer close(r.commitDone)

	for {
		select {
		case <-r.offsets.notify:
			r.commit(ctx, reader)
		case <-r.commitStop:
			r.commit(ctx, reader)
			return
		}
	}
}

func (r *Router) commit(ctx context.Context, reader orderreaderv1.OrderReader) {
	msgs := r.offsets.take()
	if len(msgs) == 0 {
		return
	}
	if err := reader.CommitMessages(ctx, msgs...); err != nil {
		r.logger.ErrorContext(ctx, err,
			logger.NewField("action", "commit_order_message"),
			logger.NewField("count", len(msgs)),
		)
	}
}

// Instruments returns the instruments with a running engine.
func (r *Router) Instruments() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	instruments := make([]string, 0, len(r.engines))
	for instrument := range r.engines {
		instruments = append(instruments, instrument)
	}
	slices.Sort(instruments)
	return instruments
}

// Healthy reports every halted instrument.
func (r *Router) Healthy() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var halted []string
	for instrument, e := range r.engines {
		if e.Halted() {
			halted = append(halted, instrument)
		}
	}
	if len(halted) == 0 {
		return nil
	}

	slices.Sort(halted)
	return fmt.Errorf("instruments halted: %s", strings.Join(halted, ", "))
}

// Stop drains and stops every engine in parallel, then commits the offsets
// of everything they published.
func (r *Router) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	engines := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		engines = append(engines, e)
	}
	commitDone := r.commitDone
	r.mu.Unlock()

	var g errgroup.Group
	for _, e := range engines {
		g.Go(func() error {
			return e.Stop(ctx)
		})
	}
	err := g.Wait()

	r.stopCommits.Do(func() { close(r.commitStop) })
	if commitDone != nil {
		select {
		case <-commitDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}
