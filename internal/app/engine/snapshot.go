package engine

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/muhammadchandra19/matcher/pkg/logger"

	eventv1 "github.com/muhammadchandra19/matcher/internal/domain/event/v1"
	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
	snapshotv1 "github.com/muhammadchandra19/matcher/internal/domain/snapshot/v1"
	"github.com/muhammadchandra19/matcher/internal/usecase/stop"
)

func (e *Engine) snapshotsEnabled() bool {
	return e.snapshotStore != nil && e.options.SnapshotEnabled
}

// runSnapshotManager stores a snapshot on every tick, and early when the
// actor reports enough new sequences.
func (e *Engine) runSnapshotManager() {
	defer e.wg.Done()

	interval := e.options.SnapshotInterval
	if interval <= 0 {
		interval = DefaultEngineOptions().SnapshotInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting snapshot manager", logger.NewField("interval", interval))

	for {
		select {
		case <-e.quit:
			e.logger.Info("Snapshot manager shutting down")
			return
		case <-ticker.C:
			e.createAndStoreSnapshot()
		case <-e.snapshotRequests:
			e.createAndStoreSnapshot()
		}
	}
}

// shouldCreateSnapshot runs on the actor after every command.
func (e *Engine) shouldCreateSnapshot() bool {
	if !e.snapshotsEnabled() || e.options.SnapshotSequenceDelta == 0 {
		return false
	}
	return e.sequence-e.lastSnapshotSequence.Load() >= e.options.SnapshotSequenceDelta
}

// createAndStoreSnapshot captures the state through the actor and stores it
// from the calling goroutine, so the actor never waits on storage.
func (e *Engine) createAndStoreSnapshot() {
	var snapshot *snapshotv1.Snapshot
	if _, err := e.query(e.ctx, func() []eventv1.Event {
		snapshot = e.captureSnapshot()
		return nil
	}); err != nil {
		return
	}

	if snapshot != nil {
		e.storeSnapshot(snapshot)
	}
}

// storeFinalSnapshot runs on the actor once the queue is drained.
func (e *Engine) storeFinalSnapshot() {
	if !e.snapshotsEnabled() {
		return
	}
	if snapshot := e.captureSnapshot(); snapshot != nil {
		e.storeSnapshot(snapshot)
	}
}

// storeSnapshot never lets an older capture overwrite a newer one.
func (e *Engine) storeSnapshot(snapshot *snapshotv1.Snapshot) {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	if snapshot.Sequence <= e.lastSnapshotSequence.Load() {
		return
	}
	if err := e.snapshotStore.Store(e.ctx, snapshot); err != nil {
		e.logger.ErrorContext(e.ctx, err, logger.NewField("action", "store_snapshot"))
		return
	}

	e.lastSnapshotSequence.Store(snapshot.Sequence)
	e.logger.Info("Snapshot stored successfully",
		logger.NewField("sequence", snapshot.Sequence),
		logger.NewField("orders", len(snapshot.Orders)),
		logger.NewField("stops", len(snapshot.Stops)),
	)
}

// captureSnapshot deep copies the actor state. It returns nil when the
// instrument is halted or nothing changed since the last stored snapshot.
func (e *Engine) captureSnapshot() *snapshotv1.Snapshot {
	if e.halted != nil {
		return nil
	}
	if e.sequence == e.lastSnapshotSequence.Load() {
		return nil
	}

	snapshot := e.orderbook.CreateSnapshot()
	snapshot.Instrument = e.instrument
	snapshot.Sequence = e.sequence
	snapshot.LastPrice = e.lastPrice
	snapshot.Terminal = maps.Clone(e.terminal)
	snapshot.CreatedAt = e.now()

	pending := e.stops.Pending()
	snapshot.Stops = make([]*orderbookv1.Order, 0, len(pending))
	for _, order := range pending {
		cp := *order
		snapshot.Stops = append(snapshot.Stops, &cp)
	}

	return snapshot
}

// loadSnapshot restores the latest stored snapshot, if any.
func (e *Engine) loadSnapshot(ctx context.Context) error {
	if !e.snapshotsEnabled() {
		return nil
	}

	snapshot, err := e.snapshotStore.LoadStore(ctx, e.instrument)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	if err := e.restore(snapshot); err != nil {
		return err
	}

	e.logger.Info("Orderbook restored from snapshot",
		logger.NewField("sequence", snapshot.Sequence),
		logger.NewField("orders", len(snapshot.Orders)),
		logger.NewField("stops", len(snapshot.Stops)),
	)
	return nil
}

// restore replaces the engine state with snapshot. It must run before the actor starts.
func (e *Engine) restore(snapshot *snapshotv1.Snapshot) error {
	if snapshot.Instrument != "" && snapshot.Instrument != e.instrument {
		return fmt.Errorf("snapshot of %s cannot restore %s", snapshot.Instrument, e.instrument)
	}

	if err := e.orderbook.RestoreOrderbook(snapshot); err != nil {
		return fmt.Errorf("failed to restore orderbook: %w", err)
	}

	stops := stop.NewMonitor()
	for _, pending := range snapshot.Stops {
		if pending == nil {
			return fmt.Errorf("nil stop order in snapshot")
		}
		order := *pending
		if err := stops.Add(&order); err != nil {
			return fmt.Errorf("failed to restore stop order %s: %w", order.ID, err)
		}
	}
	e.stops = stops

	e.terminal = make(map[string]orderbookv1.Status, len(snapshot.Terminal))
	maps.Copy(e.terminal, snapshot.Terminal)

	e.sequence = snapshot.Sequence
	e.lastPrice = snapshot.LastPrice
	e.currentSequence.Store(e.sequence)
	e.lastSnapshotSequence.Store(e.sequence)

	e.metrics.SetBookSize(e.instrument, e.orderbook.Len(), e.stops.Len())
	return nil
}
