package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/muhammadchandra19/matcher/pkg/errors"
	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/muhammadchandra19/matcher/pkg/redis"

	snapshotv1 "github.com/muhammadchandra19/matcher/internal/domain/snapshot/v1"
)

// Store keeps the latest snapshot of each instrument under its own redis key.
type Store struct {
	logger      *logger.Logger
	redisclient redis.Client
}

// NewSnapshotStore creates a new Store backed by the given Redis client.
func NewSnapshotStore(redisclient redis.Client, logger *logger.Logger) *Store {
	return &Store{
		redisclient: redisclient,
		logger:      logger,
	}
}

func (s *Store) key(instrument string) string {
	return s.redisclient.Key("snapshot", instrument)
}

// Store stores the snapshot in Redis, replacing the previous one.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "instrument",
			Value: snapshot.Instrument,
		})
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	if err := s.redisclient.Set(ctx, s.key(snapshot.Instrument), buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "instrument",
			Value: snapshot.Instrument,
		}, logger.Field{
			Key:   "action",
			Value: "store snapshot",
		})
		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}

	s.logger.InfoContext(ctx, fmt.Sprintf("Snapshot stored for instrument %s", snapshot.Instrument), logger.Field{
		Key:   "sequence",
		Value: snapshot.Sequence,
	}, logger.Field{
		Key:   "orders",
		Value: len(snapshot.Orders),
	}, logger.Field{
		Key:   "stops",
		Value: len(snapshot.Stops),
	})
	return nil
}

// LoadStore loads the snapshot from Redis. It returns nil when none was stored.
func (s *Store) LoadStore(ctx context.Context, instrument string) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, s.key(instrument))
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "instrument",
			Value: instrument,
		}, logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, fmt.Sprintf("No snapshot found for instrument %s", instrument), logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "instrument",
			Value: instrument,
		}, logger.Field{
			Key:   "action",
			Value: "unmarshal snapshot",
		})
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}

	return &snapshot, nil
}
