package engine

import (
	"time"

	"github.com/muhammadchandra19/matcher/pkg/config"
)

// Options represents configuration options for the Engine.
type Options struct {
	QueueSize             int
	SnapshotEnabled       bool
	SnapshotInterval      time.Duration
	SnapshotSequenceDelta uint64
	Clock                 func() time.Time

	// ValidateBook walks the whole book after every command instead of
	// checking only the orders it touched. Linear in book size, for debugging.
	ValidateBook bool
}

// DefaultEngineOptions returns the default engine options.
func DefaultEngineOptions() *Options {
	return &Options{
		QueueSize:             1024,
		SnapshotEnabled:       true,
		SnapshotInterval:      30 * time.Second,
		SnapshotSequenceDelta: 1000,
		Clock:                 time.Now,
	}
}

// OptionsFromConfig builds engine options from the engine section of the config.
func OptionsFromConfig(cfg config.EngineConfig) *Options {
	opts := DefaultEngineOptions()
	opts.QueueSize = cfg.QueueSize
	opts.SnapshotEnabled = cfg.SnapshotEnabled
	opts.SnapshotInterval = cfg.SnapshotInterval
	opts.SnapshotSequenceDelta = cfg.SnapshotSequenceDelta
	opts.ValidateBook = cfg.ValidateBook
	return opts
}
