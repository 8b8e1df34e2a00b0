package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/muhammadchandra19/matcher/pkg/redis"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and an optional .env file.
func Load[T any](cfg T) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}

	return env.Parse(cfg)
}

// Transport selects where orders are read from or events are written to.
type Transport string

const (
	// TransportKafka uses kafka topics.
	TransportKafka Transport = "kafka"
	// TransportRedis uses redis pub/sub channels.
	TransportRedis Transport = "redis"
)

// Config holds the configuration for the application
type Config struct {
	AppConfig    `envPrefix:"APP_"`
	Source       Transport `env:"ORDER_SOURCE" envDefault:"redis"`
	Sink         Transport `env:"EVENT_SINK" envDefault:"redis"`
	KafkaConfig  `envPrefix:"KAFKA_"`
	RedisConfig  `envPrefix:"REDIS_"`
	EngineConfig `envPrefix:"ENGINE_"`
}

// AppConfig holds process level settings.
type AppConfig struct {
	Name              string   `env:"NAME" envDefault:"matching-engine"`
	LogLevel          string   `env:"LOG_LEVEL" envDefault:"info"`
	DefaultInstrument string   `env:"DEFAULT_INSTRUMENT" envDefault:"BTC-USD"`
	Instruments       []string `env:"INSTRUMENTS" envSeparator:","` // empty means instruments are created on first use
	HTTPAddr          string   `env:"HTTP_ADDR" envDefault:":8080"`
}

// KafkaConfig holds the configuration for Kafka consumer and producer.
type KafkaConfig struct {
	Brokers    []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	OrderTopic string   `env:"ORDER_TOPIC" envDefault:"orders"`
	EventTopic string   `env:"EVENT_TOPIC" envDefault:"executions"`
	GroupID    string   `env:"GROUP_ID" envDefault:"matching-engine"`
}

// RedisConfig holds the redis client settings and the pub/sub channel names.
type RedisConfig struct {
	redis.Config
	OrderChannel string `env:"ORDER_CHANNEL" envDefault:"orders"`
	EventChannel string `env:"EVENT_CHANNEL" envDefault:"executions"`
}

// EngineConfig holds the per-instrument engine settings.
type EngineConfig struct {
	QueueSize             int           `env:"QUEUE_SIZE" envDefault:"1024"`
	SnapshotEnabled       bool          `env:"SNAPSHOT_ENABLED" envDefault:"true"`
	SnapshotInterval      time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"30s"`
	SnapshotSequenceDelta uint64        `env:"SNAPSHOT_SEQUENCE_DELTA" envDefault:"1000"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	ValidateBook          bool          `env:"VALIDATE_BOOK" envDefault:"false"`
}

// Validate checks values that cannot be expressed with struct tags.
func (c *Config) Validate() error {
	for _, t := range []Transport{c.Source, c.Sink} {
		if t != TransportKafka && t != TransportRedis {
			return fmt.Errorf("unsupported transport %q", t)
		}
	}
	if c.DefaultInstrument == "" {
		return fmt.Errorf("default instrument is required")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("engine queue size must be positive, got %d", c.QueueSize)
	}
	if c.SnapshotEnabled && c.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot interval must be positive, got %s", c.SnapshotInterval)
	}
	return nil
}

// UsesRedis reports whether any component needs a redis connection.
func (c *Config) UsesRedis() bool {
	return c.Source == TransportRedis || c.Sink == TransportRedis || c.SnapshotEnabled
}
