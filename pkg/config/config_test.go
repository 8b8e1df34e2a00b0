package config

import (
	"testing"
	"time"

	"github.com/muhammadchandra19/matcher/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, Load(cfg))

	assert.Equal(t, "BTC-USD", cfg.DefaultInstrument)
	assert.Equal(t, TransportRedis, cfg.Source)
	assert.Equal(t, TransportRedis, cfg.Sink)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, "orders", cfg.RedisConfig.OrderChannel)
	assert.Equal(t, "executions", cfg.RedisConfig.EventChannel)
	assert.Equal(t, redis.Standalone, cfg.RedisConfig.Mode)
	assert.Equal(t, 30*time.Second, cfg.SnapshotInterval)
	assert.Equal(t, uint64(1000), cfg.SnapshotSequenceDelta)
	assert.Empty(t, cfg.Instruments)
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_INSTRUMENTS", "BTC-USD,ETH-USD")
	t.Setenv("ORDER_SOURCE", "kafka")
	t.Setenv("EVENT_SINK", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDRS", "r1:6379")
	t.Setenv("REDIS_PREFIX_KEY", "test:")
	t.Setenv("ENGINE_QUEUE_SIZE", "16")
	t.Setenv("ENGINE_SNAPSHOT_ENABLED", "false")
	t.Setenv("ENGINE_VALIDATE_BOOK", "true")

	cfg := &Config{}
	require.NoError(t, Load(cfg))

	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, cfg.Instruments)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, []string{"r1:6379"}, cfg.RedisConfig.Addrs)
	assert.Equal(t, "test:", cfg.RedisConfig.PrefixKey)
	assert.Equal(t, 16, cfg.QueueSize)
	assert.True(t, cfg.ValidateBook)
	assert.False(t, cfg.UsesRedis())
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown source", mutate: func(c *Config) { c.Source = "nats" }, wantErr: true},
		{name: "unknown sink", mutate: func(c *Config) { c.Sink = "" }, wantErr: true},
		{name: "no default instrument", mutate: func(c *Config) { c.DefaultInstrument = "" }, wantErr: true},
		{name: "zero queue", mutate: func(c *Config) { c.QueueSize = 0 }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.SnapshotInterval = 0 }, wantErr: true},
		{
			name:   "zero interval without snapshots",
			mutate: func(c *Config) { c.SnapshotInterval = 0; c.SnapshotEnabled = false },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			require.NoError(t, Load(cfg))
			tc.mutate(cfg)

			if tc.wantErr {
				assert.Error(t, cfg.Validate())
				return
			}
			assert.NoError(t, cfg.Validate())
		})
	}
}
