package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Consumer.Workers)
	assert.Equal(t, time.Hour, cfg.Consumer.DedupeTTL)
	assert.Equal(t, -1, cfg.Producer.Acks)
	assert.True(t, cfg.Producer.Idempotent)
	assert.Equal(t, "message-details", cfg.Responder.ReplyTopic)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.Redis.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092 ")
	t.Setenv("KAFKA_CONSUMER_WORKERS", "8")
	t.Setenv("KAFKA_CONSUMER_RETRY_MAX", "not-a-number")
	t.Setenv("KAFKA_PRODUCER_ACKS", "1")
	t.Setenv("KAFKA_PRODUCER_IDEMPOTENT", "false")
	t.Setenv("KAFKA_DEDUPE_TTL", "15m")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	cfg := FromEnv()

	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Consumer.Workers)
	assert.Equal(t, 3, cfg.Consumer.RetryMax)
	assert.Equal(t, 1, cfg.Producer.Acks)
	assert.False(t, cfg.Producer.Idempotent)
	assert.Equal(t, 15*time.Minute, cfg.Consumer.DedupeTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadFiles(t *testing.T) {
	// godotenv does not override variables that are already set.
	t.Setenv("RESPONDER_REPLY_TOPIC", "")
	os.Unsetenv("RESPONDER_REPLY_TOPIC")
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RESPONDER_REPLY_TOPIC=details-replies\nHTTP_ADDR=:9999\n"), 0o600))

	cfg, err := LoadFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "details-replies", cfg.Responder.ReplyTopic)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
}

func TestLoadFiles_Missing(t *testing.T) {
	_, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "No brokers",
			mutate:  func(c *Config) { c.Kafka.Brokers = nil },
			wantErr: "brokers cannot be empty",
		},
		{
			name:    "Zero workers",
			mutate:  func(c *Config) { c.Consumer.Workers = 0 },
			wantErr: "workers must be greater than zero",
		},
		{
			name:    "Negative retries",
			mutate:  func(c *Config) { c.Consumer.RetryMax = -1 },
			wantErr: "retryMax cannot be negative",
		},
		{
			name:    "Reply loops back to requests",
			mutate:  func(c *Config) { c.Responder.ReplyTopic = c.Consumer.Topic },
			wantErr: "must differ from consumer topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseAcks(t *testing.T) {
	assert.Equal(t, -1, parseAcks("ALL"))
	assert.Equal(t, -1, parseAcks("-1"))
	assert.Equal(t, 0, parseAcks("0"))
	assert.Equal(t, 1, parseAcks("1"))
	assert.Equal(t, -1, parseAcks("bogus"))
}
