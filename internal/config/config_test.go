package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"localhost:27017"}, cfg.Database.Hosts)
	assert.Equal(t, "livechat", cfg.Database.Database)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 25*time.Second, cfg.Socket.PingInterval)
	assert.Equal(t, 60, cfg.Chat.RateLimitMessages)
	assert.Equal(t, time.Minute, cfg.Chat.RateLimitWindow)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("DATABASE_HOSTS", "db1:27017,db2:27017")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CHAT_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("SERVER_CORS_ORIGIN_PATTERN", `^https://.*\.example\.com$`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"db1:27017", "db2:27017"}, cfg.Database.Hosts)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Chat.RateLimitWindow)
	assert.Equal(t, `^https://.*\.example\.com$`, cfg.Server.CORSOriginPattern)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad worker count", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "secret")
		t.Setenv("KAFKA_NUM_WORKERS", "0")
		_, err := Load()
		assert.ErrorContains(t, err, "KAFKA_NUM_WORKERS")
	})

	t.Run("negative rate limit", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "secret")
		t.Setenv("CHAT_RATE_LIMIT_MESSAGES", "-1")
		_, err := Load()
		assert.ErrorContains(t, err, "CHAT_RATE_LIMIT_MESSAGES")
	})

	t.Run("must load panics", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "")
		assert.Panics(t, func() { MustLoad() })
	})
}
