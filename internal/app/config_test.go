package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/ecoly/ecoly/testing"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("AUDIT_RETENTION", "720h")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 720*time.Hour, cfg.AuditRetention)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, int32(10), cfg.PGMaxConns)

	redisOpts := cfg.RedisOptions()
	assert.Equal(t, "redis.internal:6380", redisOpts.Addr)
	assert.Equal(t, 3, redisOpts.DB)
	asynqOpts := cfg.AsynqRedis()
	assert.Equal(t, redisOpts.Addr, asynqOpts.Addr)
	assert.Equal(t, redisOpts.DB, asynqOpts.DB)
}

func TestLoadConfigRejectsShortJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "jwt secret")
}
