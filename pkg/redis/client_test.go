package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novatra-store/novatra-backend/pkg/config"
)

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}

func TestOptionsFromConfigFromURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://:secret@localhost:6380/2",
		PoolSize: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 15, opts.PoolSize)
}

func TestOptionsFromConfigFromAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		Address:  "127.0.0.1:6379",
		Password: "pw",
		DB:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 1, opts.DB)
}

func TestKeyBuilders(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "nv:idempotency:webhook:evt_123", c.IdempotencyKey("webhook", "evt_123"))
	assert.Equal(t, "nv:rate_limit:ip:10.0.0.1", c.RateLimitKey("ip:10.0.0.1"))
	assert.Equal(t, "nv:otp:send:jane@example.com", c.OTPThrottleKey("  Jane@Example.com "))
}
