package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter/internal/platform/config"
	"newsletter/pkg/platform/sentinel"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("empty URL keeps limiter in memory", func(t *testing.T) {
		client, err := New(ctx, config.Redis{})
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := New(ctx, config.Redis{URL: "://nope"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse redis URL")
	})

	t.Run("unreachable server is unavailable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		url := "redis://" + mr.Addr()
		mr.Close()

		_, err := New(ctx, config.Redis{URL: url, DialTimeout: 200 * time.Millisecond})
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}

func TestHealthTracksServer(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client, err := New(ctx, config.Redis{URL: "redis://" + mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Health(ctx))

	mr.Close()
	assert.ErrorIs(t, client.Health(ctx), sentinel.ErrUnavailable)
}

func TestOptions(t *testing.T) {
	t.Run("config overrides pool and timeouts", func(t *testing.T) {
		opts, err := options(config.Redis{
			URL:          "redis://:secret@cache:6380/2",
			PoolSize:     4,
			MinIdleConns: 1,
			ReadTimeout:  time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "cache:6380", opts.Addr)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 4, opts.PoolSize)
		assert.Equal(t, 1, opts.MinIdleConns)
		assert.Equal(t, time.Second, opts.ReadTimeout)
	})

	t.Run("zero values keep go-redis defaults", func(t *testing.T) {
		opts, err := options(config.Redis{URL: "redis://cache:6379"})
		require.NoError(t, err)
		assert.Zero(t, opts.PoolSize)
		assert.Zero(t, opts.ReadTimeout)
	})
}
