package ratelimit_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/ratelimit"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLimiterAllowSlidingWindow(t *testing.T) {
	mr, client := newRedis(t)
	limiter := ratelimit.Limiter{Client: client, Prefix: "test:"}
	ctx := context.Background()
	window := 2 * time.Second

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "key", window, 2)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		require.Equal(t, 1-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "key", window, 2)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)

	mr.FastForward(window)

	d, err = limiter.Allow(ctx, "key", window, 2)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestLimiterWithoutClientAllows(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := ratelimit.Limiter{Now: func() time.Time { return now }}
	d, err := limiter.Allow(context.Background(), "key", time.Minute, 5)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 5, d.Remaining)
	require.Equal(t, now.Add(time.Minute), d.ResetAt)
}

func TestLimiterReportsRedisFailure(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()
	_, err := ratelimit.Limiter{Client: client}.Allow(context.Background(), "key", time.Second, 1)
	require.Error(t, err)
}
