package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of registering one event.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is a sliding window limiter backed by Redis sorted sets. Every event is a
// member scored by its timestamp; members older than the window are trimmed before
// counting.
type Limiter struct {
	Client redis.Cmdable
	Prefix string
	Now    func() time.Time
}

func (l Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Allow registers an event for key and reports whether it fits within limit events per
// window. A limiter without a client, or with a non-positive limit, allows everything.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, limit int) (Decision, error) {
	now := l.now()
	resetAt := now.Add(window)
	if l.Client == nil || limit <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: limit, ResetAt: resetAt}, nil
	}

	redisKey := l.Prefix + key
	cutoff := float64(now.Add(-window).UnixNano())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: resetAt}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	current := int(count.Val())
	return Decision{
		Allowed:   current <= limit,
		Remaining: max(limit-current, 0),
		ResetAt:   resetAt,
	}, nil
}
